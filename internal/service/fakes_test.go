package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	"github.com/duthaho/trello-clone-sub000/internal/cache"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
)

// memStore is an in-memory stand-in for the Postgres repos.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	users    map[int64]dom.User
	projects map[int64]dom.Project
	members  map[int64]map[int64]dom.Role
	tasks    map[int64]dom.Task
	comments map[int64]dom.Comment
	notifs   map[int64]dom.Notification
	audit    []dom.AuditLog

	taskCalls map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]dom.User{},
		projects:  map[int64]dom.Project{},
		members:   map[int64]map[int64]dom.Role{},
		tasks:     map[int64]dom.Task{},
		comments:  map[int64]dom.Comment{},
		notifs:    map[int64]dom.Notification{},
		taskCalls: map[string]int{},
	}
}

func (m *memStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *memStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audit))
	for _, e := range m.audit {
		out = append(out, e.Action)
	}
	return out
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u dom.User) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email == u.Email {
			return dom.User{}, dom.ErrEmailTaken
		}
		if x.Username == u.Username {
			return dom.User{}, dom.ErrUsernameTaken
		}
	}
	u.ID = r.next()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return dom.User{}, dom.ErrNotFound
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return dom.User{}, dom.ErrNotFound
}

func (r memUsers) UpdateProfile(_ context.Context, id int64, fullName string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return dom.User{}, dom.ErrNotFound
	}
	u.FullName = fullName
	r.users[id] = u
	return u, nil
}

func (r memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return dom.ErrNotFound
	}
	u.PasswordHash = hash
	r.users[id] = u
	return nil
}

type memProjects struct{ *memStore }

func (r memProjects) Create(_ context.Context, p dom.Project) (dom.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.next()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.projects[p.ID] = p
	r.members[p.ID] = map[int64]dom.Role{p.OwnerID: dom.RoleOwner}
	return p, nil
}

func (r memProjects) GetByID(_ context.Context, id int64) (dom.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.DeletedAt != nil {
		return dom.Project{}, dom.ErrNotFound
	}
	return p, nil
}

func (r memProjects) ListForUser(_ context.Context, userID int64, limit, offset int) ([]dom.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.Project
	for id, p := range r.projects {
		if _, ok := r.members[id][userID]; ok && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r memProjects) Update(_ context.Context, p dom.Project) (dom.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return p, nil
}

func (r memProjects) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.DeletedAt != nil {
		return dom.ErrNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	r.projects[id] = p
	return nil
}

func (r memProjects) MemberRole(_ context.Context, projectID, userID int64) (dom.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok || p.DeletedAt != nil {
		return "", dom.ErrNotFound
	}
	role, ok := r.members[projectID][userID]
	if !ok {
		return "", dom.ErrNotFound
	}
	return role, nil
}

func (r memProjects) ListMembers(_ context.Context, projectID int64) ([]dom.ProjectMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.ProjectMember
	for uid, role := range r.members[projectID] {
		u := r.users[uid]
		out = append(out, dom.ProjectMember{ProjectID: projectID, UserID: uid, Username: u.Username, Email: u.Email, Role: role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r memProjects) AddMember(_ context.Context, projectID, userID int64, role dom.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[projectID][userID]; ok {
		return dom.ErrConflict
	}
	r.members[projectID][userID] = role
	return nil
}

func (r memProjects) UpdateMemberRole(_ context.Context, projectID, userID int64, role dom.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[projectID][userID]; !ok {
		return dom.ErrNotFound
	}
	r.members[projectID][userID] = role
	return nil
}

func (r memProjects) RemoveMember(_ context.Context, projectID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[projectID][userID]; !ok {
		return dom.ErrNotFound
	}
	delete(r.members[projectID], userID)
	for id, t := range r.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			r.tasks[id] = t
		}
	}
	return nil
}

type memTasks struct{ *memStore }

func (r memTasks) Create(_ context.Context, t dom.Task) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.next()
	t.Position = r.columnLen(t.ProjectID, t.Status, 0)
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.tasks[t.ID] = t
	return t, nil
}

func (r memTasks) GetByID(_ context.Context, id int64) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.DeletedAt != nil || r.projects[t.ProjectID].DeletedAt != nil {
		return dom.Task{}, dom.ErrNotFound
	}
	return t, nil
}

func (r memTasks) List(_ context.Context, projectID int64, f dom.TaskFilter, limit, offset int) ([]dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskCalls["list"]++
	var out []dom.Task
	for _, t := range r.tasks {
		if t.ProjectID != projectID || t.DeletedAt != nil {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			continue
		}
		out = append(out, t)
	}
	sortBoard(out)
	return page(out, limit, offset), nil
}

func (r memTasks) Update(_ context.Context, t dom.Task) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[t.ID]
	if !ok || cur.DeletedAt != nil {
		return dom.Task{}, dom.ErrNotFound
	}
	cur.Title, cur.Description, cur.Priority, cur.AssigneeID, cur.DueAt = t.Title, t.Description, t.Priority, t.AssigneeID, t.DueAt
	r.tasks[t.ID] = cur
	return cur, nil
}

func (r memTasks) Move(_ context.Context, id int64, status dom.TaskStatus, position int, completedAt *time.Time) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.DeletedAt != nil {
		return dom.Task{}, dom.ErrNotFound
	}
	for oid, o := range r.tasks {
		if oid != id && o.ProjectID == t.ProjectID && o.Status == t.Status && o.Position > t.Position && o.DeletedAt == nil {
			o.Position--
			r.tasks[oid] = o
		}
	}
	if n := r.columnLen(t.ProjectID, status, id); position > n {
		position = n
	}
	for oid, o := range r.tasks {
		if oid != id && o.ProjectID == t.ProjectID && o.Status == status && o.Position >= position && o.DeletedAt == nil {
			o.Position++
			r.tasks[oid] = o
		}
	}
	t.Status, t.Position, t.CompletedAt = status, position, completedAt
	r.tasks[id] = t
	return t, nil
}

func (r memTasks) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.DeletedAt != nil {
		return dom.ErrNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	r.tasks[id] = t
	return nil
}

func (r memTasks) Search(_ context.Context, projectID int64, q string) ([]dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskCalls["search"]++
	q = strings.ToLower(q)
	var out []dom.Task
	for _, t := range r.tasks {
		if t.ProjectID == projectID && t.DeletedAt == nil &&
			(strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q)) {
			out = append(out, t)
		}
	}
	sortBoard(out)
	return out, nil
}

func (r memTasks) OverdueForUser(_ context.Context, userID int64, now time.Time) ([]dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.Task
	for _, t := range r.tasks {
		if t.DeletedAt == nil && t.AssigneeID != nil && *t.AssigneeID == userID && t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(*out[j].DueAt) })
	return out, nil
}

func (m *memStore) columnLen(projectID int64, status dom.TaskStatus, except int64) int {
	n := 0
	for id, t := range m.tasks {
		if id != except && t.ProjectID == projectID && t.Status == status && t.DeletedAt == nil {
			n++
		}
	}
	return n
}

type memComments struct{ *memStore }

func (r memComments) Create(_ context.Context, c dom.Comment) (dom.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.next()
	c.AuthorUsername = r.users[c.AuthorID].Username
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.comments[c.ID] = c
	return c, nil
}

func (r memComments) GetByID(_ context.Context, id int64) (dom.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.DeletedAt != nil {
		return dom.Comment{}, dom.ErrNotFound
	}
	return c, nil
}

func (r memComments) ListByTask(_ context.Context, taskID int64, limit, offset int) ([]dom.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.Comment
	for _, c := range r.comments {
		if c.TaskID == taskID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (r memComments) UpdateBody(_ context.Context, id int64, body string) (dom.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.DeletedAt != nil {
		return dom.Comment{}, dom.ErrNotFound
	}
	c.Body = body
	r.comments[id] = c
	return c, nil
}

func (r memComments) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.DeletedAt != nil {
		return dom.ErrNotFound
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	r.comments[id] = c
	return nil
}

type memAudit struct{ *memStore }

func (r memAudit) Insert(_ context.Context, e dom.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.next()
	r.audit = append(r.audit, e)
	return nil
}

func (r memAudit) ListByProject(_ context.Context, projectID int64, limit int, beforeID int64) ([]dom.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.AuditLog
	for i := len(r.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.audit[i]
		if e.ProjectID != nil && *e.ProjectID == projectID && (beforeID == 0 || e.ID < beforeID) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memNotifications struct{ *memStore }

func (r memNotifications) Create(_ context.Context, n dom.Notification) (dom.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.next()
	r.notifs[n.ID] = n
	return n, nil
}

func (r memNotifications) ListForUser(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]dom.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []dom.Notification
	for _, n := range r.notifs {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r memNotifications) CountUnread(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notifs {
		if x.UserID == userID && x.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifs[id]
	if !ok || n.UserID != userID {
		return dom.ErrNotFound
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		n.ReadAt = &now
		r.notifs[id] = n
	}
	return nil
}

func (r memNotifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for id, x := range r.notifs {
		if x.UserID == userID && x.ReadAt == nil {
			x.ReadAt = &now
			r.notifs[id] = x
			n++
		}
	}
	return n, nil
}

func sortBoard(list []dom.Task) {
	order := map[dom.TaskStatus]int{dom.StatusTodo: 0, dom.StatusInProgress: 1, dom.StatusReview: 2, dom.StatusDone: 3}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if order[a.Status] != order[b.Status] {
			return order[a.Status] < order[b.Status]
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.evs))
	for _, e := range p.evs {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.evs = nil
	p.mu.Unlock()
}

// fixture wires every service over the in-memory store and a miniredis.
type fixture struct {
	store    *memStore
	mr       *miniredis.Miniredis
	pub      *recordingPublisher
	tokens   *auth.TokenManager
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
	comments *CommentService
	notifs   *NotificationService
	audit    *AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zap.NewNop().Sugar()
	st := newMemStore()
	pub := &recordingPublisher{}
	tokens := auth.NewTokenManager("0123456789abcdef0123456789abcdef", "test", 15*time.Minute, time.Hour)
	auditSvc := NewAuditService(memAudit{st}, memProjects{st}, log)
	taskCache := cache.NewTaskCache(rdb, time.Minute)

	return &fixture{
		store:    st,
		mr:       mr,
		pub:      pub,
		tokens:   tokens,
		users:    NewUserService(memUsers{st}, tokens, auth.NewRefreshStore(rdb, time.Hour), log),
		projects: NewProjectService(memProjects{st}, memUsers{st}, auditSvc, pub, taskCache, log),
		tasks:    NewTaskService(memTasks{st}, memProjects{st}, taskCache, auditSvc, pub, log),
		comments: NewCommentService(memComments{st}, memTasks{st}, memProjects{st}, auditSvc, pub, log),
		notifs:   NewNotificationService(memNotifications{st}),
		audit:    auditSvc,
	}
}

// seedUser inserts an active user directly.
func (f *fixture) seedUser(t *testing.T, name string) dom.User {
	t.Helper()
	u, err := memUsers{f.store}.Create(context.Background(), dom.User{
		Email:    name + "@example.com",
		Username: name,
		IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// seedProject creates a project owned by owner with the given extra members.
func (f *fixture) seedProject(t *testing.T, owner dom.User, members map[int64]dom.Role) dom.Project {
	t.Helper()
	ctx := context.Background()
	p, err := f.projects.Create(ctx, owner.ID, "Board", "")
	if err != nil {
		t.Fatal(err)
	}
	for uid, role := range members {
		if err := (memProjects{f.store}).AddMember(ctx, p.ID, uid, role); err != nil {
			t.Fatal(err)
		}
	}
	return p
}
