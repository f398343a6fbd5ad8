package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/duthaho/trello-clone-sub000/internal/cache"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/metrics"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

type TaskService struct {
	repo     repo.TaskRepo
	projects repo.ProjectRepo
	cache    *cache.TaskCache
	audit    *AuditService
	pub      events.Publisher
	log      *zap.SugaredLogger
	sf       singleflight.Group
	now      func() time.Time
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(r repo.TaskRepo, projects repo.ProjectRepo, c *cache.TaskCache, audit *AuditService, pub events.Publisher, log *zap.SugaredLogger) *TaskService {
	return &TaskService{
		repo:     r,
		projects: projects,
		cache:    c,
		audit:    audit,
		pub:      pub,
		log:      log.Named("tasks"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      dom.TaskStatus
	Priority    dom.Priority
	AssigneeID  *int64
	DueAt       *time.Time
}

// UpdateTaskInput is a partial update; nil fields are left alone.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *dom.Priority
	DueAt       *time.Time
	ClearDueAt  bool
}

func (s *TaskService) Create(ctx context.Context, userID, projectID int64, in CreateTaskInput) (dom.Task, error) {
	if _, err := requireRole(ctx, s.projects, projectID, userID, dom.RoleMember); err != nil {
		return dom.Task{}, err
	}
	title, err := cleanText("title", in.Title, 1, 120)
	if err != nil {
		return dom.Task{}, err
	}
	desc, err := cleanText("description", in.Description, 0, 1000)
	if err != nil {
		return dom.Task{}, err
	}
	if in.Status == "" {
		in.Status = dom.StatusTodo
	}
	if !in.Status.Valid() {
		return dom.Task{}, invalid("unknown status %q", in.Status)
	}
	if in.Priority == "" {
		in.Priority = dom.PriorityMedium
	}
	if !in.Priority.Valid() {
		return dom.Task{}, invalid("unknown priority %q", in.Priority)
	}
	now := s.now()
	if in.DueAt != nil && in.DueAt.Before(now) {
		return dom.Task{}, dom.ErrInvalidDueDate
	}
	if in.AssigneeID != nil {
		if err := s.checkAssignee(ctx, projectID, *in.AssigneeID); err != nil {
			return dom.Task{}, err
		}
	}

	t := dom.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: desc,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		CreatorID:   userID,
		DueAt:       in.DueAt,
	}
	t.SetStatus(in.Status, now)
	t, err = s.repo.Create(ctx, t)
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, projectID)

	s.audit.Record(ctx, auditEntry(userID, projectID, "task.created", "task", t.ID, map[string]string{"title": t.Title}))
	evs := []events.Event{s.event(ctx, events.TaskCreated, userID, t)}
	if t.AssigneeID != nil {
		evs = append(evs, s.event(ctx, events.TaskAssigned, userID, t))
	}
	publish(ctx, s.pub, s.log, evs...)
	return t, nil
}

// List returns the project's tasks in board order. The unfiltered first page
// is served from the cache.
func (s *TaskService) List(ctx context.Context, userID, projectID int64, f dom.TaskFilter, limit, offset int) ([]dom.Task, error) {
	if _, err := requireRole(ctx, s.projects, projectID, userID, dom.RoleViewer); err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, invalid("unknown priority %q", f.Priority)
	}
	limit, offset = utils.ClampPage(limit, offset)
	if s.cache == nil || !f.IsZero() || offset != 0 || limit != utils.DefaultLimit {
		return s.repo.List(ctx, projectID, f, limit, offset)
	}

	key := "list:" + strconv.FormatInt(projectID, 10)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if list, err := s.cache.GetList(ctx, projectID); err == nil && list != nil {
			metrics.ObserveCache("task_list", true)
			return list, nil
		}
		metrics.ObserveCache("task_list", false)
		list, err := s.repo.List(ctx, projectID, f, limit, offset)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, projectID, list); err != nil {
			s.log.Warnw("cache set failed", "project_id", projectID, "error", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

// Get returns a task if the caller can see its project.
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (dom.Task, error) {
	t, _, err := s.load(ctx, userID, taskID, dom.RoleViewer)
	return t, err
}

func (s *TaskService) Update(ctx context.Context, userID, taskID int64, in UpdateTaskInput) (dom.Task, error) {
	t, _, err := s.load(ctx, userID, taskID, dom.RoleMember)
	if err != nil {
		return dom.Task{}, err
	}
	changed := map[string]string{}
	if in.Title != nil {
		if t.Title, err = cleanText("title", *in.Title, 1, 120); err != nil {
			return dom.Task{}, err
		}
		changed["title"] = t.Title
	}
	if in.Description != nil {
		if t.Description, err = cleanText("description", *in.Description, 0, 1000); err != nil {
			return dom.Task{}, err
		}
		changed["description"] = "updated"
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return dom.Task{}, invalid("unknown priority %q", *in.Priority)
		}
		t.Priority = *in.Priority
		changed["priority"] = string(t.Priority)
	}
	switch {
	case in.ClearDueAt:
		t.DueAt = nil
		changed["due_at"] = ""
	case in.DueAt != nil:
		if in.DueAt.Before(s.now()) {
			return dom.Task{}, dom.ErrInvalidDueDate
		}
		t.DueAt = in.DueAt
		changed["due_at"] = in.DueAt.UTC().Format(time.RFC3339)
	}
	if len(changed) == 0 {
		return t, nil
	}

	t, err = s.repo.Update(ctx, t)
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, t.ProjectID)
	s.audit.Record(ctx, auditEntry(userID, t.ProjectID, "task.updated", "task", t.ID, changed))
	return t, nil
}

// Move puts the task at position in the status column. Positions past the
// end of the column append.
func (s *TaskService) Move(ctx context.Context, userID, taskID int64, status dom.TaskStatus, position int) (dom.Task, error) {
	if !status.Valid() {
		return dom.Task{}, invalid("unknown status %q", status)
	}
	if position < 0 {
		return dom.Task{}, invalid("position must not be negative")
	}
	t, _, err := s.load(ctx, userID, taskID, dom.RoleMember)
	if err != nil {
		return dom.Task{}, err
	}
	return s.move(ctx, userID, t, status, position)
}

// Complete moves the task to the end of the done column.
func (s *TaskService) Complete(ctx context.Context, userID, taskID int64) (dom.Task, error) {
	t, _, err := s.load(ctx, userID, taskID, dom.RoleMember)
	if err != nil {
		return dom.Task{}, err
	}
	if t.Status == dom.StatusDone {
		return t, nil
	}
	return s.move(ctx, userID, t, dom.StatusDone, math.MaxInt32)
}

func (s *TaskService) move(ctx context.Context, userID int64, t dom.Task, status dom.TaskStatus, position int) (dom.Task, error) {
	from := t.Status
	t.SetStatus(status, s.now())
	moved, err := s.repo.Move(ctx, t.ID, status, position, t.CompletedAt)
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, moved.ProjectID)
	s.audit.Record(ctx, auditEntry(userID, moved.ProjectID, "task.moved", "task", moved.ID, map[string]string{
		"from":     string(from),
		"to":       string(moved.Status),
		"position": strconv.Itoa(moved.Position),
	}))
	if from != dom.StatusDone && moved.Status == dom.StatusDone {
		publish(ctx, s.pub, s.log, s.event(ctx, events.TaskCompleted, userID, moved))
	}
	return moved, nil
}

// Assign sets or clears the assignee. The new assignee must be a project member.
func (s *TaskService) Assign(ctx context.Context, userID, taskID int64, assigneeID *int64) (dom.Task, error) {
	t, _, err := s.load(ctx, userID, taskID, dom.RoleMember)
	if err != nil {
		return dom.Task{}, err
	}
	if assigneeID != nil {
		if err := s.checkAssignee(ctx, t.ProjectID, *assigneeID); err != nil {
			return dom.Task{}, err
		}
	}
	if sameAssignee(t.AssigneeID, assigneeID) {
		return t, nil
	}
	t.AssigneeID = assigneeID
	t, err = s.repo.Update(ctx, t)
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, t.ProjectID)
	s.audit.Record(ctx, auditEntry(userID, t.ProjectID, "task.assigned", "task", t.ID,
		map[string]string{"assignee_id": events.FormatID(assigneeID)}))
	if assigneeID != nil {
		publish(ctx, s.pub, s.log, s.event(ctx, events.TaskAssigned, userID, t))
	}
	return t, nil
}

// Delete soft-deletes the task. Members may delete their own tasks, admins any.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	t, role, err := s.load(ctx, userID, taskID, dom.RoleMember)
	if err != nil {
		return err
	}
	if t.CreatorID != userID && !role.AtLeast(dom.RoleAdmin) {
		return fmt.Errorf("%w: only the creator or an admin can delete a task", dom.ErrForbidden)
	}
	if err := s.repo.SoftDelete(ctx, t.ID); err != nil {
		return err
	}
	s.invalidateCache(ctx, t.ProjectID)
	s.audit.Record(ctx, auditEntry(userID, t.ProjectID, "task.deleted", "task", t.ID, map[string]string{"title": t.Title}))
	return nil
}

func (s *TaskService) Search(ctx context.Context, userID, projectID int64, q string) ([]dom.Task, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("q is required")
	}
	if _, err := requireRole(ctx, s.projects, projectID, userID, dom.RoleViewer); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return s.repo.Search(ctx, projectID, q)
	}

	key := "search:" + strconv.FormatInt(projectID, 10) + ":" + cache.NormalizeQuery(q)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if list, err := s.cache.GetSearch(ctx, projectID, q); err == nil && list != nil {
			metrics.ObserveCache("task_search", true)
			return list, nil
		}
		metrics.ObserveCache("task_search", false)
		list, err := s.repo.Search(ctx, projectID, q)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetSearch(ctx, projectID, q, list); err != nil {
			s.log.Warnw("cache set failed", "project_id", projectID, "error", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

// Overdue lists open tasks assigned to the caller whose due date has passed.
func (s *TaskService) Overdue(ctx context.Context, userID int64) ([]dom.Task, error) {
	return s.repo.OverdueForUser(ctx, userID, s.now())
}

// load fetches the task and checks the caller's role in its project.
func (s *TaskService) load(ctx context.Context, userID, taskID int64, min dom.Role) (dom.Task, dom.Role, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return dom.Task{}, "", err
	}
	role, err := requireRole(ctx, s.projects, t.ProjectID, userID, min)
	if err != nil {
		return dom.Task{}, "", err
	}
	return t, role, nil
}

func (s *TaskService) checkAssignee(ctx context.Context, projectID, assigneeID int64) error {
	_, err := s.projects.MemberRole(ctx, projectID, assigneeID)
	if errors.Is(err, dom.ErrNotFound) {
		return fmt.Errorf("%w: assignee %d", dom.ErrNotMember, assigneeID)
	}
	return err
}

func (s *TaskService) event(ctx context.Context, typ events.Type, actorID int64, t dom.Task) events.Event {
	return events.New(typ, actorID, t.ProjectID, t.ID, map[string]string{
		events.KeyTitle:      t.Title,
		events.KeyCreatorID:  idString(t.CreatorID),
		events.KeyAssigneeID: events.FormatID(t.AssigneeID),
		events.KeyActorName:  metaFrom(ctx).Username,
	})
}

func (s *TaskService) invalidateCache(ctx context.Context, projectID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProject(ctx, projectID); err != nil {
		s.log.Warnw("cache invalidation failed", "project_id", projectID, "error", err)
	}
}

func sameAssignee(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
