package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
)

type boardFixture struct {
	*fixture
	owner, member, viewer, stranger dom.User
	project                         dom.Project
}

func newBoard(t *testing.T) *boardFixture {
	f := newFixture(t)
	b := &boardFixture{
		fixture:  f,
		owner:    f.seedUser(t, "owner"),
		member:   f.seedUser(t, "member"),
		viewer:   f.seedUser(t, "viewer"),
		stranger: f.seedUser(t, "stranger"),
	}
	b.project = f.seedProject(t, b.owner, map[int64]dom.Role{
		b.member.ID: dom.RoleMember,
		b.viewer.ID: dom.RoleViewer,
	})
	return b
}

func ptr[T any](v T) *T { return &v }

func TestTaskService_CreateDefaultsAndEvents(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	task, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: " Write docs "})
	require.NoError(t, err)
	require.Equal(t, "Write docs", task.Title)
	require.Equal(t, dom.StatusTodo, task.Status)
	require.Equal(t, dom.PriorityMedium, task.Priority)
	require.Equal(t, 0, task.Position)
	require.Nil(t, task.CompletedAt)
	require.Equal(t, []events.Type{events.TaskCreated}, b.pub.types())

	b.pub.reset()
	second, err := b.tasks.Create(ctx, b.member.ID, b.project.ID, CreateTaskInput{
		Title:      "Ship",
		Priority:   dom.PriorityUrgent,
		AssigneeID: &b.owner.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)
	require.Equal(t, []events.Type{events.TaskCreated, events.TaskAssigned}, b.pub.types())
	require.Equal(t, b.owner.ID, b.pub.evs[1].IDValue(events.KeyAssigneeID))

	done, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "Old", Status: dom.StatusDone})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
}

func TestTaskService_CreateValidation(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	_, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: ""})
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "x", Priority: "meh"})
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "x", Status: "blocked"})
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "x", DueAt: &past})
	require.ErrorIs(t, err, dom.ErrInvalidDueDate)
	_, err = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "x", AssigneeID: &b.stranger.ID})
	require.ErrorIs(t, err, dom.ErrNotMember)

	_, err = b.tasks.Create(ctx, b.viewer.ID, b.project.ID, CreateTaskInput{Title: "x"})
	require.ErrorIs(t, err, dom.ErrForbidden)
	_, err = b.tasks.Create(ctx, b.stranger.ID, b.project.ID, CreateTaskInput{Title: "x"})
	require.ErrorIs(t, err, dom.ErrNotFound)
}

func TestTaskService_ListIsCachedAndInvalidated(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	_, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "one"})
	require.NoError(t, err)

	list, err := b.tasks.List(ctx, b.viewer.ID, b.project.ID, dom.TaskFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = b.tasks.List(ctx, b.viewer.ID, b.project.ID, dom.TaskFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, b.store.taskCalls["list"])

	_, err = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "two"})
	require.NoError(t, err)
	list, err = b.tasks.List(ctx, b.viewer.ID, b.project.ID, dom.TaskFilter{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, b.store.taskCalls["list"])

	// filtered pages bypass the cache
	_, err = b.tasks.List(ctx, b.viewer.ID, b.project.ID, dom.TaskFilter{Status: dom.StatusTodo}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 3, b.store.taskCalls["list"])

	_, err = b.tasks.List(ctx, b.viewer.ID, b.project.ID, dom.TaskFilter{Status: "nope"}, 0, 0)
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.List(ctx, b.stranger.ID, b.project.ID, dom.TaskFilter{}, 0, 0)
	require.ErrorIs(t, err, dom.ErrNotFound)
}

func TestTaskService_MoveAndComplete(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	a, _ := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "a"})
	c, _ := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "c", AssigneeID: &b.member.ID})
	d, _ := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "d"})

	moved, err := b.tasks.Move(ctx, b.member.ID, d.ID, dom.StatusTodo, 0)
	require.NoError(t, err)
	require.Equal(t, 0, moved.Position)

	list, err := b.tasks.List(ctx, b.owner.ID, b.project.ID, dom.TaskFilter{}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []int64{d.ID, a.ID, c.ID}, taskIDs(list))

	_, err = b.tasks.Move(ctx, b.member.ID, a.ID, "blocked", 0)
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.Move(ctx, b.member.ID, a.ID, dom.StatusReview, -1)
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.tasks.Move(ctx, b.viewer.ID, a.ID, dom.StatusReview, 0)
	require.ErrorIs(t, err, dom.ErrForbidden)

	b.pub.reset()
	done, err := b.tasks.Complete(ctx, b.owner.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, dom.StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, 0, done.Position)
	require.Equal(t, []events.Type{events.TaskCompleted}, b.pub.types())

	again, err := b.tasks.Complete(ctx, b.owner.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, done.CompletedAt, again.CompletedAt)
	require.Len(t, b.pub.types(), 1)

	reopened, err := b.tasks.Move(ctx, b.owner.ID, c.ID, dom.StatusInProgress, 5)
	require.NoError(t, err)
	require.Nil(t, reopened.CompletedAt)
	require.Equal(t, 0, reopened.Position)
}

func TestTaskService_UpdateAndAssign(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	task, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "a"})
	require.NoError(t, err)

	due := time.Now().Add(48 * time.Hour).UTC()
	got, err := b.tasks.Update(ctx, b.member.ID, task.ID, UpdateTaskInput{
		Title:    ptr("renamed"),
		Priority: ptr(dom.PriorityHigh),
		DueAt:    &due,
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)
	require.Equal(t, dom.PriorityHigh, got.Priority)
	require.NotNil(t, got.DueAt)

	got, err = b.tasks.Update(ctx, b.member.ID, task.ID, UpdateTaskInput{ClearDueAt: true})
	require.NoError(t, err)
	require.Nil(t, got.DueAt)

	past := time.Now().Add(-time.Minute)
	_, err = b.tasks.Update(ctx, b.member.ID, task.ID, UpdateTaskInput{DueAt: &past})
	require.ErrorIs(t, err, dom.ErrInvalidDueDate)
	_, err = b.tasks.Update(ctx, b.viewer.ID, task.ID, UpdateTaskInput{Title: ptr("x")})
	require.ErrorIs(t, err, dom.ErrForbidden)

	b.pub.reset()
	got, err = b.tasks.Assign(ctx, b.owner.ID, task.ID, &b.member.ID)
	require.NoError(t, err)
	require.Equal(t, b.member.ID, *got.AssigneeID)
	_, err = b.tasks.Assign(ctx, b.owner.ID, task.ID, &b.member.ID)
	require.NoError(t, err)
	require.Equal(t, []events.Type{events.TaskAssigned}, b.pub.types())

	_, err = b.tasks.Assign(ctx, b.owner.ID, task.ID, &b.stranger.ID)
	require.ErrorIs(t, err, dom.ErrNotMember)

	got, err = b.tasks.Assign(ctx, b.owner.ID, task.ID, nil)
	require.NoError(t, err)
	require.Nil(t, got.AssigneeID)
	require.Len(t, b.pub.types(), 1)
}

func TestTaskService_DeletePermissions(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()
	admin := b.seedUser(t, "admin")
	require.NoError(t, memProjects{b.store}.AddMember(ctx, b.project.ID, admin.ID, dom.RoleAdmin))

	mine, _ := b.tasks.Create(ctx, b.member.ID, b.project.ID, CreateTaskInput{Title: "mine"})
	theirs, _ := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "theirs"})

	require.ErrorIs(t, b.tasks.Delete(ctx, b.member.ID, theirs.ID), dom.ErrForbidden)
	require.NoError(t, b.tasks.Delete(ctx, b.member.ID, mine.ID))
	require.NoError(t, b.tasks.Delete(ctx, admin.ID, theirs.ID))

	_, err := b.tasks.Get(ctx, b.owner.ID, mine.ID)
	require.ErrorIs(t, err, dom.ErrNotFound)
	require.Contains(t, b.store.actions(), "task.deleted")
}

func TestTaskService_SearchAndOverdue(t *testing.T) {
	b := newBoard(t)
	ctx := context.Background()

	_, _ = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "Fix login bug"})
	_, _ = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "Other", Description: "the LOGIN page"})
	_, _ = b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "Unrelated"})

	found, err := b.tasks.Search(ctx, b.viewer.ID, b.project.ID, " login ")
	require.NoError(t, err)
	require.Len(t, found, 2)
	_, err = b.tasks.Search(ctx, b.viewer.ID, b.project.ID, "LOGIN")
	require.NoError(t, err)
	require.Equal(t, 1, b.store.taskCalls["search"])

	_, err = b.tasks.Search(ctx, b.viewer.ID, b.project.ID, "  ")
	require.ErrorIs(t, err, dom.ErrInvalidArgument)

	late, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{
		Title:      "late",
		AssigneeID: &b.member.ID,
		DueAt:      ptr(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	b.tasks.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	overdue, err := b.tasks.Overdue(ctx, b.member.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{late.ID}, taskIDs(overdue))

	_, err = b.tasks.Complete(ctx, b.member.ID, late.ID)
	require.NoError(t, err)
	overdue, err = b.tasks.Overdue(ctx, b.member.ID)
	require.NoError(t, err)
	require.Empty(t, overdue)
}

func taskIDs(list []dom.Task) []int64 {
	out := make([]int64, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}
