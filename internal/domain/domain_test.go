package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleOwner, RoleAdmin, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleMember, RoleAdmin, false},
		{RoleViewer, RoleMember, false},
		{RoleViewer, RoleViewer, true},
		{Role("guest"), RoleViewer, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			require.Equal(t, tt.want, tt.role.AtLeast(tt.min))
		})
	}
}

func TestRoleAssignable(t *testing.T) {
	require.False(t, RoleOwner.Assignable())
	require.True(t, RoleAdmin.Assignable())
	require.True(t, RoleViewer.Assignable())
	require.False(t, Role("root").Assignable())
}

func TestTaskSetStatusMaintainsCompletedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	task := Task{Status: StatusTodo}

	task.SetStatus(StatusDone, now)
	require.Equal(t, StatusDone, task.Status)
	require.NotNil(t, task.CompletedAt)
	require.True(t, task.CompletedAt.Equal(now))

	// re-entering done keeps the first completion time
	task.SetStatus(StatusDone, now.Add(time.Hour))
	require.True(t, task.CompletedAt.Equal(now))

	task.SetStatus(StatusReview, now)
	require.Nil(t, task.CompletedAt)
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	require.True(t, Task{Status: StatusTodo, DueAt: &past}.IsOverdue(now))
	require.False(t, Task{Status: StatusDone, DueAt: &past}.IsOverdue(now))
	require.False(t, Task{Status: StatusTodo, DueAt: &future}.IsOverdue(now))
	require.False(t, Task{Status: StatusTodo}.IsOverdue(now))
}

func TestEnumsValid(t *testing.T) {
	require.True(t, StatusInProgress.Valid())
	require.False(t, TaskStatus("blocked").Valid())
	require.True(t, PriorityUrgent.Valid())
	require.False(t, Priority("").Valid())
}
