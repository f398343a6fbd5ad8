package domain

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a card on a project board.
// Не зависит от Gin, Postgres, Redis.
type Task struct {
	ID          int64
	ProjectID   int64
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	AssigneeID  *int64
	CreatorID   int64
	Position    int
	DueAt       *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// SetStatus changes the status and keeps CompletedAt set iff the task is done.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	if s == StatusDone && t.Status != StatusDone {
		at := now.UTC()
		t.CompletedAt = &at
	}
	if s != StatusDone {
		t.CompletedAt = nil
	}
	t.Status = s
}

// IsOverdue reports whether the task has a due date before now and is not done.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusDone && t.DueAt != nil && t.DueAt.Before(now)
}

// TaskFilter narrows a project task listing. Zero values mean "any".
type TaskFilter struct {
	Status     TaskStatus
	AssigneeID *int64
	Priority   Priority
}

func (f TaskFilter) IsZero() bool {
	return f.Status == "" && f.AssigneeID == nil && f.Priority == ""
}
