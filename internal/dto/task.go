package dto

import "time"

type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"max=1000"`
	Status      string `json:"status" binding:"omitempty,oneof=todo in_progress review done"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *int64 `json:"assignee_id" binding:"omitempty,min=1"`
	DueAt       DueAt  `json:"due_at"` // optional: "2026-02-19" or RFC3339
}

type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueAt       *DueAt  `json:"due_at"`
	ClearDueAt  bool    `json:"clear_due_at"`
}

type MoveTaskRequest struct {
	Status   string `json:"status" binding:"required,oneof=todo in_progress review done"`
	Position *int   `json:"position" binding:"required,min=0"`
}

// AssignTaskRequest assigns the task; a null assignee_id unassigns it.
type AssignTaskRequest struct {
	AssigneeID *int64 `json:"assignee_id" binding:"omitempty,min=1"`
}

// TaskListQuery filters GET /projects/:id/tasks.
type TaskListQuery struct {
	PageQuery
	Status     string `form:"status" binding:"omitempty,oneof=todo in_progress review done"`
	Priority   string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssigneeID *int64 `form:"assignee_id" binding:"omitempty,min=1"`
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *int64     `json:"assignee_id"`
	CreatorID   int64      `json:"creator_id"`
	Position    int        `json:"position"`
	DueAt       *time.Time `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at"`
	IsOverdue   bool       `json:"is_overdue"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListTasksResponse struct {
	Items  []TaskResponse `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
