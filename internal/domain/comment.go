package domain

import "time"

// Comment is a note left on a task.
type Comment struct {
	ID             int64
	TaskID         int64
	AuthorID       int64
	AuthorUsername string
	Body           string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
