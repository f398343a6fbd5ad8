package dto

import "time"

type CommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=2000"`
}

type CommentResponse struct {
	ID             int64     `json:"id"`
	TaskID         int64     `json:"task_id"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListCommentsResponse struct {
	Items  []CommentResponse `json:"items"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
