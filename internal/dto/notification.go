package dto

import "time"

type NotificationListQuery struct {
	PageQuery
	UnreadOnly bool `form:"unread_only"`
}

type NotificationResponse struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ProjectID int64      `json:"project_id"`
	TaskID    *int64     `json:"task_id"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type ListNotificationsResponse struct {
	Items  []NotificationResponse `json:"items"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
