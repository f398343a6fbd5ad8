package domain

import "time"

type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationCommentAdded  NotificationType = "comment_added"
	NotificationMemberAdded   NotificationType = "member_added"
)

type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Title     string
	Body      string
	ProjectID int64
	TaskID    *int64
	ReadAt    *time.Time
	CreatedAt time.Time
}
