package service

import (
	"context"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

// NotificationService reads and acknowledges the caller's own notifications.
type NotificationService struct {
	repo repo.NotificationRepo
}

func NewNotificationService(r repo.NotificationRepo) *NotificationService {
	return &NotificationService{repo: r}
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]dom.Notification, error) {
	limit, offset = utils.ClampPage(limit, offset)
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification read. Other users' notifications are not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
