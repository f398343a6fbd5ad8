package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
)

// Handler turns domain events into stored notifications and emails.
type Handler struct {
	users         repo.UserRepo
	notifications repo.NotificationRepo
	mailer        Mailer
	log           *zap.SugaredLogger
}

func NewHandler(users repo.UserRepo, notifications repo.NotificationRepo, mailer Mailer, log *zap.SugaredLogger) *Handler {
	return &Handler{users: users, notifications: notifications, mailer: mailer, log: log.Named("notify.handler")}
}

// Handle stores one notification per active recipient and emails it.
// Lookup and storage errors are returned so the caller retries; mail errors
// are only logged. Missing and inactive users are skipped.
func (h *Handler) Handle(ctx context.Context, ev events.Event) error {
	n, recipients, ok := compose(ev)
	if !ok {
		return nil
	}
	for _, userID := range recipients {
		u, err := h.users.GetByID(ctx, userID)
		if errors.Is(err, dom.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load recipient %d: %w", userID, err)
		}
		if !u.IsActive {
			continue
		}
		n.UserID = userID
		saved, err := h.notifications.Create(ctx, n)
		if err != nil {
			return fmt.Errorf("notify %d about %s: %w", userID, ev.Type, err)
		}
		h.email(ctx, u, saved)
	}
	return nil
}

func (h *Handler) email(ctx context.Context, u dom.User, n dom.Notification) {
	if u.Email == "" {
		return
	}
	if err := h.mailer.Send(ctx, u.Email, n.Title, n.Body); err != nil {
		h.log.Warnw("email delivery failed", "user_id", n.UserID, "notification_id", n.ID, "error", err)
	}
}

// compose builds the notification template and its recipients for ev.
// The actor never notifies themself.
func compose(ev events.Event) (dom.Notification, []int64, bool) {
	n := dom.Notification{ProjectID: ev.ProjectID}
	if ev.TaskID != 0 {
		taskID := ev.TaskID
		n.TaskID = &taskID
	}
	title := ev.Payload[events.KeyTitle]
	actor := ev.Payload[events.KeyActorName]
	if actor == "" {
		actor = "Someone"
	}

	var candidates []int64
	switch ev.Type {
	case events.TaskAssigned:
		n.Type = dom.NotificationTaskAssigned
		n.Title = fmt.Sprintf("You were assigned to %q", title)
		n.Body = fmt.Sprintf("%s assigned you to the task %q.", actor, title)
		candidates = []int64{ev.IDValue(events.KeyAssigneeID)}
	case events.TaskCompleted:
		n.Type = dom.NotificationTaskCompleted
		n.Title = fmt.Sprintf("Task %q completed", title)
		n.Body = fmt.Sprintf("%s marked the task %q as done.", actor, title)
		candidates = []int64{ev.IDValue(events.KeyCreatorID), ev.IDValue(events.KeyAssigneeID)}
	case events.CommentAdded:
		n.Type = dom.NotificationCommentAdded
		n.Title = fmt.Sprintf("New comment on %q", title)
		n.Body = fmt.Sprintf("%s commented: %s", actor, ev.Payload[events.KeyCommentExcerpt])
		candidates = []int64{ev.IDValue(events.KeyCreatorID), ev.IDValue(events.KeyAssigneeID)}
	case events.MemberAdded:
		project := ev.Payload[events.KeyProjectName]
		n.Type = dom.NotificationMemberAdded
		n.Title = fmt.Sprintf("You were added to %q", project)
		n.Body = fmt.Sprintf("%s added you to the project %q as %s.", actor, project, ev.Payload[events.KeyRole])
		candidates = []int64{ev.IDValue(events.KeyUserID)}
	default:
		return dom.Notification{}, nil, false
	}

	recipients := recipientsOf(ev.ActorID, candidates...)
	return n, recipients, len(recipients) > 0
}

func recipientsOf(actorID int64, candidates ...int64) []int64 {
	seen := make(map[int64]struct{}, len(candidates))
	out := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if id <= 0 || id == actorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
