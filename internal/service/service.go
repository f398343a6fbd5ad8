// Package service holds the use cases of the API. Services check project
// roles, validate input, write through the repos and fan out side effects:
// cache invalidation, audit records and domain events.
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
)

type metaKey struct{}

// RequestMeta carries caller details that only matter for side effects.
type RequestMeta struct {
	ClientIP string
	Username string
}

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

func metaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(metaKey{}).(RequestMeta)
	return m
}

// requireRole returns the caller's role in the project. Non-members and
// deleted projects yield ErrNotFound so existence does not leak.
func requireRole(ctx context.Context, projects repo.ProjectRepo, projectID, userID int64, min dom.Role) (dom.Role, error) {
	role, err := projects.MemberRole(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	if !role.AtLeast(min) {
		return role, fmt.Errorf("%w: requires %s role", dom.ErrForbidden, min)
	}
	return role, nil
}

// publish hands events to the publisher. Delivery is best effort.
func publish(ctx context.Context, pub events.Publisher, log *zap.SugaredLogger, evs ...events.Event) {
	if pub == nil || len(evs) == 0 {
		return
	}
	if err := pub.Publish(ctx, evs...); err != nil {
		log.Warnw("publish events failed", "count", len(evs), "type", evs[0].Type, "error", err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", dom.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// cleanText trims s and checks its length in runes.
func cleanText(field, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < min {
		if min == 1 {
			return "", invalid("%s is required", field)
		}
		return "", invalid("%s must be at least %d characters", field, min)
	}
	if n > max {
		return "", invalid("%s must be at most %d characters", field, max)
	}
	return s, nil
}

func excerpt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
