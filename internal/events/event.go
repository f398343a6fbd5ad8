// Package events carries domain events from the API to the notification workers.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TaskCreated   Type = "task.created"
	TaskAssigned  Type = "task.assigned"
	TaskCompleted Type = "task.completed"
	CommentAdded  Type = "comment.added"
	MemberAdded   Type = "member.added"
)

// Payload keys.
const (
	KeyTitle          = "title"
	KeyCreatorID      = "creator_id"
	KeyAssigneeID     = "assignee_id"
	KeyUserID         = "user_id"
	KeyProjectName    = "project_name"
	KeyRole           = "role"
	KeyCommentExcerpt = "excerpt"
	KeyActorName      = "actor"
)

type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	ActorID    int64             `json:"actor_id"`
	ProjectID  int64             `json:"project_id"`
	TaskID     int64             `json:"task_id,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
}

func New(typ Type, actorID, projectID, taskID int64, payload map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		ProjectID:  projectID,
		TaskID:     taskID,
		Payload:    payload,
	}
}

// IDValue reads an int64 payload value; missing or malformed values read as 0.
func (e Event) IDValue(key string) int64 {
	v, err := strconv.ParseInt(e.Payload[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatID is the payload encoding of an optional ID.
func FormatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// Publisher hands events to whatever runs the notification jobs.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

func (NopPublisher) Close() error { return nil }
