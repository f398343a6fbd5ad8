package domain

import "time"

// AuditLog is one append-only record of an action taken by a user.
type AuditLog struct {
	ID         int64
	ProjectID  *int64
	ActorID    int64
	Action     string
	EntityType string
	EntityID   int64
	Metadata   map[string]string
	IP         string
	CreatedAt  time.Time
}
