package dto

import "time"

type AuditListQuery struct {
	Limit    int   `form:"limit" binding:"omitempty,min=1,max=100"`
	BeforeID int64 `form:"before_id" binding:"omitempty,min=1"`
}

type AuditLogResponse struct {
	ID         int64             `json:"id"`
	ActorID    int64             `json:"actor_id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   int64             `json:"entity_id"`
	Metadata   map[string]string `json:"metadata"`
	IP         string            `json:"ip"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ListAuditResponse pages by id: pass next_before_id as before_id for older entries.
type ListAuditResponse struct {
	Items        []AuditLogResponse `json:"items"`
	NextBeforeID int64              `json:"next_before_id,omitempty"`
}
