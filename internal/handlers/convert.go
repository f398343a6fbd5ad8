package handlers

import (
	"time"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/dto"
)

func userToResponse(u dom.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

func tokenToResponse(p auth.TokenPair, now time.Time) dto.TokenResponse {
	expiresIn := int64(p.AccessExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return dto.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	}
}

func projectToResponse(p dom.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func memberToResponse(m dom.ProjectMember) dto.MemberResponse {
	return dto.MemberResponse{
		UserID:   m.UserID,
		Username: m.Username,
		Email:    m.Email,
		Role:     string(m.Role),
		AddedAt:  m.AddedAt,
	}
}

func taskToResponse(t dom.Task, now time.Time) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		AssigneeID:  t.AssigneeID,
		CreatorID:   t.CreatorID,
		Position:    t.Position,
		DueAt:       t.DueAt,
		CompletedAt: t.CompletedAt,
		IsOverdue:   t.IsOverdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tasksToResponses(list []dom.Task) []dto.TaskResponse {
	now := time.Now().UTC()
	out := make([]dto.TaskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, taskToResponse(t, now))
	}
	return out
}

func commentToResponse(c dom.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:             c.ID,
		TaskID:         c.TaskID,
		AuthorID:       c.AuthorID,
		AuthorUsername: c.AuthorUsername,
		Body:           c.Body,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func notificationToResponse(n dom.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		ProjectID: n.ProjectID,
		TaskID:    n.TaskID,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func auditToResponse(e dom.AuditLog) dto.AuditLogResponse {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return dto.AuditLogResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Metadata:   meta,
		IP:         e.IP,
		CreatedAt:  e.CreatedAt,
	}
}
