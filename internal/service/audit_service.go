package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

// AuditService appends to and reads the project audit trail.
type AuditService struct {
	repo     repo.AuditRepo
	projects repo.ProjectRepo
	log      *zap.SugaredLogger
}

func NewAuditService(r repo.AuditRepo, projects repo.ProjectRepo, log *zap.SugaredLogger) *AuditService {
	return &AuditService{repo: r, projects: projects, log: log.Named("audit")}
}

// Record stores one entry. A failed insert is logged and swallowed.
func (s *AuditService) Record(ctx context.Context, e dom.AuditLog) {
	if e.IP == "" {
		e.IP = metaFrom(ctx).ClientIP
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		s.log.Errorw("audit insert failed", "action", e.Action, "entity_type", e.EntityType,
			"entity_id", e.EntityID, "actor_id", e.ActorID, "error", err)
	}
}

// ListByProject returns entries newest first, older than beforeID when it is set.
func (s *AuditService) ListByProject(ctx context.Context, userID, projectID int64, limit int, beforeID int64) ([]dom.AuditLog, error) {
	if _, err := requireRole(ctx, s.projects, projectID, userID, dom.RoleAdmin); err != nil {
		return nil, err
	}
	limit, _ = utils.ClampPage(limit, 0)
	if beforeID < 0 {
		beforeID = 0
	}
	return s.repo.ListByProject(ctx, projectID, limit, beforeID)
}

func auditEntry(actorID int64, projectID int64, action, entityType string, entityID int64, meta map[string]string) dom.AuditLog {
	e := dom.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   meta,
	}
	if projectID != 0 {
		e.ProjectID = &projectID
	}
	return e
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }
