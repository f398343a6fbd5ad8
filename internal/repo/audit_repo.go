package repo

import (
	"context"
	"fmt"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo interface {
	Insert(ctx context.Context, e dom.AuditLog) error
	ListByProject(ctx context.Context, projectID int64, limit int, beforeID int64) ([]dom.AuditLog, error)
}

type PGAuditRepo struct {
	db *pgxpool.Pool
}

func NewPGAuditRepo(db *pgxpool.Pool) *PGAuditRepo {
	return &PGAuditRepo{db: db}
}

func (r *PGAuditRepo) Insert(ctx context.Context, e dom.AuditLog) error {
	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (project_id, actor_id, action, entity_type, entity_id, metadata, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ProjectID, e.ActorID, e.Action, e.EntityType, e.EntityID, meta, e.IP)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByProject pages newest first; beforeID <= 0 starts from the newest entry.
func (r *PGAuditRepo) ListByProject(ctx context.Context, projectID int64, limit int, beforeID int64) ([]dom.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, actor_id, action, entity_type, entity_id, metadata, ip, created_at
		FROM audit_logs
		WHERE project_id = $1 AND ($2::bigint <= 0 OR id < $2::bigint)
		ORDER BY id DESC
		LIMIT $3`, projectID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	list := make([]dom.AuditLog, 0)
	for rows.Next() {
		var e dom.AuditLog
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Metadata, &e.IP, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
