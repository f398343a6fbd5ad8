package repo

import (
	"context"
	"errors"
	"fmt"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectRepo interface {
	Create(ctx context.Context, p dom.Project) (dom.Project, error)
	GetByID(ctx context.Context, id int64) (dom.Project, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]dom.Project, error)
	Update(ctx context.Context, p dom.Project) (dom.Project, error)
	SoftDelete(ctx context.Context, id int64) error

	MemberRole(ctx context.Context, projectID, userID int64) (dom.Role, error)
	ListMembers(ctx context.Context, projectID int64) ([]dom.ProjectMember, error)
	AddMember(ctx context.Context, projectID, userID int64, role dom.Role) error
	UpdateMemberRole(ctx context.Context, projectID, userID int64, role dom.Role) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
}

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at, p.deleted_at`

type PGProjectRepo struct {
	db *pgxpool.Pool
}

func NewPGProjectRepo(db *pgxpool.Pool) *PGProjectRepo {
	return &PGProjectRepo{db: db}
}

func scanProject(row pgx.Row) (dom.Project, error) {
	var p dom.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Project{}, dom.ErrNotFound
	}
	return p, err
}

// Create inserts the project and its owner membership in one transaction.
func (r *PGProjectRepo) Create(ctx context.Context, p dom.Project) (dom.Project, error) {
	var out dom.Project
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		out, err = scanProject(tx.QueryRow(ctx, `
			INSERT INTO projects AS p (name, description, owner_id)
			VALUES ($1, $2, $3)
			RETURNING `+projectColumns, p.Name, p.Description, p.OwnerID))
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
			out.ID, p.OwnerID, dom.RoleOwner)
		if err != nil {
			return fmt.Errorf("insert owner: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *PGProjectRepo) GetByID(ctx context.Context, id int64) (dom.Project, error) {
	return scanProject(r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects p WHERE p.id = $1 AND p.deleted_at IS NULL`, id))
}

// ListForUser returns projects the user is a member of, newest first.
func (r *PGProjectRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]dom.Project, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	list := make([]dom.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PGProjectRepo) Update(ctx context.Context, p dom.Project) (dom.Project, error) {
	return scanProject(r.db.QueryRow(ctx, `
		UPDATE projects AS p SET name = $2, description = $3, updated_at = NOW()
		WHERE p.id = $1 AND p.deleted_at IS NULL
		RETURNING `+projectColumns, p.ID, p.Name, p.Description))
}

func (r *PGProjectRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dom.ErrNotFound
	}
	return nil
}

// MemberRole returns the user's role in a live project, or ErrNotFound.
func (r *PGProjectRepo) MemberRole(ctx context.Context, projectID, userID int64) (dom.Role, error) {
	var role dom.Role
	err := r.db.QueryRow(ctx, `
		SELECT m.role FROM project_members m
		JOIN projects p ON p.id = m.project_id
		WHERE m.project_id = $1 AND m.user_id = $2 AND p.deleted_at IS NULL`, projectID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", dom.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("member role: %w", err)
	}
	return role, nil
}

func (r *PGProjectRepo) ListMembers(ctx context.Context, projectID int64) ([]dom.ProjectMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.project_id, m.user_id, u.username, u.email, m.role, m.added_at
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.added_at, m.user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	list := make([]dom.ProjectMember, 0)
	for rows.Next() {
		var m dom.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Username, &m.Email, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *PGProjectRepo) AddMember(ctx context.Context, projectID, userID int64, role dom.Role) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
		projectID, userID, role)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return fmt.Errorf("%w: user is already a member", dom.ErrConflict)
		}
		if utils.IsPGForeignKeyViolation(err) {
			return dom.ErrNotFound
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *PGProjectRepo) UpdateMemberRole(ctx context.Context, projectID, userID int64, role dom.Role) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`,
		projectID, userID, role)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dom.ErrNotFound
	}
	return nil
}

// RemoveMember deletes the membership and unassigns the user's open tasks in the project.
func (r *PGProjectRepo) RemoveMember(ctx context.Context, projectID, userID int64) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		if err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return dom.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET assignee_id = NULL, updated_at = NOW()
			WHERE project_id = $1 AND assignee_id = $2 AND deleted_at IS NULL`, projectID, userID); err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		return nil
	})
}
