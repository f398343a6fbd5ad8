package repo

import (
	"context"
	"errors"
	"fmt"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentRepo interface {
	Create(ctx context.Context, c dom.Comment) (dom.Comment, error)
	GetByID(ctx context.Context, id int64) (dom.Comment, error)
	ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]dom.Comment, error)
	UpdateBody(ctx context.Context, id int64, body string) (dom.Comment, error)
	SoftDelete(ctx context.Context, id int64) error
}

const commentSelect = `
	SELECT c.id, c.task_id, c.author_id, u.username, c.body, c.created_at, c.updated_at, c.deleted_at
	FROM comments c JOIN users u ON u.id = c.author_id`

type PGCommentRepo struct {
	db *pgxpool.Pool
}

func NewPGCommentRepo(db *pgxpool.Pool) *PGCommentRepo {
	return &PGCommentRepo{db: db}
}

func scanComment(row pgx.Row) (dom.Comment, error) {
	var c dom.Comment
	err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.AuthorUsername, &c.Body, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Comment{}, dom.ErrNotFound
	}
	return c, err
}

func (r *PGCommentRepo) Create(ctx context.Context, c dom.Comment) (dom.Comment, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO comments (task_id, author_id, body) VALUES ($1, $2, $3) RETURNING id`,
		c.TaskID, c.AuthorID, c.Body).Scan(&id)
	if err != nil {
		return dom.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PGCommentRepo) GetByID(ctx context.Context, id int64) (dom.Comment, error) {
	return scanComment(r.db.QueryRow(ctx, commentSelect+` WHERE c.id = $1 AND c.deleted_at IS NULL`, id))
}

// ListByTask returns live comments oldest first.
func (r *PGCommentRepo) ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]dom.Comment, error) {
	rows, err := r.db.Query(ctx, commentSelect+`
		WHERE c.task_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at, c.id
		LIMIT $2 OFFSET $3`, taskID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	list := make([]dom.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PGCommentRepo) UpdateBody(ctx context.Context, id int64, body string) (dom.Comment, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE comments SET body = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, body)
	if err != nil {
		return dom.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dom.Comment{}, dom.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PGCommentRepo) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE comments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dom.ErrNotFound
	}
	return nil
}
