package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepo interface {
	Create(ctx context.Context, t dom.Task) (dom.Task, error)
	GetByID(ctx context.Context, id int64) (dom.Task, error)
	List(ctx context.Context, projectID int64, f dom.TaskFilter, limit, offset int) ([]dom.Task, error)
	Update(ctx context.Context, t dom.Task) (dom.Task, error)
	Move(ctx context.Context, id int64, status dom.TaskStatus, position int, completedAt *time.Time) (dom.Task, error)
	SoftDelete(ctx context.Context, id int64) error
	Search(ctx context.Context, projectID int64, q string) ([]dom.Task, error)
	OverdueForUser(ctx context.Context, userID int64, now time.Time) ([]dom.Task, error)
}

const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.priority, t.assignee_id,
	t.creator_id, t.position, t.due_at, t.completed_at, t.created_at, t.updated_at, t.deleted_at`

const boardOrder = `ORDER BY CASE t.status
		WHEN 'todo' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'review' THEN 2 ELSE 3 END,
		t.position, t.id`

type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.AssigneeID,
		&t.CreatorID, &t.Position, &t.DueAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Task{}, dom.ErrNotFound
	}
	return t, err
}

func collectTasks(rows pgx.Rows) ([]dom.Task, error) {
	defer rows.Close()
	list := make([]dom.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// lockBoard serialises position writes within one project until tx ends.
func lockBoard(ctx context.Context, tx pgx.Tx, projectID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, projectID); err != nil {
		return fmt.Errorf("lock board %d: %w", projectID, err)
	}
	return nil
}

// Create appends the task to the end of its status column.
func (r *PGTaskRepo) Create(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		INSERT INTO tasks AS t (project_id, title, description, status, priority, assignee_id, creator_id,
			position, due_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM tasks
			 WHERE project_id = $1 AND status = $4 AND deleted_at IS NULL),
			$8, $9)
		RETURNING ` + taskColumns
	var out dom.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockBoard(ctx, tx, t.ProjectID); err != nil {
			return err
		}
		var err error
		out, err = scanTask(tx.QueryRow(ctx, query, t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
			t.AssigneeID, t.CreatorID, t.DueAt, t.CompletedAt))
		return err
	})
	if err != nil {
		if utils.IsPGForeignKeyViolation(err) {
			return dom.Task{}, dom.ErrNotFound
		}
		return dom.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return out, nil
}

// GetByID returns a live task of a live project.
func (r *PGTaskRepo) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND t.deleted_at IS NULL AND p.deleted_at IS NULL`
	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *PGTaskRepo) List(ctx context.Context, projectID int64, f dom.TaskFilter, limit, offset int) ([]dom.Task, error) {
	var (
		where = []string{"t.project_id = $1", "t.deleted_at IS NULL"}
		args  = []any{projectID}
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, f.Priority)
		where = append(where, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if f.AssigneeID != nil {
		args = append(args, *f.AssigneeID)
		where = append(where, fmt.Sprintf("t.assignee_id = $%d", len(args)))
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks t WHERE %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, strings.Join(where, " AND "), boardOrder, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

// Update writes every mutable field except status and position, which go through Move.
func (r *PGTaskRepo) Update(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		UPDATE tasks AS t SET title = $2, description = $3, priority = $4, assignee_id = $5, due_at = $6,
			updated_at = NOW()
		WHERE t.id = $1 AND t.deleted_at IS NULL
		RETURNING ` + taskColumns
	out, err := scanTask(r.db.QueryRow(ctx, query, t.ID, t.Title, t.Description, t.Priority, t.AssigneeID, t.DueAt))
	if err != nil && !errors.Is(err, dom.ErrNotFound) {
		return dom.Task{}, fmt.Errorf("update task: %w", err)
	}
	return out, err
}

// Move places the task at position inside the status column, shifting its
// neighbours so positions in both columns stay dense. Writes to one project's
// board are serialised by lockBoard.
func (r *PGTaskRepo) Move(ctx context.Context, id int64, status dom.TaskStatus, position int, completedAt *time.Time) (dom.Task, error) {
	var out dom.Task
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		projectID, err := r.lockTaskBoard(ctx, tx, id)
		if err != nil {
			return err
		}

		var (
			oldStatus dom.TaskStatus
			oldPos    int
		)
		err = tx.QueryRow(ctx, `
			SELECT status, position FROM tasks
			WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(&oldStatus, &oldPos)
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock task: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET position = position - 1
			WHERE project_id = $1 AND status = $2 AND position > $3 AND id <> $4 AND deleted_at IS NULL`,
			projectID, oldStatus, oldPos, id); err != nil {
			return fmt.Errorf("close gap: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM tasks
			WHERE project_id = $1 AND status = $2 AND id <> $3 AND deleted_at IS NULL`,
			projectID, status, id).Scan(&count); err != nil {
			return fmt.Errorf("count column: %w", err)
		}
		if position > count {
			position = count
		}

		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET position = position + 1
			WHERE project_id = $1 AND status = $2 AND position >= $3 AND id <> $4 AND deleted_at IS NULL`,
			projectID, status, position, id); err != nil {
			return fmt.Errorf("open gap: %w", err)
		}

		out, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks AS t SET status = $2, position = $3, completed_at = $4, updated_at = NOW()
			WHERE t.id = $1
			RETURNING `+taskColumns, id, status, position, completedAt))
		if err != nil {
			return fmt.Errorf("move task: %w", err)
		}
		return nil
	})
	return out, err
}

// lockTaskBoard takes the board lock of the task's project.
func (r *PGTaskRepo) lockTaskBoard(ctx context.Context, tx pgx.Tx, id int64) (int64, error) {
	var projectID int64
	err := tx.QueryRow(ctx, `SELECT project_id FROM tasks WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&projectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, dom.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find task: %w", err)
	}
	return projectID, lockBoard(ctx, tx, projectID)
}

// SoftDelete hides the task and closes the gap it leaves in its column.
func (r *PGTaskRepo) SoftDelete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		projectID, err := r.lockTaskBoard(ctx, tx, id)
		if err != nil {
			return err
		}

		var (
			status dom.TaskStatus
			pos    int
		)
		now := time.Now().UTC()
		err = tx.QueryRow(ctx, `
			UPDATE tasks SET deleted_at = $2, updated_at = $2
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING status, position`, id, now).Scan(&status, &pos)
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET position = position - 1
			WHERE project_id = $1 AND status = $2 AND position > $3 AND deleted_at IS NULL`,
			projectID, status, pos); err != nil {
			return fmt.Errorf("close gap: %w", err)
		}
		return nil
	})
}

func (r *PGTaskRepo) Search(ctx context.Context, projectID int64, q string) ([]dom.Task, error) {
	pattern := "%" + escapeLike(q) + "%"
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		WHERE t.project_id = $1 AND t.deleted_at IS NULL AND (t.title ILIKE $2 OR t.description ILIKE $2)
		` + boardOrder
	rows, err := r.db.Query(ctx, query, projectID, pattern)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	return collectTasks(rows)
}

// OverdueForUser lists open tasks assigned to the user, across live projects
// they still belong to, whose due date has passed.
func (r *PGTaskRepo) OverdueForUser(ctx context.Context, userID int64, now time.Time) ([]dom.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id AND p.deleted_at IS NULL
		JOIN project_members m ON m.project_id = t.project_id AND m.user_id = t.assignee_id
		WHERE t.assignee_id = $1 AND t.deleted_at IS NULL AND t.status <> 'done'
			AND t.due_at IS NOT NULL AND t.due_at < $2
		ORDER BY t.due_at ASC, t.id`
	rows, err := r.db.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("overdue tasks: %w", err)
	}
	return collectTasks(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
