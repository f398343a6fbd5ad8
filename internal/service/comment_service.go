package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

const commentExcerptLen = 140

type CommentService struct {
	repo     repo.CommentRepo
	tasks    repo.TaskRepo
	projects repo.ProjectRepo
	audit    *AuditService
	pub      events.Publisher
	log      *zap.SugaredLogger
}

func NewCommentService(r repo.CommentRepo, tasks repo.TaskRepo, projects repo.ProjectRepo, audit *AuditService, pub events.Publisher, log *zap.SugaredLogger) *CommentService {
	return &CommentService{repo: r, tasks: tasks, projects: projects, audit: audit, pub: pub, log: log.Named("comments")}
}

func (s *CommentService) Add(ctx context.Context, userID, taskID int64, body string) (dom.Comment, error) {
	body, err := cleanText("body", body, 1, 2000)
	if err != nil {
		return dom.Comment{}, err
	}
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return dom.Comment{}, err
	}
	if _, err := requireRole(ctx, s.projects, t.ProjectID, userID, dom.RoleMember); err != nil {
		return dom.Comment{}, err
	}
	c, err := s.repo.Create(ctx, dom.Comment{TaskID: taskID, AuthorID: userID, Body: body})
	if err != nil {
		return dom.Comment{}, err
	}

	s.audit.Record(ctx, auditEntry(userID, t.ProjectID, "comment.created", "comment", c.ID,
		map[string]string{"task_id": idString(taskID)}))
	publish(ctx, s.pub, s.log, events.New(events.CommentAdded, userID, t.ProjectID, t.ID, map[string]string{
		events.KeyTitle:          t.Title,
		events.KeyCreatorID:      idString(t.CreatorID),
		events.KeyAssigneeID:     events.FormatID(t.AssigneeID),
		events.KeyCommentExcerpt: excerpt(body, commentExcerptLen),
		events.KeyActorName:      metaFrom(ctx).Username,
	}))
	return c, nil
}

// List returns the task's comments oldest first.
func (s *CommentService) List(ctx context.Context, userID, taskID int64, limit, offset int) ([]dom.Comment, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := requireRole(ctx, s.projects, t.ProjectID, userID, dom.RoleViewer); err != nil {
		return nil, err
	}
	limit, offset = utils.ClampPage(limit, offset)
	return s.repo.ListByTask(ctx, taskID, limit, offset)
}

// Edit changes the body. Only the author may edit.
func (s *CommentService) Edit(ctx context.Context, userID, commentID int64, body string) (dom.Comment, error) {
	body, err := cleanText("body", body, 1, 2000)
	if err != nil {
		return dom.Comment{}, err
	}
	c, projectID, _, err := s.load(ctx, userID, commentID)
	if err != nil {
		return dom.Comment{}, err
	}
	if c.AuthorID != userID {
		return dom.Comment{}, fmt.Errorf("%w: only the author can edit a comment", dom.ErrForbidden)
	}
	c, err = s.repo.UpdateBody(ctx, commentID, body)
	if err != nil {
		return dom.Comment{}, err
	}
	s.audit.Record(ctx, auditEntry(userID, projectID, "comment.updated", "comment", c.ID, nil))
	return c, nil
}

// Delete soft-deletes the comment. The author or a project admin may delete.
func (s *CommentService) Delete(ctx context.Context, userID, commentID int64) error {
	c, projectID, role, err := s.load(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != userID && !role.AtLeast(dom.RoleAdmin) {
		return fmt.Errorf("%w: only the author or an admin can delete a comment", dom.ErrForbidden)
	}
	if err := s.repo.SoftDelete(ctx, commentID); err != nil {
		return err
	}
	s.audit.Record(ctx, auditEntry(userID, projectID, "comment.deleted", "comment", c.ID, nil))
	return nil
}

// load resolves the comment's project and the caller's role in it.
func (s *CommentService) load(ctx context.Context, userID, commentID int64) (dom.Comment, int64, dom.Role, error) {
	c, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return dom.Comment{}, 0, "", err
	}
	t, err := s.tasks.GetByID(ctx, c.TaskID)
	if err != nil {
		return dom.Comment{}, 0, "", err
	}
	role, err := requireRole(ctx, s.projects, t.ProjectID, userID, dom.RoleViewer)
	if err != nil {
		return dom.Comment{}, 0, "", err
	}
	return c, t.ProjectID, role, nil
}
