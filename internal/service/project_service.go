package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
	"github.com/duthaho/trello-clone-sub000/internal/repo"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

// TaskCacheInvalidator drops cached task pages of a project.
type TaskCacheInvalidator interface {
	InvalidateProject(ctx context.Context, projectID int64) error
}

type ProjectService struct {
	repo  repo.ProjectRepo
	users repo.UserRepo
	audit *AuditService
	pub   events.Publisher
	cache TaskCacheInvalidator
	log   *zap.SugaredLogger
}

// NewProjectService creates a ProjectService. A nil cache disables invalidation.
func NewProjectService(r repo.ProjectRepo, users repo.UserRepo, audit *AuditService, pub events.Publisher, c TaskCacheInvalidator, log *zap.SugaredLogger) *ProjectService {
	return &ProjectService{repo: r, users: users, audit: audit, pub: pub, cache: c, log: log.Named("projects")}
}

func (s *ProjectService) Create(ctx context.Context, userID int64, name, description string) (dom.Project, error) {
	name, err := cleanText("name", name, 1, 120)
	if err != nil {
		return dom.Project{}, err
	}
	description, err = cleanText("description", description, 0, 1000)
	if err != nil {
		return dom.Project{}, err
	}
	p, err := s.repo.Create(ctx, dom.Project{Name: name, Description: description, OwnerID: userID})
	if err != nil {
		return dom.Project{}, err
	}
	s.audit.Record(ctx, auditEntry(userID, p.ID, "project.created", "project", p.ID, map[string]string{"name": p.Name}))
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, userID int64, limit, offset int) ([]dom.Project, error) {
	limit, offset = utils.ClampPage(limit, offset)
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// Get returns the project if the caller is a member.
func (s *ProjectService) Get(ctx context.Context, userID, projectID int64) (dom.Project, error) {
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleViewer); err != nil {
		return dom.Project{}, err
	}
	return s.repo.GetByID(ctx, projectID)
}

func (s *ProjectService) Update(ctx context.Context, userID, projectID int64, name, description *string) (dom.Project, error) {
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleAdmin); err != nil {
		return dom.Project{}, err
	}
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return dom.Project{}, err
	}
	changed := map[string]string{}
	if name != nil {
		if p.Name, err = cleanText("name", *name, 1, 120); err != nil {
			return dom.Project{}, err
		}
		changed["name"] = p.Name
	}
	if description != nil {
		if p.Description, err = cleanText("description", *description, 0, 1000); err != nil {
			return dom.Project{}, err
		}
		changed["description"] = "updated"
	}
	if len(changed) == 0 {
		return p, nil
	}
	p, err = s.repo.Update(ctx, p)
	if err != nil {
		return dom.Project{}, err
	}
	s.audit.Record(ctx, auditEntry(userID, p.ID, "project.updated", "project", p.ID, changed))
	return p, nil
}

// Delete soft-deletes the project. Only the owner may do it.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID int64) error {
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleOwner); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, projectID); err != nil {
		return err
	}
	s.invalidate(ctx, projectID)
	s.audit.Record(ctx, auditEntry(userID, projectID, "project.deleted", "project", projectID, nil))
	return nil
}

func (s *ProjectService) ListMembers(ctx context.Context, userID, projectID int64) ([]dom.ProjectMember, error) {
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// AddMember invites an existing user by email.
func (s *ProjectService) AddMember(ctx context.Context, userID, projectID int64, email string, role dom.Role) (dom.ProjectMember, error) {
	if !role.Assignable() {
		return dom.ProjectMember{}, invalid("role must be one of admin, member, viewer")
	}
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleAdmin); err != nil {
		return dom.ProjectMember{}, err
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return dom.ProjectMember{}, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			return dom.ProjectMember{}, fmt.Errorf("%w: no user with that email", dom.ErrNotFound)
		}
		return dom.ProjectMember{}, err
	}
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return dom.ProjectMember{}, err
	}
	if err := s.repo.AddMember(ctx, projectID, u.ID, role); err != nil {
		return dom.ProjectMember{}, err
	}

	s.audit.Record(ctx, auditEntry(userID, projectID, "member.added", "user", u.ID, map[string]string{"role": string(role)}))
	publish(ctx, s.pub, s.log, events.New(events.MemberAdded, userID, projectID, 0, map[string]string{
		events.KeyUserID:      idString(u.ID),
		events.KeyProjectName: p.Name,
		events.KeyRole:        string(role),
		events.KeyActorName:   metaFrom(ctx).Username,
	}))
	return dom.ProjectMember{ProjectID: projectID, UserID: u.ID, Username: u.Username, Email: u.Email, Role: role}, nil
}

// ChangeRole updates a non-owner membership. The owner role is never granted here.
func (s *ProjectService) ChangeRole(ctx context.Context, userID, projectID, memberID int64, role dom.Role) error {
	if !role.Assignable() {
		return invalid("role must be one of admin, member, viewer")
	}
	if _, err := requireRole(ctx, s.repo, projectID, userID, dom.RoleAdmin); err != nil {
		return err
	}
	current, err := s.memberRole(ctx, projectID, memberID)
	if err != nil {
		return err
	}
	if current == dom.RoleOwner {
		return dom.ErrOwnerImmutable
	}
	if err := s.repo.UpdateMemberRole(ctx, projectID, memberID, role); err != nil {
		return err
	}
	s.audit.Record(ctx, auditEntry(userID, projectID, "member.role_changed", "user", memberID,
		map[string]string{"from": string(current), "to": string(role)}))
	return nil
}

// RemoveMember removes a membership. Admins may remove anyone but the owner;
// any member may leave on their own.
func (s *ProjectService) RemoveMember(ctx context.Context, userID, projectID, memberID int64) error {
	min := dom.RoleAdmin
	if memberID == userID {
		min = dom.RoleViewer
	}
	if _, err := requireRole(ctx, s.repo, projectID, userID, min); err != nil {
		return err
	}
	current, err := s.memberRole(ctx, projectID, memberID)
	if err != nil {
		return err
	}
	if current == dom.RoleOwner {
		return dom.ErrOwnerImmutable
	}
	if err := s.repo.RemoveMember(ctx, projectID, memberID); err != nil {
		return err
	}
	s.invalidate(ctx, projectID)
	s.audit.Record(ctx, auditEntry(userID, projectID, "member.removed", "user", memberID, nil))
	return nil
}

func (s *ProjectService) memberRole(ctx context.Context, projectID, memberID int64) (dom.Role, error) {
	role, err := s.repo.MemberRole(ctx, projectID, memberID)
	if errors.Is(err, dom.ErrNotFound) {
		return "", dom.ErrNotMember
	}
	return role, err
}

func (s *ProjectService) invalidate(ctx context.Context, projectID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProject(ctx, projectID); err != nil {
		s.log.Warnw("cache invalidation failed", "project_id", projectID, "error", err)
	}
}
