package domain

import "time"

type Project struct {
	ID          int64
	Name        string
	Description string
	OwnerID     int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Role is a member's permission level inside a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Assignable reports whether the role can be granted through the members API.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleViewer
}

type ProjectMember struct {
	ProjectID int64
	UserID    int64
	Username  string
	Email     string
	Role      Role
	AddedAt   time.Time
}
