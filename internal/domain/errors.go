package domain

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist or is hidden from the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidDueDate is returned when a due date lies in the past.
	ErrInvalidDueDate = errors.New("due_at is in the past")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authorization required")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUsernameTaken      = errors.New("username already taken")

	// ErrForbidden is returned when the caller is a member but lacks the role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotMember is returned when a referenced user is not a project member.
	ErrNotMember = errors.New("user is not a project member")
	// ErrOwnerImmutable guards the single owner membership of a project.
	ErrOwnerImmutable = errors.New("project owner cannot be changed or removed")
	ErrConflict       = errors.New("conflict")
)
