// Package access models the caller identity handed to the dashboard core.
//
// Roles and account statuses are closed enumerations; every consumer
// switches over all values. Unrecognised strings are errors, never a
// silent "no role".
package access

import (
	"context"
	"fmt"
	"strings"
)

// Role is the caller's role.
type Role int

// Roles.
const (
	RoleChatter Role = iota + 1
	RoleManager
	RoleAdmin
)

// ParseRole parses "admin", "manager" or "chatter".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chatter":
		return RoleChatter, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleChatter:
		return "chatter"
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Status is the approval state of the caller's profile.
type Status int

// Statuses.
const (
	StatusPending Status = iota + 1
	StatusApproved
	StatusDenied
)

// ParseStatus parses "pending", "approved" or "denied".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "denied":
		return StatusDenied, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// StatusPolicy is the status assumed for a profile that carries none.
type StatusPolicy int

// Missing-status policies.
const (
	// DefaultApproved is fail-open: a profile without a status is treated
	// as approved.
	DefaultApproved StatusPolicy = iota
	// DefaultPending is fail-closed.
	DefaultPending
)

// ParseStatusPolicy parses "approved" or "pending".
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "approved":
		return DefaultApproved, nil
	case "pending":
		return DefaultPending, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Resolve returns the status to use for a raw, possibly empty, value.
func (p StatusPolicy) Resolve(raw string) (Status, error) {
	if strings.TrimSpace(raw) != "" {
		return ParseStatus(raw)
	}
	switch p {
	case DefaultApproved:
		return StatusApproved, nil
	case DefaultPending:
		return StatusPending, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
}

// Principal is an authenticated caller.
type Principal struct {
	UserID string
	Name   string
	Role   Role
	Status Status
	TeamID string
}

// CanView reports whether the principal may see dashboard data.
func (p Principal) CanView() bool {
	switch p.Status {
	case StatusApproved:
		return true
	case StatusPending, StatusDenied:
		return false
	default:
		return false
	}
}

// Scope returns the team filter to apply for a requested team. An empty
// result means all teams.
func (p Principal) Scope(requested string) (string, error) {
	switch p.Role {
	case RoleAdmin:
		return requested, nil
	case RoleManager:
		if requested != "" && requested != p.TeamID {
			return "", fmt.Errorf("%w: manager of %q cannot view team %q", ErrForbidden, p.TeamID, requested)
		}
		return p.TeamID, nil
	case RoleChatter:
		if requested != "" && p.TeamID != "" && requested != p.TeamID {
			return "", fmt.Errorf("%w: chatter cannot view team %q", ErrForbidden, requested)
		}
		if p.TeamID != "" {
			return p.TeamID, nil
		}
		return requested, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownRole, int(p.Role))
	}
}

// RecordTeam returns the team an event recorded by the principal is filed
// under. Admins record for any team. Managers record only for their own
// team, and an event without a team is filed under it. Chatters and
// principals that cannot view are refused.
func (p Principal) RecordTeam(team string) (string, error) {
	if !p.CanView() {
		return "", fmt.Errorf("%w: account is %s", ErrForbidden, p.Status)
	}
	switch p.Role {
	case RoleAdmin:
		return team, nil
	case RoleManager:
		if team != "" && team != p.TeamID {
			return "", fmt.Errorf("%w: manager of %q cannot record for team %q", ErrForbidden, p.TeamID, team)
		}
		return p.TeamID, nil
	case RoleChatter:
		return "", fmt.Errorf("%w: chatters cannot record earnings", ErrForbidden)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownRole, int(p.Role))
	}
}

// Override replaces the role of every authenticated principal. It exists
// for local role simulation and is injected through configuration.
type Override struct {
	Role Role
}

// ParseOverride parses a role override; an empty string means none.
func ParseOverride(s string) (*Override, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	r, err := ParseRole(s)
	if err != nil {
		return nil, err
	}
	return &Override{Role: r}, nil
}

// Apply returns p with the override applied. A nil override is a no-op.
func (o *Override) Apply(p Principal) Principal {
	if o != nil {
		p.Role = o.Role
	}
	return p
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, or ErrNoPrincipal.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}
