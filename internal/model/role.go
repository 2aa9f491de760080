package model

import (
	"fmt"
	"strings"
)

// Role is the authorization role carried by a principal.
type Role uint8

const (
	RoleGuest Role = iota
	RoleCustomer
	RoleManager
	RoleAdmin
)

var roleNames = [...]string{
	RoleGuest:    "guest",
	RoleCustomer: "customer",
	RoleManager:  "manager",
	RoleAdmin:    "admin",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole accepts the lower-case wire names, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "guest":
		return RoleGuest, nil
	case "customer":
		return RoleCustomer, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleGuest, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// CanManage reports whether the role may appear in a venue's manager set.
func (r Role) CanManage() bool { return r == RoleManager || r == RoleAdmin }

// Principal is the actor behind a request. It is derived from a signed
// credential and never mutated for the lifetime of a session.
type Principal struct {
	ID          uint64 `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Anonymous is the principal used when no valid credential is present.
var Anonymous = Principal{Role: RoleGuest}

func (p Principal) IsAnonymous() bool { return p.ID == 0 || p.Role == RoleGuest }

func (p Principal) IsAdmin() bool { return !p.IsAnonymous() && p.Role == RoleAdmin }
