package model

import "strings"

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleRecorder = "recorder"
)

// Principal is the caller identity every operation receives. It is
// supplied by the transport (JWT subject plus resolved roles), never
// trusted from request payloads.
type Principal struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles,omitempty"`
}

func (p Principal) Zero() bool {
	return strings.TrimSpace(p.ID) == ""
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
