package model

import (
	"fmt"
	"strings"
	"time"
)

// AccessLevel orders the access tiers a grant can convey.
// Higher values include the capabilities of lower ones.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessAdmin
)

func (l AccessLevel) String() string {
	switch l {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessAdmin:
		return "admin"
	default:
		return fmt.Sprintf("access(%d)", int(l))
	}
}

func (l AccessLevel) Valid() bool {
	return l >= AccessNone && l <= AccessAdmin
}

func ParseAccessLevel(raw string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none":
		return AccessNone, nil
	case "read":
		return AccessRead, nil
	case "write":
		return AccessWrite, nil
	case "admin":
		return AccessAdmin, nil
	default:
		return AccessNone, fmt.Errorf("unknown access level %q", raw)
	}
}

func (l AccessLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

func (l *AccessLevel) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAccessLevel(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// AccessGrant authorizes a non-owner identity on a file. Keyed by
// (FileID, Grantee); a re-grant overwrites the previous record.
type AccessGrant struct {
	FileID    string      `json:"file_id"`
	Grantee   string      `json:"grantee"`
	Level     AccessLevel `json:"level"`
	GrantedAt time.Time   `json:"granted_at"`
	// ExpiresAt zero means the grant never expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// ActiveAt reports whether the grant satisfies the requested level at
// the given instant. The instant of expiry itself is still valid.
func (g AccessGrant) ActiveAt(now time.Time, level AccessLevel) bool {
	if g.Level < level {
		return false
	}
	if g.ExpiresAt.IsZero() {
		return true
	}
	return !now.After(g.ExpiresAt)
}
