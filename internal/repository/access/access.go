package access

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Decision is the tri-state result of a permission check.
type Decision int

const (
	Unknown Decision = iota
	Allowed
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// ErrAuthorityUnavailable means the permission authority could not be
// reached or timed out. Callers must fail closed.
var ErrAuthorityUnavailable = errors.New("permission authority unavailable")

// Session is a client session already validated by the upstream
// authenticator. A zero ExpiresAt means no absolute expiry.
type Session struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Key identifies one memoized permission decision.
type Key struct {
	SessionID string
	Model     string
}

// keySep is the unit separator: it cannot occur in a cookie value or a
// path segment, so encoded keys parse back unambiguously.
const keySep = "\x1f"

func (k Key) encode() string {
	return k.SessionID + keySep + k.Model
}

func decodeKey(s string) (Key, bool) {
	i := strings.Index(s, keySep)
	if i < 0 {
		return Key{}, false
	}
	return Key{SessionID: s[:i], Model: s[i+len(keySep):]}, true
}

// Resolver determines the access decision for a session and model by
// consulting the external permission authority.
type Resolver interface {
	Resolve(ctx context.Context, session Session, model string) (Decision, error)
}
