package registry

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownModel means the model id does not reference a served
// dataset. Callers must not leak this distinctly from access denial.
var ErrUnknownModel = errors.New("unknown model")

// Fingerprint is an opaque content version token for a model's tile
// tree. Any change to the tree yields a new token.
type Fingerprint struct {
	Token     string
	UpdatedAt time.Time
}

// Registry is the source of truth for model content fingerprints.
type Registry interface {
	Fingerprint(ctx context.Context, model string) (Fingerprint, error)
	Invalidate(model string)
}
