// Package store persists triage run history in a local SQLite database.
//
// History is append-only: a run and all of its per-email results are
// written once, in a single transaction, when the run finishes.
package store

import (
	"context"
	"errors"

	"github.com/teemow/inboxtriage/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Store reads and writes run history.
type Store interface {
	SaveRun(ctx context.Context, digest *model.Digest) error
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	GetRun(ctx context.Context, id string) (*model.Digest, error)
	Close() error
}
