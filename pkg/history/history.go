// Package history records resolution runs so they can be listed and
// inspected later.
//
// Two backends are provided:
//   - file: JSON documents in a config directory, for the CLI
//   - mongo: a MongoDB collection, for shared installations
//
// Records are written once and never updated.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/jarflow/pkg/deps"
	jferrors "github.com/matzehuels/jarflow/pkg/errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("history record not found")

// Record summarizes one resolution.
type Record struct {
	ID           string          `json:"id" bson:"_id"`
	SessionID    string          `json:"session_id,omitempty" bson:"session_id,omitempty"`
	Roots        []string        `json:"roots" bson:"roots"`
	Repositories []string        `json:"repositories,omitempty" bson:"repositories,omitempty"`
	Nodes        int             `json:"nodes" bson:"nodes"`
	Artifacts    []string        `json:"artifacts,omitempty" bson:"artifacts,omitempty"`
	Conflicts    []deps.Conflict `json:"conflicts,omitempty" bson:"conflicts,omitempty"`
	Failures     []Failure       `json:"failures,omitempty" bson:"failures,omitempty"`
	Duration     time.Duration   `json:"duration" bson:"duration"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
}

// Failure is the persisted form of [deps.Failure].
type Failure struct {
	Location string        `json:"location" bson:"location"`
	Path     []string      `json:"path" bson:"path"`
	Code     jferrors.Code `json:"code,omitempty" bson:"code,omitempty"`
	Message  string        `json:"message" bson:"message"`
}

// NewRecord summarizes res. Artifacts are listed without redirection.
func NewRecord(sessionID string, roots []deps.Dependency, repos []string, res *deps.Result, took time.Duration) *Record {
	r := &Record{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Repositories: repos,
		Duration:     took,
		CreatedAt:    time.Now().UTC(),
	}
	for _, d := range roots {
		r.Roots = append(r.Roots, d.Location())
	}
	if res == nil {
		return r
	}
	r.Nodes = res.Tree.Len()
	r.Conflicts = res.Conflicts
	for _, n := range deps.Artifacts(res.Tree, false) {
		r.Artifacts = append(r.Artifacts, n.Location())
	}
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, Failure{
			Location: f.Location,
			Path:     f.Path,
			Code:     f.Code(),
			Message:  jferrors.UserMessage(f.Err),
		})
	}
	return r
}

// Store persists records.
type Store interface {
	// Put stores a record. Records with an existing ID are replaced.
	Put(ctx context.Context, r *Record) error

	// Get returns the record with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Prune removes records older than maxAge and reports how many.
	Prune(ctx context.Context, maxAge time.Duration) (int, error)

	Close() error
}
