package resultstore

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

// Ledger is the merge discipline workers use against the store.
type Ledger interface {
	// Contains reports whether name already has a persisted record.
	Contains(ctx context.Context, name string) bool
	// Append persists rec unless its domain is already present.
	// appended is false when another writer got there first.
	Append(ctx context.Context, rec domain.Record) (appended bool, err error)
}

// OptimisticLedger re-reads the backend before every decision and writes
// back the whole set. Appends from the same ledger are serialized; writers
// in other processes are not, so one of two racing appends can be lost
// there. The file itself always stays valid.
type OptimisticLedger struct {
	backend Backend
	mu      sync.Mutex
}

var _ Ledger = (*OptimisticLedger)(nil)

// NewOptimisticLedger wraps backend.
func NewOptimisticLedger(backend Backend) *OptimisticLedger {
	return &OptimisticLedger{backend: backend}
}

// Contains loads the current store and looks up name.
func (l *OptimisticLedger) Contains(ctx context.Context, name string) bool {
	return l.backend.Load(ctx).Contains(name)
}

// Append loads, checks, appends and saves. Nothing is saved when the
// current store cannot be read.
func (l *OptimisticLedger) Append(ctx context.Context, rec domain.Record) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.backend.Read(ctx)
	if err != nil {
		return false, err
	}
	if current.Contains(rec.Domain) {
		return false, nil
	}
	if err := l.backend.Save(ctx, append(current, rec)); err != nil {
		return false, err
	}
	return true, nil
}
