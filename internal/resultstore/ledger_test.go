package resultstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
)

var errDiskFull = errors.New("disk full")

// memBackend is an in-memory Backend.
type memBackend struct {
	mu      sync.Mutex
	records domain.Records
	readErr error
	saveErr error
	saves   int
}

func (b *memBackend) Load(context.Context) domain.Records {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(domain.Records{}, b.records...)
}

func (b *memBackend) Read(ctx context.Context) (domain.Records, error) {
	b.mu.Lock()
	err := b.readErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.Load(ctx), nil
}

func (b *memBackend) failReads(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
}

func (b *memBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *memBackend) Save(_ context.Context, records domain.Records) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.records = append(domain.Records{}, records...)
	return nil
}

func (b *memBackend) inject(rec domain.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, rec)
}

func TestOptimisticLedger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &memBackend{}
	ledger := resultstore.NewOptimisticLedger(backend)

	assert.False(t, ledger.Contains(ctx, "a.com"))

	ok, err := ledger.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ledger.Contains(ctx, "a.com"))

	ok, err = ledger.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusUnavailable})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.StatusAvailable, backend.Load(ctx)[0].Status)
}

func TestOptimisticLedger_SaveError(t *testing.T) {
	t.Parallel()

	ledger := resultstore.NewOptimisticLedger(&memBackend{saveErr: errDiskFull})
	ok, err := ledger.Append(context.Background(), domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, ok)
}

func TestOptimisticLedger_UnreadableStoreIsNotOverwritten(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seed := domain.Records{{Domain: "seed.com", Status: domain.StatusAvailable}}
	backend := &memBackend{records: seed, readErr: resultstore.ErrUnreadable}
	ledger := resultstore.NewOptimisticLedger(backend)

	ok, err := ledger.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.ErrorIs(t, err, resultstore.ErrUnreadable)
	assert.False(t, ok)
	assert.Zero(t, backend.saveCount())
	assert.Equal(t, seed, backend.Load(ctx))
}

func startWriter(t *testing.T, backend resultstore.Backend) *resultstore.Writer {
	t.Helper()
	w := resultstore.NewWriter(backend, logger.NewNop())
	w.Start(context.Background())
	t.Cleanup(w.Close)
	return w
}

func TestWriter_AppendAndContains(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &memBackend{records: domain.Records{{Domain: "seed.com", Status: domain.StatusUnavailable}}}
	w := startWriter(t, backend)

	assert.True(t, w.Contains(ctx, "seed.com"))
	assert.False(t, w.Contains(ctx, "a.com"))

	ok, err := w.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, w.Contains(ctx, "a.com"))

	ok, err = w.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusError})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, backend.Load(ctx), 2)
}

func TestWriter_MergesExternalWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &memBackend{}
	w := startWriter(t, backend)
	require.False(t, w.Contains(ctx, "other.com"))

	backend.inject(domain.Record{Domain: "other.com", Status: domain.StatusAvailable})

	ok, err := w.Append(ctx, domain.Record{Domain: "other.com", Status: domain.StatusError})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Append(ctx, domain.Record{Domain: "mine.com", Status: domain.StatusUnknown})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Records{
		{Domain: "other.com", Status: domain.StatusAvailable},
		{Domain: "mine.com", Status: domain.StatusUnknown},
	}, backend.Load(ctx))
}

func TestWriter_SaveErrorDoesNotRecordDomain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := startWriter(t, &memBackend{saveErr: errDiskFull})

	ok, err := w.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, ok)
	assert.False(t, w.Contains(ctx, "a.com"))
}

func TestWriter_UnreadableStoreIsNotOverwritten(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seed := domain.Records{{Domain: "seed.com", Status: domain.StatusAvailable}}
	backend := &memBackend{records: seed}
	w := startWriter(t, backend)
	require.True(t, w.Contains(ctx, "seed.com"))

	backend.failReads(resultstore.ErrUnreadable)
	ok, err := w.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.ErrorIs(t, err, resultstore.ErrUnreadable)
	assert.False(t, ok)
	assert.False(t, w.Contains(ctx, "a.com"))
	assert.Zero(t, backend.saveCount())

	backend.failReads(nil)
	ok, err = w.Append(ctx, domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, backend.Load(ctx), 2)
}

func TestWriter_ConcurrentAppendsKeepEveryRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	w := startWriter(t, s)

	const writers, perWriter = 6, 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perWriter {
				ok, err := w.Append(ctx, domain.Record{Domain: fmt.Sprintf("d%d-%d.com", i, j), Status: domain.StatusAvailable})
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, readRecords(t, s.Path()), writers*perWriter)
}

func TestWriter_ClosedRejectsAppend(t *testing.T) {
	t.Parallel()

	w := resultstore.NewWriter(&memBackend{}, logger.NewNop())
	w.Start(context.Background())
	w.Close()

	_, err := w.Append(context.Background(), domain.Record{Domain: "a.com", Status: domain.StatusAvailable})
	require.ErrorIs(t, err, resultstore.ErrWriterClosed)
	assert.False(t, w.Contains(context.Background(), "a.com"))
}
