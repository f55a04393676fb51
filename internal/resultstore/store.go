// Package resultstore persists check results as a JSON array on disk.
//
// The file is only ever replaced by rename, so readers see either the previous
// or the next complete document. Corrupt documents are copied aside and the
// target reset to an empty array.
package resultstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/retry"
)

var (
	// ErrSaveFailed is returned when every save attempt failed.
	ErrSaveFailed = errors.New("save result store")
	// ErrUnreadable is returned by Read when the file exists but every read failed.
	ErrUnreadable = errors.New("read result store")
	// ErrCorrupt is returned by Snapshot when the file does not parse.
	ErrCorrupt = errors.New("corrupt result store")
)

const (
	backupSuffix     = ".backup"
	corruptSuffix    = ".corrupt-"
	corruptTimestamp = "20060102T150405.000000000Z"
	dirPerm          = 0o755
	filePerm         = 0o644
)

var emptyDocument = []byte("[]\n")

// Backend loads and saves the full record set.
type Backend interface {
	// Load never fails; an unreadable store is treated as empty.
	Load(ctx context.Context) domain.Records
	// Read is Load for writers: an unreadable store is reported as an error
	// so that nothing is saved over records it could not see.
	Read(ctx context.Context) (domain.Records, error)
	Save(ctx context.Context, records domain.Records) error
}

// Reader reads the store without creating, resetting or quarantining it.
type Reader interface {
	Snapshot(ctx context.Context) (domain.Records, error)
}

// Store is the file-backed Backend.
type Store struct {
	path    string
	cfg     config.StoreConfig
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	onRetry func(op string, attempt int, delay time.Duration)
}

var (
	_ Backend = (*Store)(nil)
	_ Reader  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithMetrics records saves and quarantines on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithNow overrides the clock used for quarantine file names.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store for cfg.Path.
func New(cfg config.StoreConfig, log logger.Logger, opts ...Option) *Store {
	if cfg.LoadAttempts < 1 {
		cfg.LoadAttempts = 1
	}
	if cfg.SaveAttempts < 1 {
		cfg.SaveAttempts = 1
	}
	s := &Store{
		path: cfg.Path,
		cfg:  cfg,
		log:  log.With(logger.String("store", cfg.Path)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the target file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted records. It never fails: an absent file is
// created empty, and unreadable or corrupt content yields an empty set.
func (s *Store) Load(ctx context.Context) domain.Records {
	records, err := s.Read(ctx)
	if err != nil {
		s.log.Error("Failed to read result store, continuing with empty set", logger.Error(err))
		return domain.Records{}
	}
	return records
}

// Read returns the persisted records, or ErrUnreadable when the file could
// not be read after every attempt. Absent and corrupt files are handled as in Load.
func (s *Store) Read(ctx context.Context) (domain.Records, error) {
	data, err := s.readFile(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.initEmpty()
		return domain.Records{}, nil
	case err != nil:
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, s.path, err)
	}

	records, err := s.decode(data)
	if err == nil {
		return records, nil
	}
	if s.quarantine(data, err) {
		return domain.Records{}, nil
	}

	// Another writer replaced the corrupt document; read what it wrote.
	data, err = s.readFile(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, s.path, err)
	}
	records, err = s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, s.path, err)
	}
	return records, nil
}

// Snapshot reads the file once and never writes. An absent file is an empty
// set; a corrupt one is reported as ErrCorrupt.
func (s *Store) Snapshot(context.Context) (domain.Records, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadable, s.path, err)
	}
	records, err := s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCorrupt, s.path, err)
	}
	return records, nil
}

// readFile reads the target with a fixed delay between attempts. A missing
// file is returned immediately.
func (s *Store) readFile(ctx context.Context) ([]byte, error) {
	var data []byte
	err := retry.Retry(ctx, retry.Config{
		MaxAttempts: s.cfg.LoadAttempts,
		Backoff:     retry.Fixed(s.cfg.LoadDelay),
		IsRetryable: func(err error) bool { return !errors.Is(err, fs.ErrNotExist) },
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.log.Warn("Result store read failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err))
			s.retried("load", attempt, delay)
		},
	}, func() error {
		b, readErr := os.ReadFile(s.path)
		data = b
		return readErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return data, err
}

// decode parses a document. Whitespace-only content is an empty set and
// duplicate domains keep their first occurrence.
func (s *Store) decode(data []byte) (domain.Records, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Records{}, nil
	}

	var records domain.Records
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return domain.Records{}, nil
	}

	records, dropped := records.Dedupe()
	if dropped > 0 {
		s.log.Warn("Result store contained duplicate domains, keeping first occurrence",
			logger.Int("dropped", dropped))
	}
	return records, nil
}

func (s *Store) retried(op string, attempt int, delay time.Duration) {
	if s.onRetry != nil {
		s.onRetry(op, attempt, delay)
	}
}

// Save atomically replaces the store with records, keeping the previous
// document as a backup. Returns an error wrapping ErrSaveFailed when every attempt failed.
func (s *Store) Save(ctx context.Context, records domain.Records) error {
	data, err := encode(records)
	if err != nil {
		s.metrics.RecordStoreSave(false)
		return fmt.Errorf("%w: encode: %w", ErrSaveFailed, err)
	}

	err = retry.Retry(ctx, retry.Config{
		MaxAttempts: s.cfg.SaveAttempts,
		Backoff:     retry.Linear(s.cfg.SaveDelay),
		OnRetry: func(attempt int, delay time.Duration, err error) {
			s.log.Warn("Result store save failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err))
			s.retried("save", attempt, delay)
		},
	}, func() error {
		return s.saveOnce(data)
	})
	if err != nil {
		s.metrics.RecordStoreSave(false)
		s.log.Error("Result store save failed", logger.Error(err))
		return fmt.Errorf("%w %s: %w", ErrSaveFailed, s.path, err)
	}

	s.metrics.RecordStoreSave(true)
	return nil
}

func (s *Store) saveOnce(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	s.backup()
	return writeAtomic(s.path, data)
}

// backup copies the current document to <path>.backup when it is valid JSON.
func (s *Store) backup() {
	current, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Failed to read result store for backup", logger.Error(err))
		}
		return
	}
	if !json.Valid(current) {
		return
	}
	if err := writeAtomic(s.path+backupSuffix, current); err != nil {
		s.log.Warn("Failed to write result store backup", logger.Error(err))
	}
}

// initEmpty creates the store holding []. An existing file is never replaced.
func (s *Store) initEmpty() {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		s.log.Warn("Failed to create result store directory", logger.Error(err))
		return
	}
	tmp, err := writeTemp(s.path, emptyDocument)
	if err != nil {
		s.log.Warn("Failed to initialize result store", logger.Error(err))
		return
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.path); err != nil && !errors.Is(err, fs.ErrExist) {
		s.log.Warn("Failed to initialize result store", logger.Error(err))
		return
	}
	s.log.Info("Initialized empty result store")
}

// quarantine copies corrupt bytes to a timestamped sibling and resets the
// target. The reset is skipped, and false returned, when the target no longer
// holds the corrupt bytes because another writer replaced it.
func (s *Store) quarantine(data []byte, cause error) bool {
	s.metrics.RecordQuarantine()
	dest := s.path + corruptSuffix + s.now().UTC().Format(corruptTimestamp)

	if err := writeAtomic(dest, data); err != nil {
		s.log.Error("Failed to quarantine corrupt result store",
			logger.String("quarantine", dest), logger.Error(err))
	} else {
		s.log.Warn("Result store was corrupt, moved aside",
			logger.String("quarantine", dest), logger.Error(cause))
	}

	current, err := os.ReadFile(s.path)
	if err == nil && !bytes.Equal(current, data) {
		s.log.Info("Result store was replaced while quarantining, keeping the new document")
		return false
	}

	if err := writeAtomic(s.path, emptyDocument); err != nil {
		s.log.Error("Failed to reset corrupt result store", logger.Error(err))
	}
	return true
}

func encode(records domain.Records) ([]byte, error) {
	if records == nil {
		records = domain.Records{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// writeAtomic writes data to a unique temp sibling and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return fail(fmt.Errorf("write %s: %w", name, err))
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", name, err))
	}
	if err := f.Chmod(filePerm); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", name, err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return name, nil
}
