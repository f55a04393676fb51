package resultstore

import (
	"context"
	"errors"
	"sync"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
)

// ErrWriterClosed is returned by Append after the writer stopped.
var ErrWriterClosed = errors.New("result writer closed")

type opKind int

const (
	opContains opKind = iota
	opAppend
)

type request struct {
	op    opKind
	name  string
	rec   domain.Record
	reply chan response
}

type response struct {
	ok  bool
	err error
}

// Writer is a Ledger backed by a single goroutine that owns the record set
// and is the only writer of the backend within this process. Appends still
// re-read the backend so records written by other processes are preserved.
type Writer struct {
	backend Backend
	log     logger.Logger

	requests chan request
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Ledger = (*Writer)(nil)

// NewWriter creates a writer. Call Start before use.
func NewWriter(backend Backend, log logger.Logger) *Writer {
	return &Writer{
		backend:  backend,
		log:      log,
		requests: make(chan request),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the owning goroutine. It stops when ctx is done or Close is called.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.stopped)
		w.run(ctx)
	}()
}

// Close stops the writer and waits for the in-flight request to finish.
func (w *Writer) Close() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *Writer) run(ctx context.Context) {
	records, err := w.backend.Read(ctx)
	if err != nil {
		w.log.Warn("Result writer started without a baseline", logger.Error(err))
		records = domain.Records{}
	}
	index := records.Index()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case req := <-w.requests:
			switch req.op {
			case opContains:
				_, ok := index[req.name]
				req.reply <- response{ok: ok}
			case opAppend:
				merged, err := w.merge(ctx, records, index)
				if err != nil {
					req.reply <- response{err: err}
					continue
				}
				records = merged
				if _, ok := index[req.rec.Domain]; ok {
					req.reply <- response{ok: false}
					continue
				}
				next := append(records[:len(records):len(records)], req.rec)
				if err := w.backend.Save(ctx, next); err != nil {
					req.reply <- response{err: err}
					continue
				}
				records = next
				index[req.rec.Domain] = struct{}{}
				req.reply <- response{ok: true}
			}
		}
	}
}

// merge folds records written to the backend by other processes into the
// owned set. An unreadable backend is an error so the append is not saved.
func (w *Writer) merge(ctx context.Context, records domain.Records, index map[string]struct{}) (domain.Records, error) {
	current, err := w.backend.Read(ctx)
	if err != nil {
		return records, err
	}
	for _, r := range current {
		if _, ok := index[r.Domain]; ok {
			continue
		}
		index[r.Domain] = struct{}{}
		records = append(records, r)
	}
	return records, nil
}

func (w *Writer) do(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case w.requests <- req:
	case <-w.stopped:
		return response{}, ErrWriterClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	return <-req.reply, nil
}

// Contains answers from the owned record set.
func (w *Writer) Contains(ctx context.Context, name string) bool {
	resp, err := w.do(ctx, request{op: opContains, name: name})
	if err != nil {
		w.log.Debug("Contains on stopped writer", logger.String("domain", name), logger.Error(err))
		return false
	}
	return resp.ok
}

// Append serializes the append through the owning goroutine.
func (w *Writer) Append(ctx context.Context, rec domain.Record) (bool, error) {
	resp, err := w.do(ctx, request{op: opAppend, rec: rec})
	if err != nil {
		return false, err
	}
	return resp.ok, resp.err
}
