package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

// ErrWriterClosed is returned by Submit after Close.
var ErrWriterClosed = errors.New("store: writer closed")

// Job is a set of documents to save. Nil fields are left as they are.
type Job struct {
	Tracks    *domain.TracksDocument
	Hierarchy *domain.HierarchyDocument
	ColorTags map[string]string
}

// SnapshotJob saves both halves of a snapshot.
func SnapshotJob(snap *domain.Snapshot) Job {
	tracks := snap.TracksDocument()
	hierarchy := snap.HierarchyDocument()
	return Job{Tracks: &tracks, Hierarchy: &hierarchy}
}

func (j Job) empty() bool {
	return j.Tracks == nil && j.Hierarchy == nil && j.ColorTags == nil
}

// merge overlays newer documents onto j.
func (j Job) merge(newer Job) Job {
	if newer.Tracks != nil {
		j.Tracks = newer.Tracks
	}
	if newer.Hierarchy != nil {
		j.Hierarchy = newer.Hierarchy
	}
	if newer.ColorTags != nil {
		j.ColorTags = newer.ColorTags
	}
	return j
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Logger *slog.Logger
	// OnError is called from the writer goroutine after a failed save.
	OnError func(error)
	// Timeout bounds a single save. Zero means 30 seconds.
	Timeout time.Duration
}

// Writer saves documents on a background goroutine.
//
// Submit never blocks on I/O. Jobs queued while a save is running are
// coalesced per document, so only the latest version of each is written.
// The caller owns nothing it submits: documents must not be modified after
// Submit.
type Writer struct {
	gateway Gateway
	logger  *slog.Logger
	onError func(error)
	timeout time.Duration

	mu        sync.Mutex
	pending   Job
	submitted uint64
	written   uint64
	failure   error
	waiters   map[*flushWaiter]struct{}
	closed    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

type flushWaiter struct {
	target uint64
	ch     chan error
}

// NewWriter starts a writer in front of gateway.
func NewWriter(gateway Gateway, opts WriterOptions) *Writer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	w := &Writer{
		gateway: gateway,
		logger:  logger,
		onError: opts.OnError,
		timeout: timeout,
		waiters: make(map[*flushWaiter]struct{}),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues a job.
func (w *Writer) Submit(job Job) error {
	if job.empty() {
		return nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	w.pending = w.pending.merge(job)
	w.submitted++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush waits until every job submitted before the call has been written.
// It returns the first save failure since the previous Flush, or ctx.Err().
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.written >= w.submitted {
		err := w.failure
		w.failure = nil
		w.mu.Unlock()
		return err
	}
	waiter := &flushWaiter{target: w.submitted, ch: make(chan error, 1)}
	w.waiters[waiter] = struct{}{}
	w.mu.Unlock()

	select {
	case err := <-waiter.ch:
		return err
	case <-ctx.Done():
		w.mu.Lock()
		delete(w.waiters, waiter)
		w.mu.Unlock()
		return ctx.Err()
	}
}

// Close writes anything still queued and stops the writer. It returns the
// result of a final Flush.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.Flush(ctx)
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain writes the coalesced pending job, if any.
func (w *Writer) drain() {
	w.mu.Lock()
	job := w.pending
	w.pending = Job{}
	seq := w.submitted
	w.mu.Unlock()

	var err error
	if !job.empty() {
		err = w.write(job)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.written = seq
	if err != nil && w.failure == nil {
		w.failure = err
	}
	for waiter := range w.waiters {
		if waiter.target > w.written {
			continue
		}
		waiter.ch <- w.failure
		w.failure = nil
		delete(w.waiters, waiter)
	}
}

func (w *Writer) write(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	var errs []error
	if job.Hierarchy != nil {
		errs = append(errs, w.gateway.SaveHierarchy(ctx, *job.Hierarchy))
	}
	if job.Tracks != nil {
		errs = append(errs, w.gateway.SaveTracks(ctx, *job.Tracks))
	}
	if job.ColorTags != nil {
		errs = append(errs, w.gateway.SaveColorTags(ctx, job.ColorTags))
	}

	err := errors.Join(errs...)
	if err != nil {
		w.logger.Error("failed to persist library", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return err
	}

	w.logger.Debug("library persisted", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
