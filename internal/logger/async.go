package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// asyncRecord keeps the originating context so downstream handlers still
// see request-scoped values.
type asyncRecord struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// AsyncHandler hands records to a buffered channel drained by a fixed set of
// workers. Records are dropped, never blocked on, when the buffer is full.
type AsyncHandler struct {
	inner   slog.Handler
	ch      chan asyncRecord
	wg      *sync.WaitGroup
	dropped *atomic.Int64
	once    *sync.Once
}

// NewAsyncHandler creates an AsyncHandler with the given channel capacity and worker count.
func NewAsyncHandler(inner slog.Handler, chanSize, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		ch:      make(chan asyncRecord, chanSize),
		wg:      &sync.WaitGroup{},
		dropped: &atomic.Int64{},
		once:    &sync.Once{},
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.wg.Done()
	for r := range h.ch {
		_ = r.h.Handle(r.ctx, r.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the channel is full.
func (h *AsyncHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.ch <- asyncRecord{ctx: context.WithoutCancel(ctx), rec: rec.Clone(), h: h.inner}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs shares the channel and workers; only the inner handler changes.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.inner.WithAttrs(attrs))
}

// WithGroup shares the channel and workers; only the inner handler changes.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.inner.WithGroup(name))
}

func (h *AsyncHandler) derive(inner slog.Handler) *AsyncHandler {
	c := *h
	c.inner = inner
	return &c
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and waits for the workers to drain the
// buffer. Calling it more than once is safe.
func (h *AsyncHandler) Close() {
	h.once.Do(func() { close(h.ch) })
	h.wg.Wait()
}
