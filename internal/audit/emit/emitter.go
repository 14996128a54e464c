// Package emit hands assembled audit records to the storage sink without
// ever touching the request path's latency. Emission is fire-and-forget:
// a dropped record is an observability gap, not a user-facing failure.
package emit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskboard/internal/audit/metrics"
)

// Sink is the opaque persistence collaborator. Append may fail; failures are
// logged by the emitter, never retried synchronously and never re-raised.
type Sink interface {
	Append(ctx context.Context, record Record) error
}

const batchSize = 100

// Emitter queues records into a bounded ring buffer and drains them from a
// background worker. Emit never blocks and never returns an error.
type Emitter struct {
	sink    Sink
	buffer  *ringBuffer
	wake    chan struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Emitter)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Emitter) {
		e.metrics = m
	}
}

func WithQueueSize(size int) Option {
	return func(e *Emitter) {
		e.buffer = newRingBuffer(size)
	}
}

func New(sink Sink, opts ...Option) (*Emitter, error) {
	if sink == nil {
		return nil, errors.New("audit sink is required")
	}
	e := &Emitter{
		sink:   sink,
		buffer: newRingBuffer(0),
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit enqueues a record for asynchronous persistence. It returns
// immediately; the response is long gone to the client before the sink sees
// anything.
func (e *Emitter) Emit(record Record) {
	if e.buffer.Enqueue(record) {
		e.metrics.IncDropped()
		e.logger.Warn("audit queue full, dropped oldest record",
			"dropped_total", e.buffer.Dropped(),
		)
	}
	e.metrics.SetQueueDepth(e.buffer.Len())

	select {
	case e.wake <- struct{}{}:
	default: // worker already signalled
	}
}

// Run drains the queue until ctx is cancelled, then flushes what remains.
// Sink failures are logged at ERROR and swallowed; retry policy, if any,
// belongs to the sink.
func (e *Emitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			e.flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-e.wake:
			e.drain(ctx)
		}
	}
}

func (e *Emitter) drain(ctx context.Context) {
	for {
		batch := e.buffer.DequeueBatch(batchSize)
		if len(batch) == 0 {
			e.metrics.SetQueueDepth(0)
			return
		}
		for _, record := range batch {
			e.append(ctx, record)
		}
		e.metrics.SetQueueDepth(e.buffer.Len())
	}
}

// flush gives pending records one bounded chance to persist on shutdown.
func (e *Emitter) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	e.drain(ctx)
}

func (e *Emitter) append(ctx context.Context, record Record) {
	if err := e.sink.Append(ctx, record); err != nil {
		e.metrics.IncSinkErrors()
		e.logger.Error("audit sink append failed",
			"error", err,
			"event_type", string(record.EventType),
			"request_id", record.RequestID,
		)
		return
	}
	e.metrics.IncEmitted()
}

// QueueLen reports the current queue depth. Exposed for the security status
// endpoint and tests.
func (e *Emitter) QueueLen() int { return e.buffer.Len() }

// Dropped reports the total number of records dropped to overflow.
func (e *Emitter) Dropped() int64 { return e.buffer.Dropped() }
