package audit

import (
	"context"
	"sync"
	"time"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/common/metrics"
)

const (
	defaultBufferSize    = 10_000
	defaultFlushInterval = 100 * time.Millisecond
	defaultBatchSize     = 1000
	defaultDrainTimeout  = 2 * time.Second
	sinkWriteTimeout     = 5 * time.Second
)

// Sink persists a batch of events. Implementations need not be safe for
// concurrent use; the Logger calls WriteBatch from a single goroutine.
type Sink interface {
	Name() string
	WriteBatch(ctx context.Context, events []Event) error
}

type Options struct {
	BufferSize    int
	FlushInterval time.Duration
	BatchSize     int
	DrainTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = defaultFlushInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = defaultDrainTimeout
	}
	return o
}

// Logger buffers events in a channel drained by one background goroutine.
// Log never blocks: when the buffer is full the event is dropped and counted.
type Logger struct {
	sink    Sink
	opts    Options
	buffer  chan Event
	done    chan struct{}
	flushed chan struct{}
	log     logger.Logger

	// mu orders enqueues before Close; closed is only set under the write lock.
	mu     sync.RWMutex
	closed bool
}

// NewLogger starts the flush loop. Call Close to drain it.
func NewLogger(sink Sink, opts Options, log logger.Logger) *Logger {
	opts = opts.withDefaults()
	l := &Logger{
		sink:    sink,
		opts:    opts,
		buffer:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		log:     log,
	}
	go l.flushLoop()
	return l
}

// Log enqueues an event. It returns false when the event was dropped.
func (l *Logger) Log(event Event) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		metrics.AuditEventsDropped.Inc()
		return false
	}

	select {
	case l.buffer <- event:
		return true
	default:
		metrics.AuditEventsDropped.Inc()
		l.log.Warn("audit buffer full, dropping event", map[string]interface{}{
			"requestId": event.RequestID,
			"resource":  event.Resource,
		})
		return false
	}
}

// Close stops accepting events, drains what is buffered within the drain
// timeout and waits for the final flush. Safe to call more than once.
func (l *Logger) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	l.mu.Unlock()
	<-l.flushed
}

func (l *Logger) flushLoop() {
	defer close(l.flushed)

	ticker := time.NewTicker(l.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.opts.BatchSize)

	for {
		select {
		case event := <-l.buffer:
			batch = append(batch, event)
			if len(batch) >= l.opts.BatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-l.done:
			drainCtx, cancel := context.WithTimeout(context.Background(), l.opts.DrainTimeout)
		drain:
			for {
				select {
				case event := <-l.buffer:
					batch = append(batch, event)
					if len(batch) >= l.opts.BatchSize {
						l.flush(batch)
						batch = batch[:0]
					}
				case <-drainCtx.Done():
					break drain
				default:
					break drain
				}
			}
			cancel()
			if len(batch) > 0 {
				l.flush(batch)
			}
			return
		}
	}
}

func (l *Logger) flush(events []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()

	if err := l.sink.WriteBatch(ctx, events); err != nil {
		metrics.AuditSinkFailures.WithLabelValues(l.sink.Name()).Inc()
		l.log.Error("audit sink write failed", map[string]interface{}{
			"sink":      l.sink.Name(),
			"batchSize": len(events),
			"error":     err.Error(),
		})
	}
}
