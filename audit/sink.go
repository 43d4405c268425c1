// audit/sink.go
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/sentinelworks/verdict/logging"
)

// Sink accepts decision events for best-effort asynchronous recording. It
// never blocks the caller and never reports failure back to the decision
// path: an audit outage must not become an authorization outage.
type Sink interface {
	Record(ev Event)
}

// SinkConfig tunes the buffered sink.
type SinkConfig struct {
	BufferSize       int
	MaxRetries       int
	RetryBackoff     time.Duration
	RedactAttributes []string
}

// BufferedSink buffers events on a channel drained by one worker goroutine.
// Writes are retried with linearly growing backoff up to the retry budget;
// exhausted or overflowed events are dropped and counted, never surfaced.
type BufferedSink struct {
	repo     Repository
	redactor *Redactor

	events       chan Event
	maxRetries   int
	retryBackoff time.Duration

	dropped   atomic.Int64
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewBufferedSink(repo Repository, cfg SinkConfig) *BufferedSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	s := &BufferedSink{
		repo:         repo,
		redactor:     NewRedactor(cfg.RedactAttributes),
		events:       make(chan Event, cfg.BufferSize),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}
	s.wg.Add(1)
	go s.drain()
	return s
}

// Record hands an event to the worker. If the buffer is full, or the sink
// is already closed, the event is dropped and counted; blocking or panicking
// on the decision path is never an option.
func (s *BufferedSink) Record(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		logger.Warn("Audit sink closed, dropping event",
			zap.String("correlationID", ev.CorrelationID))
		return
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		logger.Warn("Audit buffer full, dropping event",
			zap.String("correlationID", ev.CorrelationID))
	}
}

// Close stops accepting events and waits for the buffer to flush. Events
// already handed to Record are written even if the submitting request was
// cancelled; audit completeness outranks decision completion.
func (s *BufferedSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
	s.wg.Wait()
}

// Dropped reports how many events were lost to overflow or exhausted
// retries since the sink started.
func (s *BufferedSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *BufferedSink) drain() {
	defer s.wg.Done()
	for ev := range s.events {
		s.write(ev)
	}
}

func (s *BufferedSink) write(ev Event) {
	rec := s.redactor.Flatten(ev)

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.retryBackoff * time.Duration(attempt))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = s.repo.Index(ctx, rec)
		cancel()
		if lastErr == nil {
			return
		}
	}

	s.dropped.Add(1)
	logger.Error("Audit write failed after retries, dropping event",
		zap.String("correlationID", ev.CorrelationID),
		zap.Int("retries", s.maxRetries),
		zap.Error(lastErr))
}
