package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/IgorGrieder/link-registry/internal/processing/links"
	"go.uber.org/zap"
)

type breakerState int

const (
	stateClosed breakerState = iota + 1
	stateOpen
	stateHalfOpen
)

var ErrCircuitOpen = errors.New("publisher circuit breaker is open")

// BreakerPublisher stops calling the wrapped publisher after maxFailures
// consecutive errors and lets a single probe through once cooldown elapsed.
type BreakerPublisher struct {
	next Publisher

	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	openSince   time.Time
	cooldown    time.Duration
	now         func() time.Time
}

func NewBreakerPublisher(next Publisher, maxFailures int, cooldown time.Duration) *BreakerPublisher {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &BreakerPublisher{
		next:        next,
		state:       stateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (b *BreakerPublisher) PublishLinkGenerated(ctx context.Context, link *links.Link) error {
	if err := b.before(); err != nil {
		return err
	}
	if err := b.next.PublishLinkGenerated(ctx, link); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *BreakerPublisher) Close() error {
	return b.next.Close()
}

func (b *BreakerPublisher) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openSince) < b.cooldown {
			return ErrCircuitOpen
		}
		logger.Warn("publisher breaker: open -> half-open")
		b.state = stateHalfOpen
		return nil
	case stateHalfOpen:
		// one probe at a time
		return ErrCircuitOpen
	}
	return nil
}

func (b *BreakerPublisher) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		logger.Info("publisher breaker: half-open -> closed")
	}
	b.state = stateClosed
	b.failures = 0
}

func (b *BreakerPublisher) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateHalfOpen:
		logger.Warn("publisher breaker: half-open -> open, probe failed")
		b.state = stateOpen
		b.openSince = b.now()
	case stateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			logger.Error("publisher breaker: closed -> open", zap.Int("failures", b.failures))
			b.state = stateOpen
			b.openSince = b.now()
		}
	}
}
