// Package resilience guards calls to the upstream directions endpoint.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/TravelTime/internal/config"
)

// ErrCircuitOpen is returned instead of calling a directions endpoint that
// is cooling down after repeated outages.
var ErrCircuitOpen = errors.New("directions endpoint unavailable: circuit open")

// Mode is the externally visible breaker state.
type Mode string

const (
	Closed   Mode = "closed"
	Open     Mode = "open"
	HalfOpen Mode = "half-open"
)

// Snapshot is a point-in-time view of a Breaker for health reporting.
type Snapshot struct {
	Mode     Mode
	Failures int
	// RetryAt is when the next trial call is admitted. Zero while closed.
	RetryAt time.Time
}

// Breaker trips after a streak of failed directions calls. Once tripped it
// rejects calls for the cooldown, then admits a single trial call at a
// time until one succeeds.
type Breaker struct {
	limit    int
	cooldown time.Duration
	now      func() time.Time

	mu        sync.Mutex
	streak    int
	trippedAt time.Time
	trialBusy bool
}

// New builds a breaker from the breaker section of the config.
func New(cfg config.Breaker) *Breaker {
	return &Breaker{
		limit:    max(cfg.MaxFailures, 1),
		cooldown: cfg.Timeout,
		now:      time.Now,
	}
}

// Do runs call unless the circuit is open and returns its error.
func (b *Breaker) Do(call func() error) error {
	trial, err := b.admit()
	if err != nil {
		return err
	}
	err = call()
	b.record(trial, err)
	return err
}

func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.trippedAt.IsZero() {
		return false, nil
	}
	if b.trialBusy || b.now().Before(b.trippedAt.Add(b.cooldown)) {
		return false, ErrCircuitOpen
	}
	b.trialBusy = true
	return true, nil
}

func (b *Breaker) record(trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.trialBusy = false
	}
	if err == nil {
		if !b.trippedAt.IsZero() {
			slog.Info("directions circuit closed", "after_failures", b.streak)
		}
		b.streak = 0
		b.trippedAt = time.Time{}
		return
	}

	b.streak++
	if trial || b.streak >= b.limit {
		if b.trippedAt.IsZero() || trial {
			slog.Warn("directions circuit opened", "failures", b.streak, "cooldown", b.cooldown)
		}
		b.trippedAt = b.now()
	}
}

// Snapshot reports the current mode. An open circuit whose cooldown has
// elapsed reads as half-open.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{Mode: Closed, Failures: b.streak}
	if b.trippedAt.IsZero() {
		return s
	}
	s.RetryAt = b.trippedAt.Add(b.cooldown)
	s.Mode = Open
	if !b.now().Before(s.RetryAt) {
		s.Mode = HalfOpen
	}
	return s
}
