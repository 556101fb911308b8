// Package resilience guards calls to the external contact directory. Calls
// are never retried; a failing directory is short-circuited so matching
// degrades to "not verified" without waiting on the network.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the position of a Breaker.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the service while the breaker is open,
// or while another caller holds the half-open trial.
var ErrOpen = eris.New("resilience: circuit open")

// Settings controls a Breaker.
type Settings struct {
	// Threshold is the number of consecutive counted failures that opens the
	// breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before a trial.
	Cooldown time.Duration
	// Counts decides whether an error is a service failure. Nil counts every
	// error.
	Counts func(err error) bool
	// OnStateChange runs on every transition, under the breaker lock.
	OnStateChange func(from, to State)
}

// SettingsFrom builds Settings from config values. Non-positive values fall
// back to 5 failures and a 30s cooldown. Only transient errors count.
func SettingsFrom(threshold, cooldownSecs int) Settings {
	s := Settings{Threshold: 5, Cooldown: 30 * time.Second, Counts: IsTransient}
	if threshold > 0 {
		s.Threshold = threshold
	}
	if cooldownSecs > 0 {
		s.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return s
}

// Breaker tracks consecutive failures of one service.
type Breaker struct {
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed Breaker.
func NewBreaker(s Settings) *Breaker {
	def := SettingsFrom(0, 0)
	if s.Threshold <= 0 {
		s.Threshold = def.Threshold
	}
	if s.Cooldown <= 0 {
		s.Cooldown = def.Cooldown
	}
	return &Breaker{settings: s, now: time.Now}
}

// Call runs fn through b. A nil Breaker calls fn directly. A call whose
// caller's context ended is not recorded either way: it neither counts as a
// failure nor closes a half-open breaker.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if b == nil {
		return fn(ctx)
	}

	trial, err := b.acquire()
	if err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	if ctx.Err() != nil {
		b.abandon(trial)
		return val, err
	}
	b.record(trial, err != nil && b.counts(err))
	return val, err
}

// State returns the current state. An open breaker whose cooldown has
// elapsed reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.cooledDown() {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current run of consecutive counted failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) counts(err error) bool {
	if b.settings.Counts == nil {
		return true
	}
	return b.settings.Counts(err)
}

func (b *Breaker) cooledDown() bool {
	return b.now().Sub(b.openedAt) >= b.settings.Cooldown
}

// acquire admits a call. trial is true when the call is the half-open trial.
func (b *Breaker) acquire() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if !b.cooledDown() {
			return false, ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	if b.probing {
		return false, ErrOpen
	}
	b.probing = true
	return true, nil
}

func (b *Breaker) record(trial, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.probing = false
		if failed {
			b.openedAt = b.now()
			b.transition(StateOpen)
			return
		}
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	if b.state != StateClosed {
		return
	}
	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.settings.Threshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// abandon releases the half-open trial slot without changing state.
func (b *Breaker) abandon(trial bool) {
	if !trial {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if from != to && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(from, to)
	}
}
