// Package ratelimit implements the fixed-window login attempt limiter.
//
// A Limiter is constructed by the composition root and injected where login
// attempts are processed. State lives in process memory only and is lost on
// restart.
package ratelimit

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute

	// UnknownIdentifier is the bucket shared by callers with neither an email
	// nor a network address.
	UnknownIdentifier = "unknown"
)

// Decision is the outcome of a Check. Remaining is nil when the attempt is
// denied.
type Decision struct {
	Allowed   bool
	Remaining *int
	ResetAt   time.Time
	Message   string
}

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	clock       clockwork.Clock
	maxAttempts int
	window      time.Duration
}

// New returns a Limiter. Non-positive maxAttempts or win fall back to the
// defaults.
func New(clock clockwork.Clock, maxAttempts int, win time.Duration) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &Limiter{
		windows:     make(map[string]*window),
		clock:       clock,
		maxAttempts: maxAttempts,
		window:      win,
	}
}

// Check records an attempt for id and reports whether it is allowed.
func (l *Limiter) Check(id string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[id]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[id] = w
		return l.allowed(w)
	}

	if w.count < l.maxAttempts {
		w.count++
		return l.allowed(w)
	}

	return Decision{
		Allowed: false,
		ResetAt: w.resetAt,
		Message: retryMessage(w.resetAt.Sub(now)),
	}
}

// Reset forgets id. It is called after a successful login.
func (l *Limiter) Reset(id string) {
	l.mu.Lock()
	delete(l.windows, id)
	l.mu.Unlock()
}

// Sweep drops windows that have expired and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for id, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, id)
			n++
		}
	}
	return n
}

func (l *Limiter) allowed(w *window) Decision {
	remaining := l.maxAttempts - w.count
	return Decision{Allowed: true, Remaining: &remaining, ResetAt: w.resetAt}
}

func retryMessage(left time.Duration) string {
	minutes := int(math.Ceil(left.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many login attempts. Please try again in %d %s.", minutes, unit)
}

// Identifier picks the bucket key for a login attempt: the email when given,
// then the caller's network address, then UnknownIdentifier.
func Identifier(email, addr string) string {
	if e := strings.ToLower(strings.TrimSpace(email)); e != "" {
		return e
	}
	if a := strings.TrimSpace(addr); a != "" {
		return a
	}
	return UnknownIdentifier
}

// Error is returned by login when the limiter denies an attempt.
type Error struct {
	Decision Decision
}

func (e *Error) Error() string {
	return e.Decision.Message
}

func (e *Error) Unwrap() error {
	return common.ErrRateLimited
}
