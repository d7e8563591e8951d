// Package admission is the client-side gate in front of every message send:
// a length cap and a sliding-window rate limit, both evaluated before any
// gateway call. The policies are advisory UX affordances; nothing here assumes
// the backend lacks its own enforcement.
package admission

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmpty rejects whitespace-only content.
var ErrEmpty = errors.New("empty message")

// TooLongError rejects content over the length cap.
type TooLongError struct {
	Length int
	Max    int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("message too long: %d characters (max %d)", e.Length, e.Max)
}

// RateLimitedError rejects a send inside a saturated window.
type RateLimitedError struct {
	Max        int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: max %d messages per %s", e.Max, e.Window)
}

// Controller gates sends for one scope. Bookkeeping is per scope: switching
// channels gets a fresh controller, so the window never bleeds across scopes.
// Not safe for concurrent use; it lives on the UI event loop.
type Controller struct {
	maxLength int
	maxSends  int
	window    time.Duration
	now       func() time.Time
	sends     []time.Time
}

// NewController builds a gate with the given policy.
func NewController(maxLength, maxSends int, window time.Duration) *Controller {
	return &Controller{
		maxLength: maxLength,
		maxSends:  maxSends,
		window:    window,
		now:       time.Now,
	}
}

// WithClock substitutes the time source, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Admit trims the content and applies length then rate policy. On success the
// send is recorded in the window and the trimmed content returned. A rejected
// attempt is never recorded.
func (c *Controller) Admit(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if n := len([]rune(trimmed)); n > c.maxLength {
		return "", &TooLongError{Length: n, Max: c.maxLength}
	}

	now := c.now()
	c.prune(now)
	if len(c.sends) >= c.maxSends {
		oldest := c.sends[0]
		return "", &RateLimitedError{
			Max:        c.maxSends,
			Window:     c.window,
			RetryAfter: oldest.Add(c.window).Sub(now),
		}
	}
	c.sends = append(c.sends, now)
	return trimmed, nil
}

// Reset clears the window, e.g. when the active scope changes.
func (c *Controller) Reset() {
	c.sends = c.sends[:0]
}

func (c *Controller) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	kept := c.sends[:0]
	for _, t := range c.sends {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.sends = kept
}
