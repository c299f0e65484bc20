package activation

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// CopiedFor is how long the "copied" acknowledgment stays up after a copy.
const CopiedFor = 2500 * time.Millisecond

// Clipboard writes text somewhere the user can paste it from.
type Clipboard interface {
	WriteText(text string) error
}

// Timer is the part of *time.Timer the copier uses.
type Timer interface {
	Stop() bool
}

// Clock schedules the acknowledgment reset.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Copier copies text through a primary clipboard, falling back to a second
// one, and exposes a self-clearing acknowledgment flag. Clipboard failures
// are logged, never returned.
type Copier struct {
	primary  Clipboard
	fallback Clipboard
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	copied bool
	timer  Timer
	gen    uint64
}

// NewCopier builds a copier. fallback and clock may be nil.
func NewCopier(primary, fallback Clipboard, clock Clock, logger *slog.Logger) *Copier {
	if clock == nil {
		clock = realClock{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Copier{primary: primary, fallback: fallback, clock: clock, logger: logger}
}

// Copy writes text to the clipboard. It reports whether any clipboard
// accepted the text; on success the acknowledgment is raised for CopiedFor,
// restarting the countdown if it was already up.
func (c *Copier) Copy(text string) bool {
	if !c.write(text) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.copied = true
	c.timer = c.clock.AfterFunc(CopiedFor, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == gen {
			c.copied = false
			c.timer = nil
		}
	})
	return true
}

// Copied reports whether the acknowledgment is currently raised.
func (c *Copier) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

func (c *Copier) write(text string) bool {
	if c.primary != nil {
		err := c.primary.WriteText(text)
		if err == nil {
			return true
		}
		c.logger.Debug("primary clipboard failed", slog.Any("error", err))
	}
	if c.fallback != nil {
		err := c.fallback.WriteText(text)
		if err == nil {
			return true
		}
		c.logger.Debug("fallback clipboard failed", slog.Any("error", err))
	}
	return false
}
