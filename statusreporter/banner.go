// Package statusreporter provides the transient status banner shown after a
// signup or removal completes.
//
// A Banner holds at most one message. Showing a message makes the banner
// visible and arms a hide timer; when the timer fires the banner hides again.
// Showing a new message before the timer fires replaces the text and restarts
// the countdown, so a stale timer never hides a newer message.
//
// USAGE:
//
//	banner := statusreporter.New(statusreporter.WithLogger(logger))
//	banner.SetOnChange(render)
//	banner.Show(statusreporter.Success, "Signed up michael@mergington.edu for Chess Club")
//
// THREAD SAFETY:
// All methods are thread-safe and can be called from concurrent goroutines.
package statusreporter

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultHideAfter is how long a message stays visible.
const DefaultHideAfter = 5 * time.Second

// Severity classifies a banner message.
type Severity int

const (
	Success Severity = iota
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the banner.
type State struct {
	Text     string
	Severity Severity
	Visible  bool
}

// Banner is a single transient status message with auto-hide.
type Banner struct {
	mu        sync.Mutex
	state     State
	timer     Timer
	gen       uint64
	hideAfter time.Duration
	clock     Clock
	logger    *slog.Logger
	onChange  func()
}

// Option configures a Banner.
type Option func(*Banner)

// WithClock replaces the clock used to schedule hiding.
func WithClock(clock Clock) Option {
	return func(b *Banner) {
		b.clock = clock
	}
}

// WithHideAfter sets how long a message stays visible.
func WithHideAfter(d time.Duration) Option {
	return func(b *Banner) {
		b.hideAfter = d
	}
}

// WithLogger sets the logger each message is written to.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Banner) {
		b.logger = logger
	}
}

// New creates a hidden Banner.
func New(opts ...Option) *Banner {
	b := &Banner{
		hideAfter: DefaultHideAfter,
		clock:     RealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.hideAfter <= 0 {
		b.hideAfter = DefaultHideAfter
	}
	return b
}

// SetOnChange registers f to be called after every visible change, including
// the timer hiding the banner. f is called without the banner lock held.
func (b *Banner) SetOnChange(f func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = f
}

// HideAfter returns the configured display duration.
func (b *Banner) HideAfter() time.Duration {
	return b.hideAfter
}

// Show displays text with the given severity and restarts the hide countdown.
// Messages are logged at Debug since the page already shows them.
func (b *Banner) Show(severity Severity, text string) {
	b.logger.Debug(text, "banner", severity.String())

	b.mu.Lock()
	b.stopTimerLocked()
	b.gen++
	gen := b.gen
	b.state = State{Text: text, Severity: severity, Visible: true}
	b.timer = b.clock.AfterFunc(b.hideAfter, func() { b.expire(gen) })
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// Hide hides the banner immediately and cancels any pending countdown.
func (b *Banner) Hide() {
	b.mu.Lock()
	if !b.state.Visible {
		b.mu.Unlock()
		return
	}
	b.stopTimerLocked()
	b.gen++
	b.state.Visible = false
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// State returns the current banner state.
func (b *Banner) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// expire hides the banner if no newer message was shown since gen.
func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.state.Visible = false
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// stopTimerLocked must be called with b.mu held.
func (b *Banner) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
