// Package notify holds transient success and error notices.
//
// Each notice clears itself after a fixed delay, the same way a toast in
// the web front-end disappears. Observers registered with Subscribe see
// every notice as it is set.
package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible
const DefaultTTL = 3000 * time.Millisecond

// Level distinguishes success messages from errors
type Level int

const (
	LevelMessage Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "message"
}

// Notice is a single notification
type Notice struct {
	Level Level
	Text  string
}

// slot holds one visible notice and the generation that set it
type slot struct {
	text  string
	gen   uint64
	timer *time.Timer
}

// Sink stores the current message and error
type Sink struct {
	mu          sync.Mutex
	ttl         time.Duration
	message     slot
	err         slot
	gen         uint64
	subscribers []func(Notice)
}

// Option configures a Sink
type Option func(*Sink)

// WithTTL overrides how long notices stay visible
func WithTTL(d time.Duration) Option {
	return func(s *Sink) { s.ttl = d }
}

// New creates an empty sink
func New(opts ...Option) *Sink {
	s := &Sink{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to receive every notice as it is set
func (s *Sink) Subscribe(fn func(Notice)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// SetMessage shows a success message until it expires
func (s *Sink) SetMessage(text string) {
	s.set(LevelMessage, text)
}

// SetError shows an error until it expires
func (s *Sink) SetError(text string) {
	s.set(LevelError, text)
}

func (s *Sink) set(level Level, text string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen

	target := &s.message
	if level == LevelError {
		target = &s.err
	}
	if target.timer != nil {
		target.timer.Stop()
	}
	target.text = text
	target.gen = gen
	target.timer = time.AfterFunc(s.ttl, func() { s.expire(level, gen) })

	subscribers := append([]func(Notice){}, s.subscribers...)
	s.mu.Unlock()

	n := Notice{Level: level, Text: text}
	for _, fn := range subscribers {
		fn(n)
	}
}

// expire clears a notice unless a newer one replaced it
func (s *Sink) expire(level Level, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := &s.message
	if level == LevelError {
		target = &s.err
	}
	if target.gen != gen {
		return
	}
	target.text = ""
	target.timer = nil
}

// Message returns the visible success message, or "" when none
func (s *Sink) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message.text
}

// Error returns the visible error, or "" when none
func (s *Sink) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err.text
}

// ClearMessages drops both notices immediately
func (s *Sink) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, target := range []*slot{&s.message, &s.err} {
		if target.timer != nil {
			target.timer.Stop()
		}
		*target = slot{}
	}
}
