// Package notify implements transient toast notifications.
//
// Toasts are grouped by screen position. A position's container is created
// the first time a toast is shown there, and toasts within a container keep
// their insertion order. Views subscribe to changes and draw the containers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Timer is the subset of *time.Timer the service needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// Service holds the active toasts.
type Service struct {
	mu          sync.Mutex
	containers  map[Position][]Toast
	order       []Position
	timers      map[string]Timer
	subscribers map[int]func(Event)
	nextSub     int

	afterFunc AfterFunc
	now       func() time.Time
	logger    zerolog.Logger

	defaultPosition Position
	defaultDuration time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithAfterFunc replaces the timer used for auto-dismiss (tests).
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Service) { s.afterFunc = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaults sets the position and duration used by the shortcut helpers.
func WithDefaults(pos Position, d time.Duration) Option {
	return func(s *Service) {
		s.defaultPosition = NormalizePosition(pos)
		if d >= 0 {
			s.defaultDuration = d
		}
	}
}

// NewService creates an empty Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		containers:      make(map[Position][]Toast),
		timers:          make(map[string]Timer),
		subscribers:     make(map[int]func(Event)),
		afterFunc:       func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		now:             time.Now,
		logger:          zerolog.Nop(),
		defaultPosition: PositionTopRight,
		defaultDuration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify shows a toast. A zero duration keeps it until Dismiss is called.
func (s *Service) Notify(message string, kind Kind, duration time.Duration, pos Position) Toast {
	if duration < 0 {
		duration = 0
	}
	kind = NormalizeKind(kind)
	t := Toast{
		ID:        uuid.New().String(),
		Kind:      kind,
		Title:     TitleFor(kind),
		Message:   message,
		Position:  NormalizePosition(pos),
		Duration:  duration,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	if _, ok := s.containers[t.Position]; !ok {
		s.order = append(s.order, t.Position)
	}
	s.containers[t.Position] = append(s.containers[t.Position], t)
	subs := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	s.logger.Debug().Str("kind", string(t.Kind)).Str("position", string(t.Position)).Msg(message)
	publish(subs, Event{Type: EventShown, Toast: t})

	// The timer is armed only once Shown is out, so Dismissed always
	// follows it.
	if duration > 0 {
		id := t.ID
		timer := s.afterFunc(duration, func() { s.Dismiss(id) })
		s.mu.Lock()
		if s.activeLocked(t.Position, id) {
			s.timers[id] = timer
		} else {
			timer.Stop()
		}
		s.mu.Unlock()
	}
	return t
}

func (s *Service) activeLocked(pos Position, id string) bool {
	for _, t := range s.containers[pos] {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Send shows a toast at the default position for the default duration.
func (s *Service) Send(message string, kind Kind) Toast {
	s.mu.Lock()
	pos, d := s.defaultPosition, s.defaultDuration
	s.mu.Unlock()
	return s.Notify(message, kind, d, pos)
}

// Dismiss removes a toast. It returns false if the toast is already gone.
func (s *Service) Dismiss(id string) bool {
	s.mu.Lock()
	var (
		removed Toast
		found   bool
	)
	for pos, toasts := range s.containers {
		for i, t := range toasts {
			if t.ID == id {
				removed, found = t, true
				s.containers[pos] = append(toasts[:i:i], toasts[i+1:]...)
				break
			}
		}
		if found {
			break
		}
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	subs := s.snapshotSubscribersLocked()
	s.mu.Unlock()

	if found {
		publish(subs, Event{Type: EventDismissed, Toast: removed})
	}
	return found
}

// Active returns the toasts at pos in insertion order.
func (s *Service) Active(pos Position) []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	toasts := s.containers[NormalizePosition(pos)]
	out := make([]Toast, len(toasts))
	copy(out, toasts)
	return out
}

// Containers returns the positions that have had at least one toast, in the
// order their containers were created. Containers persist once created.
func (s *Service) Containers() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Position, len(s.order))
	copy(out, s.order)
	return out
}

// Subscribe registers fn for change events and returns an unsubscribe func.
// fn is called without the service lock held.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Service) snapshotSubscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(s.subscribers))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func publish(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
