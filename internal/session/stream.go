package session

import (
	"context"
	"sync"
)

// Phase is the lifecycle of one response stream.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseComplete
	PhaseAborted
	PhaseErrored
)

var phaseNames = [...]string{"idle", "sending", "streaming", "complete", "aborted", "errored"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Terminal reports whether the stream has ended.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseAborted || p == PhaseErrored
}

// Stream is the handle of one response stream.
type Stream struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	phase   Phase
	content string
	err     error
}

func newStream(id uint64, cancel context.CancelFunc) *Stream {
	return &Stream{id: id, cancel: cancel, done: make(chan struct{}), phase: PhaseSending}
}

// ID is unique per controller.
func (s *Stream) ID() uint64 { return s.id }

// Done is closed when the stream reaches a terminal phase.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Wait blocks until the stream ends and returns its error. Aborted streams
// return context.Canceled.
func (s *Stream) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Phase returns the current phase.
func (s *Stream) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Content returns the text received so far.
func (s *Stream) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *Stream) streaming(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSending {
		s.phase = PhaseStreaming
	}
	s.content = content
}

// finish moves to a terminal phase once; later calls are ignored.
func (s *Stream) finish(phase Phase, content string, err error) {
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return
	}
	s.phase = phase
	s.content = content
	s.err = err
	s.mu.Unlock()
	close(s.done)
}
