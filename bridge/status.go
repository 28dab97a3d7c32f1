package bridge

import (
	"log"
	"sync"

	"github.com/dotside-studios/davi-uhf-agent/uhf"
)

// StatusSnapshot is one sample of the reader's digital lines.
type StatusSnapshot struct {
	Input   bool `json:"input"`
	Output  bool `json:"output"`
	Antenna bool `json:"antenna"`
}

// SnapshotFromLines folds line states into a snapshot: each field is true
// when any line of that kind is active.
func SnapshotFromLines(lines []uhf.LineState) StatusSnapshot {
	var s StatusSnapshot
	for _, l := range lines {
		if !l.Active {
			continue
		}
		switch l.Kind {
		case uhf.LineInput:
			s.Input = true
		case uhf.LineOutput:
			s.Output = true
		case uhf.LineAntenna:
			s.Antenna = true
		}
	}
	return s
}

// StatusSource produces snapshots for a Broadcaster.
type StatusSource interface {
	// Reset is called on every activation, before Initial.
	Reset()
	// Initial returns a snapshot to emit immediately on activation, if any.
	Initial() (StatusSnapshot, bool)
	// Next returns the snapshot for one tick. ok is false to skip the tick.
	Next() (snap StatusSnapshot, ok bool)
}

// ToggleSource emits synthetic status for simulated readers: all lines up
// on activation, then input and antenna alternating against output.
type ToggleSource struct {
	mu     sync.Mutex
	toggle bool
}

// NewToggleSource creates a ToggleSource.
func NewToggleSource() *ToggleSource {
	return &ToggleSource{}
}

func (s *ToggleSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggle = false
}

func (s *ToggleSource) Initial() (StatusSnapshot, bool) {
	return StatusSnapshot{Input: true, Output: true, Antenna: true}, true
}

func (s *ToggleSource) Next() (StatusSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatusSnapshot{Input: s.toggle, Output: !s.toggle, Antenna: s.toggle}
	s.toggle = !s.toggle
	return snap, true
}

// PollingSource samples a hardware reader through its Session, so polls
// never overlap command execution.
type PollingSource struct {
	session *uhf.Session
	logger  *log.Logger

	mu         sync.Mutex
	lastFailed bool
}

// NewPollingSource creates a source that reads line status from session.
func NewPollingSource(session *uhf.Session, logger *log.Logger) *PollingSource {
	return &PollingSource{session: session, logger: logger}
}

func (s *PollingSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFailed = false
}

func (s *PollingSource) Initial() (StatusSnapshot, bool) {
	return StatusSnapshot{}, false
}

// Next skips the tick when the poll fails. Repeated failures are logged once.
func (s *PollingSource) Next() (StatusSnapshot, bool) {
	var lines []uhf.LineState
	err := s.session.Do(func(d uhf.Driver) error {
		var err error
		lines, err = d.ReadInputStatus()
		return err
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if !s.lastFailed && !uhf.IsNotInitialized(err) {
			s.logger.Printf("Status poll failed: %v", err)
		}
		s.lastFailed = true
		return StatusSnapshot{}, false
	}
	if s.lastFailed {
		s.logger.Println("Status poll recovered")
	}
	s.lastFailed = false
	return SnapshotFromLines(lines), true
}
