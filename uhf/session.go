package uhf

import (
	"log"
	"os"
	"sync"
)

// SessionState is the lifecycle position of a Session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateReady
	StateReading
	StateReleased
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateReading:
		return "reading"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// DriverFactory creates an unopened Driver. A Session calls it on every
// initialization so a released reader can be opened again.
type DriverFactory func() (Driver, error)

// Session owns the single driver handle and serializes every call made on
// it. Command handlers and the status poller both go through Do, so no two
// driver operations ever overlap.
type Session struct {
	factory DriverFactory
	logger  *log.Logger

	mu     sync.Mutex
	driver Driver
	state  SessionState
}

// NewSession creates a session that opens drivers from factory.
func NewSession(factory DriverFactory, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stderr, "[uhf] ", log.LstdFlags)
	}
	return &Session{
		factory: factory,
		logger:  logger,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DriverName describes the open driver, or "" when none is open.
func (s *Session) DriverName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		return ""
	}
	return s.driver.String()
}

// Init opens the reader and moves the session to ready. Initializing an
// already open session reports ready without reopening the reader.
func (s *Session) Init() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateReady || s.state == StateReading {
		s.logger.Printf("Reader already initialized: %s", s.driver)
		return true, nil
	}

	drv, err := s.factory()
	if err != nil {
		return false, err
	}

	ok, err := drv.Init()
	if err != nil || !ok {
		if relErr := drv.Release(); relErr != nil {
			s.logger.Printf("Error releasing reader after failed init: %v", relErr)
		}
		return false, err
	}

	s.driver = drv
	s.state = StateReady
	s.logger.Printf("Reader initialized: %s", drv)
	return true, nil
}

// Do runs fn with exclusive access to the open driver. It returns
// ErrNotInitialized or ErrReleased without calling fn when no reader is open.
func (s *Session) Do(fn func(Driver) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	return fn(s.driver)
}

func (s *Session) checkOpen() error {
	switch s.state {
	case StateReady, StateReading:
		return nil
	case StateReleased:
		return ErrReleased
	default:
		return ErrNotInitialized
	}
}

// StartInventory begins continuous inventory. Starting while already
// reading is a no-op that reports success.
func (s *Session) StartInventory() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if s.state == StateReading {
		return true, nil
	}

	ok, err := s.driver.StartInventory()
	if err != nil {
		return false, err
	}
	if ok {
		s.state = StateReading
	}
	return ok, nil
}

// StopInventory ends continuous inventory. Stopping while not reading is a
// no-op that reports success.
func (s *Session) StopInventory() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if s.state != StateReading {
		return true, nil
	}

	ok, err := s.driver.StopInventory()
	if err != nil {
		return false, err
	}
	if ok {
		s.state = StateReady
	}
	return ok, nil
}

// Release stops any running inventory and frees the reader. It is safe to
// call any number of times, from any state.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver == nil {
		if s.state != StateUninitialized {
			s.state = StateReleased
		}
		return nil
	}

	drv := s.driver
	s.driver = nil
	wasReading := s.state == StateReading
	s.state = StateReleased

	if wasReading {
		if _, err := drv.StopInventory(); err != nil {
			s.logger.Printf("Error stopping inventory during release: %v", err)
		}
	}
	if err := drv.Release(); err != nil {
		s.logger.Printf("Error releasing reader: %v", err)
		return err
	}
	s.logger.Printf("Reader released: %s", drv)
	return nil
}

// Close releases the reader on shutdown, logging rather than returning
// any failure.
func (s *Session) Close() {
	if err := s.Release(); err != nil {
		s.logger.Printf("Reader release on shutdown failed: %v", err)
	}
}
