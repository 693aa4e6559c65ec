package database

import (
	"sync"
	"time"
)

// State is the supervisor's view of the metadata store connection.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Supervisor keeps the database connection alive with periodic probes.
// It starts disconnected and flips between the two states according to
// probe outcomes. It is the only retry mechanism for the metadata store;
// individual queries are not retried.
type Supervisor struct {
	mu    sync.Mutex
	state State

	probe             func() error
	disconnectedEvery time.Duration
	connectedEvery    time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewSupervisor builds a supervisor around probe, typically (*sql.DB).Ping.
// disconnectedEvery is the retry interval while the store is unreachable,
// connectedEvery the liveness-check interval once it is.
func NewSupervisor(probe func() error, disconnectedEvery, connectedEvery time.Duration) *Supervisor {
	return &Supervisor{
		state:             Disconnected,
		probe:             probe,
		disconnectedEvery: disconnectedEvery,
		connectedEvery:    connectedEvery,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Step runs one probe and applies the transition it implies, returning the
// resulting state. Probe and transition run under the lock so two timers
// firing close together can never apply contradictory transitions.
func (s *Supervisor) Step() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.probe()
	switch {
	case s.state == Disconnected && err == nil:
		log.Infoln("metadata store reachable, now connected")
		s.state = Connected
	case s.state == Connected && err != nil:
		log.Warnf("metadata store connection lost: %v", err)
		s.state = Disconnected
	case err != nil:
		log.Debugf("metadata store still unreachable: %v", err)
	}
	return s.state
}

// Run probes until Stop is called. A single timer is re-armed with the
// interval belonging to whichever state the last probe left us in, so the
// disconnected and connected schedules are mutually exclusive by
// construction.
func (s *Supervisor) Run() {
	defer close(s.done)

	timer := time.NewTimer(s.interval(s.Step()))
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-timer.C:
			timer.Reset(s.interval(s.Step()))
		}
	}
}

func (s *Supervisor) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Supervisor) interval(state State) time.Duration {
	if state == Connected {
		return s.connectedEvery
	}
	return s.disconnectedEvery
}
