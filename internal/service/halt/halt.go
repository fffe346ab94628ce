package halt

import (
	"sync"
	"sync/atomic"
	"time"

	"FlowHunter/pkg/logger"
)

// Status describes the halt switch.
type Status struct {
	Halted bool      `json:"halted"`
	Reason string    `json:"reason,omitempty"`
	Since  time.Time `json:"since,omitempty"`
}

// Switch is the operator kill switch. While halted no signal is emitted.
type Switch struct {
	log    *logger.Logger
	halted atomic.Bool

	mu     sync.Mutex
	status Status
}

func NewSwitch(log *logger.Logger) *Switch {
	return &Switch{log: log.With(logger.String("component", "halt"))}
}

// Set flips the switch. It returns true when the state changed.
func (s *Switch) Set(halted bool, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Halted == halted {
		return false
	}
	s.status = Status{Halted: halted, Reason: reason}
	if halted {
		s.status.Since = time.Now().UTC()
		s.log.Warn("signal emission halted", logger.String("reason", reason))
	} else {
		s.log.Info("signal emission resumed", logger.String("reason", reason))
	}
	s.halted.Store(halted)
	return true
}

func (s *Switch) Halted() bool { return s.halted.Load() }

func (s *Switch) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
