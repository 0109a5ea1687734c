package labeling

// Phase is the session's stage in the completion funnel
type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseOfferMore Phase = "offer-more"
	PhaseDone      Phase = "done"
)

// Machine governs phase transitions for one session
type Machine struct {
	phase    Phase
	counters Counters
	extended bool
}

func NewMachine() *Machine {
	return &Machine{phase: PhaseRunning, counters: NewCounters()}
}

func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) Counters() Counters { return m.counters }

// Finalize records a completed submission and reports whether the session
// is still running and wants the next item.
func (m *Machine) Finalize(correct *bool) bool {
	m.counters.RecordOutcome(correct)
	// an overshoot still ends the run
	if m.counters.Completed >= m.counters.Target {
		if m.extended {
			m.phase = PhaseDone
		} else {
			m.phase = PhaseOfferMore
		}
		return false
	}
	return m.phase == PhaseRunning
}

// Extend accepts "10 more": offer-more -> running with the extended target.
func (m *Machine) Extend() error {
	if m.phase != PhaseOfferMore || m.extended {
		return ErrWrongPhase
	}
	m.extended = true
	m.counters.Target = ExtendedTarget
	m.phase = PhaseRunning
	return nil
}

// Decline finishes the session from offer-more.
func (m *Machine) Decline() error {
	if m.phase != PhaseOfferMore {
		return ErrWrongPhase
	}
	m.phase = PhaseDone
	return nil
}
