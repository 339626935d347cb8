package grill

import (
	"time"

	"tgrill/pkg/protocol"
)

// State is the observed and desired state of the smoker.
// All temperatures are given in the display unit of the session.
type State struct {
	// Mode is the operating mode (off/heat).
	Mode protocol.Mode `json:"mode"`
	// Phase is the last reported device phase (running, igniting, shutdown).
	Phase string `json:"phase"`
	// Probes holds the probe temperatures (index 0 = internal probe), nil if unplugged or unknown.
	Probes [protocol.ProbeCount]*float64 `json:"probes"`
	// Target is the target temperature, it is always within the limits of Unit.
	Target float64 `json:"target"`
	// Unit is the display unit, fixed for the session.
	Unit protocol.Unit `json:"unit"`
	// Alarms are the error flags of the last status report.
	Alarms protocol.Alarms `json:"alarms"`
	// LastHeartbeat is the time of the last poll cycle.
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

func newState(unit protocol.Unit) State {
	return State{
		Mode:   protocol.ModeOff,
		Phase:  protocol.Phase(0),
		Target: unit.DefaultTarget(),
		Unit:   unit,
	}
}

// Probe returns the temperature of probe i. ok is false if the probe is unplugged or unknown.
func (s State) Probe(i int) (t float64, ok bool) {
	if i < 0 || i >= len(s.Probes) || s.Probes[i] == nil {
		return 0, false
	}
	return *s.Probes[i], true
}

// clone returns a deep copy, snapshots must not share probe values with the owned state.
func (s State) clone() State {
	c := s
	for i, p := range s.Probes {
		if p != nil {
			v := *p
			c.Probes[i] = &v
		}
	}
	return c
}

// apply merges a decoded payload into the state and reports whether an observable field changed.
// Raw Fahrenheit values are converted to the display unit.
func (s *State) apply(u protocol.Update) (changed bool) {
	if u.HasStatus {
		if m, ok := u.Status.Mode(); ok {
			if m != s.Mode {
				s.Mode = m
				changed = true
			}
			if p := protocol.Phase(u.Status.State); p != s.Phase {
				s.Phase = p
				changed = true
			}
		}

		if a := u.Status.Alarms; a != nil && *a != s.Alarms {
			s.Alarms = *a
			changed = true
		}
	}

	if u.HasProbes {
		for i, r := range u.Probes {
			var v *float64
			if r.OK {
				t := s.Unit.FromFahrenheit(r.Value)
				v = &t
			}

			if !sameProbe(s.Probes[i], v) {
				s.Probes[i] = v
				changed = true
			}
		}
	}

	if u.HasTarget {
		if t := s.Unit.ClampTarget(s.Unit.FromFahrenheit(u.Target)); t != s.Target {
			s.Target = t
			changed = true
		}
	}

	return changed
}

func sameProbe(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
