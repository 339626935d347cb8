package protocol

// alarmCount is the number of alarm flag bytes following the state byte of a status sub-packet.
const alarmCount = 8

// Alarms are the error flags of a status sub-packet.
type Alarms struct {
	Error1    bool `json:"error_1"`
	Error2    bool `json:"error_2"`
	Error3    bool `json:"error_3"`
	HighTemp  bool `json:"high_temp"`
	Fan       bool `json:"fan"`
	Ignition  bool `json:"ignition"`
	Auger     bool `json:"auger"`
	NoPellets bool `json:"no_pellets"`
}

// Any returns true if at least one alarm is active.
func (a Alarms) Any() bool {
	return a != Alarms{}
}

// Reading is a decoded probe value in degrees Fahrenheit. OK is false if the probe is unplugged.
type Reading struct {
	Value int
	OK    bool
}

// Status is the content of a status sub-packet.
type Status struct {
	// State is the raw device state byte.
	State byte
	// Alarms is nil if the sub-packet is too short to carry the alarm flags.
	Alarms *Alarms
}

// Mode maps the device state to a Mode.
// ok is false for unknown states, the current mode must not be changed then.
func (s Status) Mode() (m Mode, ok bool) {
	switch s.State {
	case StateRunning, StateIgniting:
		return ModeHeating, true
	case StateShutdown:
		return ModeOff, true
	default:
		return ModeOff, false
	}
}

// DecodeStatus decodes a status sub-packet.
func DecodeStatus(p SubPacket, l Layout) (Status, bool) {
	b := p.body()
	if p.Type != MarkerStatus || len(b) < l.minLength(MarkerStatus) {
		return Status{}, false
	}

	s := Status{State: b[l.StatusState]}

	if o := l.StatusAlarms; o >= 0 && o+alarmCount <= len(b) {
		f := b[o : o+alarmCount]
		s.Alarms = &Alarms{
			Error1:    f[0] == 1,
			Error2:    f[1] == 1,
			Error3:    f[2] == 1,
			HighTemp:  f[3] == 1,
			Fan:       f[4] == 1,
			Ignition:  f[5] == 1,
			Auger:     f[6] == 1,
			NoPellets: f[7] == 1,
		}
	}

	return s, true
}

// DecodeTemperatures decodes the probe readings of a temperature sub-packet.
// Each probe is decoded independently, an unplugged probe doesn't affect the others.
func DecodeTemperatures(p SubPacket, l Layout) ([ProbeCount]Reading, bool) {
	var r [ProbeCount]Reading

	b := p.body()
	if p.Type != MarkerTemperature || len(b) < l.minLength(MarkerTemperature) {
		return r, false
	}

	for i, o := range l.Probes {
		r[i].Value, r[i].OK = tripletAt(b, o, DecodeProbe)
	}

	return r, true
}

// DecodeTarget decodes the set-point of a target sub-packet.
// A set-point of 0 isn't a valid target and reported as absent.
func DecodeTarget(p SubPacket, l Layout) (int, bool) {
	b := p.body()
	if p.Type != MarkerTarget || len(b) < l.minLength(MarkerTarget) {
		return 0, false
	}

	v, ok := tripletAt(b, l.Target, DecodeTriplet)
	if !ok || v == 0 {
		return 0, false
	}

	return v, true
}

// Update is the content of all sub-packets of one payload.
// Later sub-packets of the same type overwrite earlier ones.
type Update struct {
	Status    Status
	HasStatus bool

	Probes    [ProbeCount]Reading
	HasProbes bool

	// Target is the set-point in degrees Fahrenheit.
	Target    int
	HasTarget bool
}

// Empty returns true if the payload didn't contain any valid sub-packet.
func (u Update) Empty() bool {
	return !u.HasStatus && !u.HasProbes && !u.HasTarget
}

// Decode decodes all sub-packets of a payload. Malformed payloads result in an empty Update.
func Decode(payload []byte, l Layout) Update {
	var u Update

	s := NewScanner(payload, l)
	for s.Next() {
		p := s.SubPacket()

		switch p.Type {
		case MarkerStatus:
			if st, ok := DecodeStatus(p, l); ok {
				// keep alarms of an earlier sub-packet if this one is too short to carry them
				if st.Alarms == nil && u.HasStatus {
					st.Alarms = u.Status.Alarms
				}
				u.Status, u.HasStatus = st, true
			}
		case MarkerTemperature:
			if r, ok := DecodeTemperatures(p, l); ok {
				u.Probes, u.HasProbes = r, true
			}
		case MarkerTarget:
			if v, ok := DecodeTarget(p, l); ok {
				u.Target, u.HasTarget = v, true
			}
		}
	}

	return u
}
