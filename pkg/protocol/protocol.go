// Package protocol is the codec of the binary smoker protocol carried over mqtt.
//
// Every frame starts with StartByte and ends with EndByte:
//
//	FA <len> FE <type> <payload...> FF
//
// Replies of the device are not framed like the queries. A single mqtt message may carry
// several reply sub-packets, therefore replies are located by a marker search (FE + type).
package protocol

// Framing bytes
const (
	StartByte  = 0xFA
	EndByte    = 0xFF
	MarkerByte = 0xFE

	// MinPayloadSize is the shortest payload accepted by the framer.
	MinPayloadSize = 6
)

// Message types (second byte of a marker).
const (
	TypePower       = 0x01
	TypeSetTarget   = 0x05
	TypeStatus      = 0x0B
	TypeTarget      = 0x0D
	TypeTemperature = 0x0E
	TypeHandshake   = 0x5F
)

// Device states reported in the status sub-packet.
const (
	StateRunning  = 0x01
	StateShutdown = 0x02
	StateIgniting = 0x06
)

// Target temperature limits of the device (degrees Fahrenheit).
const (
	MinTargetF     = 180
	MaxTargetF     = 500
	DefaultTargetF = 350

	// MaxProbeF is the highest valid probe reading, higher values are "unplugged" sentinels.
	MaxProbeF = 599
)

// ProbeCount is the number of probes: 0 is the internal (grill) probe, 1..3 are external probes.
const ProbeCount = 4

// MarkerType identifies the kind of sub-packet.
type MarkerType byte

const (
	MarkerStatus      MarkerType = TypeStatus
	MarkerTemperature MarkerType = TypeTemperature
	MarkerTarget      MarkerType = TypeTarget
)

// String returns the name of the marker type.
func (m MarkerType) String() string {
	switch m {
	case MarkerStatus:
		return "status"
	case MarkerTemperature:
		return "temperature"
	case MarkerTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Mode is the externally meaningful operating mode of the smoker.
type Mode int

const (
	ModeOff Mode = iota
	ModeHeating
)

// String returns the mode as used in json and logs.
func (m Mode) String() string {
	if m == ModeHeating {
		return "heat"
	}
	return "off"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Phase names a raw device state byte.
func Phase(state byte) string {
	switch state {
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	case StateIgniting:
		return "igniting"
	default:
		return "unknown"
	}
}

// Layout is the table of field offsets inside the reply sub-packets.
// All offsets are relative to the first marker byte (0xFE).
type Layout struct {
	// StatusState is the offset of the device state byte in a status sub-packet.
	StatusState int
	// StatusAlarms is the offset of the first of eight alarm flag bytes in a status sub-packet.
	StatusAlarms int
	// Probes are the offsets of the probe digit triplets in a temperature sub-packet (index 0 = internal).
	Probes [ProbeCount]int
	// Target is the offset of the set-point triplet in a target sub-packet.
	Target int
}

// DefaultLayout is the canonical offset table.
var DefaultLayout = Layout{
	StatusState:  3,
	StatusAlarms: 4,
	Probes:       [ProbeCount]int{20, 3, 6, 9},
	Target:       20,
}

// minLength returns the shortest sub-packet (marker included) the decoder of type m accepts.
func (l Layout) minLength(m MarkerType) int {
	switch m {
	case MarkerStatus:
		return l.StatusState + 1
	case MarkerTemperature:
		n := 0
		for _, o := range l.Probes {
			if o+3 > n {
				n = o + 3
			}
		}
		return n
	case MarkerTarget:
		return l.Target + 3
	default:
		return 0
	}
}
