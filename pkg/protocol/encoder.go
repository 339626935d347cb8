package protocol

import (
	"encoding/hex"
	"fmt"
)

// Power arguments of the power command.
const (
	powerOn  = 0x01
	powerOff = 0x02
)

// Intent is the kind of a command to send to the device.
type Intent int

const (
	Handshake Intent = iota
	PowerOn
	PowerOff
	PollStatus
	PollTemps
	PollTarget
	SetTarget
)

// String returns the name of the intent.
func (i Intent) String() string {
	switch i {
	case Handshake:
		return "handshake"
	case PowerOn:
		return "power on"
	case PowerOff:
		return "power off"
	case PollStatus:
		return "poll status"
	case PollTemps:
		return "poll temperatures"
	case PollTarget:
		return "poll target"
	case SetTarget:
		return "set target"
	default:
		return fmt.Sprintf("intent(%d)", int(i))
	}
}

// Command is a command intent. Value is only used by SetTarget and given in display unit.
type Command struct {
	Intent Intent
	Value  float64
}

// Encode builds the wire frame of a command. unit is the display unit of Command.Value.
func Encode(c Command, unit Unit) ([]byte, error) {
	switch c.Intent {
	case Handshake:
		return EncodeHandshake(), nil
	case PowerOn:
		return EncodePower(true), nil
	case PowerOff:
		return EncodePower(false), nil
	case PollStatus:
		return EncodePoll(TypeStatus), nil
	case PollTemps:
		return EncodePoll(TypeTemperature), nil
	case PollTarget:
		return EncodePoll(TypeTarget), nil
	case SetTarget:
		return EncodeSetTarget(c.Value, unit), nil
	default:
		return nil, fmt.Errorf("unsupported command %v", c.Intent)
	}
}

// shortFrame builds a 6 byte frame: FA 06 FE <type> <arg> FF.
func shortFrame(t, arg byte) []byte {
	return []byte{StartByte, 0x06, MarkerByte, t, arg, EndByte}
}

// EncodeHandshake returns FA 06 FE 5F 01 FF.
func EncodeHandshake() []byte {
	return shortFrame(TypeHandshake, 0x01)
}

// EncodePower returns FA 06 FE 01 01 FF (on) or FA 06 FE 01 02 FF (off).
func EncodePower(on bool) []byte {
	if on {
		return shortFrame(TypePower, powerOn)
	}
	return shortFrame(TypePower, powerOff)
}

// EncodePoll returns the query of a reply type (TypeStatus, TypeTemperature or TypeTarget).
func EncodePoll(t byte) []byte {
	return shortFrame(t, 0x01)
}

// EncodeSetTarget returns FA 09 FE 05 01 <range> <offset> <units> FF.
// value is converted to Fahrenheit and clamped to MinTargetF..MaxTargetF.
func EncodeSetTarget(value float64, unit Unit) []byte {
	f := TargetFahrenheit(value, unit)
	r, o, u := EncodeTriplet(f)

	return []byte{StartByte, 0x09, MarkerByte, TypeSetTarget, 0x01, r, o, u, EndByte}
}

// TargetFahrenheit converts a set-point in display unit to the clamped Fahrenheit value sent to the device.
func TargetFahrenheit(value float64, unit Unit) int {
	f := unit.ToFahrenheit(value)

	switch {
	case f < MinTargetF:
		return MinTargetF
	case f > MaxTargetF:
		return MaxTargetF
	}

	return f
}

// Describe returns a human readable description of a command frame, e.g. for the decode command.
func Describe(b []byte) string {
	if len(b) < MinPayloadSize || b[0] != StartByte || b[2] != MarkerByte {
		return "unknown frame " + hex.EncodeToString(b)
	}

	switch b[3] {
	case TypeHandshake:
		return "handshake"
	case TypePower:
		switch b[4] {
		case powerOn:
			return "power on"
		case powerOff:
			return "power off"
		}
		return fmt.Sprintf("power 0x%02x", b[4])
	case TypeSetTarget:
		if len(b) >= 9 {
			if v, ok := DecodeTriplet(b[5], b[6], b[7]); ok {
				return fmt.Sprintf("set target %d°F", v)
			}
		}
		return "set target (invalid digits)"
	case TypeStatus, TypeTemperature, TypeTarget:
		if len(b) == MinPayloadSize {
			return "poll " + MarkerType(b[3]).String()
		}
		return "reply " + MarkerType(b[3]).String()
	}

	return fmt.Sprintf("type 0x%02x", b[3])
}
