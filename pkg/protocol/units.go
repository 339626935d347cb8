package protocol

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the display unit of a device session.
type Unit int

const (
	Fahrenheit Unit = iota
	Celsius
)

// ParseUnit converts the configured unit name (F, C, fahrenheit, celsius) to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "°f", "fahrenheit":
		return Fahrenheit, nil
	case "c", "°c", "celsius":
		return Celsius, nil
	default:
		return Fahrenheit, fmt.Errorf("unsupported temperature unit %q", s)
	}
}

// String returns the unit symbol.
func (u Unit) String() string {
	if u == Celsius {
		return "°C"
	}
	return "°F"
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// FahrenheitToCelsius converts a temperature and rounds it to one decimal (half away from zero).
func FahrenheitToCelsius(f float64) float64 {
	return math.Round((f-32)/1.8*10) / 10
}

// CelsiusToFahrenheit converts a temperature and rounds it to whole degrees (half away from zero).
func CelsiusToFahrenheit(c float64) int {
	return int(math.Round(c*1.8 + 32))
}

// FromFahrenheit converts a raw device reading to the display unit.
func (u Unit) FromFahrenheit(f int) float64 {
	if u == Celsius {
		return FahrenheitToCelsius(float64(f))
	}
	return float64(f)
}

// ToFahrenheit converts a value in display unit to whole degrees Fahrenheit.
func (u Unit) ToFahrenheit(v float64) int {
	if u == Celsius {
		return CelsiusToFahrenheit(v)
	}
	return int(math.Round(v))
}

// Limits returns the target temperature range in display unit.
//
//	Fahrenheit: 180..500
//	Celsius:     82..260
func (u Unit) Limits() (min, max float64) {
	if u == Celsius {
		return math.Round(FahrenheitToCelsius(MinTargetF)), math.Round(FahrenheitToCelsius(MaxTargetF))
	}
	return MinTargetF, MaxTargetF
}

// DefaultTarget returns the initial target temperature in display unit.
func (u Unit) DefaultTarget() float64 {
	if u == Celsius {
		return math.Round(FahrenheitToCelsius(DefaultTargetF))
	}
	return DefaultTargetF
}

// ClampTarget limits v to the target range of the display unit.
func (u Unit) ClampTarget(v float64) float64 {
	min, max := u.Limits()
	switch {
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}
