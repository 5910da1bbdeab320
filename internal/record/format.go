package record

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Mode selects how a single record renders.
type Mode uint8

const (
	// Standard renders "station, timestamp, variable: value (flag)".
	Standard Mode = iota
	// Terse renders "variable: value (flag)". Observation grouping switches
	// its members to this mode.
	Terse
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return "standard"
	case Terse:
		return "terse"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Mode returns the rendering mode of r.
func (r *Record) Mode() Mode { return r.mode }

// SetMode changes how r renders. It affects only this instance.
func (r *Record) SetMode(m Mode) { r.mode = m }

func (r *Record) String() string {
	if r.mode == Terse {
		return fmt.Sprintf("%s: %s (%d)", r.variableName(), r.FormatValue(), r.flag)
	}
	return fmt.Sprintf("%s, %s, %s: %s (%d)",
		r.stationName(), r.timestampDisplay(), r.variableName(), r.FormatValue(), r.flag)
}

// FormatValue renders the value rounded half-up to DecimalPlaces fractional
// digits, or in its natural form when DecimalPlaces is zero.
func (r *Record) FormatValue() string {
	if r.decimalPlaces <= 0 {
		return r.value.String()
	}
	var d apd.Decimal
	if _, err := decimalContext.Quantize(&d, r.value, -int32(r.decimalPlaces)); err != nil {
		return r.value.String()
	}
	return d.Text('f')
}
