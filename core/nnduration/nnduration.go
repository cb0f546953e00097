// Package nnduration provides JSON-friendly non-negative duration types.
//
// In JSON and YAML, a duration may be written either as an integer in the
// type's unit, or as a string accepted by time.ParseDuration.
package nnduration

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func parse(input string, unit time.Duration) (uint64, error) {
	if d, e := time.ParseDuration(input); e == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative duration %s", input)
		}
		return uint64(d / unit), nil
	}
	return strconv.ParseUint(input, 10, 64)
}

func unmarshal(p []byte, unit time.Duration) (uint64, error) {
	return parse(strings.Trim(string(p), `"`), unit)
}

// Milliseconds is a duration in milliseconds.
type Milliseconds uint64

// Duration converts to time.Duration.
func (d Milliseconds) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// DurationOr converts to time.Duration, or returns the default if zero.
func (d Milliseconds) DurationOr(dflt Milliseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// MarshalJSON implements json.Marshaler.
func (d Milliseconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Milliseconds) UnmarshalJSON(p []byte) error {
	v, e := unmarshal(p, time.Millisecond)
	*d = Milliseconds(v)
	return e
}

// Nanoseconds is a duration in nanoseconds.
type Nanoseconds uint64

// Duration converts to time.Duration.
func (d Nanoseconds) Duration() time.Duration {
	return time.Duration(d)
}

// DurationOr converts to time.Duration, or returns the default if zero.
func (d Nanoseconds) DurationOr(dflt Nanoseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}

// MarshalJSON implements json.Marshaler.
func (d Nanoseconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(d))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Nanoseconds) UnmarshalJSON(p []byte) error {
	v, e := unmarshal(p, time.Nanosecond)
	*d = Nanoseconds(v)
	return e
}
