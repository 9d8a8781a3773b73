package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM"). Malformed or out of range input
// yields a *ValidationError.
func ParseTimeOfDay(field, input string) (TimeOfDay, error) {
	s := strings.TrimSpace(input)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return TimeOfDay{}, &ValidationError{Field: field, Value: input, Reason: "expected HH:MM"}
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, &ValidationError{Field: field, Value: input, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, &ValidationError{Field: field, Value: input, Reason: "minute is not a number"}
	}

	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, &ValidationError{Field: field, Value: input, Reason: "hour must be 0-23 and minute 0-59"}
	}
	return t, nil
}

// MarshalYAML writes the time as an HH:MM string.
func (t TimeOfDay) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML reads an HH:MM string.
func (t *TimeOfDay) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay("time", s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText encodes the time as HH:MM for JSON.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses HH:MM.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay("time", string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
