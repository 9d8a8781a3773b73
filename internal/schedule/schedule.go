// Package schedule owns the per-chat ordered lists of recurring poll
// configurations: validation, positional admin operations and persistence
// to a human-readable YAML file.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength limits the poll title, in runes.
const MaxNameLength = 64

var (
	// ErrInvalidSchedule is matched by every *ValidationError.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrOutOfRange is returned for a position outside the chat's list.
	ErrOutOfRange = errors.New("schedule position out of range")
	// ErrNotFound is returned when no schedule has the requested ID.
	ErrNotFound = errors.New("schedule not found")
	// ErrPersistence wraps read and write failures of the schedule file.
	ErrPersistence = errors.New("schedule persistence failed")
)

// ValidationError describes a malformed schedule field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSchedule
}

// Schedule is one recurring poll configuration of a chat.
type Schedule struct {
	ID        string    `yaml:"id" json:"id"`
	ChatID    int64     `yaml:"-" json:"chat_id"`
	Name      string    `yaml:"name" json:"name"`
	StartDay  Weekday   `yaml:"start_day" json:"start_day"`
	StartTime TimeOfDay `yaml:"start_time" json:"start_time"`
	EndDay    Weekday   `yaml:"end_day" json:"end_day"`
	EndTime   TimeOfDay `yaml:"end_time" json:"end_time"`
	// Timezone overrides the scheduler's default location when set.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// Validate checks every field of the schedule.
func (s Schedule) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Value: name, Reason: fmt.Sprintf("name is longer than %d characters", MaxNameLength)}
	}
	if !s.StartDay.Valid() {
		return &ValidationError{Field: "start_day", Value: s.StartDay.String(), Reason: "day must be between 0 and 6"}
	}
	if !s.StartTime.Valid() {
		return &ValidationError{Field: "start_time", Value: s.StartTime.String(), Reason: "time out of range"}
	}
	if !s.EndDay.Valid() {
		return &ValidationError{Field: "end_day", Value: s.EndDay.String(), Reason: "day must be between 0 and 6"}
	}
	if !s.EndTime.Valid() {
		return &ValidationError{Field: "end_time", Value: s.EndTime.String(), Reason: "time out of range"}
	}
	if s.StartDay == s.EndDay && s.StartTime == s.EndTime {
		return &ValidationError{Field: "end_time", Value: s.EndTime.String(), Reason: "poll must close at a different moment than it opens"}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return &ValidationError{Field: "timezone", Value: s.Timezone, Reason: "unknown timezone"}
		}
	}
	return nil
}

// Location returns the schedule's timezone, or fallback when none is set
// or it cannot be loaded.
func (s Schedule) Location(fallback *time.Location) *time.Location {
	if s.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

func newID() string {
	return uuid.NewString()
}
