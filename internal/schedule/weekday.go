package schedule

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Weekday is a day of week where Monday is 0 and Sunday is 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists every valid weekday in order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// weekdayAliases maps folded user input to a weekday.
var weekdayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday, "пн": Monday, "пон": Monday, "понедельник": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday, "вт": Tuesday, "вто": Tuesday, "вторник": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday, "ср": Wednesday, "сре": Wednesday, "среда": Wednesday, "среду": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday, "чт": Thursday, "чет": Thursday, "четверг": Thursday,
	"fri": Friday, "friday": Friday, "пт": Friday, "пят": Friday, "пятница": Friday, "пятницу": Friday,
	"sat": Saturday, "saturday": Saturday, "сб": Saturday, "суб": Saturday, "суббота": Saturday, "субботу": Saturday,
	"sun": Sunday, "sunday": Sunday, "вс": Sunday, "вос": Sunday, "воскресенье": Sunday,
}

var folder = cases.Fold()

// Valid reports whether d is within [Monday, Sunday].
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// Std converts d to time.Weekday.
func (d Weekday) Std() time.Weekday {
	return time.Weekday((int(d) + 1) % 7)
}

// FromStd converts time.Weekday to Weekday.
func FromStd(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday parses user input: an index 0-6, an English name or a Russian
// name, full or abbreviated, in any case. Unknown input yields a
// *ValidationError; there is no fallback day.
func ParseWeekday(field, input string) (Weekday, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, &ValidationError{Field: field, Value: input, Reason: "day is required"}
	}

	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, &ValidationError{Field: field, Value: input, Reason: "day index must be between 0 (Monday) and 6 (Sunday)"}
		}
		return d, nil
	}

	key := strings.TrimSuffix(folder.String(s), ".")
	if d, ok := weekdayAliases[key]; ok {
		return d, nil
	}
	return 0, &ValidationError{Field: field, Value: input, Reason: "unknown day of week"}
}
