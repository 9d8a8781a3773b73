package poll

import (
	"fmt"
	"strings"
)

// Option is one of the fixed answers of an attendance poll.
type Option int

const (
	OptionYes Option = iota
	OptionNo
	OptionMaybe
)

// Options lists all answers in display order.
var Options = []Option{OptionYes, OptionNo, OptionMaybe}

var optionNames = [...]string{"yes", "no", "maybe"}

// Valid reports whether o is a known option.
func (o Option) Valid() bool {
	return o >= OptionYes && o <= OptionMaybe
}

func (o Option) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Option(%d)", int(o))
	}
	return optionNames[o]
}

// ParseOption converts the wire name of an option back to Option.
func ParseOption(s string) (Option, error) {
	for i, name := range optionNames {
		if strings.EqualFold(s, name) {
			return Option(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown option %q", ErrMalformedInteraction, s)
}

// Voter identifies a chat participant.
type Voter struct {
	ID   int64
	Name string
}

// Tally keeps one ordered voter list per option. A voter appears in at most
// one list. Tally is not safe for concurrent use; ActivePoll guards it.
type Tally struct {
	voters [len(optionNames)][]Voter
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{}
}

// CastVote records that voter chose option, dropping any earlier choice.
// It reports whether the observable state changed: repeating the current
// choice under the same name changes nothing.
func (t *Tally) CastVote(voter Voter, option Option) bool {
	if !option.Valid() {
		return false
	}

	current, idx, ok := t.find(voter.ID)
	if ok && current == option {
		if t.voters[current][idx].Name == voter.Name {
			return false
		}
		t.voters[current][idx].Name = voter.Name
		return true
	}
	if ok {
		t.remove(current, idx)
	}
	t.voters[option] = append(t.voters[option], voter)
	return true
}

// ClearVote removes the voter's choice. It reports whether there was one.
func (t *Tally) ClearVote(voterID int64) bool {
	current, idx, ok := t.find(voterID)
	if !ok {
		return false
	}
	t.remove(current, idx)
	return true
}

// Choice returns the voter's current option.
func (t *Tally) Choice(voterID int64) (Option, bool) {
	option, _, ok := t.find(voterID)
	return option, ok
}

// Snapshot returns a copy of the current state.
func (t *Tally) Snapshot() Snapshot {
	results := make([]OptionResult, 0, len(Options))
	for _, o := range Options {
		voters := make([]Voter, len(t.voters[o]))
		copy(voters, t.voters[o])
		results = append(results, OptionResult{Option: o, Count: len(voters), Voters: voters})
	}
	return Snapshot{Results: results}
}

func (t *Tally) find(voterID int64) (Option, int, bool) {
	for _, o := range Options {
		for i, v := range t.voters[o] {
			if v.ID == voterID {
				return o, i, true
			}
		}
	}
	return 0, 0, false
}

func (t *Tally) remove(option Option, idx int) {
	list := t.voters[option]
	t.voters[option] = append(list[:idx:idx], list[idx+1:]...)
}

// OptionResult holds the voters of one option.
type OptionResult struct {
	Option Option
	Count  int
	Voters []Voter
}

// Snapshot is a read-only view of a tally.
type Snapshot struct {
	Results []OptionResult
}

// Count returns the number of voters for option.
func (s Snapshot) Count(option Option) int {
	for _, r := range s.Results {
		if r.Option == option {
			return r.Count
		}
	}
	return 0
}

// Names returns the display names of option's voters in voting order.
func (s Snapshot) Names(option Option) []string {
	for _, r := range s.Results {
		if r.Option == option {
			names := make([]string, len(r.Voters))
			for i, v := range r.Voters {
				names[i] = v.Name
			}
			return names
		}
	}
	return nil
}

// Total returns the number of voters across all options.
func (s Snapshot) Total() int {
	n := 0
	for _, r := range s.Results {
		n += r.Count
	}
	return n
}
