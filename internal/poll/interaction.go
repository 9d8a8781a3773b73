package poll

import (
	"fmt"
	"strings"
)

// InteractionKind is the action requested by a keyboard button.
type InteractionKind string

const (
	KindVote  InteractionKind = "vote"
	KindReset InteractionKind = "reset"
)

// Interaction is a decoded button press.
type Interaction struct {
	Kind   InteractionKind
	PollID string
	Option Option
}

// VoteInteraction builds the payload for an option button.
func VoteInteraction(pollID string, option Option) Interaction {
	return Interaction{Kind: KindVote, PollID: pollID, Option: option}
}

// ResetInteraction builds the payload for the reset button.
func ResetInteraction(pollID string) Interaction {
	return Interaction{Kind: KindReset, PollID: pollID}
}

// Encode serializes the interaction for a button payload:
// "vote:<poll>:<option>" or "reset:<poll>".
func (i Interaction) Encode() string {
	if i.Kind == KindReset {
		return string(KindReset) + ":" + i.PollID
	}
	return string(KindVote) + ":" + i.PollID + ":" + i.Option.String()
}

// IsInteraction reports whether data looks like a poll payload.
func IsInteraction(data string) bool {
	return strings.HasPrefix(data, string(KindVote)+":") || strings.HasPrefix(data, string(KindReset)+":")
}

// DecodeInteraction parses a button payload produced by Encode.
func DecodeInteraction(data string) (Interaction, error) {
	parts := strings.Split(data, ":")
	switch {
	case len(parts) == 3 && parts[0] == string(KindVote):
		if parts[1] == "" {
			return Interaction{}, fmt.Errorf("%w: empty poll id in %q", ErrMalformedInteraction, data)
		}
		option, err := ParseOption(parts[2])
		if err != nil {
			return Interaction{}, err
		}
		return VoteInteraction(parts[1], option), nil
	case len(parts) == 2 && parts[0] == string(KindReset):
		if parts[1] == "" {
			return Interaction{}, fmt.Errorf("%w: empty poll id in %q", ErrMalformedInteraction, data)
		}
		return ResetInteraction(parts[1]), nil
	default:
		return Interaction{}, fmt.Errorf("%w: %q", ErrMalformedInteraction, data)
	}
}
