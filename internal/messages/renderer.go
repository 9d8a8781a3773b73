// Package messages renders polls, summaries and command replies as
// Telegram HTML text.
package messages

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
)

var dayNames = [...]string{"понедельник", "вторник", "среда", "четверг", "пятница", "суббота", "воскресенье"}

var dayShortNames = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// DayName returns the Russian name of d.
func DayName(d schedule.Weekday) string {
	if !d.Valid() {
		return d.String()
	}
	return dayNames[d]
}

// DayShortName returns the two-letter Russian abbreviation of d.
func DayShortName(d schedule.Weekday) string {
	if !d.Valid() {
		return d.String()
	}
	return dayShortNames[d]
}

// OptionLabel returns the button label of an option.
func OptionLabel(o poll.Option) string {
	switch o {
	case poll.OptionYes:
		return constants.LabelYes
	case poll.OptionNo:
		return constants.LabelNo
	case poll.OptionMaybe:
		return constants.LabelMaybe
	default:
		return o.String()
	}
}

// Renderer implements poll.Renderer.
type Renderer struct{}

var _ poll.Renderer = Renderer{}

// RenderPoll renders the live poll with a vote keyboard.
func (Renderer) RenderPoll(v poll.View) poll.Content {
	var b strings.Builder
	fmt.Fprintf(&b, constants.MsgPollHeader, html.EscapeString(v.Schedule.Name))
	fmt.Fprintf(&b, constants.MsgPollCloses, DayName(v.Schedule.EndDay), v.Schedule.EndTime)

	for _, o := range poll.Options {
		fmt.Fprintf(&b, constants.MsgPollOptionLine, OptionLabel(o), v.Results.Count(o))
		for _, name := range v.Results.Names(o) {
			fmt.Fprintf(&b, constants.MsgPollVoterLine, html.EscapeString(name))
		}
	}
	fmt.Fprintf(&b, constants.MsgPollTotal, v.Results.Total())

	return poll.Content{Text: b.String(), Keyboard: VoteKeyboard(v.ID)}
}

// RenderSummary renders the final results. Supergroup summaries get a link
// button back to the poll message.
func (Renderer) RenderSummary(s poll.Summary) poll.Content {
	var b strings.Builder
	fmt.Fprintf(&b, constants.MsgSummaryHeader, html.EscapeString(s.Schedule.Name))

	if s.Results.Total() == 0 {
		b.WriteString(constants.MsgSummaryNoVotes)
	} else {
		fmt.Fprintf(&b, constants.MsgSummaryComing, s.Results.Count(poll.OptionYes))
		writeNames(&b, s.Results.Names(poll.OptionYes))
		fmt.Fprintf(&b, constants.MsgSummaryMaybe, s.Results.Count(poll.OptionMaybe))
		writeNames(&b, s.Results.Names(poll.OptionMaybe))
		fmt.Fprintf(&b, constants.MsgSummaryNotGoing, s.Results.Count(poll.OptionNo))
		writeNames(&b, s.Results.Names(poll.OptionNo))
	}

	content := poll.Content{Text: strings.TrimRight(b.String(), "\n")}
	if url, ok := MessageLink(s.ChatID, s.MessageRef.MessageID); ok {
		content.Keyboard = poll.Keyboard{{{Text: constants.LabelResults, URL: url}}}
	}
	return content
}

func writeNames(b *strings.Builder, names []string) {
	for _, name := range names {
		fmt.Fprintf(b, constants.MsgPollVoterLine, html.EscapeString(name))
	}
}

// VoteKeyboard returns the option buttons and the reset button of a poll.
func VoteKeyboard(pollID string) poll.Keyboard {
	row := make([]poll.Button, 0, len(poll.Options))
	for _, o := range poll.Options {
		row = append(row, poll.Button{Text: OptionLabel(o), Data: poll.VoteInteraction(pollID, o).Encode()})
	}
	return poll.Keyboard{
		row,
		{{Text: constants.LabelReset, Data: poll.ResetInteraction(pollID).Encode()}},
	}
}

// MessageLink builds a t.me link to a message of a supergroup. Other chats
// have no public message links.
func MessageLink(chatID int64, messageID int) (string, bool) {
	id := strconv.FormatInt(chatID, 10)
	if !strings.HasPrefix(id, "-100") || messageID == 0 {
		return "", false
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", id[4:], messageID), true
}
