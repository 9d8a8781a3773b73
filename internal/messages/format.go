package messages

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/aatumaykin/pollbot/internal/admin"
	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/schedule"
)

// ScheduleItem is one line of a schedule list.
type ScheduleItem struct {
	Position int
	Schedule schedule.Schedule
	Open     bool
}

// FormatScheduleList formats a chat's schedules with their positions.
func FormatScheduleList(items []ScheduleItem) string {
	if len(items) == 0 {
		return constants.MsgNoSchedules
	}

	var b strings.Builder
	b.WriteString(constants.MsgScheduleHeader)
	for _, it := range items {
		s := it.Schedule
		suffix := ""
		if s.Timezone != "" {
			suffix = fmt.Sprintf(constants.MsgScheduleTZ, s.Timezone)
		}
		if it.Open {
			suffix += constants.MsgScheduleOpen
		}
		fmt.Fprintf(&b, constants.MsgScheduleLine,
			it.Position, html.EscapeString(s.Name),
			DayName(s.StartDay), s.StartTime,
			DayName(s.EndDay), s.EndTime,
			suffix)
	}
	return b.String()
}

// FormatValidationErrors formats a list of validation errors with numbering.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(constants.MsgConfigValidationError)
	for i, err := range errs {
		fmt.Fprintf(&b, constants.MsgConfigValidatePrefix, fmt.Sprintf("%d. %v", i+1, err))
	}
	return b.String()
}

// FormatConfigLoadError formats a configuration loading error message.
func FormatConfigLoadError(err error) string {
	return fmt.Sprintf(constants.MsgConfigLoadError, err)
}

// FormatInputError explains a rejected wizard or command input.
func FormatInputError(err error) string {
	var verr *schedule.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf(constants.MsgWizardInvalid, describeValidation(verr))
	}
	return fmt.Sprintf(constants.MsgGenericError, html.EscapeString(err.Error()))
}

func describeValidation(e *schedule.ValidationError) string {
	switch e.Field {
	case "name":
		return "Название не может быть пустым или длиннее 64 символов."
	case "start_day", "end_day":
		return fmt.Sprintf("Не понял день недели «%s». Выберите кнопкой или напишите, например, «вторник».", html.EscapeString(e.Value))
	case "start_time", "end_time":
		if strings.Contains(e.Reason, "different moment") {
			return "Закрытие не может совпадать с открытием."
		}
		return fmt.Sprintf("Не понял время «%s». Нужен формат ЧЧ:ММ, например 18:30.", html.EscapeString(e.Value))
	case "timezone":
		return fmt.Sprintf("Неизвестный часовой пояс «%s».", html.EscapeString(e.Value))
	default:
		return html.EscapeString(e.Error())
	}
}

// FormatDebug formats the /debug reply for a chat. Only the chat's own open
// polls are listed.
func FormatDebug(info admin.DebugInfo) string {
	var b strings.Builder
	b.WriteString(constants.MsgDebugHeader)
	fmt.Fprintf(&b, constants.MsgDebugChat, info.ChatID)
	fmt.Fprintf(&b, constants.MsgDebugSchedules, info.ChatSchedules, info.TotalSchedules)
	fmt.Fprintf(&b, constants.MsgDebugJobs, len(info.Jobs))
	fmt.Fprintf(&b, constants.MsgDebugScheduler, info.SchedulerRunning)

	state := "ok"
	if !info.Health.Healthy {
		state = "сбой"
	}
	fmt.Fprintf(&b, constants.MsgDebugHealth, state, info.Health.ConsecutiveFailures)

	var own []string
	for _, v := range info.Active {
		if v.ChatID != info.ChatID {
			continue
		}
		own = append(own, fmt.Sprintf(constants.MsgDebugPoll,
			html.EscapeString(v.Schedule.Name),
			v.OpenedAt.Format("02.01 15:04"),
			v.Results.Total(),
			v.MessageRef.MessageID))
	}
	fmt.Fprintf(&b, constants.MsgDebugActive, len(own))
	for _, line := range own {
		b.WriteString(line)
	}

	if len(info.Jobs) > 0 {
		next := info.Jobs[0]
		for _, j := range info.Jobs[1:] {
			if j.Next.Before(next.Next) {
				next = j
			}
		}
		fmt.Fprintf(&b, constants.MsgDebugNextJob, next.Next.Format("02.01.2006 15:04 MST"), next.ID)
	}
	fmt.Fprintf(&b, constants.MsgDebugVersion, info.Version)
	return b.String()
}
