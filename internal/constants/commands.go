package constants

// Bot commands
const (
	CommandStart          = "start"
	CommandHelp           = "help"
	CommandSchedules      = "schedules"
	CommandAddSchedule    = "add_schedule"
	CommandDeleteSchedule = "delete_schedule"
	CommandDeleteAll      = "delete_all"
	CommandPollStart      = "poll_start"
	CommandPollClose      = "poll_close"
	CommandDebug          = "debug"
	CommandGetChatID      = "get_chat_id"
	CommandCancel         = "cancel"
)

// CommandDescriptions lists the commands published to the Telegram menu in order.
var CommandDescriptions = []struct {
	Name        string
	Description string
}{
	{CommandSchedules, "Список расписаний опросов"},
	{CommandAddSchedule, "Добавить расписание"},
	{CommandDeleteSchedule, "Удалить расписание: /delete_schedule N"},
	{CommandDeleteAll, "Удалить все расписания чата"},
	{CommandPollStart, "Открыть опрос сейчас: /poll_start N"},
	{CommandPollClose, "Закрыть опрос сейчас: /poll_close N"},
	{CommandDebug, "Отладочная информация"},
	{CommandGetChatID, "Показать ID чата"},
	{CommandCancel, "Отменить добавление расписания"},
	{CommandHelp, "Справка"},
}
