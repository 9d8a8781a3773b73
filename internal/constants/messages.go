package constants

// Poll option labels
const (
	LabelYes   = "✅ Иду"
	LabelNo    = "❌ Не смогу"
	LabelMaybe = "❓ Под вопросом"
	LabelReset = "↩️ Отменить голос"

	// LabelResults is the link button on the summary that leads back to the poll.
	LabelResults = "📊 Посмотреть опрос"
)

// Poll messages
const (
	MsgPollHeader      = "🎯 <b>%s</b>\n"
	MsgPollCloses      = "Голосование до: %s, %s\n"
	MsgPollOptionLine  = "\n%s: %d\n"
	MsgPollVoterLine   = "  • %s\n"
	MsgPollTotal       = "\nВсего ответов: %d"
	MsgSummaryHeader   = "📋 <b>Итоги опроса «%s»</b>\n"
	MsgSummaryComing   = "\n✅ Придут: %d чел.\n"
	MsgSummaryMaybe    = "❓ Под вопросом: %d чел.\n"
	MsgSummaryNotGoing = "❌ Не смогут: %d чел.\n"
	MsgSummaryNoVotes  = "\nНикто не проголосовал."
)

// Callback answers
const (
	MsgVoteAccepted   = "Голос учтён"
	MsgVoteReset      = "Голос отменён"
	MsgNoVoteToReset  = "Вы ещё не голосовали"
	MsgPollClosed     = "Опрос уже закрыт"
	MsgVoteFailed     = "Голос учтён, но сообщение не обновилось"
	MsgUnknownButton  = "Неизвестная кнопка"
	MsgAdminsOnlyHint = "Только администраторы чата могут это сделать"
)

// Command messages
const (
	MsgStartGroup       = "Бот запущен в этой группе! Расписания опросов: /schedules, добавить: /add_schedule"
	MsgStartPrivate     = "Бот запущен! Добавьте меня в группу и настройте расписание командой /add_schedule."
	MsgChatID           = "ID этого чата: <code>%d</code>"
	MsgAdminsOnly       = "⛔ Эта команда доступна только администраторам."
	MsgNoSchedules      = "Расписаний пока нет. Добавьте: /add_schedule"
	MsgScheduleHeader   = "🗓 <b>Расписания опросов</b>\n"
	MsgScheduleLine     = "\n%d. <b>%s</b>\n   открытие: %s, %s\n   закрытие: %s, %s%s"
	MsgScheduleOpen     = " — 🟢 опрос открыт"
	MsgScheduleTZ       = "\n   часовой пояс: %s"
	MsgScheduleAdded    = "✅ Расписание «%s» добавлено под номером %d."
	MsgScheduleDeleted  = "🗑 Расписание «%s» удалено."
	MsgSchedulesCleared = "🗑 Удалено расписаний: %d."
	MsgNothingToClear   = "Расписаний нет, удалять нечего."
	MsgUsagePosition    = "Укажите номер расписания: /%s N"
	MsgBadPosition      = "Нет расписания с номером %d. Список: /schedules"
	MsgPollStarted      = "Опрос «%s» открыт."
	MsgPollAlreadyOpen  = "Опрос «%s» уже открыт."
	MsgPollNotOpen      = "Опрос «%s» сейчас не открыт."
	MsgPollCloseDone    = "Опрос «%s» закрыт, итоги опубликованы."
	MsgPollClosing      = "Опрос «%s» ещё публикуется и будет закрыт сразу после публикации."
	MsgTransportFailed  = "⚠️ Не удалось отправить сообщение в чат: %v"
	MsgPersistFailed    = "⚠️ Изменение применено, но не сохранено на диск: %v"
	MsgGenericError     = "❌ Ошибка: %v"
	MsgHelpHeader       = "🤖 <b>Опросы посещаемости</b>\n\nБот каждую неделю открывает опрос «кто придёт» и публикует итоги.\n\nКоманды:\n"
	MsgHelpLine         = "/%s — %s\n"
)

// Wizard messages
const (
	MsgWizardAskName      = "Название опроса? (например: Тренировка в среду 20:00)\nОтмена: /cancel"
	MsgWizardAskStartDay  = "В какой день открывать опрос?"
	MsgWizardAskStartTime = "Во сколько открывать? Формат ЧЧ:ММ, например 12:00"
	MsgWizardAskEndDay    = "В какой день закрывать опрос и публиковать итоги?"
	MsgWizardAskEndTime   = "Во сколько закрывать? Формат ЧЧ:ММ, например 18:00"
	MsgWizardInvalid      = "⚠️ %s\nПопробуйте ещё раз."
	MsgWizardCancelled    = "Добавление расписания отменено."
	MsgWizardNotActive    = "Нечего отменять."
	MsgWizardExpired      = "Время на заполнение истекло, начните заново: /add_schedule"
)

// Debug messages
const (
	MsgDebugHeader    = "📊 <b>Отладочная информация</b>\n"
	MsgDebugChat      = "• ID чата: <code>%d</code>\n"
	MsgDebugSchedules = "• Расписаний в чате: %d (всего: %d)\n"
	MsgDebugJobs      = "• Задач планировщика: %d\n"
	MsgDebugScheduler = "• Планировщик запущен: %t\n"
	MsgDebugHealth    = "• Отправка сообщений: %s (ошибок подряд: %d)\n"
	MsgDebugActive    = "• Открытые опросы: %d\n"
	MsgDebugPoll      = "  – «%s» с %s, голосов: %d, сообщение %d\n"
	MsgDebugNextJob   = "• Ближайшее событие: %s (%s)\n"
	MsgDebugVersion   = "• Версия: %s\n"
)

// Config messages
const (
	MsgConfigLoadError       = "❌ Failed to load configuration: %v\n"
	MsgConfigValidationError = "❌ Configuration validation failed:\n"
	MsgConfigValid           = "✅ Configuration loaded"
	MsgConfigValidatePrefix  = "  - %v\n"
)

// CLI messages
const (
	MsgCLIChatHeader    = "Chat %d:\n"
	MsgCLIScheduleLine  = "  %d. %s (id %s)\n     open:  %s %s\n     close: %s %s%s\n"
	MsgCLITimezone      = "\n     timezone: %s"
	MsgCLINoSchedules   = "No schedules in %s\n"
	MsgCLIAdded         = "✅ Schedule %q added to chat %d as #%d (id %s)\n"
	MsgCLIDeleted       = "🗑 Schedule %q removed from chat %d\n"
	MsgCLICleared       = "🗑 %d schedule(s) removed from chat %d\n"
	MsgCLIRestartHint   = "A running bot picks up file changes on restart.\n"
	MsgCLIFailedLogger  = "Failed to initialize logger: %v\n"
	MsgCLIStartupBanner = "🚀 Starting pollbot"
)
