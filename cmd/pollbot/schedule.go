package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aatumaykin/pollbot/internal/config"
	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/spf13/cobra"
)

var (
	scheduleConfigPath string
	scheduleFilePath   string
	scheduleChatID     int64

	addName      string
	addStartDay  string
	addStartTime string
	addEndDay    string
	addEndTime   string
	addTimezone  string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage poll schedules in the schedule file",
	Long: `Edit the schedule file directly, without a running bot.
A running bot picks up the changes on its next start.`,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules (all chats, or one with --chat)",
	Args:  cobra.NoArgs,
	RunE:  runScheduleList,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a schedule to a chat",
	Example: `  pollbot schedule add --chat -1001234567890 --name "Training" \
    --start-day tue --start-time 12:00 --end-day wed --end-time 18:00`,
	Args: cobra.NoArgs,
	RunE: runScheduleAdd,
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <position>",
	Short: "Delete the schedule at a 1-based position of a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleDelete,
}

var scheduleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every schedule of a chat",
	Args:  cobra.NoArgs,
	RunE:  runScheduleClear,
}

// openStore loads the schedule file named by --file, or by the config file.
// A corrupt file is an error so it is never overwritten.
func openStore() (*schedule.Store, string, error) {
	path, err := schedulesPath()
	if err != nil {
		return nil, "", err
	}

	store := schedule.NewStore(schedule.NewFile(path, logger.Nop()), logger.Nop())
	if err := store.Load(); err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", path, err)
	}
	return store, path, nil
}

func schedulesPath() (string, error) {
	if scheduleFilePath != "" {
		return scheduleFilePath, nil
	}

	configPath := scheduleConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) && scheduleConfigPath == "" {
		return config.Default().Storage.SchedulesPath, nil
	}

	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return "", err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.Storage.SchedulesPath, nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	store, path, err := openStore()
	if err != nil {
		return err
	}

	chats := store.Chats()
	if cmd.Flags().Changed("chat") {
		chats = []int64{scheduleChatID}
	}

	out := cmd.OutOrStdout()
	printed := 0
	for _, chatID := range chats {
		list := store.List(chatID)
		if len(list) == 0 {
			continue
		}
		printSchedules(out, chatID, list)
		printed++
	}
	if printed == 0 {
		fmt.Fprintf(out, constants.MsgCLINoSchedules, path)
	}
	return nil
}

func printSchedules(out io.Writer, chatID int64, list []schedule.Schedule) {
	fmt.Fprintf(out, constants.MsgCLIChatHeader, chatID)
	for i, s := range list {
		tz := ""
		if s.Timezone != "" {
			tz = fmt.Sprintf(constants.MsgCLITimezone, s.Timezone)
		}
		fmt.Fprintf(out, constants.MsgCLIScheduleLine, i+1, s.Name, s.ID,
			s.StartDay, s.StartTime, s.EndDay, s.EndTime, tz)
	}
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	sc, err := scheduleFromFlags()
	if err != nil {
		return errors.New(messages.FormatInputError(err))
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}

	position, err := store.Add(scheduleChatID, sc)
	if err != nil {
		return errors.New(messages.FormatInputError(err))
	}
	if err := store.Persist(); err != nil {
		return err
	}

	added := store.List(scheduleChatID)[position-1]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, constants.MsgCLIAdded, added.Name, scheduleChatID, position, added.ID)
	fmt.Fprint(out, constants.MsgCLIRestartHint)
	return nil
}

func scheduleFromFlags() (schedule.Schedule, error) {
	sc := schedule.Schedule{Name: addName, Timezone: addTimezone}
	var err error
	if sc.StartDay, err = schedule.ParseWeekday("start_day", addStartDay); err != nil {
		return sc, err
	}
	if sc.StartTime, err = schedule.ParseTimeOfDay("start_time", addStartTime); err != nil {
		return sc, err
	}
	if sc.EndDay, err = schedule.ParseWeekday("end_day", addEndDay); err != nil {
		return sc, err
	}
	if sc.EndTime, err = schedule.ParseTimeOfDay("end_time", addEndTime); err != nil {
		return sc, err
	}
	return sc, nil
}

func runScheduleDelete(cmd *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("position must be a number: %q", args[0])
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}

	removed, err := store.Remove(scheduleChatID, position)
	if err != nil {
		return err
	}
	if err := store.Persist(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, constants.MsgCLIDeleted, removed.Name, scheduleChatID)
	fmt.Fprint(out, constants.MsgCLIRestartHint)
	return nil
}

func runScheduleClear(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}

	n := store.RemoveAll(scheduleChatID)
	if n > 0 {
		if err := store.Persist(); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), constants.MsgCLICleared, n, scheduleChatID)
	return nil
}

func init() {
	scheduleCmd.PersistentFlags().StringVarP(&scheduleConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	scheduleCmd.PersistentFlags().StringVarP(&scheduleFilePath, "file", "f", "", "Path to the schedule file (overrides the config)")

	scheduleListCmd.Flags().Int64Var(&scheduleChatID, "chat", 0, "Only list this chat")

	for _, c := range []*cobra.Command{scheduleAddCmd, scheduleDeleteCmd, scheduleClearCmd} {
		c.Flags().Int64Var(&scheduleChatID, "chat", 0, "Chat ID")
		_ = c.MarkFlagRequired("chat")
	}

	scheduleAddCmd.Flags().StringVar(&addName, "name", "", "Poll title")
	scheduleAddCmd.Flags().StringVar(&addStartDay, "start-day", "", "Day the poll opens (0-6, mon..sun, пн..вс)")
	scheduleAddCmd.Flags().StringVar(&addStartTime, "start-time", "", "Time the poll opens, HH:MM")
	scheduleAddCmd.Flags().StringVar(&addEndDay, "end-day", "", "Day the poll closes")
	scheduleAddCmd.Flags().StringVar(&addEndTime, "end-time", "", "Time the poll closes, HH:MM")
	scheduleAddCmd.Flags().StringVar(&addTimezone, "timezone", "", "IANA timezone (default: scheduler timezone)")
	for _, name := range []string{"name", "start-day", "start-time", "end-day", "end-time"} {
		_ = scheduleAddCmd.MarkFlagRequired(name)
	}

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)
	scheduleCmd.AddCommand(scheduleClearCmd)
}
