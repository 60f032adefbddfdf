package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect and clean up saved quiz progress",
}

var progressListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, done, err := progressForCmd(cmd)
		if err != nil {
			return err
		}
		defer done()

		saved := adapter.List(cmd.Context())
		if len(saved) == 0 {
			fmt.Println("No saved progress.")
			return nil
		}
		sort.Slice(saved, func(i, j int) bool {
			return saved[i].Record.SavedAt > saved[j].Record.SavedAt
		})

		now := time.Now()
		fmt.Printf("%-32s %9s %9s  %s\n", "QUIZ", "QUESTION", "ANSWERED", "SAVED")
		for _, s := range saved {
			when := humanize.Time(time.UnixMilli(s.Record.SavedAt))
			if !progress.IsFresh(s.Record, now) {
				when += " (stale)"
			}
			fmt.Printf("%-32s %9d %9d  %s\n", s.QuizID,
				s.Record.CurrentQuestion+1, len(s.Record.Answers), when)
		}
		return nil
	},
}

var progressClearCmd = &cobra.Command{
	Use:   "clear <quiz-id>",
	Short: "Discard saved progress for a quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, done, err := progressForCmd(cmd)
		if err != nil {
			return err
		}
		defer done()

		if _, ok := adapter.Load(cmd.Context(), args[0]); !ok {
			fmt.Printf("No saved progress for %s.\n", args[0])
			return nil
		}
		adapter.Clear(cmd.Context(), args[0])
		fmt.Printf("Cleared progress for %s.\n", args[0])
		return nil
	},
}

var progressPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale and unreadable progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter, done, err := progressForCmd(cmd)
		if err != nil {
			return err
		}
		defer done()

		n := adapter.Prune(cmd.Context(), time.Now())
		fmt.Printf("Removed %s.\n", humanize.Comma(int64(n))+" "+plural(n, "record", "records"))
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressListCmd)
	progressCmd.AddCommand(progressClearCmd)
	progressCmd.AddCommand(progressPruneCmd)
}

// progressForCmd opens the progress store for a non-interactive command.
// done closes it.
func progressForCmd(cmd *cobra.Command) (*progress.Adapter, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, _, err := setupLogging(cfg, false)
	if err != nil {
		return nil, nil, err
	}
	adapter, kv, err := openProgress(cmd, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return adapter, func() { kv.Close() }, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
