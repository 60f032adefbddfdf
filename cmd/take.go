package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/app"
)

var takeCmd = &cobra.Command{
	Use:   "take <quiz-id>",
	Short: "Open a quiz directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args[0])
	},
}

// runTUI starts the terminal UI, opening quizID when it is set.
func runTUI(cmd *cobra.Command, quizID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, logFile, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer logFile.Close()

	source, catalog, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	adapter, kv, err := openProgress(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	logger.Info("starting terminal UI", "quiz_id", quizID, "store", cfg.Store.Backend)
	return app.Run(app.Options{
		Source:   source,
		Progress: adapter,
		Catalog:  catalog,
		Logger:   logger,
		QuizID:   quizID,
	})
}
