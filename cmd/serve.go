package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/localquiz"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the offline quiz library over the quiz HTTP API",
	Long: `Serve exposes the quizzes in --quiz-dir with the same HTTP API the
client speaks, so a team can share one library. Requests must carry
--token as a bearer token when one is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, _, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}
	if cfg.QuizDir == "" {
		return fmt.Errorf("serve needs --quiz-dir (or KBQUIZ_QUIZ_DIR)")
	}
	lib, err := localquiz.OpenDir(cfg.QuizDir)
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")

	srv := &http.Server{
		Addr:              addr,
		Handler:           localquiz.NewServer(lib, cfg.Token).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving quizzes", "addr", addr, "quizzes", len(lib.IDs()), "auth", cfg.Token != "")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
