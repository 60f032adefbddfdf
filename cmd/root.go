package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/backend"
	"github.com/abhisek/kbquiz/internal/config"
	"github.com/abhisek/kbquiz/internal/localquiz"
	"github.com/abhisek/kbquiz/internal/progress"
	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/screens/home"
	"github.com/abhisek/kbquiz/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "kbquiz",
	Short:         "Knowledge-base quizzes in the terminal",
	Long:          "kbquiz - take quizzes on internal documentation from the terminal, resume where you left off and review the scored breakdown.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return config.LoadDotEnv(envFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String(config.KeyBackendURL, "", "Quiz API base URL")
	f.String(config.KeyToken, "", "Bearer token for the quiz API")
	f.String(config.KeyQuizDir, "", "Directory of offline quiz files (used when no backend URL is set)")
	f.String(config.KeyStore, "sqlite", "Progress store: sqlite, memory, redis or nats")
	f.String(config.KeyDB, "", "SQLite database path (overrides KBQUIZ_DB)")
	f.String(config.KeyRedisURL, "", "Redis URL for the redis store")
	f.String(config.KeyNATSURL, "", "NATS URL for the nats store")
	f.String(config.KeyBucket, store.DefaultBucket, "JetStream key-value bucket for the nats store")
	f.Duration(config.KeyTTL, progress.StaleAfter, "Key expiry for stores that support it")
	f.Duration(config.KeySaveTimeout, progress.DefaultTimeout, "Timeout for each progress write")
	f.String(config.KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	f.String(config.KeyLogFormat, "text", "Log format (text, json)")
	f.String(config.KeyLogFile, "", "Log file for the terminal UI (default: next to the database)")
	f.String("env-file", ".env", "Environment file to load")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves flags, KBQUIZ_* env and kbquiz.yaml for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == store.BackendSQLite {
		if cfg.Store.DBPath, err = resolveDBPath(cfg.Store.DBPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// resolveDBPath returns p when set, else KBQUIZ_DB, else the XDG default,
// creating the parent directory.
func resolveDBPath(p string) (string, error) {
	if p != "" {
		return p, store.EnsureDir(p)
	}
	p, err := store.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("resolve DB path: %w", err)
	}
	return p, nil
}

// setupLogging installs the default logger. The terminal UI logs to a
// file so log lines never land on the screen.
func setupLogging(cfg *config.Config, tui bool) (*slog.Logger, io.Closer, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if tui {
		path := cfg.LogFile
		if path == "" {
			dir := "."
			if cfg.Store.DBPath != "" {
				dir = filepath.Dir(cfg.Store.DBPath)
			}
			path = filepath.Join(dir, "kbquiz.log")
		}
		if err := store.EnsureDir(path); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// openSource returns the quiz source: the backend when a URL is set,
// otherwise the offline library. The catalog is nil for the backend.
func openSource(cfg *config.Config, logger *slog.Logger) (quiz.Source, home.Catalog, error) {
	if err := cfg.CheckSource(); err != nil {
		return nil, nil, err
	}
	if cfg.BackendURL != "" {
		c, err := backend.New(cfg.BackendURL,
			backend.WithToken(cfg.Token),
			backend.WithLogger(logger),
			backend.WithUserAgent("kbquiz/"+version),
		)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	lib, err := localquiz.OpenDir(cfg.QuizDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open quiz dir: %w", err)
	}
	return lib, lib, nil
}

// openProgress opens the configured store and wraps it for progress
// records. The caller closes the returned KV.
func openProgress(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*progress.Adapter, store.KV, error) {
	kv, err := store.Open(cmd.Context(), cfg.StoreOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	a := progress.NewAdapter(kv,
		progress.WithTimeout(cfg.SaveTimeout),
		progress.WithLogger(logger),
	)
	return a, kv, nil
}
