package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/llm"
	"github.com/abhisek/kbquiz/internal/localquiz"
	"github.com/abhisek/kbquiz/internal/quiz"
	"github.com/abhisek/kbquiz/internal/quizgen"
	"github.com/abhisek/kbquiz/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an offline quiz with an LLM",
	Long: `Generate writes a quiz file for the offline library. Source material
can be passed with --source-file; without it the model writes from general
knowledge of the topic. Regenerating over an existing file (--force) avoids
repeating its questions.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.String("topic", "", "Quiz topic (required)")
	f.Int("questions", 5, "Number of questions")
	f.String("difficulty", string(quiz.DifficultyIntermediate), "beginner, intermediate or advanced")
	f.String("source-file", "", "Document to write questions from")
	f.String("out", "", "Output file, .yaml or .json (default: <quiz-dir>/<topic>.yaml)")
	f.Bool("force", false, "Overwrite an existing quiz file")
	f.String("provider", "", "LLM provider (anthropic, openai, gemini, openrouter)")
	f.String("model", "", "Model name for the provider")
	generateCmd.MarkFlagRequired("topic")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, _, err := setupLogging(cfg, false)
	if err != nil {
		return err
	}

	topic, _ := cmd.Flags().GetString("topic")
	count, _ := cmd.Flags().GetInt("questions")
	difficulty, _ := cmd.Flags().GetString("difficulty")
	sourceFile, _ := cmd.Flags().GetString("source-file")
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")

	in := quizgen.Input{
		Topic:      topic,
		Difficulty: quiz.Difficulty(difficulty),
		Questions:  count,
	}
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return fmt.Errorf("read source file: %w", err)
		}
		in.Source = string(data)
	}

	if out == "" {
		dir := cfg.QuizDir
		if dir == "" {
			dir = "."
		}
		out = filepath.Join(dir, quizgen.Slug(topic)+".yaml")
	}
	if _, err := localquiz.FormatOf(out); err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}
	switch prev, err := localquiz.Load(out); {
	case err == nil && !force:
		return fmt.Errorf("%s already exists (use --force to replace it)", out)
	case err == nil:
		for _, it := range prev.Questions {
			in.Avoid = append(in.Avoid, it.Question)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read existing quiz: %w", err)
	}

	llmCfg, err := llmConfig(cmd)
	if err != nil {
		return err
	}

	var repo store.EventRepo
	if cfg.Store.Backend == store.BackendSQLite {
		s, err := store.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()
		repo = s.EventRepo()
	}

	ctx := cmd.Context()
	provider, err := llm.NewProvider(ctx, llmCfg, repo, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, llmCfg.Timeout)
	defer cancel()
	fmt.Printf("Generating %d %s questions on %q with %s...\n",
		count, in.Difficulty, topic, provider.ModelID())

	doc, err := quizgen.New(provider, quizgen.DefaultConfig(), logger).Generate(ctx, in)
	if err != nil {
		return err
	}
	doc.ID = strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
	if err := localquiz.Save(out, doc); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	fmt.Printf("Wrote %q (%d questions) to %s\n", doc.Title, len(doc.Questions), out)
	return nil
}

// llmConfig reads KBQUIZ_* LLM settings, falling back to a vendor API key
// found in the environment, then applies --provider and --model.
func llmConfig(cmd *cobra.Command) (llm.Config, error) {
	cfg := llm.ConfigFromEnv()
	if !cfg.HasKey() {
		if found, ok := llm.DiscoverConfig(); ok {
			cfg = found
		}
	}
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.Provider = p
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		switch cfg.Provider {
		case llm.ProviderAnthropic:
			cfg.Anthropic.Model = m
		case llm.ProviderOpenAI:
			cfg.OpenAI.Model = m
		case llm.ProviderGemini:
			cfg.Gemini.Model = m
		case llm.ProviderOpenRouter:
			cfg.OpenRouter.Model = m
		}
	}
	if err := cfg.Validate(); err != nil {
		return llm.Config{}, fmt.Errorf("%w\nset KBQUIZ_LLM_PROVIDER and the matching KBQUIZ_*_API_KEY, or a vendor key such as ANTHROPIC_API_KEY", err)
	}
	return cfg, nil
}
