package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/kbquiz/internal/llm"
	"github.com/abhisek/kbquiz/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM requests",
}

var llmUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show LLM request and token totals with estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.Backend != store.BackendSQLite {
			return fmt.Errorf("LLM usage is only recorded in the sqlite store (store is %s)", cfg.Store.Backend)
		}
		s, err := store.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		u, err := s.LLMUsage(cmd.Context())
		if err != nil {
			return err
		}
		if u.Requests == 0 {
			fmt.Println("No LLM requests recorded.")
			return nil
		}
		fmt.Printf("Requests:      %s (%s failed)\n", humanize.Comma(int64(u.Requests)), humanize.Comma(int64(u.Failures)))
		fmt.Printf("Input tokens:  %s\n", humanize.Comma(int64(u.InputTokens)))
		fmt.Printf("Output tokens: %s\n", humanize.Comma(int64(u.OutputTokens)))

		fmt.Println()
		fmt.Printf("%-28s %8s %10s %10s %9s\n", "MODEL", "REQUESTS", "IN", "OUT", "COST")
		var total float64
		for _, m := range u.ByModel {
			cost := "-"
			if c := llm.LookupCost(m.Model); c != nil {
				usd := c.Cost(m.InputTokens, m.OutputTokens)
				total += usd
				cost = fmt.Sprintf("$%.4f", usd)
			}
			fmt.Printf("%-28s %8d %10s %10s %9s\n", m.Model, m.Requests,
				humanize.Comma(int64(m.InputTokens)), humanize.Comma(int64(m.OutputTokens)), cost)
		}
		fmt.Printf("Estimated cost: $%.4f\n", total)
		return nil
	},
}

func init() {
	llmCmd.AddCommand(llmUsageCmd)
}
