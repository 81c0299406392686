// Package commands wires the CLI together.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/saldo-dev/saldo/internal/buildinfo"
	"github.com/saldo-dev/saldo/internal/config"
	"github.com/saldo-dev/saldo/internal/rules"
	"github.com/saldo-dev/saldo/internal/store"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(log zerolog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "saldo",
		Short:   "Double-entry bookkeeping for small businesses",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "saldo.yaml", "path to saldo.yaml")

	rootCmd.AddCommand(newInitCommand(log))
	rootCmd.AddCommand(newAccountsCommand(log))
	rootCmd.AddCommand(newPostCommand(log))
	rootCmd.AddCommand(newClosePeriodCommand(log))
	rootCmd.AddCommand(newUnlockPeriodCommand(log))
	rootCmd.AddCommand(newReconcileCommand(log))

	return rootCmd
}

// env bundles everything a subcommand needs to run.
type env struct {
	cfg   *config.Config
	store *store.Store
	log   zerolog.Logger
}

func (e *env) thresholds() rules.Thresholds {
	return rules.Thresholds{
		DocumentWarn:  e.cfg.Thresholds.DocumentWarn,
		DocumentBlock: e.cfg.Thresholds.DocumentBlock,
	}
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn().Err(err).Msg("closing store")
	}
}

// loadEnv reads the config named by the --config flag and opens the store.
func loadEnv(cmd *cobra.Command, log zerolog.Logger) (*env, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, store: st, log: log}, nil
}

// actor resolves the acting user for audit entries.
func actor() string {
	if u := os.Getenv("SALDO_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

// printRuleResult renders a validation result for terminal display.
func printRuleResult(cmd *cobra.Command, r rules.Result) {
	for _, h := range r.Blocks {
		cmd.Printf("BLOCK  %s: %s\n", h.Code, h.Message)
		if h.FixSuggestion != "" {
			cmd.Printf("       fix: %s\n", h.FixSuggestion)
		}
	}
	for _, h := range r.Warnings {
		cmd.Printf("WARN   %s: %s\n", h.Code, h.Message)
		if h.FixSuggestion != "" {
			cmd.Printf("       fix: %s\n", h.FixSuggestion)
		}
	}
	for _, h := range r.Infos {
		cmd.Printf("INFO   %s: %s\n", h.Code, h.Message)
	}
}
