package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/saldo-dev/saldo/internal/config"
	"github.com/saldo-dev/saldo/internal/store"
)

func newInitCommand(log zerolog.Logger) *cobra.Command {
	var companyID string
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new saldo project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(cmd, absDir, companyID, name, log)
		},
	}

	cmd.Flags().StringVar(&companyID, "company-id", "", "company identifier (required)")
	_ = cmd.MarkFlagRequired("company-id")
	cmd.Flags().StringVar(&name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, dir, companyID, name string, log zerolog.Logger) error {
	for _, sub := range []string{"bank", "templates"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s dir: %w", sub, err)
		}
	}

	cfg := config.Default(companyID, name)
	cfg.Database.Path = filepath.Join(dir, "saldo.db")
	if err := config.Save(filepath.Join(dir, "saldo.yaml"), cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SeedChart(cmd.Context(), companyID); err != nil {
		return err
	}

	cmd.Printf("Initialized saldo project for %s in %s\n", name, dir)
	return nil
}
