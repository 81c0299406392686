package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/saldo-dev/saldo/internal/model"
	"github.com/saldo-dev/saldo/internal/recon"
)

func newReconcileCommand(log zerolog.Logger) *cobra.Command {
	var periodStr string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match bank statement movements against open items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.PeriodKey(periodStr)
			if !key.Valid() {
				return fmt.Errorf("invalid period %q, expected YYYY-MM", periodStr)
			}

			e, err := loadEnv(cmd, log)
			if err != nil {
				return err
			}
			defer e.close()

			movements, err := readFeeds(e.cfg.Bank.FeedDir)
			if err != nil {
				return err
			}
			if len(movements) == 0 {
				cmd.Println("No bank movements found.")
				return nil
			}

			items, err := e.store.OpenItems(cmd.Context(), e.cfg.Company.ID, key)
			if err != nil {
				return err
			}

			matches := recon.FindPairingMatches(movements, items)
			if len(matches) == 0 {
				cmd.Println("No pairing candidates found.")
				return nil
			}

			for _, m := range matches {
				cmd.Printf("%3d  %s %s %s -> %s (%s)\n",
					m.Confidence,
					m.Movement.Date.Format("2006-01-02"),
					m.Movement.Direction,
					m.Movement.Amount.StringFixed(2),
					m.Item.DocNumber,
					m.Item.PartnerName)
				for _, reason := range m.MatchReasons {
					cmd.Printf("     - %s\n", reason)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&periodStr, "period", "", "period whose open items to match (required)")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

// readFeeds parses every CSV in the bank feed directory.
func readFeeds(dir string) ([]model.BankMovement, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading feed dir: %w", err)
	}

	var movements []model.BankMovement
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("opening feed %s: %w", e.Name(), err)
		}
		parsed, err := recon.ReadFeed(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		movements = append(movements, parsed...)
	}
	return movements, nil
}
