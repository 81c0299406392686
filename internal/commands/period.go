package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/saldo-dev/saldo/internal/model"
	"github.com/saldo-dev/saldo/internal/period"
	"github.com/saldo-dev/saldo/internal/rules"
)

func newClosePeriodCommand(log zerolog.Logger) *cobra.Command {
	var ackWarnings bool
	var overrideNote string

	cmd := &cobra.Command{
		Use:   "close-period <YYYY-MM>",
		Short: "Validate and lock an accounting period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.PeriodKey(args[0])
			if !key.Valid() {
				return fmt.Errorf("invalid period %q, expected YYYY-MM", args[0])
			}

			e, err := loadEnv(cmd, log)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			companyID := e.cfg.Company.ID
			machine := period.NewMachine(e.store, e.store, e.thresholds(), log)

			result, err := machine.RequestClose(ctx, companyID, key, actor())
			if err != nil {
				return err
			}
			printRuleResult(cmd, result)
			if !result.OK() {
				return fmt.Errorf("period %s cannot be closed", key)
			}

			var override *rules.Override
			if ackWarnings {
				override = &rules.Override{UserID: actor(), Note: overrideNote}
			}

			if err := machine.Lock(ctx, companyID, key, actor(), override); err != nil {
				var needsOverride *rules.OverrideRequiredError
				if errors.As(err, &needsOverride) {
					cmd.Println("Re-run with --ack-warnings to override.")
				}
				return err
			}

			cmd.Printf("Period %s locked.\n", key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&ackWarnings, "ack-warnings", false, "acknowledge warnings and proceed")
	cmd.Flags().StringVar(&overrideNote, "note", "", "justification recorded with the override")

	return cmd
}

func newUnlockPeriodCommand(log zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock-period <YYYY-MM>",
		Short: "Reopen a locked period (administrative)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := model.PeriodKey(args[0])
			if !key.Valid() {
				return fmt.Errorf("invalid period %q, expected YYYY-MM", args[0])
			}

			e, err := loadEnv(cmd, log)
			if err != nil {
				return err
			}
			defer e.close()

			machine := period.NewMachine(e.store, e.store, e.thresholds(), log)
			if err := machine.Unlock(cmd.Context(), e.cfg.Company.ID, key, actor()); err != nil {
				return err
			}

			cmd.Printf("Period %s reopened.\n", key)
			return nil
		},
	}
	return cmd
}
