package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/saldo-dev/saldo/internal/posting"
	"github.com/saldo-dev/saldo/internal/rules"
	"github.com/saldo-dev/saldo/internal/template"
)

func newPostCommand(log zerolog.Logger) *cobra.Command {
	var (
		templateCode string
		amountStr    string
		dateStr      string
		description  string
		partnerID    string
		partnerName  string
		ackWarnings  bool
		overrideNote string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create and post a transaction from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, log)
			if err != nil {
				return err
			}
			defer e.close()

			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amountStr, err)
			}
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return fmt.Errorf("parsing date %q: %w", dateStr, err)
			}

			companyID := e.cfg.Company.ID
			ctx := cmd.Context()

			chart, err := e.store.Chart(ctx, companyID)
			if err != nil {
				return err
			}
			set, err := template.LoadDir(e.cfg.Bank.TemplateDir, chart)
			if err != nil {
				return err
			}
			tpl, ok := set.Get(templateCode)
			if !ok {
				return fmt.Errorf("unknown template %q", templateCode)
			}

			svc := posting.NewService(e.store, e.store, e.thresholds(),
				e.cfg.Numbering.TransactionPrefix, log)

			tx, err := svc.CreateDraft(ctx, companyID, tpl, template.ApplyInput{
				Amount:      amount,
				Date:        date,
				Description: description,
				PartnerID:   partnerID,
				PartnerName: partnerName,
			}, actor())
			if err != nil {
				return err
			}

			var override *rules.Override
			if ackWarnings {
				override = &rules.Override{UserID: actor(), Note: overrideNote}
			}

			tx, err = svc.Post(ctx, companyID, tx.ID, actor(), override)
			if err != nil {
				var blocked *rules.BlockedError
				var needsOverride *rules.OverrideRequiredError
				switch {
				case errors.As(err, &blocked):
					printRuleResult(cmd, blocked.Result)
				case errors.As(err, &needsOverride):
					printRuleResult(cmd, needsOverride.Result)
					cmd.Println("Re-run with --ack-warnings to override.")
				}
				return err
			}

			cmd.Printf("Posted %s (%s %s)\n", tx.Number, tx.TotalDebit.StringFixed(2), description)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateCode, "template", "", "template code (required)")
	_ = cmd.MarkFlagRequired("template")
	cmd.Flags().StringVar(&amountStr, "amount", "", "transaction amount (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "transaction date")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&partnerID, "partner-id", "", "partner identifier")
	cmd.Flags().StringVar(&partnerName, "partner-name", "", "partner name")
	cmd.Flags().BoolVar(&ackWarnings, "ack-warnings", false, "acknowledge warnings and proceed")
	cmd.Flags().StringVar(&overrideNote, "note", "", "justification recorded with the override")

	return cmd
}
