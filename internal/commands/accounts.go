package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newAccountsCommand(log zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, log)
			if err != nil {
				return err
			}
			defer e.close()

			accounts, err := e.store.ListAccounts(cmd.Context(), e.cfg.Company.ID)
			if err != nil {
				return err
			}

			for _, a := range accounts {
				marker := " "
				if a.System {
					marker = "*"
				}
				cmd.Printf("%s %-4s %-30s %-10s %s\n", marker, a.Code, a.Name, a.Type, a.NormalSide)
			}
			return nil
		},
	}
	return cmd
}
