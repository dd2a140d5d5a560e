package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"payrollctl/internal/cli"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the session now",
		Long: `Exchange the refresh token for a new token pair without waiting for the
access token to expire. If the backend rejects the refresh token the session
ends and the command exits with code 2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApplication(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			cred, err := application.ForceRefresh(cmd.Context())
			if err != nil {
				return explainError(err, backendOf(application))
			}
			if !quiet {
				var exp *time.Time
				if !cred.ExpiresAt.IsZero() {
					e := cred.ExpiresAt
					exp = &e
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Session refreshed, access token expires "+formatExpiry(exp, time.Now())))
			}
			return nil
		},
	}
}
