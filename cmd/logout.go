package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"payrollctl/internal/cli"
)

func newLogoutCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Long: `End the session: revoke it on the server, delete the stored credential
and notify other payrollctl processes sharing it.

With --local the server-side session is left alone, for example when the
backend is unreachable. Logging out without a session is not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApplication(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Logout(cmd.Context(), local); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Only forget the local session, do not revoke it on the server")
	return cmd
}
