package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"payrollctl/pkg/auth"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Long: `Show the local session: state, user, token expiry and where the
credential is stored. The backend is not contacted; use whoami for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			application, err := openApplication(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			status := application.Status()
			return printer.Object(status, statusRows(status, time.Now()))
		},
	}
}

func statusRows(s auth.StatusResponse, now time.Time) [][2]string {
	rows := [][2]string{{"State", s.State}}
	if s.Authenticated {
		rows = append(rows,
			[2]string{"User", s.User},
			[2]string{"Role", string(s.Role)},
		)
		if s.IssuedAt != nil {
			rows = append(rows, [2]string{"Issued", s.IssuedAt.Local().Format(time.RFC3339)})
		}
		rows = append(rows, [2]string{"Expires", formatExpiry(s.ExpiresAt, now)})
	}
	rows = append(rows,
		[2]string{"Storage", s.Backend},
		[2]string{"API", s.APIBaseURL},
	)
	return rows
}

func formatExpiry(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "unknown"
	}
	remaining := expiresAt.Sub(now).Round(time.Second)
	if remaining <= 0 {
		return fmt.Sprintf("%s (expired, renewed on next request)", expiresAt.Local().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s (in %s)", expiresAt.Local().Format(time.RFC3339), remaining)
}
