package cmd

import (
	"github.com/spf13/cobra"

	"payrollctl/pkg/auth"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user as the backend sees it",
		Args:  cobra.NoArgs,
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

			profile, err := application.Whoami(cmd.Context())
			if err != nil {
				return explainError(err, backendOf(application))
			}
			return printer.Object(profile, profileRows(profile))
		},
	}
}

func profileRows(p auth.Profile) [][2]string {
	rows := [][2]string{
		{"Name", p.DisplayName()},
		{"Email", p.Email},
		{"Role", string(p.Role)},
		{"ID", p.ID},
	}
	if p.EmployeeID != "" {
		rows = append(rows, [2]string{"Employee", p.EmployeeID})
	}
	if !p.IsActive {
		rows = append(rows, [2]string{"Active", "no"})
	}
	return rows
}
