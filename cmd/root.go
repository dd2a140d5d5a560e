package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"payrollctl/internal/app"
	"payrollctl/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates there is no usable session: never logged
	// in, logged out, or expired beyond refresh.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the backend rejected the login.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	configDir string
	apiURL    string
	logLevel  string
	ephemeral bool
	output    string
	noHeaders bool
	quiet     bool
)

// rootCmd represents the base command for the payrollctl application.
var rootCmd = &cobra.Command{
	Use:   "payrollctl",
	Short: "Command-line console for the payroll administration API",
	Long: `payrollctl logs in to the payroll administration API and reads its
resources (employees, contracts, payroll runs, timesheets, absences, audit
entries, reports and compensation rates).

The session is kept between invocations and renewed transparently when the
access token expires. Concurrent requests that hit an expired token share a
single refresh; when the refresh fails the session ends everywhere.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "payrollctl version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// openApplication bootstraps the application from the global flags.
// The caller must close it.
func openApplication(cmd *cobra.Command) (*app.Application, error) {
	cfg := app.NewConfig(configDir, apiURL, logLevel, ephemeral)
	cfg.LogOutput = cmd.ErrOrStderr()
	return app.NewApplication(cmd.Context(), cfg)
}

func newPrinter(cmd *cobra.Command) (*cli.Printer, error) {
	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return nil, err
	}
	return cli.NewPrinter(cmd.OutOrStdout(), format, noHeaders), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.config/payrollctl)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Payroll API base URL, overrides apiBaseURL from config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides config.yaml")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the session in memory only")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "Suppress header row in table output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newGetCmd())
}
