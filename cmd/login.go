package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"payrollctl/internal/cli"
	"payrollctl/pkg/auth"
)

func newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the payroll API",
		Long: `Log in with email and password and keep the session for later commands.

The password is prompted for on the terminal. For scripts, pipe it in with
--password-stdin. Logging in while a session exists ends that session first.

Examples:
  payrollctl login --email jane@example.com
  echo "$PAYROLL_PASSWORD" | payrollctl login --email jane@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, email, passwordStdin)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runLogin(cmd *cobra.Command, email string, passwordStdin bool) error {
	password, err := readPassword(cmd, passwordStdin)
	if err != nil {
		return err
	}

	application, err := openApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	stop := cli.StartSpinner(cmd.ErrOrStderr(), "Logging in...", quiet)
	profile, err := application.Login(cmd.Context(), strings.TrimSpace(email), password)
	stop()
	if err != nil {
		return explainLoginError(err, backendOf(application))
	}

	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Logged in as %s (%s)", profile.DisplayName(), profile.Role)))
	}
	return nil
}

// readPassword reads one line from stdin with --password-stdin, and
// prompts without echo otherwise.
func readPassword(cmd *cobra.Command, fromStdin bool) (auth.RedactedToken, error) {
	if fromStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return auth.RedactedToken{}, fmt.Errorf("failed to read password from stdin: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return auth.RedactedToken{}, errors.New("empty password on stdin")
		}
		return auth.NewRedactedToken(password), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return auth.RedactedToken{}, errors.New("stdin is not a terminal; use --password-stdin")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return auth.RedactedToken{}, fmt.Errorf("failed to read password: %w", err)
	}
	return auth.NewRedactedToken(string(raw)), nil
}
