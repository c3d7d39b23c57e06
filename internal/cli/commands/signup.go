package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peoplematter/pmctl/internal/cli/session"
)

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	var username, email, password, confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account on a People Matter server and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(username, email, password, confirm, commandOptions(cmd)...)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PMCTL_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PMCTL_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (prompted on a terminal, defaults to --password otherwise)")

	return cmd
}

func runSignup(username, email, password, confirm string, opts ...RunOption) error {
	o := newRunOptions(opts)

	email, password, err := credentials(o.out, email, password)
	if err != nil {
		return err
	}

	if confirm == "" {
		if stdinIsTerminal() {
			if confirm, err = readSecret(o.out, "Confirm password"); err != nil {
				return err
			}
		} else {
			confirm = password
		}
	}

	e, err := newEnv(o, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Creating account on %s...\n", e.server.Label())

	e.primeCSRF()
	out := e.store.SignUp(e.ctx, session.SignUpInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err := e.report(out, "signup"); err != nil {
		return err
	}

	printUserSummary(e.out, out.User)
	return nil
}
