package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peoplematter/pmctl/internal/cli/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a People Matter server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password, commandOptions(cmd)...)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PMCTL_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PMCTL_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(email, password string, opts ...RunOption) error {
	o := newRunOptions(opts)

	email, password, err := credentials(o.out, email, password)
	if err != nil {
		return err
	}

	e, err := newEnv(o, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Signing in to %s...\n", e.server.Label())

	e.primeCSRF()
	out := e.store.SignIn(e.ctx, session.SignInInput{Email: email, Password: password})
	if err := e.report(out, "login"); err != nil {
		return err
	}

	printUserSummary(e.out, out.User)
	return nil
}
