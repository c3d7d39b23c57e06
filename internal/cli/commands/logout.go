package commands

import (
	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(commandOptions(cmd)...)
		},
	}
}

func runLogout(opts ...RunOption) error {
	e, err := newEnv(newRunOptions(opts), true)
	if err != nil {
		return err
	}

	return e.report(e.store.SignOut(e.ctx), "logout")
}
