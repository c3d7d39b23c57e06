package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the stored session is still accepted by the server",
		Long: `Verify that the stored session is still accepted by the server.

If the server rejects the session, the local session is removed and the
command exits with a non-zero status. With --open the web sign-in page is
opened in the default browser as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := commandOptions(cmd)
			if open {
				opts = append(opts, WithBrowser(openBrowser))
			}
			return runCheck(opts...)
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "Open the web sign-in page if the session was rejected")

	return cmd
}

func runCheck(opts ...RunOption) error {
	e, err := newEnv(newRunOptions(opts), true)
	if err != nil {
		return err
	}

	out := e.store.CheckAuth(e.ctx)
	if err := e.report(out, "session check"); err != nil {
		return err
	}

	e.sink.SetMessage(fmt.Sprintf("Signed in to %s.", e.server.Label()))
	return nil
}
