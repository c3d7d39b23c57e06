package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peoplematter/pmctl/internal/cli/commands"
	"github.com/peoplematter/pmctl/internal/config"
	"github.com/peoplematter/pmctl/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the pmctl command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pmctl",
		Short: "pmctl - People Matter from the command line",
		Long: `pmctl signs you in to a People Matter server and keeps the session
between runs.

The session cookie is stored in the OS keychain; the signed-in profile is
cached in ~/.config/pmctl/config.json and refreshed after five minutes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Logging.Level, cfg.Logging.Format)
			commands.UseSettings(cfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(commands.BindServerFlag(), "server", "s", "", "Server URL or alias from pmctl.json")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pmctl version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewSignupCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewCheckCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())

	return rootCmd
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		// Failures already shown as notices are not repeated
		if !commands.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
