package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/peoplematter/pmctl/internal/cli/config"
	"github.com/peoplematter/pmctl/internal/cli/navigate"
)

// initOptions tunes runInitWithOptions for tests
type initOptions struct {
	skipBrowser bool
	out         io.Writer
	open        func(url string) error
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "init <url>",
		Short: "Add a People Matter server to pmctl.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitWithOptions(args, &initOptions{skipBrowser: noBrowser, out: cmd.OutOrStdout()})
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the sign-up page in a browser")

	return cmd
}

func runInitWithOptions(args []string, opts *initOptions) error {
	if opts == nil {
		opts = &initOptions{}
	}
	out := opts.out
	if out == nil {
		out = os.Stdout
	}
	open := opts.open
	if open == nil {
		open = openBrowser
	}

	serverURL, err := config.NormalizeURL(args[0])
	if err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if server, err := cfg.GetServerByURL(serverURL); err == nil {
		fmt.Fprintf(out, "Server %s already exists in %s\n", server.Label(), config.ConfigFileName)
	} else {
		alias := fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		cfg.Servers = append(cfg.Servers, config.Server{
			URL:   serverURL,
			Alias: alias,
		})

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
		} else {
			fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
		}
	}

	if !opts.skipBrowser {
		signupURL := serverURL + navigate.PathSignUp
		fmt.Fprintf(out, "\nOpening sign-up page at %s...\n", signupURL)
		if err := open(signupURL); err != nil {
			fmt.Fprintf(out, "⚠ Could not open browser automatically: %v\n", err)
			fmt.Fprintf(out, "Please visit: %s\n", signupURL)
		}
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'pmctl signup' to create an account, or")
	fmt.Fprintln(out, "  2. Run 'pmctl login' to sign in")

	return nil
}
