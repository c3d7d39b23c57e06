package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/peoplematter/pmctl/internal/cli/auth"
	"github.com/peoplematter/pmctl/internal/cli/client"
	"github.com/peoplematter/pmctl/internal/cli/session"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// whoamiView is what whoami prints
type whoamiView struct {
	Server    string       `json:"server" yaml:"server"`
	User      *client.User `json:"user" yaml:"user"`
	Role      string       `json:"role,omitempty" yaml:"role,omitempty"`
	CompanyID uint         `json:"companyId,omitempty" yaml:"companyId,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	LastFetch *time.Time   `json:"lastFetch,omitempty" yaml:"lastFetch,omitempty"`
	Refreshed bool         `json:"refreshed" yaml:"refreshed"`
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var refresh bool
	var output string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show the signed-in user.

The profile is cached locally and fetched again from the server once it is
older than five minutes, or always with --refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(refresh, output, commandOptions(cmd)...)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the profile from the server even if the cached copy is fresh")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")

	return cmd
}

func runWhoami(refresh bool, output string, opts ...RunOption) error {
	switch output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format %q (use text, json or yaml)", output)
	}

	e, err := newEnv(newRunOptions(opts), true)
	if err != nil {
		return err
	}

	if e.client.SessionToken() == "" && e.store.User() == nil {
		return auth.ErrNotSignedIn
	}

	var result session.Outcome
	fetched := true
	if refresh {
		result = e.store.FetchCurrentUserData(e.ctx)
	} else {
		result, fetched = e.store.EnsureFresh(e.ctx)
	}
	if !result.OK() {
		// A failed refresh keeps the cached profile, show it with the notice
		session.Report(result, e.sink, e.nav)
		if e.store.User() == nil {
			return &ReportedError{Err: fmt.Errorf("whoami failed: %w", result.Err())}
		}
		fetched = false
	}

	user := e.store.User()
	if user == nil {
		return auth.ErrNotSignedIn
	}

	view := whoamiView{
		Server:    e.server.URL,
		User:      user,
		LastFetch: e.store.LastFetch(),
		Refreshed: fetched,
	}
	if token := e.client.SessionToken(); token != "" {
		claims, err := auth.ParseClaims(token)
		if err != nil {
			e.log.Debug().Err(err).Msg("session token is not a readable JWT")
		} else {
			view.Role = claims.Role
			view.CompanyID = claims.CompanyID
			if exp := claims.Expiry(); !exp.IsZero() {
				view.ExpiresAt = &exp
			}
		}
	}

	return printWhoami(e.out, output, view)
}

func printWhoami(w io.Writer, output string, view whoamiView) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	}

	printUserSummary(w, view.User)
	fmt.Fprintf(w, "  Server: %s\n", view.Server)
	if view.Role != "" {
		fmt.Fprintf(w, "  Role: %s\n", view.Role)
	}
	if view.CompanyID != 0 {
		fmt.Fprintf(w, "  Company: %d\n", view.CompanyID)
	}
	if view.ExpiresAt != nil {
		fmt.Fprintf(w, "  Session expires: %s\n", view.ExpiresAt.Local().Format(time.RFC1123))
	}
	if view.LastFetch != nil {
		fmt.Fprintf(w, "  Profile fetched: %s\n", view.LastFetch.Local().Format(time.RFC1123))
	}
	return nil
}

// printUserSummary prints the one-block description of a user used after sign-in
func printUserSummary(w io.Writer, user *client.User) {
	if user == nil {
		return
	}
	fmt.Fprintf(w, "  User: %s (%s)\n", user.FullName(), user.Email)
	if user.UserID != "" {
		fmt.Fprintf(w, "  ID: %s\n", user.UserID)
	}
	if user.IsAdmin {
		fmt.Fprintln(w, "  Admin: yes")
	}
}
