package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/peoplematter/pmctl/internal/cli/auth"
	"github.com/peoplematter/pmctl/internal/cli/client"
	"github.com/peoplematter/pmctl/internal/cli/config"
	"github.com/peoplematter/pmctl/internal/cli/navigate"
	"github.com/peoplematter/pmctl/internal/cli/notify"
	"github.com/peoplematter/pmctl/internal/cli/serverselect"
	"github.com/peoplematter/pmctl/internal/cli/session"
	"github.com/peoplematter/pmctl/internal/cli/userconfig"
	appconfig "github.com/peoplematter/pmctl/internal/config"
	"github.com/peoplematter/pmctl/internal/logger"
)

// APIClient is the People Matter client as seen by commands
type APIClient interface {
	session.API
	CSRFToken(ctx context.Context) error
	SessionToken() string
	ClearSession()
}

// settings holds process-level configuration, replaced by the root command before any run
var settings = &appconfig.Config{
	API: appconfig.APIConfig{Prefix: appconfig.DefaultAPIPrefix, Timeout: appconfig.DefaultTimeout},
}

// UseSettings installs the process configuration for every command
func UseSettings(cfg *appconfig.Config) {
	if cfg != nil {
		settings = cfg
	}
}

// serverAlias is the value of the persistent --server flag
var serverAlias string

// BindServerFlag returns the variable backing the --server flag
func BindServerFlag() *string {
	return &serverAlias
}

// ReportedError wraps a failure whose notice was already shown to the user
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }
func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err was already shown to the user
func IsReported(err error) bool {
	var r *ReportedError
	return errors.As(err, &r)
}

// runOptions holds the collaborators of a command run
type runOptions struct {
	ctx        context.Context
	server     *config.Server
	apiClient  APIClient
	tokenStore auth.TokenStore
	sessions   userconfig.SessionCache
	out        io.Writer
	errOut     io.Writer
	open       func(url string) error
}

// RunOption overrides a collaborator, mostly for tests
type RunOption func(*runOptions)

// WithContext sets the context requests run under
func WithContext(ctx context.Context) RunOption {
	return func(o *runOptions) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithServer skips server resolution
func WithServer(s *config.Server) RunOption {
	return func(o *runOptions) { o.server = s }
}

// WithAPIClient replaces the HTTP client
func WithAPIClient(c APIClient) RunOption {
	return func(o *runOptions) { o.apiClient = c }
}

// WithTokenStore replaces the keyring
func WithTokenStore(ts auth.TokenStore) RunOption {
	return func(o *runOptions) { o.tokenStore = ts }
}

// WithSessionCache replaces the user config session cache
func WithSessionCache(c userconfig.SessionCache) RunOption {
	return func(o *runOptions) { o.sessions = c }
}

// WithBrowser sets the function used to open external redirects. Nil prints a hint only.
func WithBrowser(open func(url string) error) RunOption {
	return func(o *runOptions) { o.open = open }
}

// WithOutput redirects command output
func WithOutput(out, errOut io.Writer) RunOption {
	return func(o *runOptions) {
		o.out = out
		o.errOut = errOut
	}
}

func newRunOptions(opts []RunOption) *runOptions {
	o := &runOptions{
		ctx:        context.Background(),
		tokenStore: auth.Default,
		sessions:   userconfig.Sessions,
		out:        os.Stdout,
		errOut:     os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// env is everything a session command needs once the server is known
type env struct {
	ctx    context.Context
	server *config.Server
	client APIClient
	store  *session.Store
	sink   *notify.Sink
	nav    navigate.Navigator
	log    zerolog.Logger
	out    io.Writer
	errOut io.Writer
}

// primeCSRF fetches the CSRF cookie ahead of a mutation. Failures are left to the mutation itself.
func (e *env) primeCSRF() {
	if err := e.client.CSRFToken(e.ctx); err != nil {
		e.log.Debug().Err(err).Msg("failed to prime csrf cookie")
	}
}

// report shows the outcome and turns a failure into a ReportedError
func (e *env) report(out session.Outcome, action string) error {
	session.Report(out, e.sink, e.nav)
	if err := out.Err(); err != nil {
		return &ReportedError{Err: fmt.Errorf("%s failed: %w", action, err)}
	}
	return nil
}

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
// If you need the config object itself, call config.LoadFromCurrentDir() separately.
func getSelectedServer() (*config.Server, error) {
	// Load config
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'pmctl init <url>' to create a configuration file", err)
	}

	// Resolve which server to use
	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", config.ConfigFileName)
	}

	return server, nil
}

// newEnv resolves the server and wires client, store, notices and navigation
func newEnv(o *runOptions, restore bool) (*env, error) {
	if o.server == nil {
		server, err := getSelectedServer()
		if err != nil {
			return nil, err
		}
		o.server = server
	}

	log := logger.GetLogger().With().Str("server", o.server.URL).Logger()

	if o.apiClient == nil {
		token, err := o.tokenStore.LoadToken(o.server.URL)
		if err != nil && !errors.Is(err, auth.ErrNotSignedIn) {
			log.Warn().Err(err).Msg("failed to read stored session token")
		}

		clientOpts := []client.Option{
			client.WithAPIPrefix(settings.API.Prefix),
			client.WithTimeout(settings.API.Timeout),
			client.WithSessionToken(token),
			client.WithInsecureSkipVerify(settings.API.Insecure),
			client.WithLogger(log),
		}

		c, err := client.New(o.server.URL, clientOpts...)
		if err != nil {
			return nil, err
		}
		o.apiClient = c
	}

	storeOpts := []session.Option{
		session.WithKeeper(&keeper{
			serverURL: o.server.URL,
			client:    o.apiClient,
			tokens:    o.tokenStore,
			sessions:  o.sessions,
		}),
		session.WithLogger(log),
	}
	if restore {
		snap, err := o.sessions.LoadSession(o.server.URL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read cached session")
		} else {
			storeOpts = append(storeOpts, session.WithSnapshot(snap))
		}
	}

	sink := notify.New()
	notify.NewPrinter(o.out, o.errOut).Attach(sink)

	return &env{
		ctx:    o.ctx,
		server: o.server,
		client: o.apiClient,
		store:  session.NewStore(o.apiClient, storeOpts...),
		sink:   sink,
		nav:    navigate.NewHinter(o.out, o.server.URL, o.open),
		log:    log,
		out:    o.out,
		errOut: o.errOut,
	}, nil
}

// keeper persists the session token in the keyring and the user record in the user config
type keeper struct {
	serverURL string
	client    APIClient
	tokens    auth.TokenStore
	sessions  userconfig.SessionCache
}

func (k *keeper) Save(snap session.Snapshot) error {
	if token := k.client.SessionToken(); token != "" {
		if err := k.tokens.SaveToken(k.serverURL, token); err != nil {
			return err
		}
	}
	return k.sessions.SaveSession(k.serverURL, snap)
}

func (k *keeper) Clear() error {
	k.client.ClearSession()
	return errors.Join(
		k.tokens.DeleteToken(k.serverURL),
		k.sessions.ClearSession(k.serverURL),
	)
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// commandOptions wires a cobra command's context and streams into a run
func commandOptions(cmd *cobra.Command) []RunOption {
	return []RunOption{
		WithContext(cmd.Context()),
		WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
}
