// Package session tracks who is signed in to a People Matter server.
//
// A Store owns the current user record, the in-flight flag and the time
// of the last successful profile fetch. Every operation returns an
// Outcome describing what happened, which notice to show and where to
// navigate next; the Store itself never talks to the terminal.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/peoplematter/pmctl/internal/cli/client"
	"github.com/peoplematter/pmctl/internal/cli/navigate"
)

const (
	// StaleAfter is how long fetched user data is considered current
	StaleAfter = 5 * time.Minute

	// ConflictRedirectDelay postpones the sign-in redirect after a duplicate sign-up
	ConflictRedirectDelay = 3 * time.Second
)

// Success notices
const (
	MsgSignedIn  = "Successfully signed in."
	MsgSignedUp  = "Successfully signed up."
	MsgSignedOut = "Successfully signed out."
)

// API is the part of the People Matter API the store needs
type API interface {
	SignIn(ctx context.Context, req client.SignInRequest) (*client.User, error)
	SignUp(ctx context.Context, req client.SignUpRequest) (*client.User, error)
	SignOut(ctx context.Context) error
	CheckAuth(ctx context.Context) (*client.AuthStatus, error)
	CurrentUser(ctx context.Context) (*client.User, error)
}

// Snapshot is the persistable part of a session
type Snapshot struct {
	User      *client.User `json:"user,omitempty"`
	LastFetch *time.Time   `json:"last_fetch,omitempty"`
}

// Keeper persists local session markers between runs
type Keeper interface {
	Save(Snapshot) error
	Clear() error
}

// State is the coarse authentication state of a store
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateStaleAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateStaleAuthenticated:
		return "stale"
	default:
		return "unauthenticated"
	}
}

// Op names a store operation
type Op string

const (
	OpSignIn    Op = "signin"
	OpSignUp    Op = "signup"
	OpSignOut   Op = "signout"
	OpCheckAuth Op = "check_auth"
	OpFetchUser Op = "fetch_user"
)

// Outcome is the result of a store operation
type Outcome struct {
	Op       Op
	User     *client.User       // user record on success, when the operation returns one
	Message  string             // success notice, may be empty
	Failure  *Failure           // nil on success
	Redirect *navigate.Redirect // where to go next, nil to stay put
}

// OK reports whether the operation succeeded
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Err returns the failure as an error, or nil on success
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Store is the single source of truth for the signed-in user
type Store struct {
	api    API
	keeper Keeper
	now    func() time.Time
	logger zerolog.Logger

	mu        sync.RWMutex
	user      *client.User
	loading   bool
	lastFetch *time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeeper persists the session after every change
func WithKeeper(k Keeper) Option {
	return func(s *Store) { s.keeper = k }
}

// WithSnapshot restores a previously persisted session
func WithSnapshot(snap Snapshot) Option {
	return func(s *Store) {
		s.user = snap.User.Clone()
		if snap.LastFetch != nil {
			t := *snap.LastFetch
			s.lastFetch = &t
		}
	}
}

// WithLogger sets the store logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an unauthenticated store on top of api
func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:    api,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns a copy of the signed-in user, or nil
func (s *Store) User() *client.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// IsLoading reports whether a request is in flight
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastFetch returns the time of the last successful user fetch, or nil
func (s *Store) LastFetch() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastFetch == nil {
		return nil
	}
	t := *s.lastFetch
	return &t
}

// Snapshot returns the persistable state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{User: s.user.Clone()}
	if s.lastFetch != nil {
		t := *s.lastFetch
		snap.LastFetch = &t
	}
	return snap
}

// State derives the authentication state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.user == nil && s.loading:
		return StateAuthenticating
	case s.user == nil:
		return StateUnauthenticated
	case s.staleLocked():
		return StateStaleAuthenticated
	default:
		return StateAuthenticated
	}
}

// ShouldFetchUserData reports whether the cached user data is missing or stale
func (s *Store) ShouldFetchUserData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleLocked()
}

func (s *Store) staleLocked() bool {
	if s.lastFetch == nil {
		return true
	}
	return s.now().Sub(*s.lastFetch) > StaleAfter
}

// SignIn authenticates with email and password
func (s *Store) SignIn(ctx context.Context, in SignInInput) Outcome {
	out := Outcome{Op: OpSignIn}
	if f := validateInput(in); f != nil {
		out.Failure = f
		return s.failed(out)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	user, err := s.api.SignIn(ctx, client.SignInRequest{Email: in.Email, Password: in.Password})
	if err == nil && user == nil {
		err = errors.New("sign-in returned no user")
	}
	if err != nil {
		out.Failure = Classify(err)
		return s.failed(out)
	}

	s.authenticated(user)
	out.User = user.Clone()
	out.Message = MsgSignedIn
	out.Redirect = &navigate.Redirect{Path: navigate.PathHome}
	s.logger.Debug().Str("user_id", user.UserID).Msg("signed in")
	return out
}

// SignUp creates an account and signs it in
func (s *Store) SignUp(ctx context.Context, in SignUpInput) Outcome {
	out := Outcome{Op: OpSignUp}
	if f := validateInput(in); f != nil {
		out.Failure = f
		return s.failed(out)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	user, err := s.api.SignUp(ctx, client.SignUpRequest{
		Username:        in.Username,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err == nil && user == nil {
		err = errors.New("sign-up returned no user")
	}
	if err != nil {
		out.Failure = Classify(err)
		if out.Failure.Kind == KindConflict {
			out.Redirect = &navigate.Redirect{
				Path:    navigate.PathSignIn,
				Options: navigate.Options{Delay: ConflictRedirectDelay},
			}
		}
		return s.failed(out)
	}

	s.authenticated(user)
	out.User = user.Clone()
	out.Message = MsgSignedUp
	out.Redirect = &navigate.Redirect{Path: navigate.PathHome}
	s.logger.Debug().Str("user_id", user.UserID).Msg("signed up")
	return out
}

// SignOut ends the session. The server call is best-effort; local state is always cleared.
func (s *Store) SignOut(ctx context.Context) Outcome {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.api.SignOut(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("server-side sign-out failed, clearing local session anyway")
	}

	s.clear()
	return Outcome{
		Op:       OpSignOut,
		Message:  MsgSignedOut,
		Redirect: &navigate.Redirect{Path: navigate.PathSignIn},
	}
}

// CheckAuth probes whether the server still accepts the session.
// Any failure drops the local session and asks for a full-page sign-in.
func (s *Store) CheckAuth(ctx context.Context) Outcome {
	out := Outcome{Op: OpCheckAuth}

	if _, err := s.api.CheckAuth(ctx); err != nil {
		out.Failure = Classify(err)
		s.clear()
		out.Redirect = &navigate.Redirect{
			Path:    navigate.PathSignIn,
			Options: navigate.Options{External: true},
		}
		return s.failed(out)
	}

	return out
}

// FetchCurrentUserData refreshes the user record. Failures keep the stale
// record, except an unauthorized response which ends the session.
func (s *Store) FetchCurrentUserData(ctx context.Context) Outcome {
	out := Outcome{Op: OpFetchUser}

	s.setLoading(true)
	defer s.setLoading(false)

	user, err := s.api.CurrentUser(ctx)
	if err == nil && user == nil {
		err = errors.New("current user response was empty")
	}
	if err != nil {
		out.Failure = Classify(err)
		switch out.Failure.Kind {
		case KindUnauthorized:
			s.clear()
			out.Redirect = &navigate.Redirect{Path: navigate.PathSignIn}
		case KindForbidden:
			out.Redirect = &navigate.Redirect{Path: navigate.PathHome}
		}
		return s.failed(out)
	}

	s.authenticated(user)
	out.User = user.Clone()
	return out
}

// EnsureFresh fetches the user record only when it is missing or stale.
// The boolean reports whether a fetch happened.
func (s *Store) EnsureFresh(ctx context.Context) (Outcome, bool) {
	s.mu.RLock()
	current := s.user.Clone()
	stale := s.staleLocked()
	s.mu.RUnlock()

	if current != nil && !stale {
		return Outcome{Op: OpFetchUser, User: current}, false
	}
	return s.FetchCurrentUserData(ctx), true
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) authenticated(user *client.User) {
	s.mu.Lock()
	s.user = user.Clone()
	t := s.now()
	s.lastFetch = &t
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.keeper != nil {
		if err := s.keeper.Save(snap); err != nil {
			s.logger.Warn().Err(err).Msg("failed to persist session")
		}
	}
}

func (s *Store) clear() {
	s.mu.Lock()
	s.user = nil
	s.lastFetch = nil
	s.mu.Unlock()

	if s.keeper != nil {
		if err := s.keeper.Clear(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear local session")
		}
	}
}

func (s *Store) failed(out Outcome) Outcome {
	ev := s.logger.Debug().Str("op", string(out.Op)).Str("kind", out.Failure.Kind.String())
	if out.Failure.Status != 0 {
		ev = ev.Int("status", out.Failure.Status)
	}
	ev.Err(out.Failure.Cause).Msg("operation failed")
	return out
}
