package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peoplematter/pmctl/internal/cli/apitest"
	"github.com/peoplematter/pmctl/internal/cli/client"
	"github.com/peoplematter/pmctl/internal/cli/navigate"
	"github.com/peoplematter/pmctl/internal/cli/notify"
	"github.com/peoplematter/pmctl/internal/cli/session"
)

func TestStore_AgainstAPI(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	srv.AddUser("pw", apitest.User{Email: "a@b.com", Username: "ada"})

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	now := time.Now()
	store := session.NewStore(c, session.WithClock(func() time.Time { return now }))
	sink := notify.New()
	var nav navigate.Recorder

	out := store.SignIn(ctx, session.SignInInput{Email: "a@b.com", Password: "wrong"})
	session.Report(out, sink, &nav)
	require.Equal(t, session.MsgInvalidCredentials, sink.Error())
	require.Empty(t, nav.Redirects())

	out = store.SignIn(ctx, session.SignInInput{Email: "a@b.com", Password: "pw"})
	session.Report(out, sink, &nav)
	require.True(t, out.OK())
	require.Equal(t, "1", store.User().UserID)
	require.Equal(t, session.MsgSignedIn, sink.Message())
	last, _ := nav.Last()
	require.Equal(t, navigate.PathHome, last.Path)

	_, fetched := store.EnsureFresh(ctx)
	require.False(t, fetched)
	require.Zero(t, srv.Calls("/user/current"))

	now = now.Add(session.StaleAfter + time.Second)
	_, fetched = store.EnsureFresh(ctx)
	require.True(t, fetched)
	require.Equal(t, 1, srv.Calls("/user/current"))

	require.True(t, store.CheckAuth(ctx).OK())

	srv.ExpireSessions()
	out = store.CheckAuth(ctx)
	session.Report(out, sink, &nav)
	require.Nil(t, store.User())
	last, _ = nav.Last()
	require.Equal(t, navigate.Redirect{Path: navigate.PathSignIn, Options: navigate.Options{External: true}}, last)
}

func TestStore_SignUpConflictAgainstAPI(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	srv.AddUser("pw", apitest.User{Email: "a@b.com"})

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	store := session.NewStore(c)

	out := store.SignUp(ctx, session.SignUpInput{Email: "a@b.com", Password: "pw", ConfirmPassword: "pw"})
	require.Equal(t, session.KindConflict, out.Failure.Kind)
	require.Equal(t, http.StatusConflict, out.Failure.Status)
	require.Equal(t, session.ConflictRedirectDelay, out.Redirect.Delay)

	out = store.SignUp(ctx, session.SignUpInput{Email: "new@b.com", Password: "pw", ConfirmPassword: "pw"})
	require.True(t, out.OK())
	require.Equal(t, "new@b.com", store.User().Email)
}

func TestStore_ServerErrorKeepsStaleUser(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	srv.AddUser("pw", apitest.User{Email: "a@b.com"})

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	store := session.NewStore(c)
	require.True(t, store.SignIn(ctx, session.SignInInput{Email: "a@b.com", Password: "pw"}).OK())

	srv.Fail("/user/current", http.StatusInternalServerError)
	out := store.FetchCurrentUserData(ctx)
	require.Equal(t, session.KindServer, out.Failure.Kind)
	require.Equal(t, session.MsgServerError, out.Failure.Message)
	require.Equal(t, "a@b.com", store.User().Email)

	srv.Recover()
	require.True(t, store.FetchCurrentUserData(ctx).OK())
}

func TestStore_SignOutAgainstAPI(t *testing.T) {
	ctx := context.Background()
	srv := apitest.New(t)
	srv.AddUser("pw", apitest.User{Email: "a@b.com"})

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	store := session.NewStore(c)
	require.True(t, store.SignIn(ctx, session.SignInInput{Email: "a@b.com", Password: "pw"}).OK())
	require.NotEmpty(t, c.SessionToken())

	out := store.SignOut(ctx)
	require.True(t, out.OK())
	require.Nil(t, store.User())
	require.Empty(t, c.SessionToken())
}
