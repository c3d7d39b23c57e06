package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peoplematter/pmctl/internal/cli/apitest"
	"github.com/peoplematter/pmctl/internal/cli/client"
)

const (
	testEmail    = "a@b.com"
	testPassword = "correct-horse"
)

func newFixture(t *testing.T) (*apitest.Server, *client.Client) {
	t.Helper()

	srv := apitest.New(t)
	srv.AddUser(testPassword, apitest.User{Email: testEmail, FirstName: "Ada", LastName: "Lovelace", IsAdmin: true})

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return srv, c
}

func TestSignIn_StoresSessionCookie(t *testing.T) {
	_, c := newFixture(t)

	user, err := c.SignIn(context.Background(), client.SignInRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, "1", user.UserID)
	require.Equal(t, testEmail, user.Email)
	require.True(t, user.IsAdmin)
	require.Equal(t, "Ada Lovelace", user.FullName())
	require.NotEmpty(t, c.SessionToken())

	status, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	require.True(t, status.Authenticated)
	require.Equal(t, "admin", status.Role)

	current, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, user, current)
}

func TestSignIn_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{name: "wrong password", email: testEmail, password: "nope", status: http.StatusUnauthorized},
		{name: "unknown user", email: "who@b.com", password: testPassword, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newFixture(t)

			_, err := c.SignIn(context.Background(), client.SignInRequest{Email: tt.email, Password: tt.password})

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Empty(t, c.SessionToken())
		})
	}
}

func TestSignUp_ConflictOnDuplicate(t *testing.T) {
	_, c := newFixture(t)

	_, err := c.SignUp(context.Background(), client.SignUpRequest{
		Email:           testEmail,
		Password:        "x",
		ConfirmPassword: "x",
	})

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, "email not available", apiErr.Message)
}

func TestSignUp_SignsIn(t *testing.T) {
	_, c := newFixture(t)

	user, err := c.SignUp(context.Background(), client.SignUpRequest{
		Username:        "grace",
		Email:           "grace@b.com",
		Password:        "x",
		ConfirmPassword: "x",
	})
	require.NoError(t, err)
	require.Equal(t, "grace", user.Username)
	require.NotEmpty(t, c.SessionToken())
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	_, c := newFixture(t)

	_, err := c.SignIn(context.Background(), client.SignInRequest{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background()))
	require.Empty(t, c.SessionToken())

	_, err = c.CheckAuth(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestWithSessionToken_ReusesStoredCookie(t *testing.T) {
	srv, _ := newFixture(t)

	token, err := srv.IssueToken(testEmail)
	require.NoError(t, err)

	c, err := client.New(srv.URL, client.WithSessionToken(token))
	require.NoError(t, err)
	require.Equal(t, token, c.SessionToken())

	_, err = c.CheckAuth(context.Background())
	require.NoError(t, err)

	c.ClearSession()
	require.Empty(t, c.SessionToken())
}

func TestNoResponse(t *testing.T) {
	srv, c := newFixture(t)
	srv.Close()

	_, err := c.CurrentUser(context.Background())
	require.ErrorIs(t, err, client.ErrNoResponse)
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.New(ts.URL, client.WithAPIPrefix("/custom/"))
	require.NoError(t, err)

	status, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	require.True(t, status.Authenticated, "an empty 2xx body still means a valid session")

	require.Equal(t, "/custom/auth/check", gotPath)
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Len(t, got.Get("X-Request-ID"), 26)
}

func TestErrorMessageFallbacks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "database down"}`))
	}))
	defer ts.Close()

	c, err := client.New(ts.URL)
	require.NoError(t, err)

	err = c.SignOut(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "database down", apiErr.Message)
	require.Equal(t, "request failed (status 500): database down", apiErr.Error())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := client.New("")
	require.Error(t, err)

	c, err := client.New("people.example.com/")
	require.NoError(t, err)
	require.Equal(t, "https://people.example.com", c.BaseURL())
}

func TestUser_UnmarshalIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "userId", body: `{"userId":"u1","email":"a@b.com"}`, want: "u1"},
		{name: "numeric ID", body: `{"ID":42}`, want: "42"},
		{name: "lower id", body: `{"id":"abc"}`, want: "abc"},
		{name: "mongo _id", body: `{"_id":"65a1"}`, want: "65a1"},
		{name: "userId wins", body: `{"userId":"u1","ID":7}`, want: "u1"},
		{name: "none", body: `{"email":"a@b.com"}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u client.User
			require.NoError(t, json.Unmarshal([]byte(tt.body), &u))
			require.Equal(t, tt.want, u.UserID)
		})
	}
}

func TestCSRFToken(t *testing.T) {
	srv, c := newFixture(t)

	require.NoError(t, c.CSRFToken(context.Background()))
	require.Equal(t, 1, srv.Calls("/auth/csrf"))

	srv.Fail("/auth/csrf", http.StatusServiceUnavailable)
	var apiErr *client.APIError
	require.ErrorAs(t, c.CSRFToken(context.Background()), &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.New(ts.URL)
	require.NoError(t, err)

	status, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	require.True(t, status.Authenticated)

	_, err = c.CurrentUser(context.Background())
	var decodeErr *client.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	_, err = c.SignIn(context.Background(), client.SignInRequest{Email: testEmail, Password: testPassword})
	require.ErrorAs(t, err, &decodeErr)

	require.NoError(t, c.SignOut(context.Background()))
	require.NoError(t, c.CSRFToken(context.Background()))
}
