package client

import (
	"context"
	"errors"
	"net/http"
)

// SignInRequest represents the sign-in request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest represents the sign-up request body
type SignUpRequest struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthStatus is the data returned by the session check endpoint
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role"`
}

// SignIn authenticates the user. The session cookie lands in the jar.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/signin", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignUp creates an account and signs it in
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut asks the server to expire the session cookie
func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/signout", struct{}{}, nil)
}

// CheckAuth probes whether the server still accepts the session.
// A 2xx with an empty or unexpected body still counts as a valid session.
func (c *Client) CheckAuth(ctx context.Context) (*AuthStatus, error) {
	var status AuthStatus
	if err := c.do(ctx, http.MethodGet, "/auth/check", nil, &status); err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return &AuthStatus{Authenticated: true}, nil
		}
		return nil, err
	}
	return &status, nil
}

// CSRFToken primes the CSRF cookie for subsequent mutations
func (c *Client) CSRFToken(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/csrf", nil, nil)
}

// CurrentUser returns the profile of the signed-in user
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user/current", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
