package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const (
	// SessionCookieName is the cookie the API uses to carry the signed-in session
	SessionCookieName = "jwt"

	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 50 * time.Second
)

// ErrNoResponse marks requests that were sent but never got an HTTP response
var ErrNoResponse = errors.New("no response received")

// APIError is returned for every non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
}

// DecodeError is returned when a 2xx response body does not have the expected shape
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Client represents an HTTP client for the People Matter API
type Client struct {
	baseURL    *url.URL
	prefix     string
	httpClient *http.Client
	jar        http.CookieJar
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	insecure   bool
	token      string
	prefix     string
	logger     zerolog.Logger
}

// WithHTTPClient sets a custom HTTP client. Its cookie jar is replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithInsecureSkipVerify accepts self-signed certificates
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *clientOptions) { o.insecure = insecure }
}

// WithSessionToken seeds the cookie jar with a previously stored session cookie
func WithSessionToken(token string) Option {
	return func(o *clientOptions) { o.token = token }
}

// WithAPIPrefix overrides the path prefix of every endpoint
func WithAPIPrefix(prefix string) Option {
	return func(o *clientOptions) { o.prefix = prefix }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// New creates a new API client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	o := clientOptions{
		timeout: defaultTimeout,
		prefix:  defaultAPIPrefix,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: o.timeout}
		if o.insecure {
			hc.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			}
		}
	}
	hc.Jar = jar

	c := &Client{
		baseURL:    u,
		prefix:     "/" + strings.Trim(o.prefix, "/"),
		httpClient: hc,
		jar:        jar,
		logger:     o.logger,
	}
	if o.prefix == "" || o.prefix == "/" {
		c.prefix = ""
	}

	if o.token != "" {
		c.setSessionCookie(o.token)
	}

	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("server URL is empty")
	}
	// Bare hosts default to HTTPS
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return u, nil
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionToken returns the session cookie currently held for the server
func (c *Client) SessionToken() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// ClearSession drops the session cookie from the jar
func (c *Client) ClearSession() {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   SessionCookieName,
		Path:   "/",
		MaxAge: -1,
	}})
}

func (c *Client) setSessionCookie(token string) {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  SessionCookieName,
		Value: token,
		Path:  "/",
	}})
}

// envelope is the response body shape shared by every endpoint
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// do sends a JSON request and decodes the data field into out when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	endpoint := c.baseURL.String() + c.prefix + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := ulid.Make().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("request got no response")
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrNoResponse, err)
	}
	defer resp.Body.Close()

	log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("request completed")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w: failed to read response: %v", method, path, ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		return &DecodeError{Err: errors.New("failed to decode response: empty body")}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &DecodeError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &DecodeError{Err: errors.New("failed to decode response: empty data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Err: fmt.Errorf("failed to decode response data: %w", err)}
	}

	return nil
}

// errorMessage extracts a readable message from an error body
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}
