// Package navigate turns redirect intents into something a terminal user can act on.
package navigate

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Well-known paths of the web front-end
const (
	PathHome   = "/"
	PathSignIn = "/signin"
	PathSignUp = "/signup"
)

// Options qualify a navigation
type Options struct {
	// External asks for a full-page load so no client state survives
	External bool
	// Delay postpones the navigation
	Delay time.Duration
}

// Redirect is a navigation intent returned by state operations
type Redirect struct {
	Path string
	Options
}

// Navigator performs redirects
type Navigator interface {
	NavigateTo(path string, opts Options)
}

// Recorder remembers every navigation it is asked to perform
type Recorder struct {
	mu    sync.Mutex
	moves []Redirect
}

// NavigateTo implements Navigator
func (r *Recorder) NavigateTo(path string, opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, Redirect{Path: path, Options: opts})
}

// Redirects returns a copy of the recorded navigations
func (r *Recorder) Redirects() []Redirect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Redirect(nil), r.moves...)
}

// Last returns the most recent navigation
func (r *Recorder) Last() (Redirect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.moves) == 0 {
		return Redirect{}, false
	}
	return r.moves[len(r.moves)-1], true
}

// Hinter prints the CLI equivalent of a navigation
type Hinter struct {
	out     io.Writer
	baseURL string
	open    func(url string) error
}

// NewHinter prints follow-up hints to out. baseURL is the web front-end
// of the server; open, when non-nil, is used for external redirects.
func NewHinter(out io.Writer, baseURL string, open func(url string) error) *Hinter {
	return &Hinter{out: out, baseURL: baseURL, open: open}
}

// NavigateTo implements Navigator
func (h *Hinter) NavigateTo(path string, opts Options) {
	switch path {
	case PathSignIn:
		fmt.Fprintln(h.out, "Run 'pmctl login' to sign in.")
	case PathSignUp:
		fmt.Fprintln(h.out, "Run 'pmctl signup' to create an account.")
	case PathHome:
		// Nothing to do on the command line
	default:
		fmt.Fprintf(h.out, "Continue at %s%s\n", h.baseURL, path)
	}

	if opts.External && h.open != nil && h.baseURL != "" {
		url := h.baseURL + path
		if err := h.open(url); err != nil {
			fmt.Fprintf(h.out, "Please visit: %s\n", url)
		}
	}
}
