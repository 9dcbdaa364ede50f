// Package browser is the thin seam between webmacro and the browser driver.
// Recording and replay only see Session and Element; the go-rod backed
// implementation lives in rod.go.
package browser

import (
	"context"
	"encoding/json"
	"time"
)

// Info describes the page currently loaded in a session
type Info struct {
	URL   string
	Title string
}

// Session is one browser process with a single page. Sessions are never
// shared: the operation that opens one closes it.
type Session interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	Info(ctx context.Context) (Info, error)
	// Eval runs a JavaScript function expression, e.g. `() => document.title`,
	// and returns its JSON encoded result
	Eval(ctx context.Context, js string) (json.RawMessage, error)
	// Element waits until selector matches an element or ctx expires
	Element(ctx context.Context, selector string) (Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a located DOM element. Every operation is bounded by ctx;
// an element that stays covered or detached fails once ctx expires.
type Element interface {
	// WaitInteractable waits until the element is visible, enabled and
	// not covered by another element
	WaitInteractable(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	SelectOption(ctx context.Context, value string) error
	Checked(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
	TypeRune(ctx context.Context, r rune) error
	// Center returns the viewport coordinates of the element's center
	Center(ctx context.Context) (x, y int, err error)
}

// Factory opens a new Session
type Factory func(ctx context.Context) (Session, error)

// Options configures how sessions are launched
type Options struct {
	Bin        string // browser executable; looked up when empty
	Headless   bool
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions
	Width      int
	Height     int
	Timeout    time.Duration // bound on launch and initial navigation
}
