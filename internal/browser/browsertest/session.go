// Package browsertest provides a scripted in-memory browser.Session for
// exercising recording and replay without a real browser.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/v0xg/webmacro/internal/browser"
)

// Session is a fake browser session. Elements are registered up front;
// lookups for anything else block until the caller's context expires, the
// way a real driver waits for a selector that never shows up.
type Session struct {
	mu sync.Mutex

	URL   string
	Title string

	// EvalFunc answers Eval calls; nil returns "null"
	EvalFunc func(js string) (json.RawMessage, error)

	LaunchErr     error
	NavigateErr   error
	InfoErr       error
	CloseErr      error
	ScreenshotPNG []byte
	ScreenshotErr error

	elements  map[string]*Element
	navigated []string
	evals     []string
	launches  int
	closes    int
}

// NewSession returns an empty fake session
func NewSession() *Session {
	return &Session{elements: make(map[string]*Element)}
}

// Factory returns a browser.Factory handing out this session
func (s *Session) Factory() browser.Factory {
	return func(ctx context.Context) (browser.Session, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.launches++
		if s.LaunchErr != nil {
			return nil, s.LaunchErr
		}
		return s, nil
	}
}

// AddElement registers el under selector and returns it
func (s *Session) AddElement(selector string, el *Element) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[selector] = el
	return el
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	if s.URL == "" {
		s.URL = url
	}
	return nil
}

func (s *Session) Info(_ context.Context) (browser.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InfoErr != nil {
		return browser.Info{}, s.InfoErr
	}
	return browser.Info{URL: s.URL, Title: s.Title}, nil
}

func (s *Session) Eval(_ context.Context, js string) (json.RawMessage, error) {
	s.mu.Lock()
	s.evals = append(s.evals, js)
	fn := s.EvalFunc
	s.mu.Unlock()

	if fn == nil {
		return json.RawMessage("null"), nil
	}
	return fn(js)
}

func (s *Session) Element(ctx context.Context, selector string) (browser.Element, error) {
	s.mu.Lock()
	el, ok := s.elements[selector]
	s.mu.Unlock()
	if ok {
		return el, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *Session) Screenshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ScreenshotPNG, s.ScreenshotErr
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.CloseErr
}

// Navigated returns every URL passed to Navigate
func (s *Session) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigated...)
}

// Evals returns every script passed to Eval
func (s *Session) Evals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.evals...)
}

// Launches reports how many times the factory was called
func (s *Session) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// Closes reports how many times Close was called
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// ErrUnsupported is returned by elements configured to reject an operation
var ErrUnsupported = errors.New("operation not supported by element")
