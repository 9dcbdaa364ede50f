// Package recorder captures click, input and change events from a live
// browser session and turns them into macro steps.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/v0xg/webmacro/internal/browser"
	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultFetchTimeout = 2 * time.Second
)

// Status is a snapshot of the recorder state
type Status struct {
	Recording bool
	StartURL  string
	Steps     int
}

// Recorder records user interactions in a browser it launches itself.
// Only one session can be active at a time.
type Recorder struct {
	newSession   browser.Factory
	pollInterval time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	session   browser.Session // non-nil from Start until Stop has torn it down
	recording bool
	startURL  string
	steps     []macro.Step
	stopPoll  chan struct{}
	pollDone  chan struct{}
}

// Option configures a Recorder
type Option func(*Recorder)

// WithPollInterval sets how often the in-page buffer is drained
func WithPollInterval(d time.Duration) Option {
	return func(r *Recorder) {
		r.pollInterval = d
	}
}

// WithFetchTimeout bounds a single drain of the in-page buffer
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		r.fetchTimeout = d
	}
}

// WithLogger sets a custom logger for the recorder
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// New creates a recorder that opens sessions with factory
func New(factory browser.Factory, opts ...Option) *Recorder {
	r := &Recorder{
		newSession:   factory,
		pollInterval: defaultPollInterval,
		fetchTimeout: defaultFetchTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start opens a browser at url, installs the capture script and begins
// polling for events
func (r *Recorder) Start(ctx context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording || r.session != nil {
		return macro.ErrAlreadyRecording
	}

	r.logger.Info("starting browser for recording", zap.String("url", url))
	session, err := r.newSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	if err := session.Navigate(ctx, url); err != nil {
		r.closeSession(session)
		return err
	}

	// Redirects may land somewhere other than what was typed
	info, err := session.Info(ctx)
	if err != nil {
		r.closeSession(session)
		return fmt.Errorf("failed to read page info: %w", err)
	}

	if _, err := session.Eval(ctx, captureScript); err != nil {
		r.logger.Error("failed to inject capture script", zap.Error(err))
		r.closeSession(session)
		return fmt.Errorf("failed to inject capture script: %w", err)
	}

	r.session = session
	r.startURL = info.URL
	r.steps = nil
	r.recording = true
	r.stopPoll = make(chan struct{})
	r.pollDone = make(chan struct{})

	go r.poll(session, r.stopPoll, r.pollDone)
	return nil
}

// Stop ends the session, drains any events still buffered in the page and
// returns everything captured
func (r *Recorder) Stop(ctx context.Context) (macro.Recording, error) {
	r.mu.Lock()
	if !r.recording || r.session == nil {
		r.mu.Unlock()
		return macro.Recording{}, macro.ErrNotRecording
	}
	r.logger.Info("stopping recording session")
	r.recording = false
	session := r.session
	stopPoll, pollDone := r.stopPoll, r.pollDone
	r.mu.Unlock()

	close(stopPoll)
	<-pollDone

	final := r.fetch(session)

	title := ""
	if info, err := session.Info(ctx); err != nil {
		r.logger.Warn("could not read page title", zap.Error(err))
	} else {
		title = info.Title
	}

	r.closeSession(session)

	r.mu.Lock()
	defer r.mu.Unlock()

	steps := append(r.steps, final...)
	if steps == nil {
		steps = []macro.Step{}
	}
	result := macro.Recording{
		StartURL: r.startURL,
		Steps:    steps,
		Metadata: map[string]any{"title": title},
	}
	r.session = nil
	r.steps = nil
	r.startURL = ""

	r.logger.Info("recording stopped", zap.Int("steps", len(result.Steps)))
	return result, nil
}

// IsRecording reports whether a session is active
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Status returns the current state and how many steps have been drained so far
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Recording: r.recording,
		StartURL:  r.startURL,
		Steps:     len(r.steps),
	}
}

// poll drains the page buffer until Stop flips the recording flag
func (r *Recorder) poll(session browser.Session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		r.mu.Lock()
		active := r.recording
		r.mu.Unlock()
		if !active {
			return
		}

		if steps := r.fetch(session); len(steps) > 0 {
			r.mu.Lock()
			r.steps = append(r.steps, steps...)
			r.mu.Unlock()
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// fetch drains the in-page buffer. Failures are logged and read as no events.
func (r *Recorder) fetch(session browser.Session) []macro.Step {
	ctx, cancel := context.WithTimeout(context.Background(), r.fetchTimeout)
	defer cancel()

	raw, err := session.Eval(ctx, drainScript)
	if err != nil {
		r.logger.Warn("could not fetch recorded events", zap.Error(err))
		return nil
	}

	steps, err := decodeEvents(raw)
	if err != nil {
		r.logger.Warn("could not decode recorded events", zap.Error(err))
		return nil
	}
	return steps
}

func (r *Recorder) closeSession(session browser.Session) {
	if err := session.Close(); err != nil {
		r.logger.Warn("error closing browser", zap.Error(err))
	}
}

// decodeEvents converts the drained buffer into steps, skipping entries
// that aren't objects
func decodeEvents(raw json.RawMessage) ([]macro.Step, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	steps := make([]macro.Step, 0, len(items))
	for _, item := range items {
		var event map[string]any
		if err := json.Unmarshal(item, &event); err != nil || event == nil {
			continue
		}
		steps = append(steps, convertEvent(event))
	}
	return steps, nil
}

// convertEvent keeps type, selector and value as step fields and everything
// else as metadata
func convertEvent(event map[string]any) macro.Step {
	step := macro.Step{
		Action:   "unknown",
		Metadata: make(map[string]any, len(event)),
	}
	for key, v := range event {
		switch key {
		case "type":
			if s := macro.StringValue(v); s != "" {
				step.Action = s
			}
		case "selector":
			step.Selector = macro.StringValue(v)
		case "value":
			step.Value = macro.StringValue(v)
		default:
			step.Metadata[key] = v
		}
	}
	return step
}
