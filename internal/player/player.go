// Package player replays recorded steps in a fresh browser session.
package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/v0xg/webmacro/internal/browser"
	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

const (
	defaultWaitTimeout = 10 * time.Second
	defaultTypingDelay = 20 * time.Millisecond
	defaultSettleDelay = 100 * time.Millisecond
)

// Observer is notified as a replay progresses. Calls happen on the
// replaying goroutine.
type Observer interface {
	// Started fires once the start URL has loaded
	Started(ctx context.Context, session browser.Session)
	// StepDone fires after each executed step with the element it acted on
	StepDone(ctx context.Context, index int, step macro.Step, session browser.Session, el browser.Element)
	// Finished fires before the session is closed, whatever the outcome
	Finished(ctx context.Context, session browser.Session)
}

// Player replays macros. Every Play call owns its own browser session.
type Player struct {
	newSession  browser.Factory
	waitTimeout time.Duration
	typingDelay time.Duration
	settleDelay time.Duration
	observers   []Observer
	logger      *zap.Logger
}

// Option configures a Player
type Option func(*Player)

// WithWaitTimeout bounds how long a selector may take to appear
func WithWaitTimeout(d time.Duration) Option {
	return func(p *Player) {
		p.waitTimeout = d
	}
}

// WithTypingDelay sets the pause between typed characters
func WithTypingDelay(d time.Duration) Option {
	return func(p *Player) {
		p.typingDelay = d
	}
}

// WithSettleDelay sets the pause after each step
func WithSettleDelay(d time.Duration) Option {
	return func(p *Player) {
		p.settleDelay = d
	}
}

// WithObserver registers o for replay progress
func WithObserver(o Observer) Option {
	return func(p *Player) {
		p.observers = append(p.observers, o)
	}
}

// WithLogger sets a custom logger for the player
func WithLogger(logger *zap.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// New creates a player that opens sessions with factory
func New(factory browser.Factory, opts ...Option) *Player {
	p := &Player{
		newSession:  factory,
		waitTimeout: defaultWaitTimeout,
		typingDelay: defaultTypingDelay,
		settleDelay: defaultSettleDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play navigates to startURL and runs steps in order. The session is always
// closed before returning; a failure to close is only logged.
func (p *Player) Play(ctx context.Context, steps []macro.Step, startURL string) error {
	session, err := p.newSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to open browser: %w", macro.ErrDriver, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn("error closing browser after playback", zap.Error(err))
		}
	}()

	p.logger.Info("opening browser to play macro", zap.String("url", startURL), zap.Int("steps", len(steps)))
	if err := session.Navigate(ctx, startURL); err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", macro.ErrDriver, startURL, err)
	}

	for _, o := range p.observers {
		o.Started(ctx, session)
	}
	defer func() {
		for _, o := range p.observers {
			o.Finished(ctx, session)
		}
	}()

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if step.Selector == "" {
			p.logger.Debug("skipping step without selector", zap.Int("index", i), zap.String("action", step.Action))
			continue
		}

		var el browser.Element
		switch step.Action {
		case macro.ActionClick:
			p.logger.Info("executing step", zap.Int("index", i), zap.String("action", step.Action), zap.String("selector", step.Selector))
			el, err = p.click(ctx, session, step)
		case macro.ActionInput, macro.ActionChange:
			p.logger.Info("executing step", zap.Int("index", i), zap.String("action", step.Action), zap.String("selector", step.Selector))
			el, err = p.input(ctx, session, step)
		default:
			p.logger.Warn("unknown step action ignored", zap.Int("index", i), zap.String("action", step.Action))
			continue
		}
		if err != nil {
			return err
		}

		for _, o := range p.observers {
			o.StepDone(ctx, i, step, session, el)
		}
	}

	return nil
}

func (p *Player) click(ctx context.Context, session browser.Session, step macro.Step) (browser.Element, error) {
	el, err := p.locate(ctx, session, step, true)
	if err != nil {
		return nil, err
	}
	p.scrollIntoView(ctx, el)

	if err := p.act(ctx, step, el.Click); err != nil {
		return nil, err
	}
	return el, sleep(ctx, p.settleDelay)
}

func (p *Player) input(ctx context.Context, session browser.Session, step macro.Step) (browser.Element, error) {
	el, err := p.locate(ctx, session, step, false)
	if err != nil {
		return nil, err
	}
	p.scrollIntoView(ctx, el)

	if err := p.apply(ctx, el, step); err != nil {
		return nil, err
	}
	return el, sleep(ctx, p.settleDelay)
}

// apply sets the element to the captured state according to what kind of
// control it was recorded on
func (p *Player) apply(ctx context.Context, el browser.Element, step macro.Step) error {
	target := step.Target()

	if target.Tag == "select" {
		err := p.act(ctx, step, func(ctx context.Context) error {
			return el.SelectOption(ctx, step.Value)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("unable to select option",
				zap.String("value", step.Value), zap.String("selector", step.Selector), zap.Error(err))
		}
		return nil
	}

	if target.IsToggle() {
		var current bool
		err := p.act(ctx, step, func(ctx context.Context) (err error) {
			current, err = el.Checked(ctx)
			return err
		})
		if err != nil {
			return err
		}
		if current != target.Checked {
			return p.act(ctx, step, el.Click)
		}
		return nil
	}

	if err := p.act(ctx, step, el.Clear); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Debug("element does not support clear, typing anyway",
			zap.String("selector", step.Selector), zap.Error(err))
	}

	for _, r := range step.Value {
		err := p.act(ctx, step, func(ctx context.Context) error {
			return el.TypeRune(ctx, r)
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, p.typingDelay); err != nil {
			return err
		}
	}
	return nil
}

// locate waits, up to the wait bound, for the selector to exist and
// optionally to become interactable (visible, enabled, uncovered)
func (p *Player) locate(ctx context.Context, session browser.Session, step macro.Step, interactable bool) (browser.Element, error) {
	var el browser.Element
	err := p.act(ctx, step, func(ctx context.Context) (err error) {
		el, err = session.Element(ctx, step.Selector)
		if err == nil && interactable {
			err = el.WaitInteractable(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return el, nil
}

// act runs op bounded by the wait timeout. Running out of time is a
// timeout failure; the caller giving up is returned as the context error.
func (p *Player) act(ctx context.Context, step macro.Step, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, p.waitTimeout)
	defer cancel()

	err := op(opCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return &macro.ReplayError{Kind: macro.ErrTimeout, Action: step.Action, Selector: step.Selector, Err: err}
	}
	return driverError(step, err)
}

func (p *Player) scrollIntoView(ctx context.Context, el browser.Element) {
	opCtx, cancel := context.WithTimeout(ctx, p.waitTimeout)
	defer cancel()
	if err := el.ScrollIntoView(opCtx); err != nil {
		p.logger.Debug("could not scroll element into view", zap.Error(err))
	}
}

func driverError(step macro.Step, err error) error {
	return &macro.ReplayError{Kind: macro.ErrDriver, Action: step.Action, Selector: step.Selector, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
