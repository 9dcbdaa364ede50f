package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Launcher starts rod-controlled Chromium sessions
type Launcher struct {
	opts Options
}

// NewLauncher creates a launcher with defaults filled in
func NewLauncher(opts Options) *Launcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}
	return &Launcher{opts: opts}
}

// Factory adapts the launcher to the Factory signature
func (l *Launcher) Factory() Factory {
	return func(ctx context.Context) (Session, error) {
		return l.Launch(ctx)
	}
}

// Launch starts a browser and opens a blank page
func (l *Launcher) Launch(ctx context.Context) (Session, error) {
	path := l.opts.Bin
	if path == "" {
		path, _ = launcher.LookPath()
	}

	lc := launcher.New().Context(ctx).Bin(path).Headless(l.opts.Headless)
	if l.opts.ProfileDir != "" {
		lc = lc.UserDataDir(l.opts.ProfileDir)
	}

	u, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             l.opts.Width,
		Height:            l.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &rodSession{browser: b, page: page, timeout: l.opts.Timeout}, nil
}

// rodSession wraps the Rod browser and page
type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}

	// Don't hang on persistent connections (WebSockets, polling, etc.)
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	return nil
}

func (s *rodSession) Info(ctx context.Context) (Info, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return Info{}, err
	}
	return Info{URL: info.URL, Title: info.Title}, nil
}

func (s *rodSession) Eval(ctx context.Context, js string) (json.RawMessage, error) {
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(res.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode eval result: %w", err)
	}
	return data, nil
}

func (s *rodSession) Element(ctx context.Context, selector string) (Element, error) {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el, page: s.page}, nil
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close cleans up browser resources
func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el   *rod.Element
	page *rod.Page
}

func (e *rodElement) WaitInteractable(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.WaitVisible(); err != nil {
		return err
	}
	if err := el.WaitEnabled(); err != nil {
		return err
	}
	// Retries while another element covers the target's center
	_, err := el.WaitInteractable()
	return err
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// selectByValue sets a <select> to the option whose value matches exactly
const selectByValue = `function (value) {
	const option = Array.from(this.options || []).find((o) => o.value === value);
	if (!option) {
		return false;
	}
	this.value = value;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

func (e *rodElement) SelectOption(ctx context.Context, value string) error {
	res, err := e.el.Context(ctx).Eval(selectByValue, value)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("no option with value %q", value)
	}
	return nil
}

func (e *rodElement) Checked(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *rodElement) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input("")
}

// TypeRune sends a key press for keys on the keyboard map and inserts
// anything else as text
func (e *rodElement) TypeRune(ctx context.Context, r rune) error {
	if err := e.el.Context(ctx).Focus(); err != nil {
		return err
	}
	page := e.page.Context(ctx)
	if r <= unicode.MaxASCII && unicode.IsPrint(r) {
		return page.Keyboard.Type(input.Key(r))
	}
	return page.InsertText(string(r))
}

func (e *rodElement) Center(ctx context.Context) (int, int, error) {
	box, err := e.el.Context(ctx).Shape()
	if err != nil {
		return 0, 0, err
	}
	if len(box.Quads) == 0 {
		return 0, 0, fmt.Errorf("element has no shape")
	}

	quad := box.Quads[0]
	x := int((quad[0] + quad[2] + quad[4] + quad[6]) / 4)
	y := int((quad[1] + quad[3] + quad[5] + quad[7]) / 4)
	return x, y, nil
}
