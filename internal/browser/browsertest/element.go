package browsertest

import (
	"context"
	"sync"
)

// Element is a fake DOM element. Clicking a toggle flips Checked; typing
// appends to Value. A Covered element never becomes interactable, so
// WaitInteractable blocks until the caller's context expires.
type Element struct {
	mu sync.Mutex

	Toggle    bool // checkbox or radio
	IsChecked bool
	Value     string
	Options   []string // values a select accepts
	X, Y      int
	Covered   bool

	WaitErr   error
	ScrollErr error
	ClickErr  error
	ClearErr  error
	TypeErr   error

	clicks   int
	clears   int
	typed    []rune
	selected []string
}

func (e *Element) WaitInteractable(ctx context.Context) error {
	e.mu.Lock()
	covered, err := e.Covered, e.WaitErr
	e.mu.Unlock()
	if covered {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (e *Element) ScrollIntoView(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ScrollErr
}

func (e *Element) Click(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.clicks++
	if e.Toggle {
		e.IsChecked = !e.IsChecked
	}
	return nil
}

func (e *Element) SelectOption(_ context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, opt := range e.Options {
		if opt == value {
			e.Value = value
			e.selected = append(e.selected, value)
			return nil
		}
	}
	return ErrUnsupported
}

func (e *Element) Checked(_ context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.IsChecked, nil
}

func (e *Element) Clear(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClearErr != nil {
		return e.ClearErr
	}
	e.clears++
	e.Value = ""
	return nil
}

func (e *Element) TypeRune(_ context.Context, r rune) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.TypeErr != nil {
		return e.TypeErr
	}
	e.typed = append(e.typed, r)
	e.Value += string(r)
	return nil
}

func (e *Element) Center(_ context.Context) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.X, e.Y, nil
}

// Clicks reports how many clicks landed
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Clears reports how many times the element was cleared
func (e *Element) Clears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clears
}

// Typed returns the runes typed into the element, in order
func (e *Element) Typed() []rune {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]rune(nil), e.typed...)
}

// Selected returns the option values chosen on the element
func (e *Element) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.selected...)
}

// CurrentValue returns the element value
func (e *Element) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value
}
