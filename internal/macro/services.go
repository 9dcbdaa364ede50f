package macro

import "context"

// Repository persists macros keyed by name
type Repository interface {
	// Save inserts or replaces the macro with the same name
	Save(ctx context.Context, m Macro) error
	// Get returns ErrNotFound when no macro has the given name
	Get(ctx context.Context, name string) (Macro, error)
	// List returns every stored macro in no particular order
	List(ctx context.Context) ([]Macro, error)
	// Delete removes the macro; deleting an unknown name is not an error
	Delete(ctx context.Context, name string) error
}

// Recorder captures user interactions in a live browser session
type Recorder interface {
	Start(ctx context.Context, url string) error
	Stop(ctx context.Context) (Recording, error)
	IsRecording() bool
}

// Player replays steps in a fresh browser session
type Player interface {
	Play(ctx context.Context, steps []Step, startURL string) error
}
