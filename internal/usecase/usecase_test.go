package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/webmacro/internal/browser/browsertest"
	"github.com/v0xg/webmacro/internal/macro"
	"github.com/v0xg/webmacro/internal/player"
	"github.com/v0xg/webmacro/internal/recorder"
	"github.com/v0xg/webmacro/internal/storage"
)

type fakeRecorder struct {
	startedWith string
	recording   bool
	result      macro.Recording
}

func (r *fakeRecorder) Start(_ context.Context, url string) error {
	if r.recording {
		return macro.ErrAlreadyRecording
	}
	r.startedWith = url
	r.recording = true
	return nil
}

func (r *fakeRecorder) Stop(_ context.Context) (macro.Recording, error) {
	if !r.recording {
		return macro.Recording{}, macro.ErrNotRecording
	}
	r.recording = false
	return r.result, nil
}

func (r *fakeRecorder) IsRecording() bool { return r.recording }

type fakePlayer struct {
	played   bool
	steps    []macro.Step
	startURL string
	err      error
}

func (p *fakePlayer) Play(_ context.Context, steps []macro.Step, startURL string) error {
	p.played = true
	p.steps = steps
	p.startURL = startURL
	return p.err
}

type fakeDescriber struct {
	calls int
	text  string
	err   error
}

func (d *fakeDescriber) Describe(_ context.Context, m macro.Macro) (string, error) {
	d.calls++
	return d.text, d.err
}

func exampleRecording() macro.Recording {
	return macro.Recording{
		StartURL: "https://example.com",
		Steps:    []macro.Step{{Action: macro.ActionClick, Selector: "body"}},
		Metadata: map[string]any{"title": "Example"},
	}
}

func TestStartAndStopRecording(t *testing.T) {
	rec := &fakeRecorder{result: exampleRecording()}
	repo := storage.NewMemoryStore()
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	svc := New(rec, &fakePlayer{}, repo, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	require.NoError(t, svc.StartRecording(ctx, "  https://example.com "))
	assert.Equal(t, "https://example.com", rec.startedWith)
	assert.True(t, svc.IsRecording())

	m, err := svc.StopRecording(ctx, "macro_teste")
	require.NoError(t, err)
	assert.Equal(t, "macro_teste", m.Name)
	assert.Equal(t, time.UTC, m.RecordedAt.Location())
	assert.True(t, fixed.Equal(m.RecordedAt))

	stored, err := repo.Get(ctx, "macro_teste")
	require.NoError(t, err)
	assert.Equal(t, "Example", stored.Title())
}

func TestStopRecordingStateConflictPersistsNothing(t *testing.T) {
	repo := storage.NewMemoryStore()
	svc := New(&fakeRecorder{}, &fakePlayer{}, repo)

	_, err := svc.StopRecording(context.Background(), "demo")
	assert.ErrorIs(t, err, macro.ErrNotRecording)

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStartRecordingTwice(t *testing.T) {
	svc := New(&fakeRecorder{}, &fakePlayer{}, storage.NewMemoryStore())

	require.NoError(t, svc.StartRecording(context.Background(), "https://example.com"))
	err := svc.StartRecording(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, macro.ErrAlreadyRecording)
}

func TestInputValidation(t *testing.T) {
	rec := &fakeRecorder{result: exampleRecording()}
	repo := storage.NewMemoryStore()
	svc := New(rec, &fakePlayer{}, repo)
	ctx := context.Background()

	err := svc.StartRecording(ctx, "   ")
	assert.ErrorIs(t, err, macro.ErrInvalidURL)
	assert.False(t, rec.recording)

	require.NoError(t, svc.StartRecording(ctx, "https://example.com"))

	_, err = svc.StopRecording(ctx, " ")
	assert.ErrorIs(t, err, macro.ErrInvalidName)
	assert.True(t, rec.recording, "session stays active after a rejected name")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestListMacrosMostRecentFirst(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"b", "d", "a", "c"} {
		offsets := []int{2, 4, 1, 3}
		require.NoError(t, repo.Save(ctx, macro.Macro{
			Name:       name,
			RecordedAt: base.Add(time.Duration(offsets[i]) * time.Hour),
		}))
	}

	svc := New(&fakeRecorder{}, &fakePlayer{}, repo)
	macros, err := svc.ListMacros(ctx)
	require.NoError(t, err)

	var names []string
	for _, m := range macros {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, names)
}

func TestPlayMacro(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, macro.Macro{
		Name:       "macro",
		StartURL:   "https://example.com",
		RecordedAt: time.Now().UTC(),
		Steps:      []macro.Step{{Action: macro.ActionClick, Selector: "body"}},
	}))

	fp := &fakePlayer{}
	svc := New(&fakeRecorder{}, fp, repo)
	require.NoError(t, svc.PlayMacro(ctx, "macro"))

	assert.True(t, fp.played)
	assert.Equal(t, "https://example.com", fp.startURL)
	require.Len(t, fp.steps, 1)
}

func TestPlayMacroNotFoundNeverOpensSession(t *testing.T) {
	session := browsertest.NewSession()
	svc := New(&fakeRecorder{}, player.New(session.Factory()), storage.NewMemoryStore())

	err := svc.PlayMacro(context.Background(), "missing")
	assert.ErrorIs(t, err, macro.ErrNotFound)
	assert.Equal(t, 0, session.Launches())
}

func TestPlayMacroPropagatesReplayErrors(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, macro.Macro{Name: "macro", StartURL: "https://example.com"}))

	replayErr := &macro.ReplayError{Kind: macro.ErrTimeout, Action: "click", Selector: "#gone"}
	svc := New(&fakeRecorder{}, &fakePlayer{err: replayErr}, repo)

	err := svc.PlayMacro(ctx, "macro")
	assert.Same(t, replayErr, err)
}

func TestDeleteMacroIsIdempotent(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, macro.Macro{Name: "macro"}))

	svc := New(&fakeRecorder{}, &fakePlayer{}, repo)
	require.NoError(t, svc.DeleteMacro(ctx, "macro"))
	require.NoError(t, svc.DeleteMacro(ctx, "macro"))

	_, err := svc.GetMacro(ctx, "macro")
	assert.ErrorIs(t, err, macro.ErrNotFound)
}

func TestDescribeMacro(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, macro.Macro{Name: "login", StartURL: "https://example.com"}))

	describer := &fakeDescriber{text: "Logs in with the demo account."}
	svc := New(&fakeRecorder{}, &fakePlayer{}, repo, WithDescriber(describer))

	desc, err := svc.DescribeMacro(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, "Logs in with the demo account.", desc)

	stored, err := repo.Get(ctx, "login")
	require.NoError(t, err)
	assert.Equal(t, desc, stored.Description())

	_, err = svc.DescribeMacro(ctx, "missing")
	assert.ErrorIs(t, err, macro.ErrNotFound)
	assert.Equal(t, 1, describer.calls)
}

func TestDescribeMacroErrors(t *testing.T) {
	repo := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, macro.Macro{Name: "login"}))

	_, err := New(&fakeRecorder{}, &fakePlayer{}, repo).DescribeMacro(ctx, "login")
	assert.Error(t, err)

	cause := errors.New("rate limited")
	svc := New(&fakeRecorder{}, &fakePlayer{}, repo, WithDescriber(&fakeDescriber{err: cause}))
	_, err = svc.DescribeMacro(ctx, "login")
	assert.ErrorIs(t, err, cause)

	stored, err := repo.Get(ctx, "login")
	require.NoError(t, err)
	assert.Empty(t, stored.Description())
}

// scriptedPage plays back a fixed set of captured events on the first drain
type scriptedPage struct {
	mu     sync.Mutex
	events []map[string]any
}

func (p *scriptedPage) eval(js string) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.Contains(js, "window.__webmacroEvents.slice()") {
		return json.RawMessage("null"), nil
	}
	data, err := json.Marshal(append([]map[string]any{}, p.events...))
	p.events = nil
	return data, err
}

func TestRecordAndSaveScenario(t *testing.T) {
	page := &scriptedPage{events: []map[string]any{
		{"type": "click", "selector": "#submit", "value": nil, "timestamp": 1, "button": 0},
		{"type": "input", "selector": "#name", "value": "Ana", "timestamp": 2},
	}}
	session := browsertest.NewSession()
	session.EvalFunc = page.eval

	rec := recorder.New(session.Factory(), recorder.WithPollInterval(5*time.Millisecond))
	repo := storage.NewMemoryStore()
	svc := New(rec, &fakePlayer{}, repo)
	ctx := context.Background()

	require.NoError(t, svc.StartRecording(ctx, "https://example.com"))
	_, err := svc.StopRecording(ctx, "demo")
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	m := all[0]
	assert.Equal(t, "demo", m.Name)
	assert.Equal(t, "https://example.com", m.StartURL)
	require.Len(t, m.Steps, 2)
	assert.Equal(t, macro.Step{Action: "click", Selector: "#submit", Metadata: m.Steps[0].Metadata}, m.Steps[0])
	assert.Equal(t, "input", m.Steps[1].Action)
	assert.Equal(t, "#name", m.Steps[1].Selector)
	assert.Equal(t, "Ana", m.Steps[1].Value)
	assert.Equal(t, 1, session.Closes())
}
