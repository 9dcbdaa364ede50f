// Package usecase wires the recorder, player and repository into the
// operations exposed to users. It holds no state of its own.
package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

// Describer turns a macro into a plain-language summary
type Describer interface {
	Describe(ctx context.Context, m macro.Macro) (string, error)
}

// Service exposes the macro operations
type Service struct {
	recorder  macro.Recorder
	player    macro.Player
	repo      macro.Repository
	describer Describer
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithDescriber enables DescribeMacro
func WithDescriber(d Describer) Option {
	return func(s *Service) {
		s.describer = d
	}
}

// WithClock overrides the time source used to stamp new macros
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets a custom logger for the service
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates the service
func New(recorder macro.Recorder, player macro.Player, repo macro.Repository, opts ...Option) *Service {
	s := &Service{
		recorder: recorder,
		player:   player,
		repo:     repo,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRecording begins a recording session at url
func (s *Service) StartRecording(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: an address is required to start recording", macro.ErrInvalidURL)
	}
	return s.recorder.Start(ctx, url)
}

// StopRecording ends the active session and saves it under name. An empty
// name is rejected before the session is touched.
func (s *Service) StopRecording(ctx context.Context, name string) (macro.Macro, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return macro.Macro{}, fmt.Errorf("%w: a name is required to save the macro", macro.ErrInvalidName)
	}

	result, err := s.recorder.Stop(ctx)
	if err != nil {
		return macro.Macro{}, err
	}

	m := macro.Macro{
		Name:       name,
		StartURL:   result.StartURL,
		RecordedAt: s.now().UTC(),
		Steps:      result.Steps,
		Metadata:   result.Metadata,
	}
	if err := s.repo.Save(ctx, m); err != nil {
		return macro.Macro{}, err
	}

	s.logger.Info("macro saved", zap.String("name", m.Name), zap.Int("steps", len(m.Steps)))
	return m, nil
}

// IsRecording reports whether a recording session is active
func (s *Service) IsRecording() bool {
	return s.recorder.IsRecording()
}

// ListMacros returns every macro, most recently recorded first
func (s *Service) ListMacros(ctx context.Context) ([]macro.Macro, error) {
	macros, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(macros, func(i, j int) bool {
		return macros[i].RecordedAt.After(macros[j].RecordedAt)
	})
	return macros, nil
}

// GetMacro returns the macro stored under name
func (s *Service) GetMacro(ctx context.Context, name string) (macro.Macro, error) {
	return s.repo.Get(ctx, name)
}

// PlayMacro replays the macro stored under name
func (s *Service) PlayMacro(ctx context.Context, name string) error {
	m, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	return s.player.Play(ctx, m.Steps, m.StartURL)
}

// DeleteMacro removes the macro stored under name, if any
func (s *Service) DeleteMacro(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, name)
}

// DescribeMacro asks the configured Describer for a summary of the macro
// and stores it in the macro metadata
func (s *Service) DescribeMacro(ctx context.Context, name string) (string, error) {
	if s.describer == nil {
		return "", fmt.Errorf("no description provider configured")
	}

	m, err := s.repo.Get(ctx, name)
	if err != nil {
		return "", err
	}

	desc, err := s.describer.Describe(ctx, m)
	if err != nil {
		return "", fmt.Errorf("failed to describe macro %s: %w", name, err)
	}

	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata["description"] = desc
	if err := s.repo.Save(ctx, m); err != nil {
		return "", err
	}
	return desc, nil
}
