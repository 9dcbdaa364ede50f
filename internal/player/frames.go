package player

import (
	"bytes"
	"context"
	"image"
	_ "image/png"
	"sync"

	"github.com/v0xg/webmacro/internal/browser"
	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

// Frame is a screenshot taken during replay
type Frame struct {
	Image image.Image
	Click *image.Point // where a click landed, if this frame follows one
}

// FrameRecorder is an Observer that screenshots the page after every step,
// plus hold frames at the start and end
type FrameRecorder struct {
	holdFrames int
	logger     *zap.Logger

	mu     sync.Mutex
	frames []Frame
}

// NewFrameRecorder captures hold copies of the first and last frame
func NewFrameRecorder(holdFrames int, logger *zap.Logger) *FrameRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if holdFrames < 1 {
		holdFrames = 1
	}
	return &FrameRecorder{holdFrames: holdFrames, logger: logger}
}

func (f *FrameRecorder) Started(ctx context.Context, session browser.Session) {
	f.hold(ctx, session)
}

func (f *FrameRecorder) StepDone(ctx context.Context, _ int, step macro.Step, session browser.Session, el browser.Element) {
	img, ok := f.capture(ctx, session)
	if !ok {
		return
	}

	frame := Frame{Image: img}
	if step.Action == macro.ActionClick && el != nil {
		if x, y, err := el.Center(ctx); err == nil {
			frame.Click = &image.Point{X: x, Y: y}
		}
	}

	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
}

func (f *FrameRecorder) Finished(ctx context.Context, session browser.Session) {
	f.hold(ctx, session)
}

// Frames returns the captured frames in order
func (f *FrameRecorder) Frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.frames...)
}

func (f *FrameRecorder) hold(ctx context.Context, session browser.Session) {
	img, ok := f.capture(ctx, session)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < f.holdFrames; i++ {
		f.frames = append(f.frames, Frame{Image: img})
	}
}

func (f *FrameRecorder) capture(ctx context.Context, session browser.Session) (image.Image, bool) {
	data, err := session.Screenshot(ctx)
	if err != nil {
		f.logger.Debug("failed to capture frame", zap.Error(err))
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		f.logger.Debug("failed to decode frame", zap.Error(err))
		return nil, false
	}
	return img, true
}
