// Package gifgen encodes replay screenshots as an animated GIF.
package gifgen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// Options configures GIF generation
type Options struct {
	FrameDelay time.Duration // how long each frame stays on screen
	MaxWidth   uint          // frames wider than this are scaled down
}

func (o Options) withDefaults() Options {
	if o.FrameDelay <= 0 {
		o.FrameDelay = 700 * time.Millisecond
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = 800
	}
	return o
}

// Generate writes frames to outputPath and returns the file size
func Generate(frames []image.Image, outputPath string, opts Options) (int64, error) {
	if len(frames) == 0 {
		return 0, fmt.Errorf("no frames to encode")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := Encode(f, frames, opts); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Encode writes frames as a looping GIF to w
func Encode(w io.Writer, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	opts = opts.withDefaults()

	// GIF delays are in 100ths of a second
	delay := int(opts.FrameDelay / (10 * time.Millisecond))
	if delay < 1 {
		delay = 1
	}

	bounds := frames[0].Bounds()
	outputWidth := uint(bounds.Dx())
	outputHeight := uint(bounds.Dy())
	if outputWidth > opts.MaxWidth {
		aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
		outputWidth = opts.MaxWidth
		outputHeight = uint(float64(outputWidth) * aspectRatio)
	}

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}

	palette := buildPalette(frames)

	for i, frame := range frames {
		scaled := frame
		if uint(frame.Bounds().Dx()) != outputWidth || uint(frame.Bounds().Dy()) != outputHeight {
			scaled = resize.Resize(outputWidth, outputHeight, frame, resize.Lanczos3)
		}

		paletted := image.NewPaletted(image.Rect(0, 0, int(outputWidth), int(outputHeight)), palette)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), scaled, scaled.Bounds().Min)

		g.Image[i] = paletted
		g.Delay[i] = delay
	}

	return gif.EncodeAll(w, g)
}

// buildPalette picks the 256 most frequent colors sampled across the
// first, middle and last frames, padding with grays
func buildPalette(frames []image.Image) color.Palette {
	counts := make(map[color.RGBA]int)

	samples := []image.Image{frames[0], frames[len(frames)/2], frames[len(frames)-1]}
	for _, img := range samples {
		sampleColors(img, counts)
	}

	type colorCount struct {
		c     color.RGBA
		count int
	}
	colors := make([]colorCount, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, colorCount{c, n})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].count != colors[j].count {
			return colors[i].count > colors[j].count
		}
		a, b := colors[i].c, colors[j].c
		return uint32(a.R)<<16|uint32(a.G)<<8|uint32(a.B) < uint32(b.R)<<16|uint32(b.G)<<8|uint32(b.B)
	})

	palette := make(color.Palette, 0, 256)
	for i := 0; i < len(colors) && len(palette) < 256; i++ {
		palette = append(palette, colors[i].c)
	}
	for len(palette) < 256 {
		gray := uint8(len(palette))
		palette = append(palette, color.RGBA{gray, gray, gray, 255})
	}
	return palette
}

func sampleColors(img image.Image, counts map[color.RGBA]int) {
	bounds := img.Bounds()
	step := 4
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}]++
		}
	}
}
