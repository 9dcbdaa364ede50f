// Package overlay marks clicks on replay frames.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/v0xg/webmacro/internal/player"
)

const ringRadius = 15

var (
	ringColor    = color.RGBA{66, 133, 244, 255}
	outlineColor = color.RGBA{0, 0, 0, 255}
	fillColor    = color.RGBA{255, 255, 255, 255}
)

// Apply renders frames to images. A click frame gets a ring and the
// cursor at the click point; the cursor then stays there until the
// next click.
func Apply(frames []player.Frame) []image.Image {
	result := make([]image.Image, len(frames))

	var cursor *image.Point
	for i, frame := range frames {
		if frame.Click != nil {
			cursor = frame.Click
		}
		if cursor == nil {
			result[i] = frame.Image
			continue
		}

		bounds := frame.Image.Bounds()
		img := image.NewRGBA(bounds)
		draw.Draw(img, bounds, frame.Image, bounds.Min, draw.Src)

		x, y := bounds.Min.X+cursor.X, bounds.Min.Y+cursor.Y
		if frame.Click != nil {
			drawRing(img, x, y)
		}
		drawCursor(img, x, y)
		result[i] = img
	}
	return result
}

// drawCursor draws an arrow with its tip at x,y
func drawCursor(img *image.RGBA, x, y int) {
	for dy := 0; dy < 18; dy++ {
		for dx := 0; dx < 13; dx++ {
			if insideCursor(dx, dy) {
				setPixel(img, x+dx, y+dy, fillColor)
			}
		}
	}

	outline := []image.Point{
		image.Pt(0, 0), image.Pt(0, 16), image.Pt(4, 12), image.Pt(7, 18),
		image.Pt(10, 17), image.Pt(7, 11), image.Pt(12, 11),
	}
	for i := range outline {
		p1 := outline[i]
		p2 := outline[(i+1)%len(outline)]
		drawLine(img, x+p1.X, y+p1.Y, x+p2.X, y+p2.Y, outlineColor)
	}
}

func insideCursor(dx, dy int) bool {
	if dx < 0 || dy < 0 || dy > 16 {
		return false
	}
	if dy <= 11 {
		return dx <= dy*12/16
	}
	return dx <= 4
}

// drawLine uses Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixel(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// drawRing draws a 2px circle centred on x,y
func drawRing(img *image.RGBA, x, y int) {
	for angle := 0.0; angle < 360; angle++ {
		rad := angle * math.Pi / 180
		px := x + int(math.Round(ringRadius*math.Cos(rad)))
		py := y + int(math.Round(ringRadius*math.Sin(rad)))
		setPixel(img, px, py, ringColor)
		setPixel(img, px+1, py, ringColor)
		setPixel(img, px, py+1, ringColor)
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
