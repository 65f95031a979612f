package draw

import "omdraw/internal/shape"

// Canvas is the rendering surface a Session paints on. Implementations stroke
// in the session's foreground style; arrow heads are the renderer's job.
type Canvas interface {
	// Clear wipes the surface and fills it with the opaque background.
	Clear(width, height float64)
	// Stroke outlines a single shape on top of whatever is already drawn.
	Stroke(s shape.Shape)
}

// Style values every renderer in the repo applies.
const (
	BackgroundColor = "#000000"
	StrokeColor     = "#ffffff"
	StrokeWidth     = 2.0
)

// Headless is a Canvas that keeps the current frame in memory. drawctl uses
// it in place of a screen.
type Headless struct {
	Width   float64
	Height  float64
	Frame   []shape.Shape
	Clears  int
	Strokes int
}

func (h *Headless) Clear(width, height float64) {
	h.Width = width
	h.Height = height
	h.Frame = h.Frame[:0]
	h.Clears++
}

func (h *Headless) Stroke(s shape.Shape) {
	h.Frame = append(h.Frame, s)
	h.Strokes++
}
