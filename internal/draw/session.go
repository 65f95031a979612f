package draw

import (
	"math"

	"omdraw/internal/geometry"
	"omdraw/internal/shape"
)

/*
LEARNING: INPUT AS STATE-MACHINE TRANSITIONS

Pointer and touch handlers never touch the store directly. An input adapter
translates device coordinates to canvas coordinates and calls Begin, Continue
and Commit. That keeps the session testable with nothing but a fake Canvas.

	Idle --Begin--> ActiveGesture --Commit--> Idle

Continue outside a gesture is ignored. Switching tools never changes state:
a gesture started under one tool continues against the same origin under
whatever tool is active when the next event arrives.
*/

// EraserRadius is how far, in pixels, the eraser reaches from the pointer.
const EraserRadius = 25.0

// Publisher receives every shape this session commits locally.
type Publisher interface {
	Publish(s shape.Shape)
}

// Session is one canvas view's drawing state. It is not safe for concurrent
// use; the client serializes every call through its event loop.
type Session struct {
	width  float64
	height float64

	canvas    Canvas
	publisher Publisher
	store     *shape.Store
	tool      Tool

	active bool
	origin geometry.Point
	last   geometry.Point
}

// NewSession creates an idle session with the pencil selected.
func NewSession(width, height float64, canvas Canvas) *Session {
	return &Session{
		width:  width,
		height: height,
		canvas: canvas,
		store:  shape.NewStore(),
		tool:   ToolPencil,
	}
}

// SetPublisher wires the outbound side. A nil publisher keeps commits local.
func (s *Session) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Session) SetTool(t Tool) {
	s.tool = t
}

func (s *Session) Tool() Tool {
	return s.tool
}

// Active reports whether a gesture is in progress.
func (s *Session) Active() bool {
	return s.active
}

// Shapes returns the committed shapes in draw order.
func (s *Session) Shapes() []shape.Shape {
	return s.store.Shapes()
}

// Resize changes the canvas dimensions and repaints.
func (s *Session) Resize(width, height float64) {
	s.width = width
	s.height = height
	s.Repaint()
}

// Begin starts a gesture at p. The eraser bites immediately.
func (s *Session) Begin(p geometry.Point) {
	s.active = true
	s.origin = p
	s.last = p

	if s.tool == ToolEraser {
		s.eraseAt(p)
		s.Repaint()
	}
}

// Continue advances the active gesture to p.
func (s *Session) Continue(p geometry.Point) {
	if !s.active {
		return
	}

	switch s.tool {
	case ToolPencil:
		seg := shape.Segment{StartX: s.last.X, StartY: s.last.Y, EndX: p.X, EndY: p.Y}
		s.last = p
		s.store.Append(seg)
		s.canvas.Stroke(seg)
		s.publish(seg)

	case ToolEraser:
		s.last = p
		s.eraseAt(p)
		s.Repaint()

	default:
		s.Repaint()
		if preview, ok := s.construct(p); ok {
			s.canvas.Stroke(preview)
		}
	}
}

// Commit ends the active gesture at p. Shape tools append the constructed
// shape, publish it and repaint.
func (s *Session) Commit(p geometry.Point) {
	if !s.active {
		return
	}
	s.active = false

	committed, ok := s.construct(p)
	if !ok {
		return
	}

	s.store.Append(committed)
	s.publish(committed)
	s.Repaint()
}

// ApplyRemote appends a shape that arrived from a peer and repaints.
func (s *Session) ApplyRemote(sh shape.Shape) {
	if sh == nil {
		return
	}
	s.store.Append(sh)
	s.Repaint()
}

// Seed replaces the store with a history snapshot and repaints.
func (s *Session) Seed(shapes []shape.Shape) {
	s.store.Reset(shapes)
	s.Repaint()
}

// Repaint clears the canvas and strokes every committed shape in order.
func (s *Session) Repaint() {
	s.canvas.Clear(s.width, s.height)
	s.store.Each(s.canvas.Stroke)
}

func (s *Session) eraseAt(p geometry.Point) int {
	return s.store.RemoveWhere(func(sh shape.Shape) bool {
		return geometry.HitTest(sh, p, EraserRadius)
	})
}

func (s *Session) publish(sh shape.Shape) {
	if s.publisher != nil {
		s.publisher.Publish(sh)
	}
}

// construct builds the shape the current tool implies for a drag from the
// gesture origin to p.
func (s *Session) construct(p geometry.Point) (shape.Shape, bool) {
	if !s.tool.constructs() {
		return nil, false
	}
	return Construct(s.tool, s.origin, p), true
}

// Construct applies the commit rules for the shape tools. It returns nil for
// tools that don't build a shape.
func Construct(t Tool, origin, p geometry.Point) shape.Shape {
	switch t {
	case ToolSquare:
		return shape.Rect{
			X:      origin.X,
			Y:      origin.Y,
			Width:  p.X - origin.X,
			Height: p.Y - origin.Y,
		}
	case ToolCircle:
		return shape.Circle{
			CenterX: (origin.X + p.X) / 2,
			CenterY: (origin.Y + p.Y) / 2,
			Radius:  math.Hypot(p.X-origin.X, p.Y-origin.Y) / 2,
		}
	case ToolTriangle:
		return shape.Triangle{
			X1: origin.X, Y1: p.Y,
			X2: p.X, Y2: p.Y,
			X3: origin.X + (p.X-origin.X)/2, Y3: origin.Y,
		}
	case ToolArrow:
		return shape.Arrow{StartX: origin.X, StartY: origin.Y, EndX: p.X, EndY: p.Y}
	}
	return nil
}
