// Package geometry holds the pure hit-testing and construction math used by
// the drawing session and the exporters. Nothing here keeps state.
package geometry

import (
	"math"

	"omdraw/internal/shape"
)

// triangleAreaTolerance is the slack, in square pixels, allowed between a
// triangle's area and the sum of the three sub-triangles around the query
// point. Erasure at triangle edges depends on this exact value.
const triangleAreaTolerance = 0.5

// DefaultArrowHeadLength is the length of each arrow barb in pixels.
const DefaultArrowHeadLength = 10.0

// Point is a canvas-local coordinate.
type Point struct {
	X float64
	Y float64
}

// Line is a straight stroke from A to B.
type Line struct {
	A Point
	B Point
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// DistancePointToSegment projects p onto ab and clamps the projection to the
// segment. A zero-length segment degrades to the distance from p to a.
func DistancePointToSegment(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	switch {
	case t < 0:
		return Distance(p, a)
	case t > 1:
		return Distance(p, b)
	}
	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// PointInRect reports whether p lies inside r or on its border. Negative
// widths and heights describe the same area as their mirrored positive form.
func PointInRect(r shape.Rect, p Point) bool {
	minX, maxX := ordered(r.X, r.X+r.Width)
	minY, maxY := ordered(r.Y, r.Y+r.Height)
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

func PointInCircle(c shape.Circle, p Point) bool {
	return Distance(p, Point{X: c.CenterX, Y: c.CenterY}) <= c.Radius
}

// PointInTriangle uses area decomposition: p is inside when the three
// sub-triangles it forms with the edges add up to the full area, within
// triangleAreaTolerance.
func PointInTriangle(t shape.Triangle, p Point) bool {
	a := Point{X: t.X1, Y: t.Y1}
	b := Point{X: t.X2, Y: t.Y2}
	c := Point{X: t.X3, Y: t.Y3}

	full := area(a, b, c)
	parts := area(p, b, c) + area(a, p, c) + area(a, b, p)
	return math.Abs(full-parts) < triangleAreaTolerance
}

// HitTest reports whether an eraser of the given radius centered at p touches
// s. Closed shapes use containment; strokes use distance to the shaft.
func HitTest(s shape.Shape, p Point, radius float64) bool {
	switch v := s.(type) {
	case shape.Rect:
		return PointInRect(v, p)
	case shape.Circle:
		return PointInCircle(v, p)
	case shape.Triangle:
		return PointInTriangle(v, p)
	case shape.Segment:
		return DistancePointToSegment(p, Point{X: v.StartX, Y: v.StartY}, Point{X: v.EndX, Y: v.EndY}) <= radius
	case shape.Arrow:
		return DistancePointToSegment(p, Point{X: v.StartX, Y: v.StartY}, Point{X: v.EndX, Y: v.EndY}) <= radius
	}
	return false
}

// ArrowHead returns the two barbs of an arrow pointing from start to end. Both
// are anchored at end and open 30 degrees either side of the shaft.
func ArrowHead(start, end Point, headLength float64) [2]Line {
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	barb := func(offset float64) Line {
		return Line{
			A: end,
			B: Point{
				X: end.X - headLength*math.Cos(angle+offset),
				Y: end.Y - headLength*math.Sin(angle+offset),
			},
		}
	}
	return [2]Line{barb(-math.Pi / 6), barb(math.Pi / 6)}
}

// Bounds returns the smallest rect covering every shape, with non-negative
// width and height. An empty input yields the zero Rect.
func Bounds(shapes []shape.Shape) shape.Rect {
	if len(shapes) == 0 {
		return shape.Rect{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}

	for _, s := range shapes {
		switch v := s.(type) {
		case shape.Rect:
			grow(v.X, v.Y)
			grow(v.X+v.Width, v.Y+v.Height)
		case shape.Triangle:
			grow(v.X1, v.Y1)
			grow(v.X2, v.Y2)
			grow(v.X3, v.Y3)
		case shape.Circle:
			grow(v.CenterX-v.Radius, v.CenterY-v.Radius)
			grow(v.CenterX+v.Radius, v.CenterY+v.Radius)
		case shape.Segment:
			grow(v.StartX, v.StartY)
			grow(v.EndX, v.EndY)
		case shape.Arrow:
			grow(v.StartX, v.StartY)
			grow(v.EndX, v.EndY)
			for _, l := range ArrowHead(Point{v.StartX, v.StartY}, Point{v.EndX, v.EndY}, DefaultArrowHeadLength) {
				grow(l.B.X, l.B.Y)
			}
		}
	}

	if math.IsInf(minX, 1) {
		return shape.Rect{}
	}
	return shape.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func area(a, b, c Point) float64 {
	return math.Abs((a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y)) / 2)
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Cover grows width and height so the page reaches the far edges of every
// shape. Shapes extending above or left of the origin do not move it.
func Cover(shapes []shape.Shape, width, height float64) (float64, float64) {
	if len(shapes) == 0 {
		return width, height
	}
	b := Bounds(shapes)
	return math.Max(width, b.X+b.Width), math.Max(height, b.Y+b.Height)
}
