package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"omdraw/internal/shape"
)

const eraserRadius = 25.0

func TestDistancePointToSegment(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 10, Y: 0}

	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"above middle", Point{X: 5, Y: 3}, 3},
		{"on segment", Point{X: 7, Y: 0}, 0},
		{"before start clamps to a", Point{X: -3, Y: 4}, 5},
		{"past end clamps to b", Point{X: 13, Y: 4}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistancePointToSegment(tt.p, a, b), 1e-9)
		})
	}
}

func TestDistancePointToSegment_ZeroLength(t *testing.T) {
	a := Point{X: 2, Y: 2}
	assert.InDelta(t, 5.0, DistancePointToSegment(Point{X: 5, Y: 6}, a, a), 1e-9)
}

func TestHitTest_InsideClosedShapes(t *testing.T) {
	rect := shape.Rect{X: 10, Y: 20, Width: 30, Height: 40}
	circle := shape.Circle{CenterX: 50, CenterY: 50, Radius: 10}

	for x := 11.0; x < 40; x += 3.5 {
		for y := 21.0; y < 60; y += 4.5 {
			assert.True(t, HitTest(rect, Point{X: x, Y: y}, eraserRadius), "rect (%v,%v)", x, y)
		}
	}

	for angle := 0.0; angle < 2*math.Pi; angle += math.Pi / 8 {
		for r := 0.0; r < 10; r += 2.5 {
			p := Point{X: 50 + r*math.Cos(angle), Y: 50 + r*math.Sin(angle)}
			assert.True(t, HitTest(circle, p, eraserRadius), "circle %+v", p)
		}
	}

	assert.False(t, HitTest(rect, Point{X: 5, Y: 25}, eraserRadius))
	assert.False(t, HitTest(circle, Point{X: 61, Y: 50}, eraserRadius))
}

func TestHitTest_NegativeExtentRect(t *testing.T) {
	rect := shape.Rect{X: 40, Y: 60, Width: -30, Height: -40}

	assert.True(t, HitTest(rect, Point{X: 20, Y: 30}, eraserRadius))
	assert.False(t, HitTest(rect, Point{X: 45, Y: 30}, eraserRadius))
}

func TestHitTest_StrokesOutsideRadius(t *testing.T) {
	strokes := []shape.Shape{
		shape.Segment{StartX: 0, StartY: 0, EndX: 100, EndY: 0},
		shape.Arrow{StartX: 0, StartY: 0, EndX: 100, EndY: 0},
	}
	const eps = 1e-6

	for _, s := range strokes {
		t.Run(string(s.Kind()), func(t *testing.T) {
			assert.False(t, HitTest(s, Point{X: 50, Y: eraserRadius + eps}, eraserRadius))
			assert.False(t, HitTest(s, Point{X: -eraserRadius - eps, Y: 0}, eraserRadius))
			assert.False(t, HitTest(s, Point{X: 100 + 20, Y: 20}, eraserRadius))

			assert.True(t, HitTest(s, Point{X: 50, Y: eraserRadius}, eraserRadius))
			assert.True(t, HitTest(s, Point{X: 40, Y: -10}, eraserRadius))
		})
	}
}

func TestHitTest_Triangle(t *testing.T) {
	tri := shape.Triangle{X1: 0, Y1: 40, X2: 60, Y2: 40, X3: 30, Y3: 0}

	centroid := Point{X: (tri.X1 + tri.X2 + tri.X3) / 3, Y: (tri.Y1 + tri.Y2 + tri.Y3) / 3}
	assert.True(t, HitTest(tri, centroid, eraserRadius))

	for _, v := range []Point{{0, 40}, {60, 40}, {30, 0}} {
		assert.True(t, HitTest(tri, v, eraserRadius), "vertex %+v", v)
	}

	assert.False(t, HitTest(tri, Point{X: 500, Y: 500}, eraserRadius))
	assert.False(t, HitTest(tri, Point{X: -100, Y: 20}, eraserRadius))
}

func TestPointInTriangle_ToleranceBoundary(t *testing.T) {
	tri := shape.Triangle{X1: 0, Y1: 0, X2: 100, Y2: 0, X3: 0, Y3: 100}

	// Just outside the hypotenuse; the excess area stays under the tolerance.
	assert.True(t, PointInTriangle(tri, Point{X: 50.002, Y: 50.002}))
	// Far enough out that the excess area exceeds it.
	assert.False(t, PointInTriangle(tri, Point{X: 51, Y: 51}))
}

func TestArrowHead(t *testing.T) {
	start := Point{X: 0, Y: 0}
	end := Point{X: 100, Y: 0}

	head := ArrowHead(start, end, DefaultArrowHeadLength)

	for _, barb := range head {
		assert.Equal(t, end, barb.A)
		assert.InDelta(t, DefaultArrowHeadLength, Distance(barb.A, barb.B), 1e-9)
		assert.InDelta(t, 100-10*math.Cos(math.Pi/6), barb.B.X, 1e-9)
	}
	assert.InDelta(t, 10*math.Sin(math.Pi/6), head[0].B.Y, 1e-9)
	assert.InDelta(t, -10*math.Sin(math.Pi/6), head[1].B.Y, 1e-9)
}

func TestBounds(t *testing.T) {
	assert.Equal(t, shape.Rect{}, Bounds(nil))

	got := Bounds([]shape.Shape{
		shape.Rect{X: 10, Y: 10, Width: -5, Height: 20},
		shape.Circle{CenterX: 100, CenterY: 100, Radius: 10},
		shape.Segment{StartX: 0, StartY: 50, EndX: 20, EndY: 60},
	})

	assert.Equal(t, shape.Rect{X: 0, Y: 10, Width: 110, Height: 100}, got)
}

func TestCover(t *testing.T) {
	w, h := Cover(nil, 640, 480)
	assert.Equal(t, 640.0, w)
	assert.Equal(t, 480.0, h)

	w, h = Cover([]shape.Shape{shape.Rect{X: 10, Y: 10, Width: 20, Height: 20}}, 640, 480)
	assert.Equal(t, 640.0, w)
	assert.Equal(t, 480.0, h)

	w, h = Cover([]shape.Shape{
		shape.Rect{X: 700, Y: 10, Width: 200, Height: 20},
		shape.Circle{CenterX: -50, CenterY: 500, Radius: 10},
	}, 640, 480)
	assert.Equal(t, 900.0, w)
	assert.Equal(t, 510.0, h)
}
