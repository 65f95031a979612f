// Package export renders a room's shapes to a single-page PDF using the same
// look as the live canvas: white strokes two units wide on black.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"omdraw/internal/draw"
	"omdraw/internal/geometry"
	"omdraw/internal/shape"
)

// WritePDF draws shapes onto a width x height page (one point per canvas
// pixel) and writes the document to w. The page grows to the right and down
// to cover shapes drawn past the canvas edge.
func WritePDF(w io.Writer, shapes []shape.Shape, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid page size %vx%v", width, height)
	}
	width, height = geometry.Cover(shapes, width, height)

	// Size is taken as given; "L" would swap the sides.
	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	br, bg, bb := hexRGB(draw.BackgroundColor)
	p.SetFillColor(br, bg, bb)
	p.Rect(0, 0, width, height, "F")

	sr, sg, sb := hexRGB(draw.StrokeColor)
	p.SetDrawColor(sr, sg, sb)
	p.SetLineWidth(draw.StrokeWidth)
	p.SetLineCapStyle("round")

	for _, s := range shapes {
		stroke(p, s)
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func stroke(p *gofpdf.Fpdf, s shape.Shape) {
	switch v := s.(type) {
	case shape.Rect:
		x, y := math.Min(v.X, v.X+v.Width), math.Min(v.Y, v.Y+v.Height)
		p.Rect(x, y, math.Abs(v.Width), math.Abs(v.Height), "D")
	case shape.Triangle:
		p.Polygon([]gofpdf.PointType{
			{X: v.X1, Y: v.Y1},
			{X: v.X2, Y: v.Y2},
			{X: v.X3, Y: v.Y3},
		}, "D")
	case shape.Circle:
		p.Circle(v.CenterX, v.CenterY, math.Abs(v.Radius), "D")
	case shape.Segment:
		p.Line(v.StartX, v.StartY, v.EndX, v.EndY)
	case shape.Arrow:
		p.Line(v.StartX, v.StartY, v.EndX, v.EndY)
		head := geometry.ArrowHead(
			geometry.Point{X: v.StartX, Y: v.StartY},
			geometry.Point{X: v.EndX, Y: v.EndY},
			geometry.DefaultArrowHeadLength,
		)
		for _, l := range head {
			p.Line(l.A.X, l.A.Y, l.B.X, l.B.Y)
		}
	}
}

// hexRGB parses "#rrggbb". Anything else is black.
func hexRGB(hex string) (int, int, int) {
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}
