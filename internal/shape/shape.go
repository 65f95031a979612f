package shape

/*
LEARNING: CLOSED TAGGED UNION

Go has no sum types, so the union is an interface with an unexported method.
Only this package can add variants, which keeps the set of shapes closed:
every type switch over Shape can list all five cases.

Shapes are plain values. Nothing in the repo hands out pointers to them, so a
committed shape can't be mutated after it lands in a Store.
*/

// Kind is the wire discriminator carried in the "type" field.
type Kind string

const (
	KindRect     Kind = "rect"
	KindTriangle Kind = "triangle"
	KindCircle   Kind = "circle"
	KindSegment  Kind = "pencil" // freehand strokes travel as "pencil"
	KindArrow    Kind = "arrow"
)

// Shape is one committed drawing primitive in canvas pixel coordinates.
type Shape interface {
	Kind() Kind
	sealed()
}

// Rect is an axis-aligned rectangle. Width and Height may be negative when the
// drag went up or left of the press point.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Triangle struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
	X3 float64 `json:"x3"`
	Y3 float64 `json:"y3"`
}

type Circle struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Radius  float64 `json:"radius"`
}

// Segment is a single pencil micro-stroke.
type Segment struct {
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

type Arrow struct {
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

func (Rect) Kind() Kind     { return KindRect }
func (Triangle) Kind() Kind { return KindTriangle }
func (Circle) Kind() Kind   { return KindCircle }
func (Segment) Kind() Kind  { return KindSegment }
func (Arrow) Kind() Kind    { return KindArrow }

func (Rect) sealed()     {}
func (Triangle) sealed() {}
func (Circle) sealed()   {}
func (Segment) sealed()  {}
func (Arrow) sealed()    {}
