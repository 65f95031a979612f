package shape

// Store is the ordered shape list of one drawing session. Index order is draw
// order; later shapes render on top.
//
// A Store has exactly one owner and no locking: the client runs every
// mutation on its event loop.
type Store struct {
	shapes []Shape
}

// NewStore returns a store seeded with a copy of initial.
func NewStore(initial ...Shape) *Store {
	s := &Store{}
	s.Reset(initial)
	return s
}

// Append adds s on top of everything already stored.
func (s *Store) Append(sh Shape) {
	s.shapes = append(s.shapes, sh)
}

// RemoveWhere drops every shape for which match returns true, keeping the
// relative order of the rest. It returns the number removed.
func (s *Store) RemoveWhere(match func(Shape) bool) int {
	kept := s.shapes[:0]
	removed := 0
	for _, sh := range s.shapes {
		if match(sh) {
			removed++
			continue
		}
		kept = append(kept, sh)
	}
	// clear the tail so removed shapes aren't pinned by the backing array
	for i := len(kept); i < len(s.shapes); i++ {
		s.shapes[i] = nil
	}
	s.shapes = kept
	return removed
}

// Shapes returns a copy of the current sequence.
func (s *Store) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// Each calls fn for every shape in draw order.
func (s *Store) Each(fn func(Shape)) {
	for _, sh := range s.shapes {
		fn(sh)
	}
}

func (s *Store) Len() int {
	return len(s.shapes)
}

// Reset replaces the contents with a copy of shapes.
func (s *Store) Reset(shapes []Shape) {
	s.shapes = make([]Shape, 0, len(shapes))
	for _, sh := range shapes {
		if sh != nil {
			s.shapes = append(s.shapes, sh)
		}
	}
}
