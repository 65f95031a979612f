package shape

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownShape is returned when a payload carries a "type" that isn't one
// of the five variants.
var ErrUnknownShape = errors.New("unknown shape type")

// Envelope is the {"shape": ...} object that travels, JSON-encoded, inside a
// chat message's "message" string.
type Envelope struct {
	Shape Shape `json:"shape"`
}

// MarshalShape writes the variant fields plus the "type" discriminator.
func MarshalShape(s Shape) ([]byte, error) {
	switch v := s.(type) {
	case Rect:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Rect
		}{KindRect, v})
	case Triangle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Triangle
		}{KindTriangle, v})
	case Circle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Circle
		}{KindCircle, v})
	case Segment:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Segment
		}{KindSegment, v})
	case Arrow:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Arrow
		}{KindArrow, v})
	case nil:
		return nil, fmt.Errorf("failed to marshal shape: %w", ErrUnknownShape)
	default:
		return nil, fmt.Errorf("failed to marshal shape %T: %w", s, ErrUnknownShape)
	}
}

// UnmarshalShape reads a single shape object, dispatching on "type".
func UnmarshalShape(data []byte) (Shape, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read shape type: %w", err)
	}

	switch head.Type {
	case KindRect:
		var v Rect
		if err := unmarshalVariant(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindTriangle:
		var v Triangle
		if err := unmarshalVariant(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindCircle:
		var v Circle
		if err := unmarshalVariant(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindSegment:
		var v Segment
		if err := unmarshalVariant(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindArrow:
		var v Arrow
		if err := unmarshalVariant(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, head.Type)
	}
}

func unmarshalVariant(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode shape fields: %w", err)
	}
	return nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	raw, err := MarshalShape(e.Shape)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Shape json.RawMessage `json:"shape"`
	}{raw})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire struct {
		Shape json.RawMessage `json:"shape"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	if len(wire.Shape) == 0 || string(wire.Shape) == "null" {
		return fmt.Errorf("envelope has no shape: %w", ErrUnknownShape)
	}

	s, err := UnmarshalShape(wire.Shape)
	if err != nil {
		return err
	}
	e.Shape = s
	return nil
}

// EncodeMessage produces the string placed in a chat frame's "message" field.
func EncodeMessage(s Shape) (string, error) {
	data, err := json.Marshal(Envelope{Shape: s})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeMessage is the inverse of EncodeMessage.
func DecodeMessage(message string) (Shape, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(message), &env); err != nil {
		return nil, err
	}
	return env.Shape, nil
}
