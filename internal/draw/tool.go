package draw

import "fmt"

// Tool selects what a gesture produces.
type Tool string

const (
	ToolPencil   Tool = "pencil"
	ToolSquare   Tool = "square"
	ToolTriangle Tool = "triangle"
	ToolCircle   Tool = "circle"
	ToolArrow    Tool = "arrow"
	ToolEraser   Tool = "eraser"
	ToolHand     Tool = "hand"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolPencil, ToolSquare, ToolTriangle, ToolCircle, ToolArrow, ToolEraser, ToolHand}

// ParseTool maps a tool name to a Tool.
func ParseTool(name string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool: %q", name)
}

// constructs reports whether committing a gesture with t builds a new shape.
func (t Tool) constructs() bool {
	switch t {
	case ToolSquare, ToolTriangle, ToolCircle, ToolArrow:
		return true
	}
	return false
}
