package humanoid

// MouseEventType defines the type of mouse event.
// These strings align with the CDP Input.dispatchMouseEvent types.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
)

// MouseButton defines the mouse button.
type MouseButton string

const (
	ButtonNone MouseButton = "none"
	ButtonLeft MouseButton = "left"
)

// MouseEventData holds the data required to dispatch a mouse event.
type MouseEventData struct {
	Type MouseEventType
	X    float64
	Y    float64
	// Button that was pressed or released (relevant for Press/Release events).
	Button MouseButton
	// Number of consecutive clicks.
	ClickCount int
	// Buttons is a bitfield of the buttons currently held (1: Left).
	Buttons int64
}

// ElementGeometry is the content box of a DOM element.
type ElementGeometry struct {
	// Content box vertices [x0, y0, x1, y1, x2, y2, x3, y3].
	Vertices []float64
	Width    int64
	Height   int64
}

// Vector2D represents a point in viewport space.
type Vector2D struct {
	X, Y float64
}

// Center returns the centroid of the content box. ok is false when the box
// has no area.
func (g *ElementGeometry) Center() (center Vector2D, ok bool) {
	if g == nil || len(g.Vertices) < 8 || g.Width <= 0 || g.Height <= 0 {
		return Vector2D{}, false
	}
	v := g.Vertices
	return Vector2D{
		X: (v[0] + v[2] + v[4] + v[6]) / 4,
		Y: (v[1] + v[3] + v[5] + v[7]) / 4,
	}, true
}
