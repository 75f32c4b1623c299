package capture

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects which part of the screen a capture covers.
// Exactly one mode is active at a time.
type Mode int

const (
	ModeScreen Mode = iota
	ModeWindow
	ModeSelection
)

// Modes lists every capture mode in display order.
var Modes = []Mode{ModeScreen, ModeWindow, ModeSelection}

func (m Mode) String() string {
	switch m {
	case ModeScreen:
		return "screen"
	case ModeWindow:
		return "window"
	case ModeSelection:
		return "selection"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the three capture modes.
func (m Mode) Valid() bool {
	return m >= ModeScreen && m <= ModeSelection
}

// ParseMode parses a mode name. "area" and "region" are accepted as
// aliases for selection, "desktop" and "full" for screen.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "screen", "desktop", "full":
		return ModeScreen, nil
	case "window":
		return ModeWindow, nil
	case "selection", "area", "region":
		return ModeSelection, nil
	default:
		return ModeScreen, fmt.Errorf("unknown capture mode %q (use screen, window or selection)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid capture mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options are the auxiliary capture switches.
type Options struct {
	IncludePointer bool `json:"include_pointer"`
	WindowShadow   bool `json:"window_shadow"`
	DelaySeconds   int  `json:"delay_seconds"`
}

// Validate rejects option values no backend can honour.
func (o Options) Validate() error {
	if o.DelaySeconds < 0 {
		return fmt.Errorf("delay must be zero or positive, got %d", o.DelaySeconds)
	}
	return nil
}

// Settings is the persisted capture configuration.
type Settings struct {
	Mode    Mode    `json:"mode"`
	Options Options `json:"options"`
	Flash   bool    `json:"flash"`
}

// Rect is a screen rectangle in root window coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within reports whether r lies entirely inside b.
func (r Rect) Within(b Rect) bool {
	return r.X >= b.X && r.Y >= b.Y &&
		r.X+r.Width <= b.X+b.Width &&
		r.Y+r.Height <= b.Y+b.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Result is the reply of a screenshot call.
type Result struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Backend string `json:"backend,omitempty"`
}

// Availability describes whether a capture provider can be reached.
type Availability int

const (
	Ready Availability = iota
	Unavailable
	UnknownError
)

func (a Availability) String() string {
	switch a {
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown-error"
	}
}

// ScreenRequest asks for a full screen capture.
type ScreenRequest struct {
	IncludePointer bool
	Flash          bool
	Path           string
}

// WindowRequest asks for a capture of the focused window.
type WindowRequest struct {
	IncludeFrame   bool
	IncludePointer bool
	Flash          bool
	Path           string
}

// AreaRequest asks for a capture of a rectangle. A zero Area lets
// interactive-only backends prompt for the rectangle themselves.
type AreaRequest struct {
	Area  Rect
	Flash bool
	Path  string
}

// Service is a screenshot provider. Every call blocks until the provider
// replies or ctx is done.
type Service interface {
	// Flash briefly highlights an area of the screen
	Flash(ctx context.Context, area Rect) error

	// SelectArea lets the user drag out a rectangle and returns it
	SelectArea(ctx context.Context) (Rect, error)

	// Screenshot captures every monitor into req.Path
	Screenshot(ctx context.Context, req ScreenRequest) (Result, error)

	// ScreenshotWindow captures the focused window into req.Path
	ScreenshotWindow(ctx context.Context, req WindowRequest) (Result, error)

	// ScreenshotArea captures req.Area into req.Path
	ScreenshotArea(ctx context.Context, req AreaRequest) (Result, error)

	// Availability probes whether the provider can be reached
	Availability(ctx context.Context) Availability

	// Name returns a short backend name for logs and history
	Name() string

	// Close releases the provider's connection
	Close() error
}
