// Package display answers geometry questions about the X screen: its size
// and the focused window. Under Wayland these go through XWayland.
package display

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/logger"
)

// Window describes a top level window
type Window struct {
	ID    uint32       `json:"id"`
	Title string       `json:"title"`
	Class string       `json:"class"`
	PID   int          `json:"pid,omitempty"`
	Area  capture.Rect `json:"area"`
}

// Conn is a connection to the X server
type Conn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
}

// Connect opens a connection to the display named by $DISPLAY
func Connect() (*Conn, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	return &Conn{
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
	}, nil
}

// Close closes the connection
func (c *Conn) Close() {
	c.conn.Close()
}

// Bounds returns the root window geometry, which spans every monitor.
func (c *Conn) Bounds() capture.Rect {
	return capture.Rect{
		Width:  int(c.screen.WidthInPixels),
		Height: int(c.screen.HeightInPixels),
	}
}

// FocusedWindow returns the window holding the input focus. Its area is in
// root coordinates, clipped to the screen.
func (c *Conn) FocusedWindow() (*Window, error) {
	win, err := c.activeWindow()
	if err != nil {
		return nil, err
	}
	area, err := c.windowArea(win)
	if err != nil {
		return nil, err
	}

	w := &Window{ID: uint32(win), Area: clip(area, c.Bounds())}

	if title, err := c.property(win, "_NET_WM_NAME"); err == nil {
		w.Title = string(title)
	}
	if w.Title == "" {
		if title, err := c.property(win, "WM_NAME"); err == nil {
			w.Title = string(title)
		}
	}
	if class, err := c.property(win, "WM_CLASS"); err == nil {
		w.Class = parseClass(class)
	}
	if pid, err := c.property(win, "_NET_WM_PID"); err == nil && len(pid) >= 4 {
		w.PID = int(binary.LittleEndian.Uint32(pid))
	}

	logger.WithComponent("display").Debug().
		Uint32("id", w.ID).
		Str("class", w.Class).
		Str("area", w.Area.String()).
		Msg("Found focused window")
	return w, nil
}

// activeWindow prefers _NET_ACTIVE_WINDOW, which names the top level
// window, over the input focus, which may be a child.
func (c *Conn) activeWindow() (xproto.Window, error) {
	if v, err := c.property(c.screen.Root, "_NET_ACTIVE_WINDOW"); err == nil && len(v) >= 4 {
		if win := xproto.Window(binary.LittleEndian.Uint32(v)); win != 0 {
			return win, nil
		}
	}

	focus, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get input focus: %w", err)
	}
	if focus.Focus == xproto.WindowNone || focus.Focus == c.screen.Root {
		return 0, fmt.Errorf("no window has the focus")
	}
	return focus.Focus, nil
}

func (c *Conn) windowArea(win xproto.Window) (capture.Rect, error) {
	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	pos, err := xproto.TranslateCoordinates(c.conn, win, c.screen.Root, 0, 0).Reply()
	if err != nil {
		return capture.Rect{}, fmt.Errorf("failed to translate window position: %w", err)
	}
	return capture.Rect{X: int(pos.DstX), Y: int(pos.DstY), Width: int(geom.Width), Height: int(geom.Height)}, nil
}

// clip intersects r with bounds
func clip(r, bounds capture.Rect) capture.Rect {
	ir := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).
		Intersect(image.Rect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height))
	return capture.Rect{X: ir.Min.X, Y: ir.Min.Y, Width: ir.Dx(), Height: ir.Dy()}
}

func (c *Conn) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Atom == xproto.AtomNone {
		return 0, fmt.Errorf("atom %s not defined", name)
	}
	return reply.Atom, nil
}

// property reads a window property of any type
func (c *Conn) property(win xproto.Window, name string) ([]byte, error) {
	atom, err := c.atom(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(c.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}
	if reply.ValueLen == 0 {
		return nil, fmt.Errorf("property %s is empty", name)
	}
	return reply.Value, nil
}

// parseClass returns the class part of a WM_CLASS value, which holds the
// NUL separated instance and class names.
func parseClass(v []byte) string {
	parts := bytes.Split(bytes.TrimRight(v, "\x00"), []byte{0})
	return string(parts[len(parts)-1])
}

// Bounds connects, reads the screen geometry and disconnects
func Bounds() (capture.Rect, error) {
	c, err := Connect()
	if err != nil {
		return capture.Rect{}, err
	}
	defer c.Close()
	return c.Bounds(), nil
}

// CheckArea validates area against the screen bounds. When the bounds are
// unknown only emptiness is checked.
func CheckArea(area capture.Rect) error {
	if area.Empty() {
		return fmt.Errorf("area %s is empty", area)
	}
	b, err := Bounds()
	if err != nil {
		logger.WithComponent("display").Debug().Err(err).Msg("Screen bounds unknown, skipping area check")
		return nil
	}
	if !area.Within(b) {
		return fmt.Errorf("area %s lies outside the screen %s", area, b)
	}
	return nil
}
