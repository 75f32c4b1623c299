package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/godbus/dbus/v5"
)

// GNOME Shell screenshot D-Bus constants
const (
	shellService = "org.gnome.Shell.Screenshot"
	shellPath    = "/org/gnome/Shell/Screenshot"
	shellIface   = "org.gnome.Shell.Screenshot"
)

// Bus errors meaning nobody is serving the screenshot interface.
var unavailableErrorNames = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown":   true,
	"org.freedesktop.DBus.Error.NameHasNoOwner":   true,
	"org.freedesktop.DBus.Error.UnknownObject":    true,
	"org.freedesktop.DBus.Error.UnknownMethod":    true,
	"org.freedesktop.DBus.Error.UnknownInterface": true,
}

// Shell captures through the org.gnome.Shell.Screenshot session service.
type Shell struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewShell connects to the session bus.
func NewShell() (*Shell, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, wrapErr("connect", ErrServiceUnavailable, fmt.Errorf("failed to connect to session bus: %w", err))
	}
	return NewShellFromConn(conn), nil
}

// NewShellFromConn uses an existing bus connection.
func NewShellFromConn(conn *dbus.Conn) *Shell {
	return &Shell{
		conn: conn,
		obj:  conn.Object(shellService, shellPath),
	}
}

// Name returns the backend name
func (s *Shell) Name() string {
	return "gnome-shell"
}

// Close closes the bus connection
func (s *Shell) Close() error {
	return s.conn.Close()
}

// Availability asks the bus daemon whether the screenshot name has an owner.
func (s *Shell) Availability(ctx context.Context) Availability {
	var hasOwner bool
	err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, shellService).Store(&hasOwner)
	if err != nil {
		logger.WithComponent("shell").Warn().Err(err).Msg("Failed to query screenshot service owner")
		return UnknownError
	}
	if !hasOwner {
		return Unavailable
	}
	return Ready
}

// Flash highlights area
func (s *Shell) Flash(ctx context.Context, area Rect) error {
	call := s.obj.CallWithContext(ctx, shellIface+".FlashArea", 0,
		int32(area.X), int32(area.Y), int32(area.Width), int32(area.Height))
	if call.Err != nil {
		return classifyCallError("FlashArea", call.Err)
	}
	return nil
}

// SelectArea runs the shell's rubber band selection
func (s *Shell) SelectArea(ctx context.Context) (Rect, error) {
	var x, y, w, h int32
	if err := s.obj.CallWithContext(ctx, shellIface+".SelectArea", 0).Store(&x, &y, &w, &h); err != nil {
		return Rect{}, classifyCallError("SelectArea", err)
	}
	return Rect{X: int(x), Y: int(y), Width: int(w), Height: int(h)}, nil
}

// Screenshot captures the whole screen
func (s *Shell) Screenshot(ctx context.Context, req ScreenRequest) (Result, error) {
	return s.screenshot(ctx, "Screenshot", req.IncludePointer, req.Flash, req.Path)
}

// ScreenshotWindow captures the focused window
func (s *Shell) ScreenshotWindow(ctx context.Context, req WindowRequest) (Result, error) {
	return s.screenshot(ctx, "ScreenshotWindow", req.IncludeFrame, req.IncludePointer, req.Flash, req.Path)
}

// ScreenshotArea captures a rectangle
func (s *Shell) ScreenshotArea(ctx context.Context, req AreaRequest) (Result, error) {
	if req.Area.Empty() {
		return Result{}, wrapErr("ScreenshotArea", ErrUnknownFailure, fmt.Errorf("empty area %s", req.Area))
	}
	a := req.Area
	return s.screenshot(ctx, "ScreenshotArea",
		int32(a.X), int32(a.Y), int32(a.Width), int32(a.Height), req.Flash, req.Path)
}

// screenshot performs one of the (...s) -> (bs) screenshot calls.
func (s *Shell) screenshot(ctx context.Context, method string, args ...interface{}) (Result, error) {
	log := logger.WithComponent("shell")

	var success bool
	var filename string
	if err := s.obj.CallWithContext(ctx, shellIface+"."+method, 0, args...).Store(&success, &filename); err != nil {
		return Result{}, classifyCallError(method, err)
	}

	log.Debug().
		Str("method", method).
		Bool("success", success).
		Str("filename", filename).
		Msg("Screenshot reply")

	if !success {
		return Result{Success: false, Path: filename, Backend: s.Name()},
			wrapErr(method, ErrUnknownFailure, errors.New("service reported failure"))
	}
	return Result{Success: true, Path: filename, Backend: s.Name()}, nil
}

// classifyCallError separates a missing service from other call failures.
func classifyCallError(op string, err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && unavailableErrorNames[dbusErr.Name] {
		return wrapErr(op, ErrServiceUnavailable, err)
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && unavailableErrorNames[dbusErrPtr.Name] {
		return wrapErr(op, ErrServiceUnavailable, err)
	}
	return wrapErr(op, ErrUnknownFailure, err)
}
