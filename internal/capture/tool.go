package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bryanchriswhite/kasbah/internal/logger"
)

// DefaultToolPath is the fallback screenshot tool
const DefaultToolPath = "gnome-screenshot"

// Tool captures by running gnome-screenshot as a subprocess. It is used
// when the shell service is not on the bus.
type Tool struct {
	path string
}

// NewTool creates a tool backend. An empty path means DefaultToolPath.
func NewTool(path string) *Tool {
	if path == "" {
		path = DefaultToolPath
	}
	return &Tool{path: path}
}

// Name returns the backend name
func (t *Tool) Name() string {
	return "gnome-screenshot"
}

// Close is a no-op; the tool holds no connection
func (t *Tool) Close() error {
	return nil
}

// Availability reports Ready when the tool binary can be found.
func (t *Tool) Availability(ctx context.Context) Availability {
	if _, err := exec.LookPath(t.path); err != nil {
		return Unavailable
	}
	return Ready
}

// Flash is not supported by the tool; gnome-screenshot flashes on its own.
func (t *Tool) Flash(ctx context.Context, area Rect) error {
	return nil
}

// SelectArea cannot be separated from the capture with the tool.
func (t *Tool) SelectArea(ctx context.Context) (Rect, error) {
	return Rect{}, ErrInteractiveOnly
}

// Screenshot captures the whole screen
func (t *Tool) Screenshot(ctx context.Context, req ScreenRequest) (Result, error) {
	return t.run(ctx, "Screenshot", screenArgs(req), req.Path)
}

// ScreenshotWindow captures the focused window
func (t *Tool) ScreenshotWindow(ctx context.Context, req WindowRequest) (Result, error) {
	return t.run(ctx, "ScreenshotWindow", windowArgs(req), req.Path)
}

// ScreenshotArea captures an area. The tool always selects interactively,
// so a non-empty req.Area is ignored.
func (t *Tool) ScreenshotArea(ctx context.Context, req AreaRequest) (Result, error) {
	if !req.Area.Empty() {
		logger.WithComponent("tool").Debug().
			Str("area", req.Area.String()).
			Msg("Tool selects interactively; ignoring preselected area")
	}
	return t.run(ctx, "ScreenshotArea", areaArgs(req), req.Path)
}

func screenArgs(req ScreenRequest) []string {
	args := []string{}
	if req.IncludePointer {
		args = append(args, "--include-pointer")
	}
	return append(args, "--file", req.Path)
}

func windowArgs(req WindowRequest) []string {
	args := []string{"--window"}
	if req.IncludeFrame {
		args = append(args, "--include-border")
	} else {
		args = append(args, "--remove-border")
	}
	if req.IncludePointer {
		args = append(args, "--include-pointer")
	}
	return append(args, "--file", req.Path)
}

func areaArgs(req AreaRequest) []string {
	return []string{"--area", "--file", req.Path}
}

// run executes the tool and checks that it produced the target file.
func (t *Tool) run(ctx context.Context, op string, args []string, path string) (Result, error) {
	log := logger.WithComponent("tool")

	cmd := exec.CommandContext(ctx, t.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// A file left over from an earlier capture must not pass for this one.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, wrapErr(op, ErrUnknownFailure, fmt.Errorf("failed to clear previous capture: %w", err))
	}

	log.Debug().Str("cmd", t.path+" "+strings.Join(args, " ")).Msg("Starting screenshot tool")

	// Start failures (missing binary, permissions) are launch failures;
	// anything after that is the tool's own failure.
	if err := cmd.Start(); err != nil {
		return Result{}, wrapErr(op, ErrLaunchFailure, err)
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return Result{}, wrapErr(op, ErrUnknownFailure, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return Result{}, wrapErr(op, ErrUnknownFailure, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// gnome-screenshot exits 0 when the user cancels a selection
			return Result{Backend: t.Name()}, wrapErr(op, ErrUnknownFailure, errors.New("no image was written"))
		}
		return Result{}, wrapErr(op, ErrUnknownFailure, err)
	}
	if info.Size() == 0 {
		return Result{Backend: t.Name()}, wrapErr(op, ErrUnknownFailure, errors.New("image file is empty"))
	}

	return Result{Success: true, Path: path, Backend: t.Name()}, nil
}
