package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestToolArgs(t *testing.T) {
	got := windowArgs(WindowRequest{IncludeFrame: true, IncludePointer: true, Path: "/tmp/k.png"})
	want := []string{"--window", "--include-border", "--include-pointer", "--file", "/tmp/k.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windowArgs = %v, want %v", got, want)
	}

	got = windowArgs(WindowRequest{Path: "/tmp/k.png"})
	want = []string{"--window", "--remove-border", "--file", "/tmp/k.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("windowArgs = %v, want %v", got, want)
	}

	got = screenArgs(ScreenRequest{Path: "/tmp/k.png"})
	want = []string{"--file", "/tmp/k.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("screenArgs = %v, want %v", got, want)
	}

	got = areaArgs(AreaRequest{Area: Rect{Width: 5, Height: 5}, Path: "/tmp/k.png"})
	want = []string{"--area", "--file", "/tmp/k.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("areaArgs = %v, want %v", got, want)
	}
}

// writeScript installs an executable shell script standing in for
// gnome-screenshot.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-screenshot")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestToolWritesFile(t *testing.T) {
	script := writeScript(t, `while [ $# -gt 0 ]; do
  if [ "$1" = "--file" ]; then shift; printf 'png' > "$1"; fi
  shift
done
`)
	target := filepath.Join(t.TempDir(), "kasbah.png")

	res, err := NewTool(script).Screenshot(context.Background(), ScreenRequest{Path: target})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Path != target || res.Backend != "gnome-screenshot" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestToolExitFailure(t *testing.T) {
	script := writeScript(t, "echo 'no display' >&2\nexit 3\n")

	_, err := NewTool(script).Screenshot(context.Background(), ScreenRequest{Path: filepath.Join(t.TempDir(), "k.png")})
	if !errors.Is(err, ErrUnknownFailure) {
		t.Fatalf("expected ErrUnknownFailure, got %v", err)
	}
}

func TestToolMissingOutput(t *testing.T) {
	script := writeScript(t, "exit 0\n")

	_, err := NewTool(script).ScreenshotArea(context.Background(), AreaRequest{Path: filepath.Join(t.TempDir(), "k.png")})
	if !errors.Is(err, ErrUnknownFailure) {
		t.Fatalf("expected ErrUnknownFailure, got %v", err)
	}
}

func TestToolIgnoresPreviousCapture(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	target := filepath.Join(t.TempDir(), "kasbah.png")
	if err := os.WriteFile(target, []byte("old capture"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewTool(script).ScreenshotArea(context.Background(), AreaRequest{Path: target})
	if !errors.Is(err, ErrUnknownFailure) {
		t.Fatalf("expected ErrUnknownFailure, got %v", err)
	}
	if res.Success {
		t.Fatalf("cancelled selection reported success: %+v", res)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("previous capture should have been cleared")
	}
}

func TestToolLaunchFailure(t *testing.T) {
	tool := NewTool(filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := tool.Screenshot(context.Background(), ScreenRequest{Path: filepath.Join(t.TempDir(), "k.png")})
	if !errors.Is(err, ErrLaunchFailure) {
		t.Fatalf("expected ErrLaunchFailure, got %v", err)
	}
	if tool.Availability(context.Background()) != Unavailable {
		t.Fatal("missing binary should be unavailable")
	}
}

func TestToolSelectAreaIsInteractiveOnly(t *testing.T) {
	if _, err := NewTool("").SelectArea(context.Background()); !errors.Is(err, ErrInteractiveOnly) {
		t.Fatalf("expected ErrInteractiveOnly, got %v", err)
	}
}
