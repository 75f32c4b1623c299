package commands

import (
	"testing"

	"github.com/bryanchriswhite/kasbah/internal/capture"
)

func TestParseRect(t *testing.T) {
	got, err := parseRect([]string{"10", "20", "300", "200"})
	if err != nil {
		t.Fatalf("parseRect: %v", err)
	}
	want := capture.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	if got != want {
		t.Fatalf("parseRect = %s, want %s", got, want)
	}

	if _, err := parseRect([]string{"10", "x", "300", "200"}); err == nil {
		t.Fatal("non-numeric argument accepted")
	}
}

func TestOptionState(t *testing.T) {
	if got := optionState(true, "true"); got != "true" {
		t.Fatalf("optionState(sensitive) = %q", got)
	}
	if got := optionState(false, "2s"); got != "2s (not used in this mode)" {
		t.Fatalf("optionState(insensitive) = %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"capture", "flash", "select", "status", "mode", "config", "history", "serve", "pick"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
