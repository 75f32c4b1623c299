package picker

import (
	"context"
	"strings"
	"testing"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/controller"
	tea "github.com/charmbracelet/bubbletea"
)

type nopService struct{}

func (nopService) Flash(context.Context, capture.Rect) error        { return nil }
func (nopService) SelectArea(context.Context) (capture.Rect, error) { return capture.Rect{}, nil }
func (nopService) Screenshot(context.Context, capture.ScreenRequest) (capture.Result, error) {
	return capture.Result{}, nil
}
func (nopService) ScreenshotWindow(context.Context, capture.WindowRequest) (capture.Result, error) {
	return capture.Result{}, nil
}
func (nopService) ScreenshotArea(context.Context, capture.AreaRequest) (capture.Result, error) {
	return capture.Result{}, nil
}
func (nopService) Availability(context.Context) capture.Availability { return capture.Ready }
func (nopService) Name() string                                      { return "nop" }
func (nopService) Close() error                                      { return nil }

type memoryStore struct {
	settings capture.Settings
	saves    int
}

func (s *memoryStore) CaptureSettings() capture.Settings { return s.settings }
func (s *memoryStore) SetCaptureSettings(v capture.Settings) error {
	s.settings = v
	s.saves++
	return nil
}

var (
	down  = tea.KeyMsg{Type: tea.KeyDown}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	space = tea.KeyMsg{Type: tea.KeySpace}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	plus  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}}
	minus = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}}
)

func press(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func newPicker(settings capture.Settings) (Model, *controller.Controller, *memoryStore) {
	store := &memoryStore{settings: settings}
	ctrl := controller.New(nopService{}, store)
	return New(ctrl), ctrl, store
}

func TestCursorStartsOnActiveMode(t *testing.T) {
	m, _, _ := newPicker(capture.Settings{Mode: capture.ModeWindow})
	if m.cursor != rowWindow {
		t.Fatalf("cursor = %d, want window row", m.cursor)
	}
}

func TestPickerDrivesController(t *testing.T) {
	m, ctrl, store := newPicker(capture.Settings{Mode: capture.ModeScreen, Options: capture.Options{WindowShadow: true}})

	m, _ = press(t, m, down, space)
	if ctrl.State().Mode != capture.ModeWindow {
		t.Fatalf("mode = %s, want window", ctrl.State().Mode)
	}

	// selection, pointer, shadow
	m, _ = press(t, m, down, down, down, space)
	if ctrl.State().Options.WindowShadow {
		t.Fatal("shadow should be toggled off")
	}

	m, _ = press(t, m, down, plus, plus, plus, minus)
	if got := ctrl.State().Options.DelaySeconds; got != 2 {
		t.Fatalf("delay = %d, want 2", got)
	}
	if store.settings.Options.DelaySeconds != 2 || store.settings.Mode != capture.ModeWindow {
		t.Fatalf("settings not persisted: %+v", store.settings)
	}

	m, cmd := press(t, m, enter)
	if !m.Confirmed() || cmd == nil {
		t.Fatal("enter should confirm and quit")
	}
}

func TestInsensitiveRowsAreSkipped(t *testing.T) {
	m, _, _ := newPicker(capture.Settings{Mode: capture.ModeScreen})

	// screen: the shadow row is skipped between pointer and delay
	m, _ = press(t, m, down, down, down)
	if m.cursor != rowPointer {
		t.Fatalf("cursor = %d, want pointer row", m.cursor)
	}
	m, _ = press(t, m, down)
	if m.cursor != rowDelay {
		t.Fatalf("cursor = %d, want delay row", m.cursor)
	}

	// selection: nothing below the mode rows can be reached
	m, _ = press(t, m, up, up, space)
	if m.cursor != rowSelection {
		t.Fatalf("cursor = %d, want selection row", m.cursor)
	}
	m, _ = press(t, m, down, down)
	if m.cursor != rowSelection {
		t.Fatalf("cursor moved to insensitive row %d", m.cursor)
	}
}

func TestDelayNeverNegative(t *testing.T) {
	m, ctrl, _ := newPicker(capture.Settings{Mode: capture.ModeWindow})
	m, _ = press(t, m, down, down, down, down, minus)
	if m.cursor != rowDelay {
		t.Fatalf("cursor = %d, want delay row", m.cursor)
	}
	if got := ctrl.State().Options.DelaySeconds; got != 0 {
		t.Fatalf("delay = %d, want 0", got)
	}
}

func TestQuitDoesNotConfirm(t *testing.T) {
	m, _, _ := newPicker(capture.Settings{})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Confirmed() || cmd == nil {
		t.Fatal("esc should quit without confirming")
	}
}

func TestViewMarksActiveMode(t *testing.T) {
	m, _, _ := newPicker(capture.Settings{Mode: capture.ModeSelection})
	view := m.View()
	if !strings.Contains(view, "(•) Select area to grab") {
		t.Fatalf("selection not marked active:\n%s", view)
	}
	if !strings.Contains(view, "( ) Grab the whole screen") {
		t.Fatalf("screen should not be marked:\n%s", view)
	}
}
