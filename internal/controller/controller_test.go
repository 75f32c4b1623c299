package controller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/save"
)

// mockService is a capture.Service whose screenshot calls block until
// release is closed (when set).
type mockService struct {
	mu      sync.Mutex
	calls   []string
	screen  []capture.ScreenRequest
	window  []capture.WindowRequest
	area    []capture.AreaRequest
	rect    capture.Rect
	selErr  error
	err     error
	fail    bool
	release chan struct{}
}

func (m *mockService) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockService) reply(req string) (capture.Result, error) {
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return capture.Result{}, m.err
	}
	if m.fail {
		return capture.Result{Success: false, Backend: "mock"}, nil
	}
	return capture.Result{Success: true, Path: req, Backend: "mock"}, nil
}

func (m *mockService) Name() string { return "mock" }
func (m *mockService) Close() error { return nil }
func (m *mockService) Availability(context.Context) capture.Availability {
	return capture.Ready
}
func (m *mockService) Flash(context.Context, capture.Rect) error {
	m.record("flash")
	return nil
}
func (m *mockService) SelectArea(context.Context) (capture.Rect, error) {
	m.record("select")
	return m.rect, m.selErr
}
func (m *mockService) Screenshot(_ context.Context, req capture.ScreenRequest) (capture.Result, error) {
	m.record("screen")
	m.mu.Lock()
	m.screen = append(m.screen, req)
	m.mu.Unlock()
	return m.reply(req.Path)
}
func (m *mockService) ScreenshotWindow(_ context.Context, req capture.WindowRequest) (capture.Result, error) {
	m.record("window")
	m.mu.Lock()
	m.window = append(m.window, req)
	m.mu.Unlock()
	return m.reply(req.Path)
}
func (m *mockService) ScreenshotArea(_ context.Context, req capture.AreaRequest) (capture.Result, error) {
	m.record("area")
	m.mu.Lock()
	m.area = append(m.area, req)
	m.mu.Unlock()
	return m.reply(req.Path)
}

var _ capture.Service = (*mockService)(nil)

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

func newTestController(t *testing.T, svc capture.Service, store SettingsStore, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithTargetPath(filepath.Join(t.TempDir(), "kasbah.png"))}, opts...)
	return New(svc, store, opts...)
}

func TestSetModeDerivesSensitivity(t *testing.T) {
	store := &memoryStore{}
	c := newTestController(t, &mockService{}, store)

	tests := []struct {
		mode capture.Mode
		want capture.Sensitivity
	}{
		{capture.ModeWindow, capture.Sensitivity{Pointer: true, Shadow: true, Delay: true}},
		{capture.ModeSelection, capture.Sensitivity{}},
		{capture.ModeScreen, capture.Sensitivity{Pointer: true, Delay: true}},
		{capture.ModeSelection, capture.Sensitivity{}},
		{capture.ModeWindow, capture.Sensitivity{Pointer: true, Shadow: true, Delay: true}},
	}

	for i, tt := range tests {
		if err := c.SetMode(tt.mode); err != nil {
			t.Fatalf("step %d: SetMode(%v): %v", i, tt.mode, err)
		}
		st := c.State()
		if st.Mode != tt.mode {
			t.Fatalf("step %d: mode = %v, want %v", i, st.Mode, tt.mode)
		}
		if st.Sensitivity != tt.want {
			t.Fatalf("step %d: sensitivity = %+v, want %+v", i, st.Sensitivity, tt.want)
		}
		if store.settings.Mode != tt.mode {
			t.Fatalf("step %d: store not updated, has %v", i, store.settings.Mode)
		}
	}
	if store.saves != len(tests) {
		t.Fatalf("expected %d saves, got %d", len(tests), store.saves)
	}

	if err := c.SetMode(capture.Mode(9)); err == nil {
		t.Fatal("invalid mode should be rejected")
	}
	if c.State().Mode != capture.ModeWindow {
		t.Fatal("rejected mode must not change state")
	}
}

func TestNewLoadsSettingsFromStore(t *testing.T) {
	store := &memoryStore{settings: capture.Settings{
		Mode:    capture.ModeSelection,
		Options: capture.Options{DelaySeconds: 2},
		Flash:   true,
	}}
	c := newTestController(t, &mockService{}, store)

	st := c.State()
	if st.Mode != capture.ModeSelection || st.Options.DelaySeconds != 2 || !st.Flash {
		t.Fatalf("settings not loaded: %+v", st)
	}
}

func TestDefaultTargetIsCacheFile(t *testing.T) {
	c := New(&mockService{}, nil)
	if got := c.TargetPath(); got != save.CachePath() {
		t.Fatalf("TargetPath = %q, want %q", got, save.CachePath())
	}
}

func TestSetOptionsRejectsNegativeDelay(t *testing.T) {
	c := newTestController(t, &mockService{}, nil)
	if err := c.SetOptions(capture.Options{DelaySeconds: -1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartCaptureRejectsConcurrentRequest(t *testing.T) {
	svc := &mockService{release: make(chan struct{})}
	c := newTestController(t, svc, nil)

	first, err := c.StartCapture(context.Background())
	if err != nil {
		t.Fatalf("first StartCapture: %v", err)
	}
	if !c.State().Pending {
		t.Fatal("controller should be pending")
	}

	if _, err := c.StartCapture(context.Background()); !errors.Is(err, ErrCaptureInProgress) {
		t.Fatalf("second StartCapture error = %v, want ErrCaptureInProgress", err)
	}

	close(svc.release)
	out := <-first
	if !out.OK() {
		t.Fatalf("capture failed: %+v", out)
	}
	if calls := svc.Calls(); len(calls) != 1 {
		t.Fatalf("service should see exactly one call, got %v", calls)
	}
	if c.State().Pending {
		t.Fatal("pending should be cleared after completion")
	}

	// The controller is usable again.
	if _, err := c.Capture(context.Background()); err != nil {
		t.Fatalf("capture after completion: %v", err)
	}
}

func TestWindowCaptureParameters(t *testing.T) {
	svc := &mockService{}
	store := &memoryStore{settings: capture.Settings{
		Mode:    capture.ModeWindow,
		Options: capture.Options{IncludePointer: true, WindowShadow: true},
		Flash:   true,
	}}
	c := newTestController(t, svc, store)

	out, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if out.Path != c.TargetPath() || out.Backend != "mock" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	want := capture.WindowRequest{IncludeFrame: true, IncludePointer: true, Flash: true, Path: c.TargetPath()}
	if len(svc.window) != 1 || svc.window[0] != want {
		t.Fatalf("window requests = %+v, want %+v", svc.window, want)
	}
}

func TestScreenCaptureDropsShadowAndWaitsForDelay(t *testing.T) {
	svc := &mockService{}
	store := &memoryStore{settings: capture.Settings{
		Mode:    capture.ModeScreen,
		Options: capture.Options{IncludePointer: true, WindowShadow: true, DelaySeconds: 3},
	}}
	var waited []time.Duration
	c := newTestController(t, svc, store, WithDelayFunc(func(ctx context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}))

	out, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(waited) != 1 || waited[0] != 3*time.Second {
		t.Fatalf("delay calls = %v, want [3s]", waited)
	}
	if out.Options.WindowShadow {
		t.Fatal("shadow must not apply to screen captures")
	}
	if len(svc.screen) != 1 || !svc.screen[0].IncludePointer {
		t.Fatalf("screen requests = %+v", svc.screen)
	}
}

func TestSelectionCaptureSelectsThenCapturesArea(t *testing.T) {
	rect := capture.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	svc := &mockService{rect: rect}
	store := &memoryStore{settings: capture.Settings{
		Mode:    capture.ModeSelection,
		Options: capture.Options{IncludePointer: true, DelaySeconds: 5},
	}}
	delayed := false
	c := newTestController(t, svc, store, WithDelayFunc(func(context.Context, time.Duration) error {
		delayed = true
		return nil
	}))

	out, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if calls := svc.Calls(); len(calls) != 2 || calls[0] != "select" || calls[1] != "area" {
		t.Fatalf("calls = %v, want [select area]", calls)
	}
	if svc.area[0].Area != rect {
		t.Fatalf("area = %v, want %v", svc.area[0].Area, rect)
	}
	if delayed {
		t.Fatal("selection captures are never delayed")
	}
	if out.Options != (capture.Options{}) {
		t.Fatalf("selection outcome should carry no options, got %+v", out.Options)
	}
}

func TestSelectionWithInteractiveOnlyBackend(t *testing.T) {
	svc := &mockService{selErr: capture.ErrInteractiveOnly}
	c := newTestController(t, svc, &memoryStore{settings: capture.Settings{Mode: capture.ModeSelection}})

	if _, err := c.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !svc.area[0].Area.Empty() {
		t.Fatalf("expected an empty preselected area, got %v", svc.area[0].Area)
	}
}

func TestSelectionCancelledSkipsCapture(t *testing.T) {
	svc := &mockService{selErr: errors.New("cancelled")}
	c := newTestController(t, svc, &memoryStore{settings: capture.Settings{Mode: capture.ModeSelection}})

	if _, err := c.Capture(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls := svc.Calls(); len(calls) != 1 {
		t.Fatalf("no area capture should follow a failed selection, got %v", calls)
	}
}

func TestFailureClassification(t *testing.T) {
	unavailable := &mockService{err: errors.Join(capture.ErrServiceUnavailable, errors.New("ServiceUnknown"))}
	c := newTestController(t, unavailable, nil)
	out, err := c.Capture(context.Background())
	if !errors.Is(err, capture.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if out.Error == "" || out.OK() {
		t.Fatalf("outcome should record the failure: %+v", out)
	}

	rejected := &mockService{fail: true}
	c = newTestController(t, rejected, nil)
	_, err2 := c.Capture(context.Background())
	if !errors.Is(err2, capture.ErrUnknownFailure) {
		t.Fatalf("expected ErrUnknownFailure, got %v", err2)
	}

	if capture.UserMessage(err) == capture.UserMessage(err2) {
		t.Fatal("unavailable and unknown failures need distinct messages")
	}
	if c.State().Pending {
		t.Fatal("controller should be usable after a failure")
	}
}

func TestCancelDuringDelay(t *testing.T) {
	svc := &mockService{}
	store := &memoryStore{settings: capture.Settings{Options: capture.Options{DelaySeconds: 60}}}
	c := newTestController(t, svc, store)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.StartCapture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case out := <-ch:
		if !errors.Is(out.Err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", out.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled capture did not finish")
	}
	if len(svc.Calls()) != 0 {
		t.Fatalf("service must not be called after cancellation, got %v", svc.Calls())
	}
}

func TestEventsPublished(t *testing.T) {
	c := newTestController(t, &mockService{}, nil)
	events := c.Subscribe()
	defer c.Unsubscribe(events)

	if err := c.SetMode(capture.ModeWindow); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}

	var kinds []EventKind
	for len(kinds) < 3 {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", kinds)
		}
	}
	want := []EventKind{EventState, EventState, EventFinished}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
}

func TestWaitReturnsWhenIdle(t *testing.T) {
	svc := &mockService{release: make(chan struct{})}
	c := newTestController(t, svc, nil)
	c.Wait()

	if _, err := c.StartCapture(context.Background()); err != nil {
		t.Fatal(err)
	}
	waited := make(chan struct{})
	go func() {
		c.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a capture was pending")
	case <-time.After(20 * time.Millisecond):
	}
	close(svc.release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after completion")
	}
}
