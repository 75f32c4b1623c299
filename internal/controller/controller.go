// Package controller owns the capture mode state machine and runs one
// asynchronous capture at a time against a capture.Service.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/bryanchriswhite/kasbah/internal/save"
)

// ErrCaptureInProgress is returned by StartCapture while a capture is pending.
var ErrCaptureInProgress = errors.New("a capture is already in progress")

// SettingsStore persists the capture settings across runs.
type SettingsStore interface {
	CaptureSettings() capture.Settings
	SetCaptureSettings(capture.Settings) error
}

// Outcome is the result of one capture attempt.
type Outcome struct {
	Mode    capture.Mode    `json:"mode"`
	Options capture.Options `json:"options"`
	Path    string          `json:"path,omitempty"`
	Backend string          `json:"backend,omitempty"`
	Err     error           `json:"-"`
	Error   string          `json:"error,omitempty"`
	At      time.Time       `json:"at"`
}

// OK reports whether the capture produced a file.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Path != ""
}

// State is a snapshot of the controller for presentation layers.
type State struct {
	Mode        capture.Mode        `json:"mode"`
	Options     capture.Options     `json:"options"`
	Flash       bool                `json:"flash"`
	Sensitivity capture.Sensitivity `json:"sensitivity"`
	Pending     bool                `json:"pending"`
	Last        *Outcome            `json:"last,omitempty"`
}

// DelayFunc waits d before a capture, returning early with ctx's error.
type DelayFunc func(ctx context.Context, d time.Duration) error

// Option configures a Controller.
type Option func(*Controller)

// WithTargetPath sets where captures are written. The default is the
// cache file that save moves from.
func WithTargetPath(path string) Option {
	return func(c *Controller) { c.targetPath = path }
}

// WithDelayFunc replaces the timer used for delayed captures.
func WithDelayFunc(fn DelayFunc) Option {
	return func(c *Controller) { c.delay = fn }
}

// Controller translates mode and options into one capture request and the
// asynchronous reply back into an Outcome.
type Controller struct {
	service    capture.Service
	store      SettingsStore
	targetPath string
	delay      DelayFunc

	mu       sync.Mutex
	settings capture.Settings
	pending  bool
	last     *Outcome
	idle     chan struct{}

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}
}

// New creates a controller, loading its initial settings from store.
func New(service capture.Service, store SettingsStore, opts ...Option) *Controller {
	c := &Controller{
		service:     service,
		store:       store,
		delay:       sleep,
		idle:        make(chan struct{}),
		subscribers: make(map[chan Event]struct{}),
	}
	close(c.idle)

	for _, opt := range opts {
		opt(c)
	}
	if c.targetPath == "" {
		c.targetPath = save.CachePath()
	}

	if store != nil {
		c.settings = store.CaptureSettings()
	}
	if !c.settings.Mode.Valid() {
		c.settings.Mode = capture.ModeScreen
	}
	if c.settings.Options.DelaySeconds < 0 {
		c.settings.Options.DelaySeconds = 0
	}
	return c
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TargetPath returns where captures are written
func (c *Controller) TargetPath() string {
	return c.targetPath
}

// Availability probes the capture service
func (c *Controller) Availability(ctx context.Context) capture.Availability {
	return c.service.Availability(ctx)
}

// State returns a snapshot of the controller
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	st := State{
		Mode:        c.settings.Mode,
		Options:     c.settings.Options,
		Flash:       c.settings.Flash,
		Sensitivity: capture.SensitivityFor(c.settings.Mode),
		Pending:     c.pending,
	}
	if c.last != nil {
		last := *c.last
		st.Last = &last
	}
	return st
}

// SetMode activates mode and re-derives option sensitivity.
func (c *Controller) SetMode(mode capture.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid capture mode %d", int(mode))
	}
	return c.update(func(s *capture.Settings) { s.Mode = mode })
}

// SetOptions replaces the auxiliary options.
func (c *Controller) SetOptions(opts capture.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return c.update(func(s *capture.Settings) { s.Options = opts })
}

// SetFlash toggles the flash shown by the service after a capture.
func (c *Controller) SetFlash(flash bool) error {
	return c.update(func(s *capture.Settings) { s.Flash = flash })
}

// update applies fn, persists the result and publishes the new state. The
// in-memory change stands even if persisting fails.
func (c *Controller) update(fn func(*capture.Settings)) error {
	c.mu.Lock()
	fn(&c.settings)
	settings := c.settings
	st := c.stateLocked()
	c.mu.Unlock()

	c.publish(Event{Kind: EventState, State: st})

	if c.store != nil {
		if err := c.store.SetCaptureSettings(settings); err != nil {
			logger.WithComponent("controller").Warn().Err(err).Msg("Failed to persist capture settings")
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	return nil
}

// StartCapture dispatches a capture for the current mode and returns
// immediately. The returned channel receives exactly one Outcome. ctx
// bounds the whole attempt, including any delay.
func (c *Controller) StartCapture(ctx context.Context) (<-chan Outcome, error) {
	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, ErrCaptureInProgress
	}
	c.pending = true
	c.idle = make(chan struct{})
	settings := c.settings
	st := c.stateLocked()
	c.mu.Unlock()

	c.publish(Event{Kind: EventState, State: st})

	done := make(chan Outcome, 1)
	go func() {
		out := c.finish(c.run(ctx, settings))
		done <- out
		close(done)
	}()
	return done, nil
}

// Capture runs a capture and waits for its outcome.
func (c *Controller) Capture(ctx context.Context) (Outcome, error) {
	ch, err := c.StartCapture(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out := <-ch
	return out, out.Err
}

// Wait blocks until no capture is pending.
func (c *Controller) Wait() {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	<-idle
}

// run performs the capture for settings.
func (c *Controller) run(ctx context.Context, settings capture.Settings) Outcome {
	log := logger.WithComponent("controller")

	opts := capture.Effective(settings.Mode, settings.Options)
	out := Outcome{Mode: settings.Mode, Options: opts}

	if err := os.MkdirAll(filepath.Dir(c.targetPath), 0755); err != nil {
		out.Err = fmt.Errorf("failed to create capture directory: %w", err)
		return out
	}

	log.Debug().
		Str("mode", settings.Mode.String()).
		Bool("pointer", opts.IncludePointer).
		Bool("shadow", opts.WindowShadow).
		Int("delay", opts.DelaySeconds).
		Str("target", c.targetPath).
		Msg("Starting capture")

	var res capture.Result
	var err error

	switch settings.Mode {
	case capture.ModeSelection:
		var area capture.Rect
		area, err = c.service.SelectArea(ctx)
		if err != nil && !errors.Is(err, capture.ErrInteractiveOnly) {
			out.Err = err
			return out
		}
		res, err = c.service.ScreenshotArea(ctx, capture.AreaRequest{
			Area:  area,
			Flash: settings.Flash,
			Path:  c.targetPath,
		})

	case capture.ModeWindow:
		if err = c.wait(ctx, opts.DelaySeconds); err != nil {
			out.Err = err
			return out
		}
		res, err = c.service.ScreenshotWindow(ctx, capture.WindowRequest{
			IncludeFrame:   opts.WindowShadow,
			IncludePointer: opts.IncludePointer,
			Flash:          settings.Flash,
			Path:           c.targetPath,
		})

	default:
		if err = c.wait(ctx, opts.DelaySeconds); err != nil {
			out.Err = err
			return out
		}
		res, err = c.service.Screenshot(ctx, capture.ScreenRequest{
			IncludePointer: opts.IncludePointer,
			Flash:          settings.Flash,
			Path:           c.targetPath,
		})
	}

	out.Backend = res.Backend
	if err != nil {
		out.Err = err
		return out
	}
	if !res.Success {
		out.Err = fmt.Errorf("%s: %w", settings.Mode, capture.ErrUnknownFailure)
		return out
	}

	out.Path = res.Path
	if out.Path == "" {
		out.Path = c.targetPath
	}
	return out
}

func (c *Controller) wait(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return nil
	}
	logger.WithComponent("controller").Debug().Int("seconds", seconds).Msg("Delaying capture")
	if err := c.delay(ctx, time.Duration(seconds)*time.Second); err != nil {
		return fmt.Errorf("capture delay interrupted: %w", err)
	}
	return nil
}

// finish records out and clears pending before anyone hears about it, so
// listeners may start the next capture straight away.
func (c *Controller) finish(out Outcome) Outcome {
	log := logger.WithComponent("controller")
	out.At = time.Now()
	if out.Err != nil {
		out.Error = out.Err.Error()
	}

	c.mu.Lock()
	c.pending = false
	c.last = &out
	st := c.stateLocked()
	close(c.idle)
	c.mu.Unlock()

	if out.Err != nil {
		log.Warn().Err(out.Err).Str("mode", out.Mode.String()).Msg("Capture failed")
		c.publish(Event{Kind: EventFailed, State: st, Outcome: &out, Message: capture.UserMessage(out.Err)})
		return out
	}
	log.Info().Str("path", out.Path).Str("backend", out.Backend).Msg("Capture finished")
	c.publish(Event{Kind: EventFinished, State: st, Outcome: &out})
	return out
}
