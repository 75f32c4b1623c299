package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/kasbah/internal/logger"
)

// Router routes capture requests to the shell service, falling back to the
// first ready fallback when the service is absent. The backend is chosen
// before a call is dispatched; a dispatched call is never retried elsewhere.
type Router struct {
	shell     Service
	fallbacks []Service
	mu        sync.Mutex
	last      string
}

// NewRouter creates a router. Nil backends are ignored, so a nil shell or
// no fallbacks disable that route.
func NewRouter(shell Service, fallbacks ...Service) *Router {
	r := &Router{shell: shell}
	for _, f := range fallbacks {
		if f != nil {
			r.fallbacks = append(r.fallbacks, f)
		}
	}
	return r
}

// Name returns the backend used by the most recent call
func (r *Router) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == "" {
		return "router"
	}
	return r.last
}

// Close closes every backend
func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.backends() {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) backends() []Service {
	if r.shell == nil {
		return r.fallbacks
	}
	return append([]Service{r.shell}, r.fallbacks...)
}

// Availability is Ready when any backend can serve captures.
func (r *Router) Availability(ctx context.Context) Availability {
	all := r.backends()
	if len(all) == 0 {
		return Unavailable
	}
	first := Unavailable
	for i, s := range all {
		a := s.Availability(ctx)
		if a == Ready {
			return Ready
		}
		if i == 0 {
			first = a
		}
	}
	return first
}

// readyFallback returns the first fallback that can serve captures.
func (r *Router) readyFallback(ctx context.Context) Service {
	for _, f := range r.fallbacks {
		if f.Availability(ctx) == Ready {
			return f
		}
	}
	return nil
}

// pick returns the backend for the next call.
func (r *Router) pick(ctx context.Context) (Service, error) {
	log := logger.WithComponent("capture-router")

	if r.shell != nil {
		switch r.shell.Availability(ctx) {
		case Ready:
			r.setLast(r.shell)
			return r.shell, nil
		case Unavailable:
			if f := r.readyFallback(ctx); f != nil {
				log.Info().
					Str("backend", f.Name()).
					Msg("Screenshot service not on the bus, using fallback")
				r.setLast(f)
				return f, nil
			}
		}
		// Let the shell report its own classified error.
		r.setLast(r.shell)
		return r.shell, nil
	}

	if len(r.fallbacks) > 0 {
		f := r.readyFallback(ctx)
		if f == nil {
			f = r.fallbacks[0]
		}
		r.setLast(f)
		return f, nil
	}
	return nil, wrapErr("route", ErrServiceUnavailable, fmt.Errorf("no capture backend configured"))
}

func (r *Router) setLast(s Service) {
	r.mu.Lock()
	r.last = s.Name()
	r.mu.Unlock()
}

// Flash highlights an area using the selected backend
func (r *Router) Flash(ctx context.Context, area Rect) error {
	s, err := r.pick(ctx)
	if err != nil {
		return err
	}
	return s.Flash(ctx, area)
}

// SelectArea selects an area using the selected backend
func (r *Router) SelectArea(ctx context.Context) (Rect, error) {
	s, err := r.pick(ctx)
	if err != nil {
		return Rect{}, err
	}
	return s.SelectArea(ctx)
}

// Screenshot captures the screen using the selected backend
func (r *Router) Screenshot(ctx context.Context, req ScreenRequest) (Result, error) {
	s, err := r.pick(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.Screenshot(ctx, req)
}

// ScreenshotWindow captures a window using the selected backend
func (r *Router) ScreenshotWindow(ctx context.Context, req WindowRequest) (Result, error) {
	s, err := r.pick(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.ScreenshotWindow(ctx, req)
}

// ScreenshotArea captures an area using the selected backend
func (r *Router) ScreenshotArea(ctx context.Context, req AreaRequest) (Result, error) {
	s, err := r.pick(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.ScreenshotArea(ctx, req)
}
