package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"
	"github.com/ZanzyTHEbar/boxel-survey/survey/sources"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay collapses the burst of writes the game makes when it
// replaces the route file.
const DefaultDebounceDelay = 100 * time.Millisecond

var ErrAlreadyStarted = errors.New("route watcher already started")

// navRoute is the subset of NavRoute.json we read.
type navRoute struct {
	Event string `json:"event"`
	Route []struct {
		StarSystem string    `json:"StarSystem"`
		StarPos    []float64 `json:"StarPos"`
	} `json:"Route"`
}

// RouteFile serves the plotted route from a NavRoute.json file and keeps it
// current while Start is running.
type RouteFile struct {
	path   string
	delay  time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	route    []sources.RouteHop
	onChange func([]sources.RouteHop)

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRouteFile creates a RouteFile for path. Nothing is read until Reload or
// Start is called.
func NewRouteFile(path string, logger *slog.Logger) *RouteFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteFile{
		path:   filepath.Clean(path),
		delay:  DefaultDebounceDelay,
		logger: logger,
	}
}

// Path returns the watched file.
func (r *RouteFile) Path() string { return r.path }

// SetDebounceDelay changes how long the watcher waits for writes to settle.
// It must be called before Start.
func (r *RouteFile) SetDebounceDelay(d time.Duration) {
	r.delay = d
}

// OnChange registers fn to be called with the new route after every reload
// triggered by the watcher.
func (r *RouteFile) OnChange(fn func([]sources.RouteHop)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// CurrentRoute implements sources.RouteProvider.
func (r *RouteFile) CurrentRoute() []sources.RouteHop {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.route == nil {
		return nil
	}
	out := make([]sources.RouteHop, len(r.route))
	copy(out, r.route)
	return out
}

// Reload reads the file again. A missing file means no route. A malformed
// file clears the route and returns the decode error.
func (r *RouteFile) Reload() error {
	route, err := readNavRoute(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("Failed to read nav route, clearing route", "path", r.path, "error", err)
	}

	r.mu.Lock()
	r.route = route
	r.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func readNavRoute(path string) ([]sources.RouteHop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc navRoute
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(doc.Route) == 0 {
		return nil, nil
	}

	hops := make([]sources.RouteHop, 0, len(doc.Route))
	for _, hop := range doc.Route {
		if hop.StarSystem == "" {
			continue
		}
		h := sources.RouteHop{Name: hop.StarSystem}
		if len(hop.StarPos) == 3 {
			h.Position = &boxel.StarPos{X: hop.StarPos[0], Y: hop.StarPos[1], Z: hop.StarPos[2]}
		}
		hops = append(hops, h)
	}
	return hops, nil
}

// Start loads the file and watches its directory until ctx is done or Close
// is called. The directory is watched rather than the file since the game
// replaces it.
func (r *RouteFile) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.watcher != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		r.mu.Unlock()
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(r.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.watcher = w
	r.cancel = cancel
	r.mu.Unlock()

	_ = r.Reload()

	r.wg.Add(1)
	go r.watchLoop(ctx, w)

	r.logger.Info("Route watcher started", "path", r.path)
	return nil
}

func (r *RouteFile) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer r.wg.Done()

	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path || event.Op&relevant == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.delay)
			} else {
				timer.Reset(r.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = r.Reload()
			r.mu.RLock()
			fn := r.onChange
			r.mu.RUnlock()
			if fn != nil {
				fn(r.CurrentRoute())
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("Route watcher error", "path", r.path, "error", err)
		}
	}
}

// Close stops the watcher and waits for it to exit.
func (r *RouteFile) Close() error {
	r.mu.Lock()
	w, cancel := r.watcher, r.cancel
	r.watcher, r.cancel = nil, nil
	r.mu.Unlock()

	if w == nil {
		return nil
	}
	cancel()
	err := w.Close()
	r.wg.Wait()

	r.logger.Info("Route watcher closed", "path", r.path)
	return err
}
