package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/boxel-survey/survey/boxel"

	toml "github.com/pelletier/go-toml/v2"
)

// State is the part of a session kept between runs.
type State struct {
	Active             bool           `toml:"active"`
	StartedAt          time.Time      `toml:"started_at"`
	Top                boxel.Boxel    `toml:"top"`
	Focus              boxel.Boxel    `toml:"focus"`
	ExpectedCount      int            `toml:"expected_count"`
	AutoCopy           bool           `toml:"auto_copy"`
	Collapsed          bool           `toml:"collapsed"`
	SkipAlreadyVisited bool           `toml:"skip_already_visited"`
	TrustCatalog       bool           `toml:"trust_catalog"`
	LowMassCode        boxel.MassCode `toml:"low_mass_code"`
}

// State returns the session settings to persist.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Active:             s.active,
		StartedAt:          s.startedAt,
		Top:                s.top,
		Focus:              s.focus,
		ExpectedCount:      s.expectedCount,
		AutoCopy:           s.opts.AutoCopy,
		Collapsed:          s.opts.Collapsed,
		SkipAlreadyVisited: s.opts.SkipAlreadyVisited,
		TrustCatalog:       s.opts.TrustCatalog,
		LowMassCode:        s.opts.LowMassCode,
	}
}

// Restore applies saved settings. The top region is reset keeping the saved
// start time, and a saved focus is focused again, which starts its lookups.
func (s *Session) Restore(st State) error {
	if !st.Top.IsZero() && !st.Top.Addressable() {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, st.Top.Name())
	}

	s.mu.Lock()
	s.opts.AutoCopy = st.AutoCopy
	s.opts.Collapsed = st.Collapsed
	s.opts.SkipAlreadyVisited = st.SkipAlreadyVisited
	s.opts.TrustCatalog = st.TrustCatalog
	if st.LowMassCode.Valid() {
		s.opts.LowMassCode = st.LowMassCode
	}
	if st.Top.IsZero() {
		s.mu.Unlock()
		return nil
	}

	var relaunch func()
	if s.resetLocked(st.Top.WithN2(0), st.Active, st.StartedAt) && st.Focus.IsZero() {
		relaunch = s.relaunchLocked()
	}
	ev := s.changedLocked(ReasonReset)
	s.mu.Unlock()
	s.publish(ev)

	if st.Focus.IsZero() {
		if relaunch != nil {
			relaunch()
		}
		return nil
	}
	if st.ExpectedCount > 0 {
		s.counts.Set(st.Focus, st.ExpectedCount)
	}
	return s.SetFocus(st.Focus, true)
}

// SaveState writes the session state to path as TOML.
func (s *Session) SaveState(path string) error {
	return WriteState(path, s.State())
}

// LoadState restores the session from a file written by SaveState. A missing
// file leaves the session untouched.
func (s *Session) LoadState(path string) error {
	st, err := ReadState(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.Restore(st)
}

// WriteState atomically replaces path with st.
func WriteState(path string, st State) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling search state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}

// ReadState reads a file written by WriteState.
func ReadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var st State
	if err := toml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parsing search state %s: %w", path, err)
	}
	return st, nil
}
