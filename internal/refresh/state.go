package refresh

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const stateFileName = "refresh.state.toml"

// ComponentState records the outcome of the latest artifact fetch for one
// component.
type ComponentState struct {
	Fetched   bool      `toml:"fetched"`
	RunID     string    `toml:"run_id,omitempty"`
	FetchedAt time.Time `toml:"fetched_at,omitempty"`
	Error     string    `toml:"error,omitempty"`
}

// State is the persisted outcome of the most recent refresh cycle. It lets
// a restarted server report how stale its data is without re-reading the
// history database.
type State struct {
	Version    int                        `toml:"version"`
	LastRun    time.Time                  `toml:"last_run"`
	LastRunID  string                     `toml:"last_run_id"`
	Outcome    string                     `toml:"outcome"`
	Error      string                     `toml:"error,omitempty"`
	Components map[string]*ComponentState `toml:"components"`
}

// LoadState reads the state file from the given directory.
// Returns an empty state if the file does not exist.
func LoadState(dir string) (*State, error) {
	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				Version:    1,
				Components: make(map[string]*ComponentState),
			}, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var state State
	if err := toml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	if state.Components == nil {
		state.Components = make(map[string]*ComponentState)
	}
	return &state, nil
}

// SaveState writes the state file atomically (write temp + rename).
func SaveState(dir string, state *State) error {
	data, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	path := filepath.Join(dir, stateFileName)
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

// SetComponent updates or creates a component's fetch state.
func (s *State) SetComponent(name string, cs ComponentState) {
	if s.Components == nil {
		s.Components = make(map[string]*ComponentState)
	}
	s.Components[name] = &cs
}
