package budget

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveState writes a state snapshot to path as JSON. Best used at
// day-close or on shutdown so a restarted process resumes the same
// ladder lineage.
func SaveState(path string, s State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal budget state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write budget state: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadState reads a state snapshot written by SaveState.
func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read budget state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parse budget state: %w", err)
	}
	return s, nil
}
