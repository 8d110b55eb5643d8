package jsonl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"banditArena/domain"
)

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadTrials loads a file written by WriteJSON with a slice of trial records.
func ReadTrials(path string) ([]domain.TrialRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var recs []domain.TrialRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return recs, nil
}
