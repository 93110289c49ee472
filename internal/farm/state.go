package farm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"YieldFarm/internal/model"
)

// LoadState reads a snapshot from a JSON file. Returns nil if the file doesn't exist.
func LoadState(filePath string) (*model.Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", filePath, err)
	}
	return &snap, nil
}

// SaveState writes the snapshot to a JSON file, replacing it atomically.
func SaveState(filePath string, snap *model.Snapshot) error {
	snap.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
