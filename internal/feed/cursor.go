package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"podsum/internal/fileutil"
)

// Cursor records the newest feed item handed off successfully.
type Cursor struct {
	LastGUID  string    `json:"last_guid"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// LoadCursor reads the cursor file. A missing file yields an empty cursor.
func LoadCursor(path string) (Cursor, error) {
	var cursor Cursor
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cursor, nil
	}
	if err != nil {
		return cursor, fmt.Errorf("read cursor: %w", err)
	}
	if err := json.Unmarshal(data, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("parse cursor %s: %w", path, err)
	}
	return cursor, nil
}

// SaveCursor writes the cursor atomically.
func SaveCursor(path string, cursor Cursor) error {
	data, err := json.MarshalIndent(cursor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
