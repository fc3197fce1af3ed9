package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freqkflag/agentrunner/internal/platform"
)

// JSONStore keeps offsets in an indented JSON document.
type JSONStore struct {
	Path string
}

// Load returns the stored offsets. A missing or unreadable document yields an
// empty set so a damaged state file only causes a re-read.
func (s *JSONStore) Load(context.Context) (Offsets, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Offsets{}, nil
	}

	offsets := Offsets{}
	if err := json.Unmarshal(data, &offsets); err != nil {
		return Offsets{}, nil
	}
	return offsets, nil
}

// Save replaces the document with offsets.
func (s *JSONStore) Save(_ context.Context, offsets Offsets) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(offsets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(s.Path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing state %s: %w", s.Path, err)
	}
	return platform.Chmod(s.Path, 0600)
}

func (s *JSONStore) Close() error { return nil }
