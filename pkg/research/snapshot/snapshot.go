// Package snapshot persists research sessions as a single JSON file.
//
// Every Save rewrites the whole file: the sessions are encoded to a
// temporary file in the same directory which then replaces the target, so a
// crash mid-write leaves the previous snapshot intact.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/txn2/mcp-prospect-research/pkg/research"
)

// DefaultPath is the snapshot file used when none is configured.
const DefaultPath = "research_sessions.json"

const fileMode = 0o600

// File is a research.Persister backed by one JSON file.
type File struct {
	path string
}

// Verify interface compliance.
var _ research.Persister = (*File)(nil)

// New creates a file persister for path.
func New(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

// Path returns the snapshot file path.
func (f *File) Path() string {
	return f.path
}

// Save writes all sessions, keyed by session id.
func (f *File) Save(_ context.Context, sessions []*research.Session) error {
	byID := make(map[string]*research.Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	data, err := json.Marshal(byID)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting snapshot permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields no sessions; expiry is
// left to the caller.
func (f *File) Load(_ context.Context) ([]*research.Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var byID map[string]*research.Session
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", f.path, err)
	}

	out := make([]*research.Session, 0, len(byID))
	for id, s := range byID {
		if s == nil {
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		out = append(out, s)
	}
	return out, nil
}
