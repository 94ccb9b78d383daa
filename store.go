package treasury

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StateStore loads and persists the durable State.
//
// Persist replaces the whole durable record, or leaves it untouched on error.
// It fails with ErrStateChanged when the record is no longer the one of the
// state's Revision, so that writers in other processes do not undo each other.
type StateStore interface {
	Load(ctx context.Context) (*State, error)
	Persist(ctx context.Context, s *State) error
}

// FileStore keeps the state in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the given file. The file is not read until Load.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file path.
func (f *FileStore) Path() string { return f.path }

// Load reads the state file. A missing file is reported as both
// ErrStateCorrupt and fs.ErrNotExist.
func (f *FileStore) Load(_ context.Context) (*State, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateCorrupt, err)
	}
	s, err := UnmarshalState(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	s.Revision = RevisionOf(b)
	return s, nil
}

// revision returns the revision of the file on disk, empty when it is missing.
func (f *FileStore) revision() (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return RevisionOf(b), nil
}

// Persist writes the state to a temporary file next to the target, syncs it and
// renames it over the target, so that readers see either the old or the new
// document. On success s.Revision is the revision of the written file.
//
// The file is checked against s.Revision before the rename. Two processes
// persisting within the same instant may still both pass the check.
func (f *FileStore) Persist(_ context.Context, s *State) error {
	content, err := MarshalState(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	tmpName := tmp.Name()
	// no-op once renamed
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	rev, err := f.revision()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	if rev != s.Revision {
		return fmt.Errorf("%w: %s: %w", ErrStateWrite, f.path, ErrStateChanged)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %w", ErrStateWrite, err)
	}
	s.Revision = RevisionOf(content)
	return nil
}
