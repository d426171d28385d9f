package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// FileStore keeps the result as a JSON document on disk
type FileStore struct {
	path   string
	logger *errors.Logger
}

// NewFileStore creates the parent directory of path if needed
func NewFileStore(path string, logger *errors.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "store path is required for the file backend", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("cannot create store directory for %s", path), err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the file backing the store
func (s *FileStore) Path() string {
	return s.path
}

// Save writes to a temporary file and renames it over the previous result
func (s *FileStore) Save(_ context.Context, result types.AnalysisResult) error {
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".analysis-*.tmp")
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, "cannot create temporary store file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Leftover only when the rename did not happen
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return errors.NewIOError(errors.ErrCodeFileNotWritable, "cannot write store file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, "cannot write store file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, "cannot replace store file", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context) (types.AnalysisResult, bool) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Warn("Cannot read stored analysis", "path", s.path, "error", err.Error())
		}
		return nil, false
	}
	return decodeResult(payload, s.path, s.logger)
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeFileNotWritable, "cannot remove store file", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
