package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcdev12/pomodoro/go/internal/models"
)

// ConfigFileName is the file the FileStore writes inside its data directory.
const ConfigFileName = "pomodoro_config.json"

// FileStore keeps the session config as pretty-printed JSON on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the config file. A missing file yields ErrNotFound.
func (s *FileStore) Load(ctx context.Context) (models.SessionConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.SessionConfig{}, ErrNotFound
		}
		return models.SessionConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg models.SessionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.SessionConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config atomically through a temp file and rename.
func (s *FileStore) Save(ctx context.Context, cfg models.SessionConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// Location returns the path of the config file.
func (s *FileStore) Location() string {
	return s.path
}

// Exists reports whether the config file is present.
func (s *FileStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config file: %w", err)
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
