package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"portfolioanalytics/internal/config"
	apperrors "portfolioanalytics/internal/errors"
	"portfolioanalytics/internal/shared/sanitize"
)

// Repository saves JSON documents by key. Load reports false when the key
// has never been saved.
type Repository interface {
	Save(ctx context.Context, key string, value any) error
	Load(ctx context.Context, key string, out any) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// NewRepository builds the configured snapshot repository. db is only
// used by the database backend.
func NewRepository(cfg config.StorageConfig, db *gorm.DB) (Repository, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.StorageBackendFile, "":
		return NewFileRepository(cfg.DataDir)
	case config.StorageBackendDatabase:
		if db == nil {
			return nil, apperrors.NewConfigError("database storage backend needs a connection", nil)
		}
		return NewDatabaseRepository(db), nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown storage backend %q", cfg.Backend), nil)
	}
}

func encodeDocument(key string, value any) ([]byte, error) {
	payload, err := json.Marshal(sanitize.ToSerializable(value))
	if err != nil {
		return nil, apperrors.NewStorageError("encode "+key, err)
	}
	return payload, nil
}

// FileRepository keeps one JSON file per key under baseDir. Slashes in
// keys become underscores, so "equity/AAPL" is stored as equity_AAPL.json.
type FileRepository struct {
	baseDir string
}

// NewFileRepository creates baseDir when missing
func NewFileRepository(baseDir string) (*FileRepository, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, apperrors.NewStorageError("create data directory "+baseDir, err)
	}
	return &FileRepository{baseDir: baseDir}, nil
}

func fileKey(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

func (r *FileRepository) pathFor(key string) string {
	return filepath.Join(r.baseDir, fileKey(key)+".json")
}

// Save writes the document atomically
func (r *FileRepository) Save(_ context.Context, key string, value any) error {
	payload, err := encodeDocument(key, value)
	if err != nil {
		return err
	}

	path := r.pathFor(key)
	tmp, err := os.CreateTemp(r.baseDir, ".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("write "+key, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("close "+key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("rename "+key, err)
	}
	return nil
}

// Load decodes the document into out
func (r *FileRepository) Load(_ context.Context, key string, out any) (bool, error) {
	data, err := os.ReadFile(r.pathFor(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("read "+key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, apperrors.NewStorageError("decode "+key, err)
	}
	return true, nil
}

// Delete removes the document; deleting a missing key is not an error
func (r *FileRepository) Delete(_ context.Context, key string) error {
	if err := os.Remove(r.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return apperrors.NewStorageError("delete "+key, err)
	}
	return nil
}

// List returns the stored keys starting with prefix, in their on-disk form
func (r *FileRepository) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, apperrors.NewStorageError("list "+r.baseDir, err)
	}
	want := fileKey(prefix)
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(key, want) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
