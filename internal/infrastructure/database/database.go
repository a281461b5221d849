package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
)

var documentName = regexp.MustCompile(`^[a-z0-9_-]+\.json$`)

// DB is the flat-file document store. Every document is one JSON file in a
// single directory, read and written as a whole. There is no locking: two
// read-modify-write cycles on the same document race and the last write wins.
type DB struct {
	dir     string
	logger  *logger.Logger
	onWrite func(name string)
}

// New opens the data directory, creating it if needed
func New(cfg config.StorageConfig, appLogger *logger.Logger) (*DB, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &DB{
		dir:    cfg.DataDir,
		logger: appLogger.WithComponent("database"),
	}, nil
}

// Dir returns the data directory
func (db *DB) Dir() string {
	return db.dir
}

// OnWrite registers a hook called after each successful document write
func (db *DB) OnWrite(fn func(name string)) {
	db.onWrite = fn
}

// Load reads the named document into v. A missing file is reported as
// found=false with a nil error; malformed content wraps ErrMalformedDocument.
func (db *DB) Load(ctx context.Context, name string, v any) (bool, error) {
	data, found, err := db.ReadRaw(ctx, name)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", entities.ErrMalformedDocument, name, err)
	}

	return true, nil
}

// ReadRaw returns the bytes of the named document
func (db *DB) ReadRaw(ctx context.Context, name string) ([]byte, bool, error) {
	path, err := db.path(name)
	if err != nil {
		return nil, false, err
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read document %s: %w", name, err)
	}

	return data, true, nil
}

// Save serialises v pretty-printed and replaces the named document.
// The bytes go to a temporary file that is renamed over the target.
func (db *DB) Save(ctx context.Context, name string, v any) error {
	start := time.Now()

	path, err := db.path(name)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	err = writeFile(path, data)
	db.logger.LogDocumentWrite(name, len(data), float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}

	if db.onWrite != nil {
		db.onWrite(name)
	}

	return nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Documents lists the JSON documents present in the data directory
func (db *DB) Documents() ([]string, error) {
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		return nil, fmt.Errorf("list data directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !documentName.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names, nil
}

// HealthCheck verifies the data directory exists and is writable
func (db *DB) HealthCheck() error {
	info, err := os.Stat(db.dir)
	if err != nil {
		return fmt.Errorf("data directory health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory health check failed: %s is not a directory", db.dir)
	}

	check, err := os.CreateTemp(db.dir, ".health-*")
	if err != nil {
		return fmt.Errorf("data directory is not writable: %w", err)
	}
	check.Close()
	os.Remove(check.Name())

	return nil
}

// GetConnectionInfo describes the store for the detailed health check
func (db *DB) GetConnectionInfo() map[string]interface{} {
	docs, err := db.Documents()
	info := map[string]interface{}{
		"data_dir":  db.dir,
		"documents": docs,
	}
	if err != nil {
		info["error"] = err.Error()
	}
	return info
}

func (db *DB) path(name string) (string, error) {
	if !documentName.MatchString(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidDocumentName, name)
	}
	return filepath.Join(db.dir, name), nil
}
