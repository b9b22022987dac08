// Package storage provides file storage for uploaded sales files.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"` // Internal storage path
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Save stores the content of r under a unique name derived from filename
	Save(ctx context.Context, ownerID string, filename string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for a stored path (for streaming processing)
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a stored path
	Delete(ctx context.Context, path string) error
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
	// MaxBytes limits a single upload; zero means no limit
	MaxBytes int64
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath, cfg.MaxBytes)
	default:
		return nil, errors.New("unsupported storage type: " + string(cfg.Type))
	}
}
