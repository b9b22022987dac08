package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned by Save when the content exceeds the size limit.
var ErrTooLarge = errors.New("file exceeds the maximum upload size")

const storedNameLayout = "20060102_150405.000"

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
	maxBytes int64
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string, maxBytes int64) (*LocalStorage, error) {
	// Ensure base path exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{basePath: basePath, maxBytes: maxBytes, now: time.Now}, nil
}

// StoredName builds the on-disk name yyyyMMdd_HHmmssfff_<id>_<name>.
func StoredName(t time.Time, id uuid.UUID, filename string) string {
	stamp := strings.Replace(t.UTC().Format(storedNameLayout), ".", "", 1)
	return fmt.Sprintf("%s_%s_%s", stamp, id.String(), sanitizeFilename(filename))
}

// Save stores a file under the owner's directory and returns its metadata
func (s *LocalStorage) Save(ctx context.Context, ownerID string, filename string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()
	now := s.now()

	ownerDir := sanitizeFilename(ownerID)
	if ownerDir == "" {
		ownerDir = "shared"
	}
	if err := os.MkdirAll(filepath.Join(s.basePath, ownerDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create owner directory: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(ownerDir, StoredName(now, fileID, filename)))
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(rel))

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(f, src)
	if err != nil {
		os.Remove(fullPath) // Cleanup on error
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		os.Remove(fullPath)
		return nil, ErrTooLarge
	}

	return &FileInfo{
		ID:        fileID,
		Name:      filename,
		Size:      size,
		Path:      rel,
		CreatedAt: now,
	}, nil
}

// Open returns a reader for a stored file
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// resolve maps a stored path to a filesystem path inside basePath.
func (s *LocalStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(s.basePath, clean), nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	// Replace path separators and other dangerous characters
	replacer := strings.NewReplacer(
		"/", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(name)
}
