// internal/storage/file_storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/pkg/utils"
)

// LocalFileStorage keeps rendered documents in a scratch directory until
// they are uploaded
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates the scratch directory if needed
func NewLocalFileStorage(baseDir string, logger *zap.Logger) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Create opens a uniquely named file for name. Concurrent renders of the
// same voucher never share a path.
func (s *LocalFileStorage) Create(ctx context.Context, name string) (io.WriteCloser, string, error) {
	pattern := "*-" + utils.SanitizeFileName(name)

	f, err := os.CreateTemp(s.baseDir, pattern)
	if err != nil {
		s.logger.Error("Failed to create scratch file", zap.String("name", name), zap.Error(err))
		return nil, "", fmt.Errorf("failed to create file: %w", err)
	}

	return f, f.Name(), nil
}

// Open opens a file previously returned by Create
func (s *LocalFileStorage) Open(ctx context.Context, fullPath string) (io.ReadCloser, error) {
	if err := s.ValidatePath(fullPath); err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Remove deletes a scratch file. Missing files are not an error.
func (s *LocalFileStorage) Remove(ctx context.Context, fullPath string) error {
	if err := s.ValidatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to remove file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to remove file: %w", err)
	}

	s.logger.Debug("Scratch file removed", zap.String("path", fullPath))
	return nil
}

// Sweep removes scratch files older than maxAge, left behind by a crash
// between render and cleanup. It returns the number of files removed.
func (s *LocalFileStorage) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Swept stale scratch files", zap.Int("count", removed))
	}
	return removed, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
