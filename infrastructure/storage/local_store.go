// Package storage keeps produced artifacts on the local filesystem.
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

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"
	apperrors "github.com/balaguysimon-ops/timestretch-ffmpeg/pkg/errors"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// LocalStore implements ports.ArtifactStore in a single directory.
type LocalStore struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.ArtifactStore = (*LocalStore)(nil)

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir string, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the store directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(name string) (string, error) {
	if !audio.IsSafeArtifactName(name) {
		return "", apperrors.NewNotFound("Not found")
	}
	return filepath.Join(s.dir, name), nil
}

// Put copies srcPath into the store under name. The copy goes through a
// temporary file and a rename so readers never see a partial artifact.
func (s *LocalStore) Put(ctx context.Context, name, srcPath string) error {
	dst, err := s.path(name)
	if err != nil {
		return apperrors.NewInternal("invalid artifact name", fmt.Errorf("name %q", name))
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open artifact source: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.dir, ".incoming-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if copyErr != nil {
			return fmt.Errorf("copy artifact: %w", copyErr)
		}
		return fmt.Errorf("close artifact: %w", closeErr)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Open implements ports.ArtifactStore. Unknown, unsafe or non-regular names
// are all reported as not found.
func (s *LocalStore) Open(ctx context.Context, name string) (ports.Artifact, ports.ArtifactInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, ports.ArtifactInfo{}, err
	}

	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ports.ArtifactInfo{}, apperrors.NewNotFound("Not found")
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ports.ArtifactInfo{}, apperrors.NewNotFound("Not found")
		}
		return nil, ports.ArtifactInfo{}, fmt.Errorf("open artifact: %w", err)
	}

	return f, ports.ArtifactInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Sweep removes artifacts last modified more than olderThan ago, plus stale
// temp files from interrupted Puts.
func (s *LocalStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read store directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	var result *multierror.Error

	for _, entry := range entries {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, audio.ArtifactPrefix) && !strings.HasPrefix(name, ".incoming-") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed expired artifacts", zap.Int("count", removed), zap.Duration("ttl", olderThan))
	}
	return removed, result.ErrorOrNil()
}

// CheckWritable implements ports.ArtifactStore
func (s *LocalStore) CheckWritable(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("store not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
