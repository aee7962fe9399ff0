package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

// Storage keeps objects as files below basePath. Keys use forward slashes.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) BasePath() string {
	return s.basePath
}

// Path maps a key to its location on disk.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Save writes through a temp file and rename so readers never see a partial object.
func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.WrapError(domain.ErrStorage, "create object dir", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		return domain.WrapError(domain.ErrStorage, "write file", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.WrapError(domain.ErrStorage, "close file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.WrapError(domain.ErrStorage, "rename file", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open file", fmt.Errorf("key=%s", key))
		}
		return nil, domain.WrapError(domain.ErrStorage, "open file", err)
	}
	return f, nil
}

// List returns the direct children of prefix sorted by name. A missing prefix is empty.
func (s *Storage) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.WrapError(domain.ErrStorage, "list dir", err)
	}

	out := make([]domain.ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, domain.ObjectInfo{
			Key:     joinKey(prefix, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			IsDir:   entry.IsDir(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve key", fmt.Errorf("key %q escapes storage root", key))
	}
	return filepath.Join(s.basePath, clean), nil
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || prefix == "." {
		return name
	}
	return prefix + "/" + name
}
