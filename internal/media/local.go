package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore keeps uploaded product images.
type ImageStore interface {
	// Save writes r under name and returns the location clients should use.
	// A location starting with "/" is relative to the server's own origin.
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// LocalStore writes images and staged imports into a directory that the
// HTTP server exposes under PublicPath.
type LocalStore struct {
	dir        string
	publicPath string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, publicPath string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &LocalStore{
		dir:        dir,
		publicPath: "/" + strings.Trim(publicPath, "/"),
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPath returns the URL prefix images are served under.
func (s *LocalStore) PublicPath() string {
	return s.publicPath
}

// Save implements ImageStore.
func (s *LocalStore) Save(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if _, err := s.write(ctx, name, r); err != nil {
		return "", err
	}
	return s.publicPath + "/" + name, nil
}

// Stage writes an import file into the upload directory and returns its path.
// The caller removes it with Discard when done.
func (s *LocalStore) Stage(ctx context.Context, name string, r io.Reader) (string, error) {
	return s.write(ctx, name, r)
}

// Discard removes a staged file, ignoring files that are already gone.
func (s *LocalStore) Discard(path string) error {
	return removeIfExists(path)
}

// write creates name exclusively and copies r into it. A failed copy removes
// the partial file.
func (s *LocalStore) write(ctx context.Context, name string, r io.Reader) (string, error) {
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// path joins name onto the directory, refusing anything that would escape it.
func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
