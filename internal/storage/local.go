package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local stores files on disk below a root directory and serves them under
// a public URL prefix.
type Local struct {
	root      string
	publicURL string
	maxBytes  int64
}

// NewLocal prepares the root directory.
func NewLocal(root, publicURL string, maxBytes int64) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &Local{root: root, publicURL: strings.TrimRight(publicURL, "/"), maxBytes: maxBytes}, nil
}

// Root returns the directory files are written to.
func (l *Local) Root() string {
	return l.root
}

// Upload implements Store.
func (l *Local) Upload(ctx context.Context, data []byte, folder string, allowed []string) (Object, error) {
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return Object{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), l.maxBytes)
	}
	detected, err := Detect(data, allowed)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	folder = strings.Trim(path.Clean("/"+folder), "/")
	name := path.Join(folder, uuid.NewString()+detected.Extension())
	full, err := l.resolve(name)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return Object{
		FileName: name,
		URL:      l.URL(name),
		MimeType: detected.String(),
		Size:     int64(len(data)),
	}, nil
}

// Open implements Store.
func (l *Local) Open(ctx context.Context, fileName string) ([]byte, error) {
	full, err := l.resolve(fileName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, nil
}

// Delete implements Store.
func (l *Local) Delete(ctx context.Context, fileName string) error {
	full, err := l.resolve(fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// URL returns the public address of fileName.
func (l *Local) URL(fileName string) string {
	return l.publicURL + "/" + fileName
}

func (l *Local) resolve(fileName string) (string, error) {
	clean := path.Clean("/" + fileName)
	if clean == "/" || strings.Contains(fileName, "..") {
		return "", fmt.Errorf("%w: invalid file name %q", ErrNotFound, fileName)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}
