package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// PublicPrefix is the URL prefix under which stored images are served.
const PublicPrefix = "/images/"

// Store writes uploaded product images to a flat directory. Files are never
// deduplicated or deleted; replaced images stay on disk as orphans.
type Store struct {
	dir string
}

// NewStore creates the image directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the image bytes under a fresh unique name that keeps the
// original file extension, and returns the public relative path.
func (s *Store) Save(originalName string, data io.Reader) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}

	return PublicPrefix + name, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}
