package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFilename        = errors.New("no filename provided")
)

// Saver validates and stores uploaded audio files. Files are named by job id
// with the original extension, and the resulting path is persisted on the
// job record so retries never have to guess it back.
type Saver struct {
	Dir            string
	MaxSize        int64
	AllowedFormats []string
}

func NewSaver(dir string, maxSize int64, allowedFormats []string) *Saver {
	return &Saver{Dir: dir, MaxSize: maxSize, AllowedFormats: allowedFormats}
}

// Validate checks the filename extension and declared size.
func (s *Saver) Validate(filename string, size int64) error {
	if filename == "" {
		return ErrNoFilename
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	allowed := false
	for _, f := range s.AllowedFormats {
		if ext == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: .%s (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(s.AllowedFormats, ", "))
	}
	if s.MaxSize > 0 && size > s.MaxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, s.MaxSize)
	}
	return nil
}

// Save writes the upload to <Dir>/<jobID><ext> and returns the path.
func (s *Saver) Save(jobID, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, jobID+strings.ToLower(filepath.Ext(filename)))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Remove deletes a stored upload; missing files are not an error.
func (s *Saver) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
