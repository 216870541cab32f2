package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Scratch holds downloaded images for one run until they are uploaded.
type Scratch struct {
	dir string
}

func NewScratch(baseDir, runID string) (*Scratch, error) {
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

func (s *Scratch) Dir() string {
	return s.dir
}

// SaveImage decodes data and writes it as name. The format follows the
// extension, so "pin_image_1.png" is always a PNG regardless of what
// the provider served.
func (s *Scratch) SaveImage(name string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

func (s *Scratch) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Cleanup removes the run directory when nothing was left behind.
func (s *Scratch) Cleanup() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return os.Remove(s.dir)
}
