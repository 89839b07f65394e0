package images

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedFormat = errors.New("image must be jpeg or png")
	ErrTooLarge          = errors.New("image larger than 4MiB")
)

const (
	MaxUploadSize = 4 << 20
	maxWidth      = 600
	jpegQuality   = 80
	filePrefix    = "book_"
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

type Pipeline interface {
	Process(data []byte, declaredType string) (string, error)
	Remove(filename string) error
}

// DiskPipeline re-encodes accepted uploads onto a local directory that is
// served statically under /images.
type DiskPipeline struct {
	dir string
}

func NewDiskPipeline(dir string) (*DiskPipeline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating image directory: %v", err)
	}

	return &DiskPipeline{
		dir: dir,
	}, nil
}

// Process validates, resizes and re-encodes one upload. On success exactly
// one file is written and its filename returned; on any rejection nothing is
// written.
func (p *DiskPipeline) Process(data []byte, declaredType string) (string, error) {
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	if !allowedTypes[declaredType] {
		return "", ErrUnsupportedFormat
	}

	detected := mimetype.Detect(data)

	if !detected.Is("image/jpeg") && !detected.Is("image/png") {
		return "", ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))

	if err != nil {
		return "", fmt.Errorf("error decoding image: %v", err)
	}

	// resize is a cap, never a stretch
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	filename := fmt.Sprintf("%s%d.jpg", filePrefix, time.Now().UnixMilli())

	if err := imaging.Save(img, filepath.Join(p.dir, filename), imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("error saving image: %v", err)
	}

	return filename, nil
}

func (p *DiskPipeline) Remove(filename string) error {
	if filename == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(p.dir, filepath.Base(filename))); err != nil {
		return fmt.Errorf("error removing image: %v", err)
	}

	return nil
}
