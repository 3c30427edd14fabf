// Package thumbnail renders fixed-size preview images for uploaded photos.
package thumbnail

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/s-hit/mshd-backend/internal/errors"
)

// Cover scales the image at src to fill width x height, crops the overflow
// around the centre and writes the result to dst. The output format follows
// dst's extension (.jpg, .jpeg or .png). EXIF orientation is applied first.
func Cover(src, dst string, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Newf("invalid thumbnail size %dx%d", width, height).
			Component("thumbnail").
			Category(errors.CategoryValidation).
			Build()
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return errors.New(fmt.Errorf("decode %s: %w", filepath.Base(src), err)).
			Component("thumbnail").
			Category(errors.CategoryImageProcessing).
			Context("operation", "decode").
			Build()
	}

	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.FileError(err, dst, 0)
	}
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(85)); err != nil {
		_ = os.Remove(dst)
		return errors.New(fmt.Errorf("encode %s: %w", filepath.Base(dst), err)).
			Component("thumbnail").
			Category(errors.CategoryImageProcessing).
			Context("operation", "encode").
			Build()
	}
	return nil
}
