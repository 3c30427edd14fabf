package thumbnail

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-hit/mshd-backend/internal/errors"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestCover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		srcW, srcH int
		dst        string
		decode     func(*os.File) (image.Image, error)
	}{
		{"landscape to png", 400, 200, "thumb.png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
		{"portrait to jpeg", 90, 300, "thumb.jpg", func(f *os.File) (image.Image, error) { return jpeg.Decode(f) }},
		{"upscales small source", 20, 20, "thumb.png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			src := filepath.Join(dir, "src.png")
			writePNG(t, src, tt.srcW, tt.srcH)

			dst := filepath.Join(dir, "thumbnails", tt.dst)
			require.NoError(t, Cover(src, dst, 128, 128))

			f, err := os.Open(dst)
			require.NoError(t, err)
			defer f.Close()
			img, err := tt.decode(f)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 128, 128), img.Bounds())
		})
	}
}

func TestCoverRejectsUndecodableSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o600))

	err := Cover(src, filepath.Join(dir, "out.png"), 128, 128)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageProcessing))
	assert.NoFileExists(t, filepath.Join(dir, "out.png"))
}

func TestCoverRejectsInvalidSize(t *testing.T) {
	t.Parallel()

	err := Cover("unused.png", "out.png", 0, 128)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
