package media

import (
	stdbytes "bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-hit/mshd-backend/internal/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf stdbytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(Config{
		ImagesDir:     filepath.Join(dir, "images"),
		ThumbnailsDir: filepath.Join(dir, "thumbnails"),
		MaxBytes:      maxBytes,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, 4<<10)
	valid := pngBytes(t, 8, 8)

	tests := []struct {
		name    string
		upload  Upload
		wantErr bool
	}{
		{"png", FromBytes("a.png", "image/png", valid), false},
		{"declared jpg subtype", FromBytes("a.png", "image/jpg", valid), false},
		{"no declared type", FromBytes("a.png", "", valid), false},
		{"gif declared", FromBytes("a.gif", "image/gif", valid), true},
		{"text content", FromBytes("a.png", "image/png", []byte("hello world")), true},
		{"empty", FromBytes("a.png", "image/png", nil), true},
		{"too large", FromBytes("a.png", "image/png", append(valid, make([]byte, 8<<10)...)), true},
		{"malformed content type", FromBytes("a.png", "image/", valid), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.upload)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, s.RejectionMessage(), err.Error())
		})
	}
}

func TestRejectionMessage(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, DefaultMaxBytes)
	assert.Equal(t, "只能上传 JPEG 或 PNG 格式且不超过 10 MiB 的图片。", s.RejectionMessage())
}

func TestSaveWritesImageAndThumbnail(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, DefaultMaxBytes)
	data := pngBytes(t, 300, 200)

	name, err := s.Save(t.Context(), FromBytes("photo.jpeg", "image/png", data))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"), "extension follows sniffed content")

	stored, err := os.ReadFile(s.ImagePath(name))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	f, err := os.Open(s.ThumbnailPath(name))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 128, cfg.Height)

	require.NoError(t, s.Remove(name))
	assert.NoFileExists(t, s.ImagePath(name))
	assert.NoFileExists(t, s.ThumbnailPath(name))
	require.NoError(t, s.Remove(name), "removing twice is fine")
}

func TestSaveCleansUpWhenThumbnailFails(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, DefaultMaxBytes)
	s.thumb = func(string, string, int, int) error { return errors.NewStd("thumbnail failed") }

	_, err := s.Save(t.Context(), FromBytes("a.png", "image/png", pngBytes(t, 4, 4)))
	require.Error(t, err)

	entries, err := os.ReadDir(s.cfg.ImagesDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveHonoursCancellation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, DefaultMaxBytes)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Save(ctx, FromBytes("a.png", "image/png", pngBytes(t, 4, 4)))
	require.ErrorIs(t, err, context.Canceled)
}
