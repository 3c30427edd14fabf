// Package media stores uploaded report images and their thumbnails.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/gommon/bytes"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/thumbnail"
)

// DefaultMaxBytes is the per-file upload limit.
const DefaultMaxBytes = 10 << 20 // 10 MiB

// sniffLen is how many leading bytes http.DetectContentType inspects.
const sniffLen = 512

// allowedSubtypes are the accepted declared MIME subtypes.
var allowedSubtypes = map[string]bool{"jpeg": true, "jpg": true, "png": true}

// sniffedExt maps detected content types to the stored file extension.
var sniffedExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string // as declared by the client, may be empty
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Config configures a Store.
type Config struct {
	ImagesDir       string
	ThumbnailsDir   string
	MaxBytes        int64
	ThumbnailWidth  int
	ThumbnailHeight int
}

// Store writes validated uploads under ImagesDir and a cover-cropped
// thumbnail with the same name under ThumbnailsDir.
type Store struct {
	cfg   Config
	log   logger.Logger
	thumb func(src, dst string, width, height int) error
}

// NewStore creates the directories if they do not exist.
func NewStore(cfg Config, log logger.Logger) (*Store, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.ThumbnailWidth <= 0 || cfg.ThumbnailHeight <= 0 {
		cfg.ThumbnailWidth, cfg.ThumbnailHeight = 128, 128
	}
	for _, dir := range []string{cfg.ImagesDir, cfg.ThumbnailsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.FileError(fmt.Errorf("create media directory: %w", err), dir, 0)
		}
	}
	if log == nil {
		log = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	return &Store{cfg: cfg, log: log, thumb: thumbnail.Cover}, nil
}

// RejectionMessage is shown to clients when an upload fails validation.
func (s *Store) RejectionMessage() string {
	limit := bytes.Format(s.cfg.MaxBytes)
	if s.cfg.MaxBytes%(1<<20) == 0 {
		limit = fmt.Sprintf("%d MiB", s.cfg.MaxBytes>>20)
	}
	return fmt.Sprintf("只能上传 JPEG 或 PNG 格式且不超过 %s 的图片。", limit)
}

func (s *Store) reject(reason string, u Upload) error {
	s.log.Debug("upload rejected",
		logger.String("reason", reason),
		logger.String("filename", u.Filename),
		logger.String("content_type", u.ContentType),
		logger.String("size", bytes.Format(u.Size)))
	return errors.New(errors.NewStd(s.RejectionMessage())).
		Component("media").
		Category(errors.CategoryValidation).
		Context("reason", reason).
		Build()
}

// Validate checks the declared type, the size and the content's magic bytes.
func (s *Store) Validate(u Upload) error {
	if u.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(u.ContentType)
		if err != nil {
			return s.reject("unparseable content type", u)
		}
		major, sub, _ := strings.Cut(mediaType, "/")
		if major != "image" || !allowedSubtypes[sub] {
			return s.reject("content type not allowed", u)
		}
	}
	if u.Size <= 0 || u.Size > s.cfg.MaxBytes {
		return s.reject("size out of range", u)
	}
	if _, err := s.detectExt(u); err != nil {
		return err
	}
	return nil
}

// detectExt sniffs the first bytes of the upload.
func (s *Store) detectExt(u Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", errors.New(fmt.Errorf("open upload: %w", err)).
			Component("media").
			Category(errors.CategoryFileIO).
			Build()
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", errors.New(fmt.Errorf("read upload: %w", err)).
			Component("media").
			Category(errors.CategoryFileIO).
			Build()
	}

	ext, ok := sniffedExt[http.DetectContentType(head[:n])]
	if !ok {
		return "", s.reject("content is not jpeg or png", u)
	}
	return ext, nil
}

// Save writes the upload under a random name and renders its thumbnail.
// It returns the stored file name. Nothing is left on disk on failure.
func (s *Store) Save(ctx context.Context, u Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext, err := s.detectExt(u)
	if err != nil {
		return "", err
	}
	name := uuid.NewString() + ext

	if err := s.writeImage(u, name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(s.ImagePath(name))
		return "", err
	}
	if err := s.thumb(s.ImagePath(name), s.ThumbnailPath(name), s.cfg.ThumbnailWidth, s.cfg.ThumbnailHeight); err != nil {
		_ = os.Remove(s.ImagePath(name))
		return "", err
	}

	s.log.Debug("attachment stored",
		logger.String("file_name", name),
		logger.String("size", bytes.Format(u.Size)))
	return name, nil
}

// writeImage copies the upload through a temp file that is renamed into place.
func (s *Store) writeImage(u Upload, name string) error {
	rc, err := u.Open()
	if err != nil {
		return errors.FileError(fmt.Errorf("open upload: %w", err), u.Filename, u.Size)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(s.cfg.ImagesDir, ".upload-*")
	if err != nil {
		return errors.FileError(fmt.Errorf("create temp file: %w", err), s.cfg.ImagesDir, u.Size)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, io.LimitReader(rc, s.cfg.MaxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.FileError(fmt.Errorf("write upload: %w", err), tmpName, u.Size)
	}
	if written > s.cfg.MaxBytes {
		return s.reject("size out of range", u)
	}

	if err := os.Rename(tmpName, s.ImagePath(name)); err != nil {
		return errors.FileError(fmt.Errorf("store upload: %w", err), s.ImagePath(name), written)
	}
	return nil
}

// Remove deletes a stored image and its thumbnail. Missing files are ignored.
func (s *Store) Remove(name string) error {
	var errs []error
	for _, path := range []string{s.ImagePath(name), s.ThumbnailPath(name)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ImagePath returns the on-disk path of a stored image.
func (s *Store) ImagePath(name string) string {
	return filepath.Join(s.cfg.ImagesDir, filepath.Base(name))
}

// ThumbnailPath returns the on-disk path of a stored thumbnail.
func (s *Store) ThumbnailPath(name string) string {
	return filepath.Join(s.cfg.ThumbnailsDir, filepath.Base(name))
}

// MaxBytes returns the per-file limit.
func (s *Store) MaxBytes() int64 {
	return s.cfg.MaxBytes
}
