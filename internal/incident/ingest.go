package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/k3a/html2text"
	"golang.org/x/sync/errgroup"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
)

// saveConcurrency bounds parallel image writes and thumbnailing per report.
const saveConcurrency = 4

// IngestRequest is one submitted report. Lng, Lat, ObservedAt and Category
// hold the raw form values and are parsed with ParseCoordinate,
// ParseObservedTime and ParseCategory.
type IngestRequest struct {
	Description string
	Lng         string
	Lat         string
	ObservedAt  string
	Category    string
	Attachments []media.Upload
}

// Ingest validates and stores one report with its attachments. Either the
// report, its datum (and event, if new) and every attachment row are
// committed together with their files on disk, or nothing is.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*entities.Report, error) {
	start := time.Now()
	report, err := s.ingest(ctx, req)

	result := ResultSuccess
	switch {
	case errors.IsValidation(err):
		result = ResultRejected
	case err != nil:
		result = ResultError
	}
	s.recorder.ReportIngested(result, time.Since(start))
	return report, err
}

func (s *Service) ingest(ctx context.Context, req IngestRequest) (*entities.Report, error) {
	if err := s.validateAttachments(req.Attachments); err != nil {
		return nil, err
	}

	now := s.now()
	lng, lat := ParseCoordinate(req.Lng), ParseCoordinate(req.Lat)
	observed := ParseObservedTime(req.ObservedAt, now, s.loc)
	category := ParseCategory(req.Category)
	description := strings.TrimSpace(html2text.HTML2Text(req.Description))

	area := s.geocoder.ReverseGeocode(ctx, lng, lat)
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	key := s.Key(area, observed, category)

	// Files are written before the transaction so that a retried attempt
	// reuses them; a failed ingestion removes them again.
	names, err := s.saveAttachments(ctx, req.Attachments)
	if err != nil {
		return nil, err
	}

	var (
		report  *entities.Report
		created bool
		fx      effects
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		fx = effects{}
		datum, isNew, err := s.resolve(ctx, tx, key, &fx)
		if err != nil {
			return err
		}
		created = isNew

		report = &entities.Report{
			CreatedAt:   now.UTC(),
			Description: description,
			Lng:         lng,
			Lat:         lat,
			Time:        observed.UTC(),
			DatumID:     datum.ID,
		}
		if err := tx.Reports().Create(ctx, report); err != nil {
			return err
		}

		report.Attachments = make([]entities.Attachment, 0, len(names))
		for _, name := range names {
			attachment := entities.Attachment{FileName: name, ReportID: report.ID}
			if err := tx.Reports().CreateAttachment(ctx, &attachment); err != nil {
				return err
			}
			report.Attachments = append(report.Attachments, attachment)
		}
		return nil
	})
	if err != nil {
		s.removeFiles(names)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, err
	}

	s.publish(fx)
	s.log.WithContext(ctx).Info("report ingested",
		logger.Uint("report_id", report.ID),
		logger.Uint("datum_id", report.DatumID),
		logger.Bool("datum_created", created),
		logger.String("area", area),
		logger.String("date", key.Date),
		logger.Int("category", key.Category),
		logger.Int("attachments", len(names)))
	return report, nil
}

func (s *Service) validateAttachments(uploads []media.Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	if len(uploads) > s.maxAttachments {
		return errors.ValidationError(fmt.Sprintf("最多只能上传 %d 张图片。", s.maxAttachments))
	}
	if s.media == nil {
		return errors.Newf("attachments received but no media store is configured").
			Component("incident").
			Category(errors.CategoryConfiguration).
			Build()
	}
	for _, u := range uploads {
		if err := s.media.Validate(u); err != nil {
			return err
		}
	}
	return nil
}

// saveAttachments stores every upload and its thumbnail. Names keep the
// upload order. On failure nothing written by this call remains.
func (s *Service) saveAttachments(ctx context.Context, uploads []media.Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	names := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(saveConcurrency)
	for i, u := range uploads {
		g.Go(func() error {
			name, err := s.media.Save(gctx, u)
			if err != nil {
				return err
			}
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.removeFiles(names)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, err
	}
	return names, nil
}

func (s *Service) removeFiles(names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.media.Remove(name); err != nil {
			s.log.Warn("failed to remove attachment after aborted ingestion",
				logger.String("file", name),
				logger.Error(err))
		}
	}
}

func cancelled(err error) error {
	return errors.New(err).
		Component("incident").
		Category(errors.CategoryCancellation).
		Build()
}
