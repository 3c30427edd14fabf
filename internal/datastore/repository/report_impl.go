package repository

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reportRowColumns selects the ReportRow fields from the joined tables.
const reportRowColumns = "reports.id, reports.created_at, reports.description, reports.lng, reports.lat, " +
	"reports.time, reports.datum_id, data.area, data.date, data.category, data.event_id, " +
	"events.name AS event_name, CASE WHEN stars.id IS NULL THEN 0 ELSE 1 END AS starred"

// idChunkSize keeps IN lists below SQLite's bound parameter limit.
const idChunkSize = 500

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *entities.Report) error {
	return dbError(r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error)
}

func (r *reportRepository) CreateAttachment(ctx context.Context, attachment *entities.Attachment) error {
	return dbError(r.db.WithContext(ctx).Create(attachment).Error)
}

func (r *reportRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Report{}).Where("id = ?", id).Count(&count).Error
	return count > 0, dbError(err)
}

// joined builds the reports/data/events/stars join shared by row queries.
func (r *reportRepository) joined(ctx context.Context, filter ReportFilter) *gorm.DB {
	starJoin := "LEFT JOIN stars ON stars.report_id = reports.id AND stars.user_id = ?"
	if filter.StarredOnly {
		starJoin = "JOIN stars ON stars.report_id = reports.id AND stars.user_id = ?"
	}

	q := r.db.WithContext(ctx).Table(tableReports).
		Joins("JOIN data ON data.id = reports.datum_id").
		Joins("LEFT JOIN events ON events.id = data.event_id").
		Joins(starJoin, filter.UserID)
	if filter.EventID != nil {
		q = q.Where("data.event_id = ?", *filter.EventID)
	}
	return q
}

func (r *reportRepository) GetRow(ctx context.Context, id, userID uint) (*ReportRow, error) {
	var rows []*ReportRow
	err := r.joined(ctx, ReportFilter{UserID: userID}).
		Select(reportRowColumns).
		Where("reports.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err)
	}
	if len(rows) == 0 {
		return nil, notFound(gorm.ErrRecordNotFound, ErrReportNotFound)
	}
	return rows[0], nil
}

func (r *reportRepository) ListRows(ctx context.Context, filter ReportFilter, offset, limit int) ([]*ReportRow, error) {
	var rows []*ReportRow
	err := r.joined(ctx, filter).
		Select(reportRowColumns).
		Order("reports.created_at DESC").Order("reports.id DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	return rows, dbError(err)
}

func (r *reportRepository) CountRows(ctx context.Context, filter ReportFilter) (int64, error) {
	var count int64
	err := r.joined(ctx, filter).Count(&count).Error
	return count, dbError(err)
}

func (r *reportRepository) AttachmentNames(ctx context.Context, reportIDs []uint) (map[uint][]string, error) {
	names := make(map[uint][]string, len(reportIDs))
	for start := 0; start < len(reportIDs); start += idChunkSize {
		end := min(start+idChunkSize, len(reportIDs))

		var attachments []entities.Attachment
		err := r.db.WithContext(ctx).Table(tableAttachments).
			Select("report_id", "file_name").
			Where("report_id IN ?", reportIDs[start:end]).
			Order("id ASC").
			Find(&attachments).Error
		if err != nil {
			return nil, dbError(err)
		}
		for i := range attachments {
			names[attachments[i].ReportID] = append(names[attachments[i].ReportID], attachments[i].FileName)
		}
	}
	return names, nil
}

func (r *reportRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Report{}).Count(&count).Error
	return count, dbError(err)
}

func (r *reportRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Report{}).
		Where("created_at >= ?", since.UTC()).
		Count(&count).Error
	return count, dbError(err)
}

func (r *reportRepository) CoordinatesSince(ctx context.Context, since time.Time, limit int) ([]Coordinates, error) {
	var coords []Coordinates
	err := r.db.WithContext(ctx).Table(tableReports).
		Select("lng", "lat").
		Where("created_at >= ?", since.UTC()).
		Order("id ASC").
		Limit(limit).
		Scan(&coords).Error
	return coords, dbError(err)
}
