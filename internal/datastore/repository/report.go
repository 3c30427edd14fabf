package repository

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
)

// ReportRow is a report joined with its datum, event and the requesting
// user's star. EventName is nil when the event row is missing.
type ReportRow struct {
	ID          uint
	CreatedAt   time.Time
	Description string
	Lng         *float64
	Lat         *float64
	Time        time.Time
	DatumID     uint
	Area        string
	Date        string
	Category    int
	EventID     uint
	EventName   *string
	Starred     bool
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	UserID      uint  // whose stars are joined
	EventID     *uint // only reports whose datum belongs to this event
	StarredOnly bool  // only reports starred by UserID
}

// Coordinates is the location of one report; either value may be nil.
type Coordinates struct {
	Lng *float64
	Lat *float64
}

// ReportRepository provides access to the reports and attachments tables.
type ReportRepository interface {
	// Create inserts the report without its attachments.
	Create(ctx context.Context, report *entities.Report) error

	// CreateAttachment inserts one attachment row.
	CreateAttachment(ctx context.Context, attachment *entities.Attachment) error

	// Exists reports whether a report with the id exists.
	Exists(ctx context.Context, id uint) (bool, error)

	// GetRow returns ErrReportNotFound if the report does not exist.
	GetRow(ctx context.Context, id, userID uint) (*ReportRow, error)

	// ListRows returns matching reports newest first.
	ListRows(ctx context.Context, filter ReportFilter, offset, limit int) ([]*ReportRow, error)

	// CountRows counts the reports ListRows would return without paging.
	CountRows(ctx context.Context, filter ReportFilter) (int64, error)

	// AttachmentNames maps report IDs to their file names in upload order.
	AttachmentNames(ctx context.Context, reportIDs []uint) (map[uint][]string, error)

	// Count returns the total number of reports.
	Count(ctx context.Context) (int64, error)

	// CountSince counts reports created at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// CoordinatesSince returns up to limit locations of reports created at
	// or after since, oldest first.
	CoordinatesSince(ctx context.Context, since time.Time, limit int) ([]Coordinates, error)
}
