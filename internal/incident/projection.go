package incident

import (
	"context"
	"time"

	"github.com/s-hit/mshd-backend/internal/datastore/repository"
)

// ReportView is the read-side shape of a report for one user.
type ReportView struct {
	ID          uint      `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Description string    `json:"description"`
	Lng         *float64  `json:"lng"`
	Lat         *float64  `json:"lat"`
	Area        string    `json:"area"`
	Category    int       `json:"type"`
	Date        string    `json:"date"`
	Time        time.Time `json:"time"`
	EventID     uint      `json:"eventId"`
	EventName   *string   `json:"eventName"` // nil if the event row is missing
	FileNames   []string  `json:"fileNames"`
	Star        bool      `json:"star"`
}

// Project assembles the view of one report as seen by userID.
func (s *Service) Project(ctx context.Context, reportID, userID uint) (*ReportView, error) {
	row, err := s.store.Reports().GetRow(ctx, reportID, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.project(ctx, []*repository.ReportRow{row})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// project converts rows to views, loading attachment names in one query.
func (s *Service) project(ctx context.Context, rows []*repository.ReportRow) ([]ReportView, error) {
	views := make([]ReportView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	files, err := s.store.Reports().AttachmentNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		names := files[row.ID]
		if names == nil {
			names = []string{}
		}
		views = append(views, ReportView{
			ID:          row.ID,
			CreatedAt:   row.CreatedAt.In(s.loc),
			Description: row.Description,
			Lng:         row.Lng,
			Lat:         row.Lat,
			Area:        row.Area,
			Category:    row.Category,
			Date:        row.Date,
			Time:        row.Time.In(s.loc),
			EventID:     row.EventID,
			EventName:   row.EventName,
			FileNames:   names,
			Star:        row.Starred,
		})
	}
	return views, nil
}
