package incident

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/datastore/repository"
)

// ReportQuery selects a page of reports for UserID. Page is zero based.
type ReportQuery struct {
	UserID      uint
	Page        int
	EventID     *uint
	StarredOnly bool
}

// ReportPage is one page of reports. MessageData lists the event's data
// when the query was filtered by event.
type ReportPage struct {
	Messages    []ReportView      `json:"messages"`
	MessageData []*entities.Datum `json:"messageData,omitempty"`
	MaxPage     int               `json:"maxPage"`
}

// EventPage is one page of events.
type EventPage struct {
	Events  []*entities.Event `json:"events"`
	MaxPage int               `json:"maxPage"`
}

// ListReports returns reports newest first, ReportPageSize per page. A page
// past the end is empty.
func (s *Service) ListReports(ctx context.Context, q ReportQuery) (*ReportPage, error) {
	filter := repository.ReportFilter{UserID: q.UserID, EventID: q.EventID, StarredOnly: q.StarredOnly}

	total, err := s.store.Reports().CountRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Reports().ListRows(ctx, filter, pageOffset(q.Page, ReportPageSize), ReportPageSize)
	if err != nil {
		return nil, err
	}
	views, err := s.project(ctx, rows)
	if err != nil {
		return nil, err
	}

	page := &ReportPage{Messages: views, MaxPage: maxPage(total, ReportPageSize)}
	if q.EventID != nil {
		page.MessageData, err = s.store.Data().ListByEvent(ctx, *q.EventID)
		if err != nil {
			return nil, err
		}
	}
	return page, nil
}

// ListEvents returns events newest first, EventPageSize per page.
func (s *Service) ListEvents(ctx context.Context, page int) (*EventPage, error) {
	total, err := s.store.Events().Count(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.store.Events().List(ctx, pageOffset(page, EventPageSize), EventPageSize)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*entities.Event{}
	}
	return &EventPage{Events: events, MaxPage: maxPage(total, EventPageSize)}, nil
}
