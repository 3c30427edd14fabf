package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s-hit/mshd-backend/internal/incident"
)

// HomeResponse is the body of GET /page/home.
type HomeResponse struct {
	Status string `json:"status"`
	*incident.HomeStats
}

// MessagesResponse is the body of GET /page/messages.
type MessagesResponse struct {
	Status string `json:"status"`
	*incident.ReportPage
}

// EventsResponse is the body of GET /page/events.
type EventsResponse struct {
	Status string `json:"status"`
	*incident.EventPage
}

// GetHome handles GET /page/home.
func (c *Controller) GetHome(ctx echo.Context) error {
	stats, err := c.incidents.HomeStats(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, HomeResponse{Status: StatusSuccess, HomeStats: stats})
}

// GetMessages handles GET /page/messages.
//
// Query parameters: page (zero based), eventId to list one event together
// with its data, and filter=true to list only the caller's starred reports.
func (c *Controller) GetMessages(ctx echo.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	query := incident.ReportQuery{
		UserID:      user.ID,
		Page:        incident.ParseInt(ctx.QueryParam("page")),
		StarredOnly: ctx.QueryParam("filter") == "true",
	}
	if id := incident.ParseInt(ctx.QueryParam("eventId")); id > 0 {
		eventID := uint(id)
		query.EventID = &eventID
	}

	page, err := c.incidents.ListReports(ctx.Request().Context(), query)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, MessagesResponse{Status: StatusSuccess, ReportPage: page})
}

// GetEvents handles GET /page/events.
func (c *Controller) GetEvents(ctx echo.Context) error {
	page, err := c.incidents.ListEvents(ctx.Request().Context(), incident.ParseInt(ctx.QueryParam("page")))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, EventsResponse{Status: StatusSuccess, EventPage: page})
}
