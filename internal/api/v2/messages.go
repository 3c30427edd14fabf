package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/incident"
	"github.com/s-hit/mshd-backend/internal/logger"
	"github.com/s-hit/mshd-backend/internal/media"
)

// fileFields are the multipart field names accepted for attachments.
var fileFields = []string{"file", "file[]"}

// StatusResponse acknowledges a mutation.
type StatusResponse struct {
	Status string `json:"status"`
}

// MessageResponse acknowledges a stored report.
type MessageResponse struct {
	Status string `json:"status"`
	ID     uint   `json:"id"`
}

// StarResponse echoes the resulting star state.
type StarResponse struct {
	Status string `json:"status"`
	State  bool   `json:"state"`
}

// PostMessage handles POST /message, a multipart form with description,
// lng, lat, type, time and any number of file parts.
func (c *Controller) PostMessage(ctx echo.Context) error {
	var uploads []media.Upload
	form, err := ctx.MultipartForm()
	switch {
	case err == nil:
		for _, field := range fileFields {
			for _, fh := range form.File[field] {
				uploads = append(uploads, media.FromFileHeader(fh))
			}
		}
	case errors.Is(err, http.ErrNotMultipart):
		// plain form submissions carry no files
	default:
		c.log.Debug("unreadable report form", logger.Error(err))
		return badRequest(ctx, "")
	}

	report, err := c.incidents.Ingest(ctx.Request().Context(), incident.IngestRequest{
		Description: ctx.FormValue("description"),
		Lng:         ctx.FormValue("lng"),
		Lat:         ctx.FormValue("lat"),
		ObservedAt:  ctx.FormValue("time"),
		Category:    ctx.FormValue("type"),
		Attachments: uploads,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Status: StatusSuccess, ID: report.ID})
}

// PostStar handles POST /star.
func (c *Controller) PostStar(ctx echo.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	var req StarRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "")
	}
	if err := req.Validate(); err != nil {
		return badRequest(ctx, validationMessage(err))
	}

	state, err := c.incidents.SetStar(ctx.Request().Context(), user.ID, *req.ID, req.Desired())
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, StarResponse{Status: StatusSuccess, State: state})
}

// PostMessageData handles POST /messageData, which moves the datum for
// (area, date, type) into event id, or into a new event when id is absent.
func (c *Controller) PostMessageData(ctx echo.Context) error {
	var req MessageDataRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "")
	}
	if err := req.Validate(); err != nil {
		return badRequest(ctx, validationMessage(err))
	}

	err := c.incidents.ReassignByKey(ctx.Request().Context(),
		*req.Area,
		time.UnixMilli(*req.Date),
		incident.Category(*req.Category),
		req.EventID)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, StatusResponse{Status: StatusSuccess})
}

// PostEvent handles POST /event, which renames an event.
func (c *Controller) PostEvent(ctx echo.Context) error {
	var req EventRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, incident.MsgEventNameRequired)
	}
	if err := req.Validate(); err != nil {
		return badRequest(ctx, validationMessage(err))
	}

	if err := c.incidents.RenameEvent(ctx.Request().Context(), *req.ID, *req.Name); err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, StatusResponse{Status: StatusSuccess})
}
