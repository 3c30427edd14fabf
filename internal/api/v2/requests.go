package api

import (
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/incident"
)

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error(auth.MsgCredentialsRequired),
			validation.RuneLength(1, auth.MaxNameLength).Error("用户名过长。")),
		validation.Field(&r.Password,
			validation.Required.Error(auth.MsgCredentialsRequired)),
	)
}

// StarRequest is the body of POST /star. A missing state stars the report.
type StarRequest struct {
	ID    *uint `json:"id"`
	State *bool `json:"state"`
}

// Validate requires the report id.
func (r StarRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.NotNil.Error(MsgBadRequest)),
	)
}

// Desired returns the requested star state.
func (r StarRequest) Desired() bool {
	return r.State == nil || *r.State
}

// MessageDataRequest is the body of POST /messageData. Date is a Unix time
// in milliseconds; its calendar day in the grouping timezone is used.
// Without an id the datum is split into an event of its own.
type MessageDataRequest struct {
	Area     *string `json:"area"`
	Date     *int64  `json:"date"`
	Category *int    `json:"type"`
	EventID  *uint   `json:"id"`
}

// Validate requires the datum key.
func (r MessageDataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Area,
			validation.Required.Error(MsgBadRequest),
			validation.RuneLength(1, entities.MaxAreaLength).Error(MsgBadRequest)),
		validation.Field(&r.Date, validation.NotNil.Error(MsgBadRequest), validation.Min(int64(0)).Error(MsgBadRequest)),
		validation.Field(&r.Category, validation.NotNil.Error(MsgBadRequest)),
	)
}

// EventRequest is the body of POST /event.
type EventRequest struct {
	ID   *uint   `json:"id"`
	Name *string `json:"name"`
}

// Validate requires both fields. Blank names are rejected by the service.
func (r EventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.NotNil.Error(incident.MsgEventNameRequired)),
		validation.Field(&r.Name, validation.NotNil.Error(incident.MsgEventNameRequired)),
	)
}

// validationMessage picks one message from a validation failure, the
// first field in name order.
func validationMessage(err error) string {
	var fields validation.Errors
	if errors.As(err, &fields) {
		for _, key := range slices.Sorted(maps.Keys(fields)) {
			if fields[key] != nil {
				return validationMessage(fields[key])
			}
		}
	}
	return err.Error()
}
