package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s-hit/mshd-backend/internal/api/v2/auth"
	"github.com/s-hit/mshd-backend/internal/datastore/entities"
	"github.com/s-hit/mshd-backend/internal/errors"
)

// LoginResponse carries the token for subsequent requests.
type LoginResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// Login handles POST /login. Unknown names are registered on first login
// when auth.auto_register is set.
func (c *Controller) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, auth.MsgCredentialsRequired)
	}
	if err := req.Validate(); err != nil {
		return badRequest(ctx, validationMessage(err))
	}

	token, err := c.authService.Login(ctx.Request().Context(), req.Name, req.Password)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Status: StatusSuccess, Token: token})
}

// currentUser returns the user stored by the auth middleware.
func currentUser(ctx echo.Context) (*entities.User, error) {
	user, ok := auth.UserFrom(ctx)
	if !ok {
		return nil, errors.Newf("route is missing the auth middleware").
			Component("api").
			Category(errors.CategoryAuthentication).
			Context("path", ctx.Path()).
			Build()
	}
	return user, nil
}
