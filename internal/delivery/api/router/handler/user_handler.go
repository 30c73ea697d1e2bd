package handler

import (
	"net/http"

	"notekeeper/internal/delivery/api/middleware"
	"notekeeper/internal/delivery/api/response"
	deliverycontext "notekeeper/internal/delivery/context"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// UserHandler serves the guarded account lookups.
type UserHandler struct {
	uc usecase.UserUsecase
}

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	UserUsecase usecase.UserUsecase
}

// NewUserHandler is the constructor for UserHandler.
func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{uc: params.UserUsecase}
}

// GetProfile returns the caller.
func (h *UserHandler) GetProfile(c echo.Context) error {
	user := deliverycontext.GetCurrentUser(c)
	if user == nil {
		return domainerrors.ErrUnauthorized
	}

	return response.JSON(c, http.StatusOK, newUserView(user))
}

// GetUser returns the user named in the path. The guard already checked ownership.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param(middleware.TargetUserParam))
	if err != nil {
		return domainerrors.ErrUserNotFound
	}

	user, err := h.uc.GetUser(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newUserView(user))
}

// FindByEmail looks a user up by the email query parameter.
func (h *UserHandler) FindByEmail(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return domainerrors.ErrValidationFailed.WithDetails("email is required")
	}

	user, err := h.uc.FindUserByEmail(c.Request().Context(), email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newUserView(user))
}
