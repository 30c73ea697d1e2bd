package handler

import (
	"net/http"

	"notekeeper/internal/delivery/api/response"
	"notekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// HealthHandler serves liveness probes.
type HealthHandler struct {
	uc usecase.HealthUsecase
}

// HealthHandlerParams holds dependencies for HealthHandler, injected by Fx.
type HealthHandlerParams struct {
	fx.In

	HealthUsecase usecase.HealthUsecase
}

// NewHealthHandler is the constructor for HealthHandler.
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{uc: params.HealthUsecase}
}

// Status answers a bare OK without touching any dependency.
func (h *HealthHandler) Status(c echo.Context) error {
	return response.Text(c, http.StatusOK, "OK")
}

// Health pings the credential store; a failure renders as 503 through the error handler.
func (h *HealthHandler) Health(c echo.Context) error {
	if err := h.uc.Check(c.Request().Context()); err != nil {
		return err
	}

	return response.JSON(c, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
}
