package handler

import (
	"net/http"

	"notekeeper/internal/delivery/api/response"
	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name" validate:"omitempty,max=128"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest is the body of POST /v1/auth/refresh-token.
type RefreshRequest struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	RefreshToken string `json:"refreshToken" validate:"required,max=256"`
}

// ProviderTokenRequest is the body of the federated login routes.
type ProviderTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required,max=4096"`
}

// AuthHandler serves the token-issuing routes.
type AuthHandler struct {
	uc usecase.AuthUsecase
}

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUsecase usecase.AuthUsecase
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{uc: params.AuthUsecase}
}

// Register creates a local account and answers 201 with a first token pair.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusCreated, newAuthView(output))
}

// Login exchanges email and password for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newAuthView(output))
}

// RefreshToken rotates a refresh token. The body is the bare token pair.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.uc.Refresh(c.Request().Context(), &usecase.RefreshInput{
		Email:        req.Email,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.JSON(c, http.StatusOK, newTokenView(pair))
}

// Facebook signs in with a Facebook access token.
func (h *AuthHandler) Facebook(c echo.Context) error {
	return h.federated(c, entity.ProviderFacebook)
}

// Google signs in with a Google access token.
func (h *AuthHandler) Google(c echo.Context) error {
	return h.federated(c, entity.ProviderGoogle)
}

func (h *AuthHandler) federated(c echo.Context, provider entity.Provider) error {
	var req ProviderTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.uc.FederatedLogin(c.Request().Context(), &usecase.FederatedLoginInput{
		Provider:    provider,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	status := http.StatusOK
	if output.Created {
		status = http.StatusCreated
	}

	return response.JSON(c, status, newAuthView(output))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("request body could not be decoded")
	}

	return errors.WithStack(c.Validate(req))
}
