package middleware

import (
	"strings"

	deliverycontext "notekeeper/internal/delivery/context"
	"notekeeper/internal/domain/entity"
	domainerrors "notekeeper/internal/domain/errors"
	"notekeeper/internal/domain/policy"
	"notekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TargetUserParam is the path parameter naming the user a LOGGED_USER route acts on.
const TargetUserParam = "userId"

const bearerPrefix = "Bearer "

// AuthMiddleware authenticates bearer tokens and enforces permission levels.
type AuthMiddleware struct {
	users usecase.UserUsecase
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Users usecase.UserUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{users: params.Users}
}

// Require authenticates the caller and then checks level against the stored role.
// Authentication failures answer 401 before any authorization decision is made.
func (m *AuthMiddleware) Require(level entity.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessToken, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domainerrors.ErrUnauthorized.WrapMessage("missing or malformed bearer token")
			}

			user, err := m.users.Authenticate(c.Request().Context(), accessToken)
			if err != nil {
				return err
			}

			var target uuid.UUID
			if level == entity.PermissionLoggedUser {
				// An unparsable id can never match the caller; only an admin gets through, to a 404.
				target, _ = uuid.Parse(c.Param(TargetUserParam))
			}

			if err := policy.Authorize(level, policy.Caller{ID: user.ID, Role: user.Role}, target); err != nil {
				return err
			}

			deliverycontext.SetCurrentUser(c, user)

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])

	return token, token != ""
}
