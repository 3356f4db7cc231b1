package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/caredash/caredash/internal/platform/auth"
)

type Handler struct {
	svc     *Service
	jwtCfg  auth.JWTConfig
	revoked *auth.TokenRevocationStore
}

func NewHandler(svc *Service, jwtCfg auth.JWTConfig, revoked *auth.TokenRevocationStore) *Handler {
	return &Handler{svc: svc, jwtCfg: jwtCfg, revoked: revoked}
}

// RegisterRoutes mounts the auth endpoints. register and login are public
// via the auth skipper; logout requires a valid token so the middleware can
// load the claims being revoked.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Authenticate(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return httpError(err)
	}
	token, claims, err := auth.NewToken(h.jwtCfg, u.ID.String(), u.Username, u.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      u,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	if h.revoked != nil {
		h.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// httpError maps domain errors onto HTTP status codes. Unrecognized errors
// are treated as storage failures.
func httpError(err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrPasswordTooShort):
		return echo.NewHTTPError(http.StatusBadRequest, ErrPasswordTooShort.Error())
	case errors.Is(err, ErrInvalidAdminCode):
		return echo.NewHTTPError(http.StatusForbidden, ErrInvalidAdminCode.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrDuplicateUser):
		return echo.NewHTTPError(http.StatusConflict, ErrDuplicateUser.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	}
}
