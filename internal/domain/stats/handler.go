package stats

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caredash/caredash/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the stats routes. Route-level middleware (ETag,
// response cache) is passed through so only the aggregate endpoint pays for
// response buffering. The role gate runs first so an unknown role is
// rejected before the cache can answer.
func (h *Handler) RegisterRoutes(api *echo.Group, m ...echo.MiddlewareFunc) {
	api.GET("/stats", h.Overview, append([]echo.MiddlewareFunc{auth.RequireRole("user")}, m...)...)
}

// Overview handles GET /api/v1/stats.
func (h *Handler) Overview(c echo.Context) error {
	overview, err := h.svc.Overview(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	}
	return c.JSON(http.StatusOK, overview)
}
