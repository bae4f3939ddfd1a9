package dashboard

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/internal/cache"
)

// Dashboards are reporting surfaces; a little staleness is fine and keeps
// the aggregate queries off the hot path.
const cacheTTL = 30 * time.Second

type Handler struct {
	db *gorm.DB
	ca *cache.Cache
}

func NewHandler(db *gorm.DB, ca *cache.Cache) *Handler {
	return &Handler{db: db, ca: ca}
}

func sendJSON(c *fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// @Summary      Dashboard
// @Description  Staff callers get the global summary; everyone else gets their own account summary
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /dashboard [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, err := uuid.Parse(auth.MustUserID(c))
	if err != nil {
		return fiber.ErrUnauthorized
	}

	key := "dashboard:user:" + userID.String()
	if auth.IsStaff(c) {
		key = "dashboard:admin"
	}
	if body := h.ca.Get(c.Context(), key); body != nil {
		c.Set("X-Cache", "HIT")
		return sendJSON(c, body)
	}

	var summary any
	if auth.IsStaff(c) {
		summary, err = BuildAdminSummary(h.db, time.Now())
	} else {
		summary, err = BuildUserSummary(h.db, userID, time.Now())
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	h.ca.Set(c.Context(), key, body, cacheTTL)
	return sendJSON(c, body)
}
