package policies

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/pkg/models"
	"github.com/jelanihq/insurance-backend/pkg/utils"
	"github.com/jelanihq/insurance-backend/pkg/validation"
)

// ===== DTOs =====

// CreatePolicyRequest is the staff-only stand-in for the external
// underwriting feed.
type CreatePolicyRequest struct {
	UserID       string  `json:"user_id" validate:"required,uuid4"`
	PolicyNumber string  `json:"policy_number" validate:"required,policynum"`
	PolicyType   string  `json:"policy_type" validate:"required,max=40"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Premium      float64 `json:"premium" validate:"gte=0"`
}

type PolicyResponse struct {
	ID           uuid.UUID           `json:"id"`
	PolicyNumber string              `json:"policy_number"`
	PolicyType   string              `json:"policy_type"`
	StartDate    string              `json:"start_date"`
	EndDate      string              `json:"end_date"`
	Premium      float64             `json:"premium"`
	Status       models.PolicyStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toResponse(p models.Policy) PolicyResponse {
	return PolicyResponse{
		ID:           p.ID,
		PolicyNumber: p.PolicyNumber,
		PolicyType:   p.PolicyType,
		StartDate:    p.StartDate.Format("2006-01-02"),
		EndDate:      p.EndDate.Format("2006-01-02"),
		Premium:      float64(p.PremiumCents) / 100,
		Status:       p.Status,
		CreatedAt:    p.CreatedAt,
	}
}

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// @Summary      List my policies
// @Tags         policies
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /policies [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	page, size := parsePage(c)

	var total int64
	if err := h.db.Model(&models.Policy{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.Policy
	if err := h.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]PolicyResponse, 0, len(rows))
	for _, p := range rows {
		items = append(items, toResponse(p))
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items,
	})
}

// @Summary      Policy detail
// @Tags         policies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "policy id (uuid)"
// @Success      200  {object}  PolicyResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /policies/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid policy id")
	}

	var p models.Policy
	err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(toResponse(p))
}

// @Summary      Create policy (staff)
// @Description  Records an underwritten policy for a user
// @Tags         policies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreatePolicyRequest  true  "Policy payload"
// @Success      201  {object}  PolicyResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "policy number already exists"
// @Router       /policies [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreatePolicyRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	// Normalize before validating so whitespace-only values fail required.
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	in.PolicyType = strings.TrimSpace(in.PolicyType)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}
	start, _ := time.Parse("2006-01-02", in.StartDate)
	end, _ := time.Parse("2006-01-02", in.EndDate)
	if end.Before(start) {
		return fiber.NewError(fiber.StatusBadRequest, "end_date must not precede start_date")
	}

	var cnt int64
	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "unknown user_id")
	}

	p := models.Policy{
		UserID:       userID,
		PolicyNumber: in.PolicyNumber,
		PolicyType:   in.PolicyType,
		StartDate:    start,
		EndDate:      end,
		PremiumCents: int64(math.Round(in.Premium * 100)),
		Status:       models.PolicyActive,
	}
	if err := h.db.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "policy number already exists")
		}
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(toResponse(p))
}

// @Summary      Cancel a policy
// @Description  Owner or staff cancels an active policy; transition is one-way
// @Tags         policies
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "policy id (uuid)"
// @Success      200  {object}  PolicyResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "policy not active"
// @Router       /policies/{id}/cancel [post]
func (h *Handler) Cancel(c *fiber.Ctx) error {
	actorID, _ := uuid.Parse(auth.MustUserID(c))
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid policy id")
	}

	q := h.db.Where("id = ?", id)
	if !auth.IsStaff(c) {
		q = q.Where("user_id = ?", actorID)
	}
	var p models.Policy
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	// Guard the monotonic transition in the WHERE clause so two concurrent
	// cancels cannot both win.
	res := h.db.Model(&models.Policy{}).
		Where("id = ? AND status = ?", p.ID, models.PolicyActive).
		Update("status", models.PolicyCancelled)
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusConflict, "policy is not active")
	}

	utils.LogAudit(c.Context(), h.db, actorID, "policy", p.ID,
		"cancelled", string(models.PolicyActive), string(models.PolicyCancelled))

	p.Status = models.PolicyCancelled
	return c.JSON(toResponse(p))
}

// @Summary      Expire overdue policies (staff)
// @Description  Sweeps active policies whose end_date has passed to expired
// @Tags         policies
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]int64  "expired"
// @Failure      403  {object}  models.ErrorResponse
// @Router       /policies/expire-due [post]
func (h *Handler) ExpireDue(c *fiber.Ctx) error {
	actorID, _ := uuid.Parse(auth.MustUserID(c))
	today := time.Now().Format("2006-01-02")

	var due []uuid.UUID
	if err := h.db.Model(&models.Policy{}).
		Where("status = ? AND end_date < ?", models.PolicyActive, today).
		Pluck("id", &due).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Per-policy conditional updates so each swept policy gets its own
	// audit row and a concurrent cancel cannot be overwritten.
	var expired int64
	for _, id := range due {
		res := h.db.Model(&models.Policy{}).
			Where("id = ? AND status = ?", id, models.PolicyActive).
			Update("status", models.PolicyExpired)
		if res.Error != nil {
			return fiber.ErrInternalServerError
		}
		if res.RowsAffected == 0 {
			continue
		}
		expired += res.RowsAffected
		utils.LogAudit(c.Context(), h.db, actorID, "policy", id,
			"expired", string(models.PolicyActive), string(models.PolicyExpired))
	}

	return c.JSON(fiber.Map{"expired": expired})
}
