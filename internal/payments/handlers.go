package payments

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/internal/notify"
	"github.com/jelanihq/insurance-backend/pkg/models"
	"github.com/jelanihq/insurance-backend/pkg/reference"
	"github.com/jelanihq/insurance-backend/pkg/utils"
	"github.com/jelanihq/insurance-backend/pkg/validation"
)

// How many reference collisions we tolerate before giving up. With ~1e12
// suffixes a second collision in a row has never been observed.
const maxReferenceAttempts = 5

// ===== DTOs =====

// CreatePaymentRequest has no user/status/reference fields on purpose:
// all three are server-assigned.
type CreatePaymentRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Method   string  `json:"method" validate:"required,oneof=card cash cheque mobile_money"`
	PolicyID string  `json:"policy_id" validate:"omitempty,uuid4"`
}

type PaymentResponse struct {
	ID        uuid.UUID            `json:"id"`
	PolicyID  *uuid.UUID           `json:"policy_id,omitempty"`
	Amount    float64              `json:"amount"`
	Method    models.PaymentMethod `json:"method"`
	Status    models.PaymentStatus `json:"status"`
	Reference string               `json:"reference"`
	CreatedAt time.Time            `json:"created_at"`
}

func toResponse(p models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		PolicyID:  p.PolicyID,
		Amount:    float64(p.AmountCents) / 100,
		Method:    p.Method,
		Status:    p.Status,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
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

// @Summary      Record a payment
// @Description  Creates a pending payment with a server-generated unique reference
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreatePaymentRequest  true  "Payment payload"
// @Success      201  {object}  PaymentResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /payments [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreatePaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, _ := uuid.Parse(auth.MustUserID(c))

	var policyID *uuid.UUID
	if in.PolicyID != "" {
		pid, err := uuid.Parse(in.PolicyID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid policy_id")
		}
		// The referenced policy must belong to the caller.
		var cnt int64
		if err := h.db.Model(&models.Policy{}).
			Where("id = ? AND user_id = ?", pid, userID).
			Count(&cnt).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if cnt == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "unknown policy_id")
		}
		policyID = &pid
	}

	// Sub-cent amounts like 0.004 pass gt=0 but round to zero cents.
	cents := int64(math.Round(in.Amount * 100))
	if cents <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be at least 0.01")
	}

	pay := models.Payment{
		UserID:      userID,
		PolicyID:    policyID,
		AmountCents: cents,
		Method:      models.PaymentMethod(in.Method),
		Status:      models.PaymentPending, // settled later by staff
	}

	// Reference generation and insert form one atomic unit: on a
	// duplicate-key error we regenerate and retry instead of failing.
	var lastErr error
	for i := 0; i < maxReferenceAttempts; i++ {
		pay.Reference = reference.New()
		lastErr = h.db.Create(&pay).Error
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return fiber.ErrInternalServerError
		}
	}
	if lastErr != nil {
		return fiber.ErrInternalServerError
	}

	// Best-effort notification; never fails the create.
	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err == nil {
		_ = notify.PublishPaymentRecorded(context.Background(), notify.PaymentRecordedEvent{
			PaymentID:   pay.ID.String(),
			UserID:      u.ID.String(),
			Email:       u.Email,
			Reference:   pay.Reference,
			AmountCents: pay.AmountCents,
			Method:      string(pay.Method),
			RecordedAt:  pay.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(pay))
}

// @Summary      List my payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /payments [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	page, size := parsePage(c)

	var total int64
	if err := h.db.Model(&models.Payment{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.Payment
	if err := h.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]PaymentResponse, 0, len(rows))
	for _, p := range rows {
		items = append(items, toResponse(p))
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items,
	})
}

// @Summary      Payment detail
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "payment id (uuid)"
// @Success      200  {object}  PaymentResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /payments/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}

	var p models.Payment
	err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(toResponse(p))
}

// ===== Staff settlement =====

type settleReq struct {
	Status string `json:"status" validate:"required,oneof=completed failed"`
}

// @Summary      Settle a payment (staff)
// @Description  Transition a pending payment to completed or failed; idempotent when re-settling to the same status
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string     true  "payment id (uuid)"
// @Param        payload  body  settleReq  true  "target status"
// @Success      200  {object}  PaymentResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "already settled differently"
// @Router       /payments/{id}/settle [post]
func (h *Handler) Settle(c *fiber.Ctx) error {
	actorID, _ := uuid.Parse(auth.MustUserID(c))
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment id")
	}

	var in settleReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	target := models.PaymentStatus(in.Status)

	// Atomic: single winner under concurrent settlement.
	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var p models.Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if p.Status == target {
		tx.Rollback()
		return c.JSON(toResponse(p)) // idempotent
	}
	if p.Status != models.PaymentPending {
		tx.Rollback()
		return fiber.NewError(fiber.StatusConflict, "payment already settled")
	}

	oldStatus := p.Status
	p.Status = target
	if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).
		Update("status", target).Error; err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		return fiber.ErrInternalServerError
	}

	utils.LogAudit(c.Context(), h.db, actorID, "payment", p.ID,
		"settled", string(oldStatus), string(target))

	return c.JSON(toResponse(p))
}
