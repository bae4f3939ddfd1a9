package claims

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/internal/notify"
	"github.com/jelanihq/insurance-backend/internal/storage"
	"github.com/jelanihq/insurance-backend/pkg/models"
	"github.com/jelanihq/insurance-backend/pkg/utils"
	"github.com/jelanihq/insurance-backend/pkg/validation"
)

// ===== DTOs =====

// CreateClaimRequest deliberately has no user/status/created_at fields:
// those are server-assigned, and anything extra in the payload is dropped
// by the parser rather than merged.
type CreateClaimRequest struct {
	ClaimType      string   `json:"claim_type" validate:"required,max=100"`
	Description    string   `json:"description" validate:"required,max=2000"`
	PolicyNumber   string   `json:"policy_number" validate:"omitempty,policynum"`
	DateOfIncident string   `json:"date_of_incident" validate:"omitempty,datetime=2006-01-02"`
	ClaimAmount    *float64 `json:"claim_amount" validate:"omitempty,gte=0"`
}

type ClaimResponse struct {
	ID             uuid.UUID          `json:"id"`
	ClaimType      string             `json:"claim_type"`
	Description    string             `json:"description"`
	PolicyNumber   string             `json:"policy_number,omitempty"`
	DateOfIncident *string            `json:"date_of_incident,omitempty"`
	ClaimAmount    *float64           `json:"claim_amount,omitempty"`
	HasDocument    bool               `json:"has_document"`
	Status         models.ClaimStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
}

func toResponse(cl models.Claim) ClaimResponse {
	out := ClaimResponse{
		ID:           cl.ID,
		ClaimType:    cl.ClaimType,
		Description:  cl.Description,
		PolicyNumber: cl.PolicyNumber,
		HasDocument:  cl.DocumentKey != "",
		Status:       cl.Status,
		CreatedAt:    cl.CreatedAt,
	}
	if cl.DateOfIncident != nil {
		d := cl.DateOfIncident.Format("2006-01-02")
		out.DateOfIncident = &d
	}
	if cl.AmountCents != nil {
		amt := float64(*cl.AmountCents) / 100
		out.ClaimAmount = &amt
	}
	return out
}

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

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

// @Summary      File a claim
// @Description  Create a claim owned by the caller; status is always pending
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateClaimRequest  true  "Claim payload"
// @Success      201  {object}  ClaimResponse
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /claims [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateClaimRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	// Normalize before validating so whitespace-only values fail required.
	in.ClaimType = strings.TrimSpace(in.ClaimType)
	in.Description = strings.TrimSpace(in.Description)
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, _ := uuid.Parse(auth.MustUserID(c))
	cl := models.Claim{
		UserID:       userID,
		ClaimType:    in.ClaimType,
		Description:  in.Description,
		PolicyNumber: in.PolicyNumber,
		Status:       models.ClaimPending, // server-authoritative
	}
	if in.DateOfIncident != "" {
		d, err := time.Parse("2006-01-02", in.DateOfIncident)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date_of_incident")
		}
		cl.DateOfIncident = &d
	}
	if in.ClaimAmount != nil {
		cents := int64(math.Round(*in.ClaimAmount * 100))
		cl.AmountCents = &cents
	}

	if err := h.db.Create(&cl).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Best-effort notification; never fails the create.
	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err == nil {
		_ = notify.PublishClaimFiled(context.Background(), notify.ClaimFiledEvent{
			ClaimID:   cl.ID.String(),
			UserID:    u.ID.String(),
			Email:     u.Email,
			ClaimType: cl.ClaimType,
			FiledAt:   cl.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(cl))
}

// @Summary      List my claims
// @Description  Paginated list of the caller's own claims
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  models.ErrorResponse
// @Router       /claims [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	page, size := parsePage(c)

	var total int64
	if err := h.db.Model(&models.Claim{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.Claim
	if err := h.db.
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]ClaimResponse, 0, len(rows))
	for _, cl := range rows {
		items = append(items, toResponse(cl))
	}

	return c.JSON(fiber.Map{
		"page": page, "pageSize": size, "total": total,
		"pages": int(math.Ceil(float64(total) / float64(size))),
		"items": items, // always [] when empty
	})
}

// @Summary      Claim detail
// @Description  Owner gets one claim; non-owners see 404, never 403
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "claim id (uuid)"
// @Success      200  {object}  ClaimResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /claims/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid claim id")
	}

	var cl models.Claim
	err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&cl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(toResponse(cl))
}

// ===== Staff status transition =====

type updateStatusReq struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// @Summary      Decide a claim (staff)
// @Description  Transition a pending claim to approved or rejected
// @Tags         claims
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "claim id (uuid)"
// @Param        payload  body  updateStatusReq  true  "target status"
// @Success      200  {object}  ClaimResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "claim already decided"
// @Router       /claims/{id}/status [patch]
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	actorID, _ := uuid.Parse(auth.MustUserID(c))
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid claim id")
	}

	var in updateStatusReq
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	tx := h.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var cl models.Claim
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cl, "id = ?", id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if cl.Status != models.ClaimPending {
		tx.Rollback()
		return fiber.NewError(fiber.StatusConflict, "claim already decided")
	}

	oldStatus := cl.Status
	cl.Status = models.ClaimStatus(in.Status)
	if err := tx.Model(&models.Claim{}).Where("id = ?", cl.ID).
		Update("status", cl.Status).Error; err != nil {
		tx.Rollback()
		return fiber.ErrInternalServerError
	}
	if err := tx.Commit().Error; err != nil {
		return fiber.ErrInternalServerError
	}

	utils.LogAudit(c.Context(), h.db, actorID, "claim", cl.ID,
		"status_changed", string(oldStatus), string(cl.Status))

	return c.JSON(toResponse(cl))
}
