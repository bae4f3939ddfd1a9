package claims

import (
	"errors"
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/internal/auth"
	"github.com/jelanihq/insurance-backend/pkg/models"
)

// @Summary      Upload claim document (PDF/PNG)
// @Description  Owner attaches a supporting document to their claim
// @Tags         claims
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id        path      string  true  "claim id (uuid)"
// @Param        document  formData  file    true  "PDF or PNG, max 10MB"
// @Success      201  {object}  map[string]any  "key, name, size"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /claims/{id}/document [post]
func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	claimID := c.Params("id")

	// Ownership check; absent or foreign claims read as not found.
	var cl models.Claim
	if err := h.db.Where("id = ? AND user_id = ?", claimID, userID).First(&cl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	fh, err := c.FormFile("document")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "document file is required (use key: document)")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > 10*1024*1024 {
		return fiber.NewError(fiber.StatusBadRequest, "max 10MB per file")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	switch ct {
	case "application/pdf", "image/png":
		// ok
	default:
		return fiber.NewError(fiber.StatusBadRequest, "only PDF or PNG are allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	key := h.sb.MakeObjectKey(claimID, fh.Filename)
	if err := h.sb.Upload(key, f, ct, fh.Size); err != nil {
		return fiber.ErrInternalServerError
	}

	if err := h.db.Model(&models.Claim{}).Where("id = ?", cl.ID).
		Update("document_key", key).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":  key,
		"name": fh.Filename,
		"size": fh.Size,
	})
}

// @Summary      Signed URL for a claim document
// @Description  Owner or staff fetches a short-lived download URL
// @Tags         claims
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "claim id (uuid)"
// @Success      200  {object}  map[string]string  "url"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /claims/{id}/document/signed-url [get]
func (h *Handler) SignedDocumentURL(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)
	claimID := c.Params("id")

	q := h.db.Where("id = ?", claimID)
	if !auth.IsStaff(c) {
		q = q.Where("user_id = ?", userID)
	}
	var cl models.Claim
	if err := q.First(&cl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if cl.DocumentKey == "" {
		return fiber.ErrNotFound
	}

	// sb == nil in tests: hand back a dummy URL instead of calling out.
	if h.sb == nil {
		return c.JSON(fiber.Map{"url": "dummy://" + cl.DocumentKey})
	}

	url, err := h.sb.SignedURL(cl.DocumentKey, 300)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url})
}
