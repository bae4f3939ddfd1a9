package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/pkg/models"
	"github.com/jelanihq/insurance-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /signup
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	// Optional profile fields
	PhoneNumber  string `json:"phone_number" validate:"omitempty,phone"`
	PolicyNumber string `json:"policy_number" validate:"omitempty,policynum"`
}

// Request body for /login. Login accepts a username or an email.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Staff bool   `json:"staff"`
}

// Profile response for /me
type UserProfileResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	PolicyNumber string    `json:"policy_number"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

/* ============================== Handler ================================= */

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "username or email already exists"
// @Router       /signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)

	u := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PolicyNumber: strings.TrimSpace(in.PolicyNumber),
	}
	if err := h.db.Create(&u).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "username or email already exists")
	}

	token, _ := IssueToken(u.ID.String(), u.Username, u.IsStaff)
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, Staff: u.IsStaff})
}

/* ================================ Login ================================= */

// resolveIdentity tries a username match first, then an email match,
// short-circuiting on the first hit.
func (h *Handler) resolveIdentity(login string) (*models.User, error) {
	var u models.User
	if err := h.db.Where("username = ?", login).First(&u).Error; err == nil {
		return &u, nil
	}
	if err := h.db.Where("email = ?", strings.ToLower(login)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// @Summary      Login
// @Description  Authenticate with username or email and receive a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Router       /login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	in.Login = strings.TrimSpace(in.Login)

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	u, err := h.resolveIdentity(in.Login)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return fiber.ErrUnauthorized
	}

	token, _ := IssueToken(u.ID.String(), u.Username, u.IsStaff)
	return c.JSON(AuthResponse{Token: token, Staff: u.IsStaff})
}

/* ================================= Me =================================== */

// @Summary      Get current user profile
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	userID := c.Locals("userID")
	if userID == nil {
		return fiber.ErrUnauthorized
	}

	var u models.User
	if err := h.db.First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	resp := UserProfileResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		PolicyNumber: u.PolicyNumber,
		IsStaff:      u.IsStaff,
		CreatedAt:    u.CreatedAt,
	}
	return c.JSON(resp)
}
