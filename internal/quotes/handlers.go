package quotes

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

// @Summary      Calculate a quote
// @Description  Stateless premium quote from applicant attributes
// @Tags         quotes
// @Produce      json
// @Param        age       query  int     true  "applicant age (>= 18)"
// @Param        car_type  query  string  true  "vehicle category, e.g. sedan/suv/sports"
// @Param        coverage  query  string  true  "basic or full"
// @Success      200  {object}  map[string]any  "quote, parameters"
// @Failure      400  {object}  models.ErrorResponse
// @Router       /quote [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	ageStr := strings.TrimSpace(c.Query("age"))
	age, err := strconv.Atoi(ageStr)
	if err != nil || age <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "age must be a positive integer")
	}

	carType := strings.ToLower(strings.TrimSpace(c.Query("car_type")))
	if carType == "" {
		return fiber.NewError(fiber.StatusBadRequest, "car_type is required")
	}

	coverage := strings.ToLower(strings.TrimSpace(c.Query("coverage")))
	if coverage != "basic" && coverage != "full" {
		return fiber.NewError(fiber.StatusBadRequest, "coverage must be basic or full")
	}

	q, err := Calculate(age, carType, coverage)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"quote": float64(q.Cents) / 100,
		"parameters": fiber.Map{
			"age":      q.Age,
			"car_type": q.CarType,
			"coverage": q.Coverage,
		},
	})
}
