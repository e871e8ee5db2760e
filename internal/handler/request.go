package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"choreo-backend/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// maxbytes limits the UTF-8 length; max counts runes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// CredentialsRequest register/login body
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// CreateDanceRequest create dance body
type CreateDanceRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	NumberOfDancers *int   `json:"numberOfDancers" validate:"required"`
}

// UpdateDanceRequest update dance body; absent fields are left unchanged
type UpdateDanceRequest struct {
	Name            *string `json:"name" validate:"omitnil,min=1,max=200"`
	NumberOfDancers *int    `json:"numberOfDancers"`
}

// UpdateFormationRequest update formation body
type UpdateFormationRequest struct {
	Positions []model.Position `json:"positions" validate:"required"`
}

// TokenResponse register/login response
type TokenResponse struct {
	Token string `json:"token"`
}

// bind parses the JSON body into req and validates it. On failure the 400
// response has already been written and the returned error is what the
// handler should return.
func bind(c *fiber.Ctx, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "invalid request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": describe(err),
		})
	}
	return true, nil
}

// describe turns validator errors into "field is required" style text.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "maxbytes":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s bytes", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
