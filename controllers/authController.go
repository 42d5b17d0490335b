package controllers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"needthisdone-payments/middlewares"
	"needthisdone-payments/models"
)

type registerRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=255" normalize:"lower"`
	Password        string `json:"password" validate:"required,min=8,max=72" normalize:"-"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password" normalize:"-"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" normalize:"lower"`
	Password string `json:"password" validate:"required" normalize:"-"`
}

// Register creates a customer account. A matching X-Admin-Registration-Key
// header creates an admin instead; a wrong one is refused.
func (h *Controller) Register(c *fiber.Ctx) error {
	var data registerRequest
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	role := models.RoleCustomer
	if key := c.Get("X-Admin-Registration-Key"); key != "" {
		if h.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
			return fiber.NewError(fiber.StatusForbidden, "invalid admin registration key")
		}
		role = models.RoleAdmin
	}

	var mailExist models.User
	err := h.db.WithContext(c.UserContext()).Where("email = ?", data.Email).Take(&mailExist).Error
	if err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user := models.User{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Role:      role,
	}
	if err := user.SetPassword(data.Password); err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		// lost a race on the unique email index
		return fiber.NewError(fiber.StatusBadRequest, "could not create user")
	}

	h.log.Info("user registered", zap.String("user_id", user.Id), zap.String("role", user.Role))
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Controller) Login(c *fiber.Ctx) error {
	var data loginRequest
	if err := middlewares.BindAndValidate(c, &data); err != nil {
		return err
	}

	var user models.User
	if err := h.db.WithContext(c.UserContext()).Where("email = ?", data.Email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if err := user.ComparePassword(data.Password); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := h.auth.GenerateJWT(&user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
