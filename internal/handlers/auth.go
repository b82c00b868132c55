package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/benmarket/internal/config"
	"github.com/example/benmarket/internal/events"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
	"github.com/example/benmarket/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	store  store.Store
	cfg    *config.Config
	events EventPublisher
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(st store.Store, cfg *config.Config, publisher EventPublisher) *AuthHandler {
	return &AuthHandler{store: st, cfg: cfg, events: publisher}
}

type registerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

// Register creates a user and queues the welcome bonus. A referral code, when
// given, is credited to its owner in the background.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrWeakPassword) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		DisplayName:  strings.TrimSpace(req.FirstName + " " + req.LastName),
		PasswordHash: passwordHash,
		IsAdmin:      h.cfg.IsAdminPhone(req.Phone),
	}

	if err := h.store.CreateUser(c.UserContext(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fiber.NewError(fiber.StatusConflict, "user already exists")
		}
		return err
	}

	h.events.Publish(events.Event{
		Kind:         events.UserRegistered,
		UserID:       user.ID,
		ReferralCode: strings.TrimSpace(req.ReferralCode),
	})

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.store.FindUserByPhone(c.UserContext(), strings.TrimSpace(req.Phone))
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"token":   token,
	})
}
