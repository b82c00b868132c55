package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/middleware"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	store   store.Store
	service *loyalty.Service
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(st store.Store, service *loyalty.Service) *ProfileHandler {
	return &ProfileHandler{store: st, service: service}
}

// GetProfile returns the caller's profile with a loyalty summary.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.store.FindUserByID(c.UserContext(), userID)
	if err != nil {
		return err
	}
	view, err := h.service.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           user.ID,
			"first_name":   user.FirstName,
			"last_name":    user.LastName,
			"display_name": user.DisplayName,
			"phone":        user.Phone,
			"created_at":   user.CreatedAt,
			"loyalty": fiber.Map{
				"current_tier":     view.Account.CurrentTier,
				"available_points": view.Account.AvailablePoints,
				"tier_benefits":    view.Benefits,
			},
		},
	})
}

type updateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

// UpdateProfile updates the caller's name fields. Empty fields are left as is.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.FirstName == "" && req.LastName == "" && req.DisplayName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	user, err := h.store.UpdateUser(c.UserContext(), userID, func(u *models.User) error {
		if req.FirstName != "" {
			u.FirstName = req.FirstName
		}
		if req.LastName != "" {
			u.LastName = req.LastName
		}
		if req.DisplayName != "" {
			u.DisplayName = req.DisplayName
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}
