package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/middleware"
	"github.com/example/benmarket/internal/utils"
)

// LoyaltyHandler serves the customer-facing loyalty endpoints.
type LoyaltyHandler struct {
	service  *loyalty.Service
	shareURL string
}

// NewLoyaltyHandler constructs LoyaltyHandler.
func NewLoyaltyHandler(service *loyalty.Service, shareURL string) *LoyaltyHandler {
	return &LoyaltyHandler{service: service, shareURL: shareURL}
}

// GetProgram returns the active loyalty program.
func (h *LoyaltyHandler) GetProgram(c *fiber.Ctx) error {
	program, err := h.service.Program(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": program})
}

// GetAccount returns the caller's balances, tier and tier benefits.
func (h *LoyaltyHandler) GetAccount(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.service.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// ListTransactions returns the caller's ledger, newest first.
func (h *LoyaltyHandler) ListTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	entries, total, err := h.service.Transactions(c.UserContext(), userID, pg.StorePage())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       entries,
		"pagination": pg.Meta(total),
	})
}

type redeemRequest struct {
	Points  int64  `json:"points"`
	Reason  string `json:"reason"`
	OrderID string `json:"order_id"`
}

// Redeem spends points from the caller's balance.
func (h *LoyaltyHandler) Redeem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var orderID *string
	if id := strings.TrimSpace(req.OrderID); id != "" {
		orderID = &id
	}

	acct, err := h.service.Redeem(c.UserContext(), userID, req.Points, strings.TrimSpace(req.Reason), orderID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"available_points":  acct.AvailablePoints,
			"total_points":      acct.TotalPoints,
			"lifetime_redeemed": acct.LifetimeRedeemed,
			"current_tier":      acct.CurrentTier,
		},
	})
}

// CreateReferral issues a new referral code for the caller.
func (h *LoyaltyHandler) CreateReferral(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	ref, err := h.service.GenerateReferralCode(c.UserContext(), userID)
	if err != nil {
		return err
	}

	link, err := utils.ReferralLink(h.shareURL, ref.ReferralCode)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"referral_code": ref.ReferralCode,
			"status":        ref.Status,
			"expires_at":    ref.ExpiresAt,
			"share_url":     link,
		},
	})
}

// ReferralQR renders one of the caller's referral codes as a PNG QR code.
func (h *LoyaltyHandler) ReferralQR(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	view, err := h.service.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}
	ref := loyalty.FindReferral(view.Account, c.Params("code"))
	if ref == nil {
		return loyalty.ErrReferralNotFound
	}

	png, err := utils.ReferralQRCode(h.shareURL, ref.ReferralCode)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
