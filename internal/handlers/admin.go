package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/events"
	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
	"github.com/example/benmarket/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	store   store.Store
	service *loyalty.Service
	events  EventPublisher
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(st store.Store, service *loyalty.Service, publisher EventPublisher) *AdminHandler {
	return &AdminHandler{store: st, service: service, events: publisher}
}

type tierRequest struct {
	Name      string   `json:"name"`
	MinPoints int64    `json:"min_points"`
	Benefits  []string `json:"benefits"`
}

type programRequest struct {
	Name                  string          `json:"name"`
	PointsPerDollar       decimal.Decimal `json:"points_per_dollar"`
	PointsForRegistration int64           `json:"points_for_registration"`
	PointsForReview       int64           `json:"points_for_review"`
	PointsForReferral     int64           `json:"points_for_referral"`
	ExpiryMonths          int             `json:"expiry_months"`
	Tiers                 []tierRequest   `json:"tiers"`
}

// SaveProgram validates the posted program and makes it the active one.
func (h *AdminHandler) SaveProgram(c *fiber.Ctx) error {
	var req programRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	program := models.LoyaltyProgram{
		Name:                  strings.TrimSpace(req.Name),
		PointsPerDollar:       req.PointsPerDollar,
		PointsForRegistration: req.PointsForRegistration,
		PointsForReview:       req.PointsForReview,
		PointsForReferral:     req.PointsForReferral,
		ExpiryMonths:          req.ExpiryMonths,
	}
	for _, t := range req.Tiers {
		benefits := t.Benefits
		if benefits == nil {
			benefits = []string{}
		}
		program.Tiers = append(program.Tiers, models.Tier{
			Name:      strings.TrimSpace(t.Name),
			MinPoints: t.MinPoints,
			Benefits:  benefits,
		})
	}

	if err := h.service.SaveProgram(c.UserContext(), &program); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": program})
}

// LoyaltyStats returns ledger aggregates for the admin dashboard.
func (h *AdminHandler) LoyaltyStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// GetAccount returns any user's loyalty account.
func (h *AdminHandler) GetAccount(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}
	if _, err := h.store.FindUserByID(c.UserContext(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return loyalty.ErrAccountNotFound
		}
		return err
	}

	view, err := h.service.Account(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

type adjustRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// AdjustPoints applies a signed correction to a user's balance.
func (h *AdminHandler) AdjustPoints(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	acct, err := h.service.AdjustPoints(c.UserContext(), userID, req.Points, strings.TrimSpace(req.Reason))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": acct})
}

// ListAllOrders returns all orders with pagination and status filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	orders, total, err := h.store.ListOrders(c.UserContext(), store.OrderFilter{Status: c.Query("status")}, pg.StorePage())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order along its status machine. Delivery
// queues the purchase award.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req orderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	next := strings.ToLower(strings.TrimSpace(req.Status))

	order, err := h.store.UpdateOrder(c.UserContext(), id, func(o *models.Order) error {
		if !o.CanTransition(next) {
			return fiber.NewError(fiber.StatusConflict, "cannot move order from "+o.Status+" to "+next)
		}
		o.Advance(next, time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	if order.Status == models.OrderDelivered {
		h.events.Publish(events.Event{
			Kind:    events.OrderCompleted,
			UserID:  order.UserID,
			OrderID: order.ID.String(),
			Amount:  order.TotalAmount,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
