package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/middleware"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
	"github.com/example/benmarket/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	store store.Store
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(st store.Store) *OrderHandler {
	return &OrderHandler{store: st}
}

type orderItemRequest struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createOrderRequest struct {
	PaymentMethod string             `json:"payment_method"`
	Currency      string             `json:"currency"`
	Notes         string             `json:"notes"`
	Items         []orderItemRequest `json:"items"`
}

// CreateOrder allows authenticated users to place an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order has no items")
	}

	now := time.Now()
	order := models.Order{
		UserID:        userID,
		OrderNumber:   generateOrderNumber(now),
		Status:        models.OrderPending,
		PlacedAt:      now,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Timeline:      []models.OrderStatusStep{{Status: models.OrderPending, At: now}},
	}
	if order.Currency == "" {
		order.Currency = "USD"
	}

	subtotal := decimal.Zero
	for _, p := range req.Items {
		if p.Quantity <= 0 || p.UnitPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item quantity or price")
		}

		item := models.OrderItem{
			ProductName: p.ProductName,
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			LineTotal:   p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity))),
		}
		if p.ProductID != "" {
			if id, err := uuid.Parse(p.ProductID); err == nil {
				item.ProductID = &id
			}
		}

		subtotal = subtotal.Add(item.LineTotal)
		order.Items = append(order.Items, item)
	}
	order.Subtotal = subtotal
	order.TotalAmount = subtotal

	if err := h.store.CreateOrder(c.UserContext(), &order); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.PlacedAt,
			"total":        order.TotalAmount,
			"currency":     order.Currency,
		},
	})
}

// ListOrders returns orders for authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	filter := store.OrderFilter{UserID: userID, Status: c.Query("status")}
	orders, total, err := h.store.ListOrders(c.UserContext(), filter, pg.StorePage())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.store.FindOrder(c.UserContext(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && order.UserID != userID) {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("#%d", now.UnixNano()%1000000000)
}
