package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
}

type Order struct {
	BaseModel
	UserID        uuid.UUID         `gorm:"type:uuid;index" json:"user_id"`
	OrderNumber   string            `gorm:"uniqueIndex" json:"order_number"`
	Status        string            `json:"status"`
	PlacedAt      time.Time         `json:"placed_at"`
	Subtotal      decimal.Decimal   `gorm:"type:numeric(14,2)" json:"subtotal"`
	TotalAmount   decimal.Decimal   `gorm:"type:numeric(14,2)" json:"total_amount"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes"`
	Timeline      []OrderStatusStep `gorm:"type:jsonb;serializer:json" json:"timeline"`
	Items         []OrderItem       `json:"items,omitempty"`
}

// OrderStatusStep records when an order entered a status.
type OrderStatusStep struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2)" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(14,2)" json:"line_total"`
}

// CanTransition reports whether the order may move to status next.
func (o *Order) CanTransition(next string) bool {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Advance moves the order to next and appends the step to its timeline.
// Callers check CanTransition first.
func (o *Order) Advance(next string, at time.Time) {
	o.Status = next
	o.Timeline = append(o.Timeline, OrderStatusStep{Status: next, At: at})
}
