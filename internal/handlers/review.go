package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/benmarket/internal/events"
	"github.com/example/benmarket/internal/middleware"
	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
	"github.com/example/benmarket/internal/utils"
)

// ReviewHandler manages product reviews.
type ReviewHandler struct {
	store  store.Store
	events EventPublisher
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(st store.Store, publisher EventPublisher) *ReviewHandler {
	return &ReviewHandler{store: st, events: publisher}
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview stores a review and queues the review bonus.
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	var req createReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "rating must be between 1 and 5")
	}

	review := models.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.store.CreateReview(c.UserContext(), &review); err != nil {
		return err
	}

	h.events.Publish(events.Event{
		Kind:     events.ReviewSubmitted,
		UserID:   userID,
		ReviewID: review.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": review})
}

// ListReviews returns reviews for a product, newest first.
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}

	pg := utils.ParsePagination(c)
	reviews, total, err := h.store.ListReviews(c.UserContext(), productID, pg.StorePage())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       reviews,
		"pagination": pg.Meta(total),
	})
}
