package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/benmarket/internal/config"
	"github.com/example/benmarket/internal/handlers"
	"github.com/example/benmarket/internal/loyalty"
	"github.com/example/benmarket/internal/middleware"
	"github.com/example/benmarket/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, st store.Store, service *loyalty.Service, publisher handlers.EventPublisher, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(st, cfg, publisher)
	loyaltyHandler := handlers.NewLoyaltyHandler(service, cfg.ReferralShareURL)
	orderHandler := handlers.NewOrderHandler(st)
	reviewHandler := handlers.NewReviewHandler(st, publisher)
	adminHandler := handlers.NewAdminHandler(st, service, publisher)
	profileHandler := handlers.NewProfileHandler(st, service)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/loyalty/program", loyaltyHandler.GetProgram)
	api.Get("/products/:id/reviews", reviewHandler.ListReviews)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret))

	protected.Get("/loyalty/account", loyaltyHandler.GetAccount)
	protected.Get("/loyalty/transactions", loyaltyHandler.ListTransactions)
	protected.Post("/loyalty/redeem", loyaltyHandler.Redeem)
	protected.Post("/loyalty/referrals", loyaltyHandler.CreateReferral)
	protected.Get("/loyalty/referrals/:code/qr", loyaltyHandler.ReferralQR)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Post("/products/:id/reviews", reviewHandler.CreateReview)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)

	admin := protected.Group("/admin", middleware.RequireAdmin(st))
	admin.Put("/loyalty/program", adminHandler.SaveProgram)
	admin.Get("/loyalty/stats", adminHandler.LoyaltyStats)
	admin.Get("/loyalty/accounts/:userId", adminHandler.GetAccount)
	admin.Post("/loyalty/accounts/:userId/adjust", adminHandler.AdjustPoints)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)
}
