// Package store persists users, loyalty accounts, programs, orders and
// reviews. GormStore backs production on PostgreSQL; MemoryStore serves tests
// and the STORE_DRIVER=memory mode.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/benmarket/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// AccountMutator changes a locked account aggregate in place. It reports
// whether anything changed; returning false skips the write. A non-nil error
// discards every change.
type AccountMutator func(acct *models.LoyaltyAccount) (bool, error)

// OrderMutator changes a locked order in place.
type OrderMutator func(order *models.Order) error

// Page selects a window of a list ordered newest first.
type Page struct {
	Limit  int
	Offset int
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	UserID uuid.UUID
	Status string
}

// LoyaltyStats aggregates ledger figures for the admin dashboard.
type LoyaltyStats struct {
	TotalAccounts        int64                       `json:"total_accounts"`
	ActiveAccounts       int64                       `json:"active_accounts"`
	TotalAvailablePoints int64                       `json:"total_available_points"`
	TotalLifetimeEarned  int64                       `json:"total_lifetime_earned"`
	TopEarners           []models.LoyaltyAccount     `json:"top_earners"`
	RecentTransactions   []models.LoyaltyTransaction `json:"recent_transactions"`
}

// Store is the persistence boundary shared by the service and handlers.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, fn func(user *models.User) error) (*models.User, error)

	ActiveProgram(ctx context.Context) (*models.LoyaltyProgram, error)
	// ActivateProgram stores program as the only active program.
	ActivateProgram(ctx context.Context, program *models.LoyaltyProgram) error

	// MutateAccount loads the user's account with its transactions and
	// referrals under an exclusive lock, creating it on first use, runs fn and
	// persists account fields, referrals and newly appended transactions in
	// one unit. It returns the account as stored.
	MutateAccount(ctx context.Context, userID uuid.UUID, fn AccountMutator) (*models.LoyaltyAccount, error)
	// FindReferralOwner returns the user id of the account that issued code.
	FindReferralOwner(ctx context.Context, code string) (uuid.UUID, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page Page) ([]models.LoyaltyTransaction, int64, error)
	LoyaltyStats(ctx context.Context, topN, recentN int) (*LoyaltyStats, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, fn OrderMutator) (*models.Order, error)

	CreateReview(ctx context.Context, review *models.Review) error
	ListReviews(ctx context.Context, productID uuid.UUID, page Page) ([]models.Review, int64, error)
}

func newAccount(userID uuid.UUID) models.LoyaltyAccount {
	return models.LoyaltyAccount{
		UserID:      userID,
		CurrentTier: models.DefaultTierName,
	}
}
