package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTierName is assigned when no configured tier qualifies.
const DefaultTierName = "Bronze"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionEarned   TransactionType = "earned"
	TransactionRedeemed TransactionType = "redeemed"
	TransactionExpired  TransactionType = "expired"
	TransactionAdjusted TransactionType = "adjusted"
)

// ReferralStatus is the lifecycle state of a referral entry.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
	ReferralExpired   ReferralStatus = "expired"
)

// Tier is a named bracket of lifetime points.
type Tier struct {
	Name      string   `json:"name" yaml:"name"`
	MinPoints int64    `json:"min_points" yaml:"min_points"`
	Benefits  []string `json:"benefits" yaml:"benefits"`
}

// LoyaltyProgram holds earning rates and tier thresholds. At most one row is active.
type LoyaltyProgram struct {
	BaseModel
	Name                  string          `json:"name"`
	IsActive              bool            `gorm:"index" json:"is_active"`
	PointsPerDollar       decimal.Decimal `gorm:"type:numeric(12,4)" json:"points_per_dollar"`
	PointsForRegistration int64           `json:"points_for_registration"`
	PointsForReview       int64           `json:"points_for_review"`
	PointsForReferral     int64           `json:"points_for_referral"`
	ExpiryMonths          int             `json:"expiry_months"`
	Tiers                 []Tier          `gorm:"type:jsonb;serializer:json" json:"tiers"`
}

// LoyaltyAccount is the per-user points balance. Transactions and Referrals
// are loaded with the account and form one aggregate.
type LoyaltyAccount struct {
	BaseModel
	UserID           uuid.UUID            `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	TotalPoints      int64                `json:"total_points"`
	AvailablePoints  int64                `json:"available_points"`
	LifetimeEarned   int64                `json:"lifetime_earned"`
	LifetimeRedeemed int64                `json:"lifetime_redeemed"`
	CurrentTier      string               `json:"current_tier"`
	LastActivity     time.Time            `json:"last_activity"`
	Transactions     []LoyaltyTransaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
	Referrals        []Referral           `gorm:"foreignKey:AccountID" json:"referrals,omitempty"`
}

// LoyaltyTransaction is one immutable ledger entry. Points are signed: earned
// entries are positive, redeemed and expired entries negative.
type LoyaltyTransaction struct {
	EntryModel
	AccountID uuid.UUID       `gorm:"type:uuid;index" json:"account_id"`
	Type      TransactionType `gorm:"index" json:"type"`
	Points    int64           `json:"points"`
	Reason    string          `json:"reason"`
	OrderID   *string         `gorm:"index" json:"order_id,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	// SourceID links an expired entry to the earned entry it supersedes.
	SourceID *uuid.UUID `gorm:"type:uuid;index" json:"source_id,omitempty"`
}

// Referral is a referral code handed out by an account holder.
type Referral struct {
	BaseModel
	AccountID      uuid.UUID      `gorm:"type:uuid;index" json:"account_id"`
	ReferralCode   string         `gorm:"uniqueIndex" json:"referral_code"`
	Status         ReferralStatus `json:"status"`
	ReferredUserID *uuid.UUID     `gorm:"type:uuid" json:"referred_user_id,omitempty"`
	PointsAwarded  bool           `json:"points_awarded"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}
