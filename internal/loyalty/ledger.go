// Package loyalty implements the points ledger: earning, redemption, lazy
// expiry, tier classification and referral bookkeeping.
//
// The functions in this file mutate a loaded *models.LoyaltyAccount in memory
// and never touch storage. Service runs them inside store.MutateAccount, which
// holds the account lock and persists the result atomically.
package loyalty

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/benmarket/internal/models"
)

// DefaultExpiryMonths is the lifetime of earned points when neither the
// program nor the caller specifies one.
const DefaultExpiryMonths = 24

const (
	ReasonRegistration = "registration"
	ReasonPurchase     = "purchase"
	ReasonReview       = "review"
	ReasonReferral     = "referral"
	ReasonRedemption   = "redemption"
	ReasonExpiry       = "points expired"
	ReasonAdjustment   = "manual adjustment"
)

// AddPoints credits points to the account and appends an earned entry that
// expires expiryMonths from now. It performs no deduplication.
func AddPoints(acct *models.LoyaltyAccount, points int64, reason string, orderID *string, expiryMonths int, now time.Time) (models.LoyaltyTransaction, error) {
	if points <= 0 {
		return models.LoyaltyTransaction{}, ErrInvalidPoints
	}
	if expiryMonths <= 0 {
		expiryMonths = DefaultExpiryMonths
	}
	expiresAt := now.AddDate(0, expiryMonths, 0)

	acct.TotalPoints += points
	acct.AvailablePoints += points
	acct.LifetimeEarned += points
	acct.LastActivity = now

	entry := newEntry(acct, models.TransactionEarned, points, reason, now)
	entry.OrderID = copyString(orderID)
	entry.ExpiresAt = &expiresAt
	acct.Transactions = append(acct.Transactions, entry)
	return entry, nil
}

// RedeemPoints debits points from the available balance. It is all or
// nothing: when the balance is short the account is left untouched.
func RedeemPoints(acct *models.LoyaltyAccount, points int64, reason string, orderID *string, now time.Time) (models.LoyaltyTransaction, error) {
	if points <= 0 {
		return models.LoyaltyTransaction{}, ErrInvalidPoints
	}
	if points > acct.AvailablePoints {
		return models.LoyaltyTransaction{}, ErrInsufficientPoints
	}

	acct.AvailablePoints -= points
	acct.LifetimeRedeemed += points
	acct.LastActivity = now

	entry := newEntry(acct, models.TransactionRedeemed, -points, reason, now)
	entry.OrderID = copyString(orderID)
	acct.Transactions = append(acct.Transactions, entry)
	return entry, nil
}

// AdjustPoints applies a signed administrative correction. Positive
// adjustments raise both the available and total balances; negative ones only
// lower the available balance and never below zero.
func AdjustPoints(acct *models.LoyaltyAccount, points int64, reason string, now time.Time) (models.LoyaltyTransaction, error) {
	if points == 0 {
		return models.LoyaltyTransaction{}, ErrInvalidPoints
	}
	if points < 0 && -points > acct.AvailablePoints {
		return models.LoyaltyTransaction{}, ErrInsufficientPoints
	}
	if reason == "" {
		reason = ReasonAdjustment
	}

	acct.AvailablePoints += points
	if points > 0 {
		acct.TotalPoints += points
	}
	acct.LastActivity = now

	entry := newEntry(acct, models.TransactionAdjusted, points, reason, now)
	acct.Transactions = append(acct.Transactions, entry)
	return entry, nil
}

// ExpiryResult summarises one CleanupExpiredPoints pass.
type ExpiryResult struct {
	// Points is the amount actually removed from the available balance.
	Points int64
	// Entries is the number of expired entries appended.
	Entries int
}

// CleanupExpiredPoints expires every earned entry whose expiry has passed and
// that no earlier expired entry supersedes. History is never rewritten: each
// expiry appends an expired entry pointing at its source through SourceID.
//
// The deduction per entry is clamped to the remaining available balance, so
// the signed sum of the log keeps matching AvailablePoints and the balance
// never goes negative. Running it twice in a row is a no-op the second time.
func CleanupExpiredPoints(acct *models.LoyaltyAccount, now time.Time) ExpiryResult {
	superseded := make(map[uuid.UUID]struct{})
	for _, entry := range acct.Transactions {
		if entry.Type == models.TransactionExpired && entry.SourceID != nil {
			superseded[*entry.SourceID] = struct{}{}
		}
	}

	var due []models.LoyaltyTransaction
	for _, entry := range acct.Transactions {
		if entry.Type != models.TransactionEarned || entry.ExpiresAt == nil {
			continue
		}
		if !entry.ExpiresAt.Before(now) {
			continue
		}
		if _, ok := superseded[entry.ID]; ok {
			continue
		}
		due = append(due, entry)
	}

	var result ExpiryResult
	for _, src := range due {
		deduct := min(src.Points, acct.AvailablePoints)
		acct.AvailablePoints -= deduct
		result.Points += deduct
		result.Entries++

		sourceID := src.ID
		entry := newEntry(acct, models.TransactionExpired, -deduct, ReasonExpiry, now)
		entry.SourceID = &sourceID
		entry.OrderID = copyString(src.OrderID)
		acct.Transactions = append(acct.Transactions, entry)
	}
	return result
}

// LedgerSum returns the signed sum of all entries. With no cleanup pending it
// equals AvailablePoints.
func LedgerSum(acct *models.LoyaltyAccount) int64 {
	var sum int64
	for _, entry := range acct.Transactions {
		sum += entry.Points
	}
	return sum
}

// hasOrderAward reports whether an earned entry for the order already exists.
func hasOrderAward(acct *models.LoyaltyAccount, orderID, reason string) bool {
	for _, entry := range acct.Transactions {
		if entry.Type == models.TransactionEarned && entry.Reason == reason &&
			entry.OrderID != nil && *entry.OrderID == orderID {
			return true
		}
	}
	return false
}

func newEntry(acct *models.LoyaltyAccount, kind models.TransactionType, points int64, reason string, now time.Time) models.LoyaltyTransaction {
	entry := models.LoyaltyTransaction{
		AccountID: acct.ID,
		Type:      kind,
		Points:    points,
		Reason:    reason,
	}
	entry.ID = uuid.New()
	entry.CreatedAt = now
	return entry
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
