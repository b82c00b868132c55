package loyalty

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/benmarket/internal/models"
)

const referralCodePrefix = "BEN"

// ReferralOutcome describes what CompleteReferral did.
type ReferralOutcome int

const (
	// ReferralSkipped means nothing changed: unknown code, already used, or a
	// self-referral.
	ReferralSkipped ReferralOutcome = iota
	// ReferralLapsed means the code was pending past its expiry and has been
	// marked expired.
	ReferralLapsed
	// ReferralAwarded means the referrer was credited.
	ReferralAwarded
)

// NewReferralCode derives a code from the millisecond timestamp.
func NewReferralCode(now time.Time) string {
	return referralCodePrefix + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}

// NormalizeReferralCode trims and upper-cases a code typed by a user.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AddReferral appends a pending referral to the account. A zero ttl means the
// code never lapses.
func AddReferral(acct *models.LoyaltyAccount, code string, ttl time.Duration, now time.Time) models.Referral {
	ref := models.Referral{
		AccountID:    acct.ID,
		ReferralCode: code,
		Status:       models.ReferralPending,
	}
	ref.ID = uuid.New()
	ref.CreatedAt = now
	ref.UpdatedAt = now
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		ref.ExpiresAt = &expiresAt
	}
	acct.Referrals = append(acct.Referrals, ref)
	return ref
}

// FindReferral returns the account's referral with the given code, or nil.
func FindReferral(acct *models.LoyaltyAccount, code string) *models.Referral {
	for i := range acct.Referrals {
		if acct.Referrals[i].ReferralCode == code {
			return &acct.Referrals[i]
		}
	}
	return nil
}

// CompleteReferral credits the referrer for a pending code exactly once.
// Points are added only when the referral is still pending, unexpired and not
// used by its own owner.
func CompleteReferral(acct *models.LoyaltyAccount, code string, referredUserID uuid.UUID, points int64, expiryMonths int, now time.Time) (ReferralOutcome, error) {
	ref := FindReferral(acct, code)
	if ref == nil || ref.Status != models.ReferralPending {
		return ReferralSkipped, nil
	}
	if acct.UserID == referredUserID {
		return ReferralSkipped, nil
	}
	if ref.ExpiresAt != nil && now.After(*ref.ExpiresAt) {
		ref.Status = models.ReferralExpired
		ref.UpdatedAt = now
		return ReferralLapsed, nil
	}
	if points <= 0 {
		return ReferralSkipped, nil
	}

	if _, err := AddPoints(acct, points, ReasonReferral, nil, expiryMonths, now); err != nil {
		return ReferralSkipped, err
	}
	completedAt := now
	referred := referredUserID
	ref.Status = models.ReferralCompleted
	ref.ReferredUserID = &referred
	ref.PointsAwarded = true
	ref.CompletedAt = &completedAt
	ref.UpdatedAt = now
	return ReferralAwarded, nil
}
