package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/models"
	"github.com/example/benmarket/internal/store"
)

const (
	referralCodeAttempts = 10
	statsTopEarners      = 10
	statsRecentEntries   = 20
)

// Options tunes a Service.
type Options struct {
	// DefaultExpiryMonths applies when the active program sets none.
	DefaultExpiryMonths int
	// ReferralTTL bounds how long a referral code stays redeemable. Zero
	// disables expiry.
	ReferralTTL time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Service coordinates ledger operations with persistence. Every account
// change runs under the store's account lock.
type Service struct {
	store        store.Store
	expiryMonths int
	referralTTL  time.Duration
	now          func() time.Time
}

// AccountView is an account together with the program it was evaluated
// against. Program is nil when no program is active.
type AccountView struct {
	Account  *models.LoyaltyAccount `json:"account"`
	Program  *models.LoyaltyProgram `json:"program"`
	Benefits []string               `json:"tier_benefits"`
}

// NewService constructs Service.
func NewService(st store.Store, opts Options) *Service {
	if opts.DefaultExpiryMonths <= 0 {
		opts.DefaultExpiryMonths = DefaultExpiryMonths
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		store:        st,
		expiryMonths: opts.DefaultExpiryMonths,
		referralTTL:  opts.ReferralTTL,
		now:          opts.Clock,
	}
}

// Program returns the active program.
func (s *Service) Program(ctx context.Context) (*models.LoyaltyProgram, error) {
	program, err := s.store.ActiveProgram(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProgramNotFound
	}
	return program, err
}

// SaveProgram validates program and makes it the single active program.
// Existing accounts keep their balances; the new rates apply from now on.
func (s *Service) SaveProgram(ctx context.Context, program *models.LoyaltyProgram) error {
	if err := ValidateProgram(program); err != nil {
		return err
	}
	program.ID = uuid.Nil
	if err := s.store.ActivateProgram(ctx, program); err != nil {
		return fmt.Errorf("activate program: %w", err)
	}
	slog.Info("loyalty program activated", "program_id", program.ID, "name", program.Name, "tiers", len(program.Tiers))
	return nil
}

// EnsureProgram activates program unless one is already active. It reports
// whether program was stored.
func (s *Service) EnsureProgram(ctx context.Context, program *models.LoyaltyProgram) (bool, error) {
	if _, err := s.Program(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrProgramNotFound) {
		return false, err
	}
	if err := s.SaveProgram(ctx, program); err != nil {
		return false, err
	}
	return true, nil
}

// activeProgram is Program with "none active" mapped to nil.
func (s *Service) activeProgram(ctx context.Context) (*models.LoyaltyProgram, error) {
	program, err := s.Program(ctx)
	if errors.Is(err, ErrProgramNotFound) {
		return nil, nil
	}
	return program, err
}

func (s *Service) expiryFor(program *models.LoyaltyProgram) int {
	if program != nil && program.ExpiryMonths > 0 {
		return program.ExpiryMonths
	}
	return s.expiryMonths
}

// Account returns the user's account, creating it on first access. Due
// expirations are applied and the tier is refreshed before it is returned.
func (s *Service) Account(ctx context.Context, userID uuid.UUID) (*AccountView, error) {
	program, err := s.activeProgram(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct, err := s.store.MutateAccount(ctx, userID, func(acct *models.LoyaltyAccount) (bool, error) {
		expired := CleanupExpiredPoints(acct, now)
		if expired.Points > 0 {
			slog.Info("loyalty points expired", "user_id", userID, "points", expired.Points)
		}
		tierChanged := UpdateTier(acct, program)
		return expired.Entries > 0 || tierChanged, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load loyalty account: %w", err)
	}

	return &AccountView{
		Account:  acct,
		Program:  program,
		Benefits: TierBenefits(acct, program),
	}, nil
}

// Transactions lists the user's ledger entries, newest first. Stored rows
// are returned as is; expirations not yet applied by a read through Account
// or a mutation are absent.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, page store.Page) ([]models.LoyaltyTransaction, int64, error) {
	return s.store.ListTransactions(ctx, userID, page)
}

// Redeem spends points from the user's available balance after applying due
// expirations.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, points int64, reason string, orderID *string) (*models.LoyaltyAccount, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if reason == "" {
		reason = ReasonRedemption
	}

	now := s.now()
	acct, err := s.store.MutateAccount(ctx, userID, func(acct *models.LoyaltyAccount) (bool, error) {
		CleanupExpiredPoints(acct, now)
		if _, err := RedeemPoints(acct, points, reason, orderID, now); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("loyalty points redeemed", "user_id", userID, "points", points, "available", acct.AvailablePoints)
	return acct, nil
}

// GenerateReferralCode issues a new pending referral for the user. Codes are
// timestamp derived, so a collision is retried with the next millisecond.
func (s *Service) GenerateReferralCode(ctx context.Context, userID uuid.UUID) (*models.Referral, error) {
	now := s.now()
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code := NewReferralCode(now.Add(time.Duration(attempt) * time.Millisecond))

		var created models.Referral
		_, err := s.store.MutateAccount(ctx, userID, func(acct *models.LoyaltyAccount) (bool, error) {
			created = AddReferral(acct, code, s.referralTTL, now)
			return true, nil
		})
		if err == nil {
			return &created, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("create referral: %w", err)
		}
	}
	return nil, fmt.Errorf("create referral: no free code after %d attempts: %w", referralCodeAttempts, store.ErrConflict)
}

// ProcessReferral credits the owner of code once referredUserID registers
// with it. Unknown, used, lapsed and self-referral codes are ignored.
func (s *Service) ProcessReferral(ctx context.Context, code string, referredUserID uuid.UUID) error {
	program, err := s.activeProgram(ctx)
	if err != nil {
		return err
	}
	code = NormalizeReferralCode(code)
	if program == nil || program.PointsForReferral <= 0 || code == "" {
		return nil
	}

	ownerID, err := s.store.FindReferralOwner(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		slog.Debug("referral code not found", "code", code)
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now()
	var outcome ReferralOutcome
	_, err = s.store.MutateAccount(ctx, ownerID, func(acct *models.LoyaltyAccount) (bool, error) {
		expired := CleanupExpiredPoints(acct, now)
		var err error
		outcome, err = CompleteReferral(acct, code, referredUserID, program.PointsForReferral, s.expiryFor(program), now)
		if err != nil {
			return false, err
		}
		if outcome == ReferralAwarded || expired.Entries > 0 {
			UpdateTier(acct, program)
		}
		return outcome != ReferralSkipped || expired.Entries > 0, nil
	})
	if err != nil {
		return fmt.Errorf("process referral: %w", err)
	}

	switch outcome {
	case ReferralAwarded:
		slog.Info("referral completed", "code", code, "referrer_id", ownerID, "referred_id", referredUserID, "points", program.PointsForReferral)
	case ReferralLapsed:
		slog.Info("referral code expired", "code", code, "referrer_id", ownerID)
	}
	return nil
}

// AwardRegistrationPoints grants the program's welcome bonus.
func (s *Service) AwardRegistrationPoints(ctx context.Context, userID uuid.UUID) error {
	return s.awardFlat(ctx, userID, ReasonRegistration, func(p *models.LoyaltyProgram) int64 {
		return p.PointsForRegistration
	})
}

// AwardReviewPoints grants the program's review bonus.
func (s *Service) AwardReviewPoints(ctx context.Context, userID uuid.UUID) error {
	return s.awardFlat(ctx, userID, ReasonReview, func(p *models.LoyaltyProgram) int64 {
		return p.PointsForReview
	})
}

func (s *Service) awardFlat(ctx context.Context, userID uuid.UUID, reason string, rate func(*models.LoyaltyProgram) int64) error {
	program, err := s.activeProgram(ctx)
	if err != nil {
		return err
	}
	if program == nil {
		return nil
	}
	points := rate(program)
	if points <= 0 {
		return nil
	}
	return s.earn(ctx, userID, program, points, reason, nil)
}

// AwardPurchasePoints converts a completed order into points. Repeated calls
// for the same orderID award once.
func (s *Service) AwardPurchasePoints(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, orderID string) error {
	program, err := s.activeProgram(ctx)
	if err != nil {
		return err
	}
	if program == nil {
		return nil
	}
	points := PurchasePoints(amount, program.PointsPerDollar)
	if points <= 0 {
		return nil
	}
	return s.earn(ctx, userID, program, points, ReasonPurchase, &orderID)
}

func (s *Service) earn(ctx context.Context, userID uuid.UUID, program *models.LoyaltyProgram, points int64, reason string, orderID *string) error {
	now := s.now()
	awarded := false
	_, err := s.store.MutateAccount(ctx, userID, func(acct *models.LoyaltyAccount) (bool, error) {
		expired := CleanupExpiredPoints(acct, now)
		if orderID != nil && hasOrderAward(acct, *orderID, reason) {
			if expired.Entries == 0 {
				return false, nil
			}
			UpdateTier(acct, program)
			return true, nil
		}
		if _, err := AddPoints(acct, points, reason, orderID, s.expiryFor(program), now); err != nil {
			return false, err
		}
		UpdateTier(acct, program)
		awarded = true
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("award %s points: %w", reason, err)
	}
	if awarded {
		slog.Info("loyalty points awarded", "user_id", userID, "reason", reason, "points", points)
	}
	return nil
}

// AdjustPoints applies an administrative correction to an existing user's
// balance.
func (s *Service) AdjustPoints(ctx context.Context, userID uuid.UUID, points int64, reason string) (*models.LoyaltyAccount, error) {
	if points == 0 {
		return nil, ErrInvalidPoints
	}
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	program, err := s.activeProgram(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct, err := s.store.MutateAccount(ctx, userID, func(acct *models.LoyaltyAccount) (bool, error) {
		CleanupExpiredPoints(acct, now)
		if _, err := AdjustPoints(acct, points, reason, now); err != nil {
			return false, err
		}
		UpdateTier(acct, program)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("loyalty points adjusted", "user_id", userID, "points", points, "reason", reason)
	return acct, nil
}

// Stats aggregates ledger figures for administrators. It reads stored
// balances as they are and does not run expiry, so accounts nobody touched
// since their points lapsed still count those points until their next read
// or mutation.
func (s *Service) Stats(ctx context.Context) (*store.LoyaltyStats, error) {
	return s.store.LoyaltyStats(ctx, statsTopEarners, statsRecentEntries)
}
