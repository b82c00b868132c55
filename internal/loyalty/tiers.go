package loyalty

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/models"
)

// ResolveTier returns the name of the highest tier whose threshold totalPoints
// reaches. Ties on MinPoints are broken by name so the result never depends on
// configuration order. Without a qualifying tier it returns the default tier.
func ResolveTier(tiers []models.Tier, totalPoints int64) string {
	for _, tier := range sortedTiers(tiers) {
		if tier.MinPoints <= totalPoints {
			return tier.Name
		}
	}
	return models.DefaultTierName
}

// UpdateTier reclassifies the account against the program and reports whether
// the tier changed. A nil program leaves the account untouched.
func UpdateTier(acct *models.LoyaltyAccount, program *models.LoyaltyProgram) bool {
	if program == nil {
		return false
	}
	tier := ResolveTier(program.Tiers, acct.TotalPoints)
	if tier == acct.CurrentTier {
		return false
	}
	acct.CurrentTier = tier
	return true
}

// TierBenefits returns the benefits of the account's current tier. It never
// returns nil.
func TierBenefits(acct *models.LoyaltyAccount, program *models.LoyaltyProgram) []string {
	benefits := []string{}
	if program == nil {
		return benefits
	}
	for _, tier := range program.Tiers {
		if tier.Name == acct.CurrentTier {
			return append(benefits, tier.Benefits...)
		}
	}
	return benefits
}

// PurchasePoints converts an order total into points, rounding down.
func PurchasePoints(amount, pointsPerDollar decimal.Decimal) int64 {
	if !amount.IsPositive() || !pointsPerDollar.IsPositive() {
		return 0
	}
	return amount.Mul(pointsPerDollar).Floor().IntPart()
}

// ValidateProgram checks the invariants a program must hold before it can be
// activated.
func ValidateProgram(p *models.LoyaltyProgram) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProgram)
	}
	if p.PointsPerDollar.IsNegative() {
		return fmt.Errorf("%w: points_per_dollar must not be negative", ErrInvalidProgram)
	}
	if p.PointsForRegistration < 0 || p.PointsForReview < 0 || p.PointsForReferral < 0 {
		return fmt.Errorf("%w: point awards must not be negative", ErrInvalidProgram)
	}
	if p.ExpiryMonths <= 0 {
		return fmt.Errorf("%w: expiry_months must be positive", ErrInvalidProgram)
	}

	names := make(map[string]struct{}, len(p.Tiers))
	thresholds := make(map[int64]string, len(p.Tiers))
	for _, tier := range p.Tiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return fmt.Errorf("%w: tier name is required", ErrInvalidProgram)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("%w: duplicate tier %q", ErrInvalidProgram, name)
		}
		names[name] = struct{}{}

		if tier.MinPoints < 0 {
			return fmt.Errorf("%w: tier %q has a negative threshold", ErrInvalidProgram, name)
		}
		if other, ok := thresholds[tier.MinPoints]; ok {
			return fmt.Errorf("%w: tiers %q and %q share threshold %d", ErrInvalidProgram, other, name, tier.MinPoints)
		}
		thresholds[tier.MinPoints] = name
	}
	return nil
}

func sortedTiers(tiers []models.Tier) []models.Tier {
	sorted := make([]models.Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinPoints != sorted[j].MinPoints {
			return sorted[i].MinPoints > sorted[j].MinPoints
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
