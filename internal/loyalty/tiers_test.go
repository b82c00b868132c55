package loyalty

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/benmarket/internal/models"
)

func standardTiers() []models.Tier {
	return []models.Tier{
		{Name: "Gold", MinPoints: 1500, Benefits: []string{"free shipping", "10% off"}},
		{Name: "Bronze", MinPoints: 0, Benefits: []string{"birthday bonus"}},
		{Name: "Silver", MinPoints: 500, Benefits: []string{"5% off"}},
	}
}

func TestResolveTier(t *testing.T) {
	tests := []struct {
		points int64
		want   string
	}{
		{0, "Bronze"},
		{499, "Bronze"},
		{500, "Silver"},
		{1499, "Silver"},
		{1500, "Gold"},
		{90000, "Gold"},
	}
	for _, tt := range tests {
		if got := ResolveTier(standardTiers(), tt.points); got != tt.want {
			t.Errorf("ResolveTier(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestResolveTierFallsBackToDefault(t *testing.T) {
	if got := ResolveTier(nil, 5000); got != models.DefaultTierName {
		t.Errorf("expected %s with no tiers, got %s", models.DefaultTierName, got)
	}
	tiers := []models.Tier{{Name: "Silver", MinPoints: 500}}
	if got := ResolveTier(tiers, 100); got != models.DefaultTierName {
		t.Errorf("expected %s below every threshold, got %s", models.DefaultTierName, got)
	}
}

func TestResolveTierBreaksTiesByName(t *testing.T) {
	tiers := []models.Tier{
		{Name: "Zinc", MinPoints: 100},
		{Name: "Amber", MinPoints: 100},
	}
	reversed := []models.Tier{tiers[1], tiers[0]}
	if ResolveTier(tiers, 150) != "Amber" || ResolveTier(reversed, 150) != "Amber" {
		t.Error("expected tie to resolve to Amber regardless of order")
	}
}

func TestUpdateTierReportsChange(t *testing.T) {
	program := &models.LoyaltyProgram{Tiers: standardTiers()}
	acct := newTestAccount()
	acct.TotalPoints = 1500

	if !UpdateTier(acct, program) {
		t.Fatal("expected tier change")
	}
	if acct.CurrentTier != "Gold" {
		t.Errorf("expected Gold, got %s", acct.CurrentTier)
	}
	if UpdateTier(acct, program) {
		t.Error("expected no change on second call")
	}
	if UpdateTier(acct, nil) {
		t.Error("expected nil program to be a no-op")
	}
}

func TestTierBenefits(t *testing.T) {
	program := &models.LoyaltyProgram{Tiers: standardTiers()}
	acct := newTestAccount()
	acct.CurrentTier = "Gold"

	benefits := TierBenefits(acct, program)
	if len(benefits) != 2 || benefits[0] != "free shipping" {
		t.Errorf("unexpected benefits: %v", benefits)
	}

	acct.CurrentTier = "Platinum"
	if got := TierBenefits(acct, program); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil benefits, got %#v", got)
	}
	if got := TierBenefits(acct, nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil benefits without program, got %#v", got)
	}
}

func TestPurchasePointsRoundsDown(t *testing.T) {
	tests := []struct {
		amount, rate string
		want         int64
	}{
		{"1000", "1", 1000},
		{"19.99", "1", 19},
		{"10", "1.5", 15},
		{"0.99", "1", 0},
		{"100", "0", 0},
		{"-5", "1", 0},
	}
	for _, tt := range tests {
		got := PurchasePoints(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
		if got != tt.want {
			t.Errorf("PurchasePoints(%s, %s) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}

func validProgram() *models.LoyaltyProgram {
	return &models.LoyaltyProgram{
		Name:                  "Default",
		PointsPerDollar:       decimal.NewFromInt(1),
		PointsForRegistration: 100,
		PointsForReview:       25,
		PointsForReferral:     200,
		ExpiryMonths:          12,
		Tiers:                 standardTiers(),
	}
}

func TestValidateProgram(t *testing.T) {
	if err := ValidateProgram(validProgram()); err != nil {
		t.Fatalf("expected valid program, got %v", err)
	}

	tests := map[string]func(p *models.LoyaltyProgram){
		"missing name":       func(p *models.LoyaltyProgram) { p.Name = " " },
		"negative rate":      func(p *models.LoyaltyProgram) { p.PointsPerDollar = decimal.NewFromInt(-1) },
		"negative award":     func(p *models.LoyaltyProgram) { p.PointsForReview = -1 },
		"zero expiry":        func(p *models.LoyaltyProgram) { p.ExpiryMonths = 0 },
		"duplicate name":     func(p *models.LoyaltyProgram) { p.Tiers[0].Name = "Silver" },
		"shared threshold":   func(p *models.LoyaltyProgram) { p.Tiers[0].MinPoints = 500 },
		"negative threshold": func(p *models.LoyaltyProgram) { p.Tiers[1].MinPoints = -10 },
		"blank tier":         func(p *models.LoyaltyProgram) { p.Tiers[2].Name = "" },
	}
	for name, mutate := range tests {
		p := validProgram()
		mutate(p)
		if err := ValidateProgram(p); !errors.Is(err, ErrInvalidProgram) {
			t.Errorf("%s: expected ErrInvalidProgram, got %v", name, err)
		}
	}
}
