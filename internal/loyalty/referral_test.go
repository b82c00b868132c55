package loyalty

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/benmarket/internal/models"
)

func TestNewReferralCode(t *testing.T) {
	code := NewReferralCode(t0)
	if !strings.HasPrefix(code, "BEN") {
		t.Fatalf("expected BEN prefix, got %s", code)
	}
	if code != strings.ToUpper(code) {
		t.Errorf("expected upper case code, got %s", code)
	}
	if code == NewReferralCode(t0.Add(time.Millisecond)) {
		t.Error("expected codes one millisecond apart to differ")
	}
}

func TestCompleteReferralAwardsOnce(t *testing.T) {
	acct := newTestAccount()
	AddReferral(acct, "BENCODE", 0, t0)
	referred := uuid.New()

	outcome, err := CompleteReferral(acct, "BENCODE", referred, 200, 12, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("CompleteReferral: %v", err)
	}
	if outcome != ReferralAwarded {
		t.Fatalf("expected award, got %v", outcome)
	}

	ref := FindReferral(acct, "BENCODE")
	if ref.Status != models.ReferralCompleted || !ref.PointsAwarded {
		t.Errorf("unexpected referral state: %+v", ref)
	}
	if ref.ReferredUserID == nil || *ref.ReferredUserID != referred {
		t.Errorf("expected referred user to be recorded")
	}
	if acct.AvailablePoints != 200 {
		t.Errorf("expected 200 points, got %d", acct.AvailablePoints)
	}

	outcome, err = CompleteReferral(acct, "BENCODE", uuid.New(), 200, 12, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("CompleteReferral: %v", err)
	}
	if outcome != ReferralSkipped || acct.AvailablePoints != 200 {
		t.Errorf("expected second use to be skipped, got %v with %d points", outcome, acct.AvailablePoints)
	}
}

func TestCompleteReferralIgnoresSelfReferral(t *testing.T) {
	acct := newTestAccount()
	AddReferral(acct, "BENSELF", 0, t0)

	outcome, err := CompleteReferral(acct, "BENSELF", acct.UserID, 200, 12, t0)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != ReferralSkipped || acct.AvailablePoints != 0 {
		t.Errorf("expected self referral to be skipped, got %v", outcome)
	}
	if FindReferral(acct, "BENSELF").Status != models.ReferralPending {
		t.Error("expected referral to stay pending")
	}
}

func TestCompleteReferralMarksLapsedCodes(t *testing.T) {
	acct := newTestAccount()
	AddReferral(acct, "BENOLD", 24*time.Hour, t0)

	outcome, err := CompleteReferral(acct, "BENOLD", uuid.New(), 200, 12, t0.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if outcome != ReferralLapsed {
		t.Fatalf("expected lapsed, got %v", outcome)
	}
	if FindReferral(acct, "BENOLD").Status != models.ReferralExpired {
		t.Error("expected referral to be marked expired")
	}
	if acct.AvailablePoints != 0 {
		t.Errorf("expected no points, got %d", acct.AvailablePoints)
	}
}

func TestCompleteReferralUnknownCode(t *testing.T) {
	acct := newTestAccount()
	outcome, err := CompleteReferral(acct, "BENNOPE", uuid.New(), 200, 12, t0)
	if err != nil || outcome != ReferralSkipped {
		t.Errorf("expected skip, got %v, %v", outcome, err)
	}
}
