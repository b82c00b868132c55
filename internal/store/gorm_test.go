package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/example/benmarket/internal/models"
)

func TestTranslate(t *testing.T) {
	if translate(nil) != nil {
		t.Error("expected nil for nil")
	}

	if err := translate(fmt.Errorf("find user: %w", gorm.ErrRecordNotFound)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_referrals_referral_code"}
	err := translate(fmt.Errorf("insert referral: %w", unique))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err.Error() != "record already exists: idx_referrals_referral_code" {
		t.Errorf("unexpected message %q", err.Error())
	}

	fk := &pgconn.PgError{Code: "23503"}
	if err := translate(fk); errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		t.Errorf("expected foreign key error to pass through, got %v", err)
	}

	plain := errors.New("connection reset")
	if err := translate(plain); err != plain {
		t.Errorf("expected error unchanged, got %v", err)
	}
}

func TestReferralUnchanged(t *testing.T) {
	base := models.Referral{ReferralCode: "BENABC", Status: models.ReferralPending}
	if !referralUnchanged(base, base) {
		t.Error("expected identical referrals to be unchanged")
	}

	completed := base
	now := time.Now()
	referred := uuid.New()
	completed.Status = models.ReferralCompleted
	completed.PointsAwarded = true
	completed.CompletedAt = &now
	completed.ReferredUserID = &referred
	if referralUnchanged(base, completed) {
		t.Error("expected completion to count as a change")
	}

	lapsed := base
	lapsed.Status = models.ReferralExpired
	if referralUnchanged(base, lapsed) {
		t.Error("expected status change to count as a change")
	}
}

func TestAppendedTransactions(t *testing.T) {
	acct := &models.LoyaltyAccount{}
	acct.ID = uuid.New()
	acct.Transactions = []models.LoyaltyTransaction{{Points: 100}, {Points: -40}, {Points: 25}}

	appended, err := appendedTransactions(acct, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(appended) != 2 || appended[0].Points != -40 || appended[1].Points != 25 {
		t.Fatalf("unexpected appended entries %+v", appended)
	}
	for _, entry := range appended {
		if entry.AccountID != acct.ID {
			t.Errorf("expected account id %s, got %s", acct.ID, entry.AccountID)
		}
	}
	if acct.Transactions[0].AccountID != uuid.Nil {
		t.Error("expected loaded entries to be left alone")
	}

	none, err := appendedTransactions(acct, 3)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no entries, got %v (%v)", none, err)
	}

	if _, err := appendedTransactions(acct, 4); err == nil {
		t.Error("expected error when the ledger shrank")
	}
}
