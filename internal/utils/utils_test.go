package utils

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken("secret", userID, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != userID {
		t.Errorf("expected %s, got %s", userID, got)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken("secret", userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired, err := GenerateToken("secret", userID, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken("secret", expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password to be rejected")
	}
}

func TestReferralLink(t *testing.T) {
	link, err := ReferralLink("https://shop.example/register?utm=app", "BENABC")
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://shop.example/register?ref=BENABC&utm=app" {
		t.Errorf("unexpected link %s", link)
	}
}

func TestReferralQRCodeIsPNG(t *testing.T) {
	png, err := ReferralQRCode("https://shop.example/register", "BENABC")
	if err != nil {
		t.Fatalf("ReferralQRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = ParsePagination(c)
		return nil
	})

	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Page: 1, Limit: 20, Offset: 0}},
		{"?page=3&limit=10", Pagination{Page: 3, Limit: 10, Offset: 20}},
		{"?page=-1&limit=500", Pagination{Page: 1, Limit: 100, Offset: 0}},
		{"?page=x&limit=y", Pagination{Page: 1, Limit: 20, Offset: 0}},
		{"?page=100000000000000000&limit=100", Pagination{Page: 1_000_000, Limit: 100, Offset: 99_999_900}},
	}
	for _, tt := range tests {
		if _, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil)); err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.query, tt.want, got)
		}
	}
}
