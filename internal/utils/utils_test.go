package utils

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/venue-reservation/internal/model"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "correct horse") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong horse") {
		t.Fatal("wrong password verified")
	}
}

func TestCheckPassword(t *testing.T) {
	if err := CheckPassword("short"); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("short password err = %v", err)
	}
	if err := CheckPassword("long enough"); err != nil {
		t.Fatalf("valid password err = %v", err)
	}
}

func TestRefreshTokenHashIsStable(t *testing.T) {
	rt, err := NewRefreshToken(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length = %d", len(rt.Raw))
	}
	if HashRefreshRaw(rt.Raw) != HashRefreshRaw(rt.Raw) || HashRefreshRaw(rt.Raw) == rt.Raw {
		t.Fatal("hash must be deterministic and differ from raw")
	}
}
