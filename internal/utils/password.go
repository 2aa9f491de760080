package utils

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// MinPasswordLen is enforced on registration and password changes.
const MinPasswordLen = 8

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckPassword rejects passwords that are too short or exceed bcrypt's
// 72-byte input limit.
func CheckPassword(plain string) error {
	if utf8.RuneCountInString(plain) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, MinPasswordLen)
	}
	if len(plain) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", model.ErrInvalidInput)
	}
	return nil
}
