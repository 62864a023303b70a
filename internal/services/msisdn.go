package services

import (
	"context"
	"crypto/rand"
	"io"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
)

// MSISDNAllocator picks the phone number for a card being activated.
type MSISDNAllocator interface {
	Allocate(ctx context.Context, user *models.User) (string, error)
}

// MockAllocator builds prefix + 6 random digits + the last 4 digits of the
// user's registered mobile. It is a placeholder, not a numbering plan:
// nothing here checks ranges or operator blocks.
type MockAllocator struct {
	Prefix string
	Random io.Reader
}

func NewMockAllocator(prefix string) *MockAllocator {
	return &MockAllocator{Prefix: prefix, Random: rand.Reader}
}

func (a *MockAllocator) Allocate(_ context.Context, user *models.User) (string, error) {
	digits := digitsOnly(user.Mobile)
	if len(digits) < 4 {
		return "", apperr.Validation("a registered mobile number is required to activate a card")
	}
	middle, err := randomDigits(a.Random, 6)
	if err != nil {
		return "", err
	}
	return a.Prefix + middle + digits[len(digits)-4:], nil
}

func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
