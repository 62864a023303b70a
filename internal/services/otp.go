package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"telecomstore/internal/apperr"
	"telecomstore/internal/logger"
	"telecomstore/internal/models"
	"telecomstore/internal/notify"
	"telecomstore/internal/store"
)

const otpDigits = 6

// OTPService issues and checks one-time codes. A challenge is identified by
// (subject, purpose), so a login code can never unlock a card activation.
type OTPService struct {
	challenges  ChallengeStore
	sender      notify.Sender
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	random      io.Reader
}

func NewOTPService(challenges ChallengeStore, sender notify.Sender, ttl time.Duration, maxAttempts int) *OTPService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OTPService{
		challenges:  challenges,
		sender:      sender,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
		random:      rand.Reader,
	}
}

func hashCode(subject, purpose, code string) string {
	sum := sha256.Sum256([]byte(subject + "|" + purpose + "|" + code))
	return hex.EncodeToString(sum[:])
}

// randomDigits returns n uniformly distributed decimal digits read from r.
func randomDigits(r io.Reader, n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(r, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

// Issue replaces any pending challenge for (subject, purpose) and sends the
// new code to mobile. reference binds the code to one object, such as a barcode.
func (s *OTPService) Issue(ctx context.Context, subject, purpose, reference, mobile string) (time.Time, error) {
	code, err := randomDigits(s.random, otpDigits)
	if err != nil {
		return time.Time{}, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now()
	ch := &models.OTPChallenge{
		Subject:   subject,
		Purpose:   purpose,
		Reference: reference,
		CodeHash:  hashCode(subject, purpose, code),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.challenges.Put(ctx, ch); err != nil {
		return time.Time{}, err
	}

	msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.sender.Send(ctx, mobile, msg); err != nil {
		if delErr := s.challenges.Delete(ctx, subject, purpose); delErr != nil {
			log.Error().Err(delErr).Str("purpose", purpose).Msg("failed to remove undelivered otp")
		}
		log.Error().Err(err).Str("mobile", logger.MaskMobile(mobile)).Msg("otp delivery failed")
		return time.Time{}, apperr.Unavailable("could not deliver the verification code, please try again")
	}

	log.Info().Str("purpose", purpose).Str("mobile", logger.MaskMobile(mobile)).Msg("otp issued")
	return ch.ExpiresAt, nil
}

// Verify checks code and consumes the challenge on success. Wrong codes
// count against the attempt budget; the challenge is dropped once it runs out.
func (s *OTPService) Verify(ctx context.Context, subject, purpose, reference, code string) error {
	hash, err := s.check(ctx, subject, purpose, reference, code)
	if err != nil {
		return err
	}
	ok, err := s.challenges.Consume(ctx, subject, purpose, hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("otp has already been used")
	}
	return nil
}

// Redeem checks code, runs apply and consumes the challenge only once apply
// succeeds. A failed apply leaves the code usable for a retry.
func (s *OTPService) Redeem(ctx context.Context, subject, purpose, reference, code string, apply func() error) error {
	hash, err := s.check(ctx, subject, purpose, reference, code)
	if err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}

	ok, err := s.challenges.Consume(ctx, subject, purpose, hash, s.now())
	if err != nil || !ok {
		log.Warn().Err(err).Str("purpose", purpose).Msg("otp redeemed but challenge was not removed")
		if err := s.challenges.Delete(ctx, subject, purpose); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error().Err(err).Str("purpose", purpose).Msg("failed to remove redeemed otp")
		}
	}
	return nil
}

// check validates code against the pending challenge without consuming it
// and returns the code hash.
func (s *OTPService) check(ctx context.Context, subject, purpose, reference, code string) (string, error) {
	if !isDigits(code, otpDigits) {
		return "", apperr.Validation("otp must be %d digits", otpDigits)
	}

	ch, err := s.challenges.Get(ctx, subject, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.Validation("no pending otp, request a new one")
	}
	if err != nil {
		return "", err
	}

	if !s.now().Before(ch.ExpiresAt) {
		_ = s.challenges.Delete(ctx, subject, purpose)
		return "", apperr.Validation("otp has expired, request a new one")
	}
	if ch.Reference != reference {
		return "", apperr.Validation("otp was issued for a different request")
	}

	hash := hashCode(subject, purpose, code)
	if hash != ch.CodeHash {
		attempts, err := s.challenges.IncrementAttempts(ctx, subject, purpose)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		if attempts >= s.maxAttempts {
			if err := s.challenges.Delete(ctx, subject, purpose); err != nil {
				return "", err
			}
			return "", apperr.Validation("invalid otp, too many attempts, request a new one")
		}
		return "", apperr.Validation("invalid otp")
	}
	return hash, nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
