package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecomstore/internal/apperr"
	"telecomstore/internal/models"
)

const testMobile = "9876543210"

func newOTPFixture() (*OTPService, *fakeChallenges, *fakeSender, *fixedClock) {
	challenges := newFakeChallenges()
	sender := newFakeSender()
	clock := newFixedClock()
	svc := NewOTPService(challenges, sender, 10*time.Minute, 3)
	svc.now = clock.Now
	return svc, challenges, sender, clock
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestOTPIssueAndVerify(t *testing.T) {
	svc, challenges, sender, clock := newOTPFixture()
	ctx := context.Background()

	expires, err := svc.Issue(ctx, "u1", models.OTPPurposeCardActivation, "B1", testMobile)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(10*time.Minute), expires)

	code := sender.code(testMobile)
	require.Len(t, code, 6)

	stored, err := challenges.Get(ctx, "u1", models.OTPPurposeCardActivation)
	require.NoError(t, err)
	assert.NotEqual(t, code, stored.CodeHash)

	require.NoError(t, svc.Verify(ctx, "u1", models.OTPPurposeCardActivation, "B1", code))

	err = svc.Verify(ctx, "u1", models.OTPPurposeCardActivation, "B1", code)
	assert.ErrorIs(t, err, isKind(apperr.KindValidation), "codes are single use")
	assert.Zero(t, challenges.count())
}

func TestOTPRedeemKeepsCodeWhenApplyFails(t *testing.T) {
	svc, challenges, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeCardActivation, "B1", testMobile)
	require.NoError(t, err)
	code := sender.code(testMobile)

	writeFailed := apperr.Conflict("write failed")
	err = svc.Redeem(ctx, "u1", models.OTPPurposeCardActivation, "B1", code, func() error { return writeFailed })
	assert.ErrorIs(t, err, writeFailed)
	assert.Equal(t, 1, challenges.count())

	applied := false
	err = svc.Redeem(ctx, "u1", models.OTPPurposeCardActivation, "B1", code, func() error {
		applied = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Zero(t, challenges.count())

	err = svc.Redeem(ctx, "u1", models.OTPPurposeCardActivation, "B1", code, func() error {
		t.Fatal("apply must not run for a used code")
		return nil
	})
	assert.ErrorIs(t, err, isKind(apperr.KindValidation))
}

func TestOTPRedeemSkipsApplyOnWrongCode(t *testing.T) {
	svc, challenges, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeCardActivation, "B1", testMobile)
	require.NoError(t, err)

	err = svc.Redeem(ctx, "u1", models.OTPPurposeCardActivation, "B1", wrongCode(sender.code(testMobile)), func() error {
		t.Fatal("apply must not run for a wrong code")
		return nil
	})
	assert.ErrorIs(t, err, isKind(apperr.KindValidation))
	stored, err := challenges.Get(ctx, "u1", models.OTPPurposeCardActivation)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
}

func TestOTPExpires(t *testing.T) {
	svc, challenges, sender, clock := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeLogin, "", testMobile)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	err = svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", sender.code(testMobile))
	require.ErrorIs(t, err, isKind(apperr.KindValidation))
	assert.Contains(t, err.Error(), "expired")
	assert.Zero(t, challenges.count())
}

func TestOTPAttemptBudget(t *testing.T) {
	svc, challenges, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeLogin, "", testMobile)
	require.NoError(t, err)
	code := sender.code(testMobile)
	bad := wrongCode(code)

	for i := 0; i < 2; i++ {
		err := svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", bad)
		require.ErrorIs(t, err, isKind(apperr.KindValidation))
	}
	assert.Equal(t, 1, challenges.count())

	err = svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", bad)
	require.ErrorIs(t, err, isKind(apperr.KindValidation))
	assert.Contains(t, err.Error(), "too many attempts")
	assert.Zero(t, challenges.count())

	assert.Error(t, svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", code))
}

func TestOTPPurposesAreIsolated(t *testing.T) {
	svc, challenges, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeCardActivation, "B1", testMobile)
	require.NoError(t, err)
	code := sender.code(testMobile)

	err = svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", code)
	assert.ErrorIs(t, err, isKind(apperr.KindValidation))
	assert.Equal(t, 1, challenges.count())
}

func TestOTPReferenceMustMatch(t *testing.T) {
	svc, _, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeCardActivation, "B1", testMobile)
	require.NoError(t, err)

	err = svc.Verify(ctx, "u1", models.OTPPurposeCardActivation, "B2", sender.code(testMobile))
	assert.ErrorIs(t, err, isKind(apperr.KindValidation))
}

func TestOTPReissueReplacesCode(t *testing.T) {
	svc, _, sender, _ := newOTPFixture()
	ctx := context.Background()

	_, err := svc.Issue(ctx, "u1", models.OTPPurposeLogin, "", testMobile)
	require.NoError(t, err)
	first := sender.code(testMobile)
	_, err = svc.Issue(ctx, "u1", models.OTPPurposeLogin, "", testMobile)
	require.NoError(t, err)
	second := sender.code(testMobile)

	if first != second {
		assert.Error(t, svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", first))
	}
	assert.NoError(t, svc.Verify(ctx, "u1", models.OTPPurposeLogin, "", second))
}

func TestOTPDeliveryFailureRemovesChallenge(t *testing.T) {
	svc, challenges, sender, _ := newOTPFixture()
	sender.err = errors.New("smsc down")

	_, err := svc.Issue(context.Background(), "u1", models.OTPPurposeLogin, "", testMobile)

	assert.ErrorIs(t, err, isKind(apperr.KindUnavailable))
	assert.Zero(t, challenges.count())
}

func TestOTPFormat(t *testing.T) {
	svc, _, _, _ := newOTPFixture()

	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		err := svc.Verify(context.Background(), "u1", models.OTPPurposeLogin, "", code)
		assert.ErrorIs(t, err, isKind(apperr.KindValidation), code)
	}
}

func TestRandomDigitsLength(t *testing.T) {
	svc, _, _, _ := newOTPFixture()
	for i := 0; i < 50; i++ {
		code, err := randomDigits(svc.random, otpDigits)
		require.NoError(t, err)
		assert.True(t, isDigits(code, otpDigits), code)
	}
}
