package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/keylock"
	"telecomstore/internal/logger"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

// OTPChallenger is the part of OTPService the card flow depends on.
type OTPChallenger interface {
	Issue(ctx context.Context, subject, purpose, reference, mobile string) (time.Time, error)
	Verify(ctx context.Context, subject, purpose, reference, code string) error
	Redeem(ctx context.Context, subject, purpose, reference, code string, apply func() error) error
}

// OTPDispatch tells the caller where the code went and until when it is valid.
type OTPDispatch struct {
	Destination string    `json:"destination"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type ProvisionResult struct {
	Created    []string `json:"created"`
	Duplicates []string `json:"duplicates"`
}

// CardService moves cards through unassigned → sold → active.
type CardService struct {
	cards     CardStore
	users     UserReader
	otp       OTPChallenger
	allocator MSISDNAllocator
	locks     *keylock.Locker
	now       func() time.Time
}

func NewCardService(cards CardStore, users UserReader, otp OTPChallenger, allocator MSISDNAllocator, locks *keylock.Locker) *CardService {
	return &CardService{
		cards:     cards,
		users:     users,
		otp:       otp,
		allocator: allocator,
		locks:     locks,
		now:       time.Now,
	}
}

func cardKey(barcode string) string {
	return "card:" + barcode
}

func normalizeBarcode(barcode string) (string, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return "", apperr.Validation("barcode is required")
	}
	return barcode, nil
}

// CheckoutComplete marks the card sold to userID. Repeating the call for the
// same owner returns the card unchanged.
func (s *CardService) CheckoutComplete(ctx context.Context, userID primitive.ObjectID, barcode string) (*models.Card, error) {
	barcode, err := normalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	defer s.locks.Lock(cardKey(barcode))()

	card, err := s.cards.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, notFound(err, "card %s not found", barcode)
	}
	if card.Status == models.CardStatusActive {
		return nil, apperr.Conflict("card %s is already active", barcode)
	}
	if card.Status == models.CardStatusSold {
		if card.OwnedBy(userID) {
			return card, nil
		}
		return nil, apperr.Conflict("card %s has already been sold", barcode)
	}

	now := s.now()
	card.Status = models.CardStatusSold
	card.Owner = &userID
	card.SoldAt = &now
	if err := s.cards.Update(ctx, card); err != nil {
		return nil, conflictOnVersion(notFound(err, "card %s not found", barcode), "card %s was updated concurrently, please retry", barcode)
	}

	log.Info().Str("barcode", barcode).Str("user_id", userID.Hex()).Msg("card sold")
	return card, nil
}

// ownedCard loads the card and checks the caller may activate it.
func (s *CardService) ownedCard(ctx context.Context, userID primitive.ObjectID, barcode string) (*models.Card, error) {
	card, err := s.cards.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, notFound(err, "card %s not found", barcode)
	}
	if !card.OwnedBy(userID) {
		return nil, apperr.Forbidden("card %s does not belong to you", barcode)
	}
	if card.Status == models.CardStatusActive {
		return nil, apperr.Conflict("card %s is already active", barcode)
	}
	if card.Status != models.CardStatusSold {
		return nil, apperr.Conflict("card %s has not been sold", barcode)
	}
	return card, nil
}

func (s *CardService) RequestOTP(ctx context.Context, userID primitive.ObjectID, barcode string) (*OTPDispatch, error) {
	barcode, err := normalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCard(ctx, userID, barcode); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	if user.Mobile == "" {
		return nil, apperr.Validation("a registered mobile number is required to activate a card")
	}

	expiresAt, err := s.otp.Issue(ctx, userID.Hex(), models.OTPPurposeCardActivation, barcode, user.Mobile)
	if err != nil {
		return nil, err
	}
	return &OTPDispatch{Destination: logger.MaskMobile(user.Mobile), ExpiresAt: expiresAt}, nil
}

// Activate checks the OTP, assigns an msisdn and marks the card active. The
// code is only used up once the card write has landed.
func (s *CardService) Activate(ctx context.Context, userID primitive.ObjectID, barcode, code string) (*models.Card, error) {
	barcode, err := normalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}
	defer s.locks.Lock(cardKey(barcode))()

	card, err := s.ownedCard(ctx, userID, barcode)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}

	activate := func() error {
		msisdn, err := s.allocator.Allocate(ctx, user)
		if err != nil {
			return err
		}

		now := s.now()
		next := *card
		next.Status = models.CardStatusActive
		next.MSISDN = msisdn
		next.ActivatedAt = &now
		if err := s.cards.Update(ctx, &next); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("assigned number is already in use, please retry")
			}
			return conflictOnVersion(notFound(err, "card %s not found", barcode), "card %s was updated concurrently, please retry", barcode)
		}
		card = &next
		return nil
	}
	if err := s.otp.Redeem(ctx, userID.Hex(), models.OTPPurposeCardActivation, barcode, strings.TrimSpace(code), activate); err != nil {
		return nil, err
	}

	log.Info().Str("barcode", barcode).Str("user_id", userID.Hex()).Msg("card activated")
	return card, nil
}

func (s *CardService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.Card, error) {
	return s.cards.ListByOwner(ctx, userID)
}

// Provision stores new unassigned cards. Barcodes that already exist are
// reported back instead of failing the batch.
func (s *CardService) Provision(ctx context.Context, barcodes []string, cardType string) (*ProvisionResult, error) {
	if cardType != models.CardTypePhysical && cardType != models.CardTypeESIM {
		return nil, apperr.Validation("type must be physical or esim")
	}

	seen := make(map[string]bool, len(barcodes))
	cards := make([]models.Card, 0, len(barcodes))
	result := &ProvisionResult{Created: []string{}, Duplicates: []string{}}
	now := s.now()
	for _, raw := range barcodes {
		barcode := strings.TrimSpace(raw)
		if barcode == "" {
			continue
		}
		if seen[barcode] {
			result.Duplicates = append(result.Duplicates, barcode)
			continue
		}
		seen[barcode] = true
		cards = append(cards, models.Card{
			Barcode:   barcode,
			Type:      cardType,
			Status:    models.CardStatusUnassigned,
			CreatedAt: now,
		})
	}
	if len(cards) == 0 {
		return nil, apperr.Validation("at least one barcode is required")
	}

	existing, err := s.cards.InsertMany(ctx, cards)
	if err != nil {
		return nil, err
	}
	skipped := make(map[string]bool, len(existing))
	for _, barcode := range existing {
		skipped[barcode] = true
	}
	for _, card := range cards {
		if skipped[card.Barcode] {
			result.Duplicates = append(result.Duplicates, card.Barcode)
		} else {
			result.Created = append(result.Created, card.Barcode)
		}
	}

	log.Info().Int("created", len(result.Created)).Int("duplicates", len(result.Duplicates)).Msg("cards provisioned")
	return result, nil
}
