package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"telecomstore/internal/apperr"
	"telecomstore/internal/keylock"
	"telecomstore/internal/models"
)

// KYCDocumentTypes are the identity documents accepted for upload.
var KYCDocumentTypes = map[string]bool{
	"aadhaar":  true,
	"pan":      true,
	"passport": true,
	"voter_id": true,
}

type AddressInput struct {
	Title     string
	Line1     string
	Line2     string
	City      string
	State     string
	Pincode   string
	IsDefault bool
}

func (in AddressInput) validate() error {
	switch {
	case strings.TrimSpace(in.Line1) == "":
		return apperr.Validation("line1 is required")
	case strings.TrimSpace(in.City) == "":
		return apperr.Validation("city is required")
	case strings.TrimSpace(in.State) == "":
		return apperr.Validation("state is required")
	}
	pin := strings.TrimSpace(in.Pincode)
	if !isDigits(pin, 6) {
		return apperr.Validation("pincode must be 6 digits")
	}
	return nil
}

func (in AddressInput) apply(addr *models.Address) {
	addr.Title = strings.TrimSpace(in.Title)
	addr.Line1 = strings.TrimSpace(in.Line1)
	addr.Line2 = strings.TrimSpace(in.Line2)
	addr.City = strings.TrimSpace(in.City)
	addr.State = strings.TrimSpace(in.State)
	addr.Pincode = strings.TrimSpace(in.Pincode)
	addr.IsDefault = in.IsDefault
}

// ProfileService manages the address book and KYC record embedded in the user.
type ProfileService struct {
	users UserStore
	locks *keylock.Locker
	now   func() time.Time
}

func NewProfileService(users UserStore, locks *keylock.Locker) *ProfileService {
	return &ProfileService{users: users, locks: locks, now: time.Now}
}

func profileKey(userID primitive.ObjectID) string {
	return "profile:" + userID.Hex()
}

func (s *ProfileService) user(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

func (s *ProfileService) Addresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

// AddAddress appends an address. The first address becomes the default.
func (s *ProfileService) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	defer s.locks.Lock(profileKey(userID))()

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	addr := models.Address{ID: uuid.NewString()}
	in.apply(&addr)
	if len(user.Addresses) == 0 {
		addr.IsDefault = true
	}
	if addr.IsDefault {
		clearDefault(user.Addresses)
	}
	addresses := append(user.Addresses, addr)

	if err := s.users.SetAddresses(ctx, userID, addresses); err != nil {
		return nil, notFound(err, "user not found")
	}
	log.Info().Str("user_id", userID.Hex()).Str("address_id", addr.ID).Msg("address created")
	return &addr, nil
}

func (s *ProfileService) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	defer s.locks.Lock(profileKey(userID))()

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := addressIndex(user.Addresses, addressID)
	if idx < 0 {
		return nil, apperr.NotFound("address not found")
	}

	wasDefault := user.Addresses[idx].IsDefault
	if in.IsDefault {
		clearDefault(user.Addresses)
	}
	in.apply(&user.Addresses[idx])
	if wasDefault && !in.IsDefault {
		// the book keeps a default while it has entries
		user.Addresses[idx].IsDefault = true
	}

	if err := s.users.SetAddresses(ctx, userID, user.Addresses); err != nil {
		return nil, notFound(err, "user not found")
	}
	addr := user.Addresses[idx]
	return &addr, nil
}

// DeleteAddress removes an address and promotes the first remaining one if
// the default was removed.
func (s *ProfileService) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error {
	defer s.locks.Lock(profileKey(userID))()

	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	idx := addressIndex(user.Addresses, addressID)
	if idx < 0 {
		return apperr.NotFound("address not found")
	}

	removed := user.Addresses[idx]
	addresses := append(user.Addresses[:idx:idx], user.Addresses[idx+1:]...)
	if removed.IsDefault && len(addresses) > 0 {
		addresses[0].IsDefault = true
	}

	if err := s.users.SetAddresses(ctx, userID, addresses); err != nil {
		return notFound(err, "user not found")
	}
	log.Info().Str("user_id", userID.Hex()).Str("address_id", addressID).Msg("address deleted")
	return nil
}

// SubmitKYC records an uploaded document and returns the path of the one it
// replaces, if any, so the caller can remove the old file.
func (s *ProfileService) SubmitKYC(ctx context.Context, userID primitive.ObjectID, documentType, path string) (*models.KYC, string, error) {
	if !KYCDocumentTypes[documentType] {
		return nil, "", apperr.Validation("documentType must be one of aadhaar, pan, passport, voter_id")
	}
	defer s.locks.Lock(profileKey(userID))()

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	kyc := models.KYC{
		DocumentType: documentType,
		Path:         path,
		Status:       models.KYCStatusSubmitted,
		SubmittedAt:  s.now(),
	}
	if err := s.users.SetKYC(ctx, userID, kyc); err != nil {
		return nil, "", notFound(err, "user not found")
	}

	previous := ""
	if user.KYC != nil && user.KYC.Path != path {
		previous = user.KYC.Path
	}
	log.Info().Str("user_id", userID.Hex()).Str("document_type", documentType).Msg("kyc document submitted")
	return &kyc, previous, nil
}

func addressIndex(addresses []models.Address, id string) int {
	for i, addr := range addresses {
		if addr.ID == id {
			return i
		}
	}
	return -1
}

func clearDefault(addresses []models.Address) {
	for i := range addresses {
		addresses[i].IsDefault = false
	}
}
