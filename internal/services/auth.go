package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"telecomstore/internal/apperr"
	"telecomstore/internal/auth"
	"telecomstore/internal/logger"
	"telecomstore/internal/models"
	"telecomstore/internal/store"
)

const minPasswordLength = 8

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Mobile   string
}

// Session is what a successful login hands back to the client.
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

type AuthService struct {
	users      UserStore
	tokens     RefreshTokenStore
	otp        OTPChallenger
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users UserStore, tokens RefreshTokenStore, otp OTPChallenger, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		otp:        otp,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// NormalizeMobile strips formatting and accepts 10 to 15 digits.
func NormalizeMobile(mobile string) (string, error) {
	digits := digitsOnly(mobile)
	if len(digits) < 10 || len(digits) > 15 {
		return "", apperr.Validation("mobile must have 10 to 15 digits")
	}
	return digits, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("email is invalid")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	mobile, err := NormalizeMobile(in.Mobile)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByMobile(ctx, mobile); err == nil {
		return nil, apperr.Conflict("mobile is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Mobile:       mobile,
		Role:         models.RoleUser,
		IsActive:     true,
		Addresses:    []models.Address{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email or mobile is already registered")
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("user is inactive")
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("user logged in")
	return s.issue(ctx, user)
}

// Refresh rotates a refresh token. Each token can be exchanged once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	token, err := s.activeToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("user not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("user is inactive")
	}

	session, newID, err := s.issueWithID(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Revoke(ctx, token.ID, &newID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.tokens.Revoke(ctx, newID, nil)
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, err
	}
	return session, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	token, err := s.activeToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, token.ID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("invalid refresh token")
		}
		return err
	}
	return nil
}

func (s *AuthService) activeToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil, apperr.Validation("refreshToken is required")
	}
	token, err := s.tokens.FindActive(ctx, auth.HashToken(plain))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(token.ExpiresAt) {
		_ = s.tokens.Revoke(ctx, token.ID, nil)
		return nil, apperr.Unauthorized("refresh token expired")
	}
	return token, nil
}

// RequestLoginOTP sends a login code. An unknown mobile gets the same answer
// as a known one so the endpoint cannot be used to probe for accounts.
func (s *AuthService) RequestLoginOTP(ctx context.Context, mobile string) (*OTPDispatch, error) {
	normalized, err := NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	dispatch := &OTPDispatch{Destination: logger.MaskMobile(normalized)}

	user, err := s.users.FindByMobile(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		log.Info().Str("mobile", logger.MaskMobile(normalized)).Msg("login otp requested for unknown mobile")
		return dispatch, nil
	}
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.otp.Issue(ctx, user.ID.Hex(), models.OTPPurposeLogin, "", user.Mobile)
	if err != nil {
		return nil, err
	}
	dispatch.ExpiresAt = expiresAt
	return dispatch, nil
}

func (s *AuthService) VerifyLoginOTP(ctx context.Context, mobile, code string) (*Session, error) {
	normalized, err := NormalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByMobile(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Validation("no pending otp, request a new one")
	}
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, user.ID.Hex(), models.OTPPurposeLogin, "", strings.TrimSpace(code)); err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("user is inactive")
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("user logged in with otp")
	return s.issue(ctx, user)
}

func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	session, _, err := s.issueWithID(ctx, user)
	return session, err
}

func (s *AuthService) issueWithID(ctx context.Context, user *models.User) (*Session, primitive.ObjectID, error) {
	now := s.now()
	access, err := auth.GenerateToken(s.secret, user.ID, user.Role, s.accessTTL, now)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	plain, err := auth.NewRefreshToken()
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	token := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(plain),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Insert(ctx, token); err != nil {
		return nil, primitive.NilObjectID, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         user,
	}, token.ID, nil
}
