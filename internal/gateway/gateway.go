// Package gateway talks to the external payment gateway. The core only sees
// an opaque session id going out and a paid/unpaid report coming back.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

var ErrGateway = errors.New("payment gateway error")

type Customer struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type SessionRequest struct {
	OrderRef    string   `json:"orderRef"`
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
	Customer    Customer `json:"customer"`
}

type Session struct {
	ID          string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

// Sandbox issues local sessions; outcomes are reported by calling the webhook directly.
type Sandbox struct {
	RedirectBase string
}

func (g Sandbox) CreateSession(_ context.Context, req SessionRequest) (Session, error) {
	if req.Amount <= 0 {
		return Session{}, fmt.Errorf("%w: amount must be positive", ErrGateway)
	}
	id := "sbx_" + uuid.NewString()

	redirect, err := url.Parse(g.RedirectBase)
	if err != nil {
		return Session{}, fmt.Errorf("%w: bad redirect base: %v", ErrGateway, err)
	}
	q := redirect.Query()
	q.Set("session", id)
	redirect.RawQuery = q.Encode()

	return Session{ID: id, RedirectURL: redirect.String()}, nil
}
