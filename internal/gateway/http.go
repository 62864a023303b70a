package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type sessionResponse struct {
	Session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"session"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPClient creates sessions through a JSON endpoint.
type HTTPClient struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPClient) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Session{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("%w: request failed: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Warn().Int("status", resp.StatusCode).Str("order_ref", req.OrderRef).Msg("gateway rejected session request")
		return Session{}, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Session{}, fmt.Errorf("%w: parse response: %v", ErrGateway, err)
	}
	if parsed.Error != nil {
		return Session{}, fmt.Errorf("%w: %s: %s", ErrGateway, parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Session.ID == "" || parsed.Session.URL == "" {
		return Session{}, fmt.Errorf("%w: empty session in response", ErrGateway)
	}

	return Session{ID: parsed.Session.ID, RedirectURL: parsed.Session.URL}, nil
}
