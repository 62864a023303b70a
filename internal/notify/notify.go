// Package notify delivers one-time codes to a subscriber's mobile.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"telecomstore/internal/logger"
)

type Sender interface {
	Send(ctx context.Context, mobile, message string) error
}

// LogSender writes messages to the log instead of sending them. The message
// text, which carries the code, is only logged when Sandbox is set.
type LogSender struct {
	Logger  zerolog.Logger
	Sandbox bool
}

func (s LogSender) Send(_ context.Context, mobile, message string) error {
	ev := s.Logger.Info().Str("mobile", logger.MaskMobile(mobile))
	if s.Sandbox {
		ev = ev.Str("message", message)
	}
	ev.Msg("sms dispatched")
	return nil
}

type smsRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// HTTPSender posts messages to an SMS gateway.
type HTTPSender struct {
	URL    string
	Client *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *HTTPSender) Send(ctx context.Context, mobile, message string) error {
	body, err := json.Marshal(smsRequest{To: mobile, Text: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("sms gateway: status %d", resp.StatusCode)
	}
	return nil
}
