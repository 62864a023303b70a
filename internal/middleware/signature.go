package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	SignatureHeader = "X-Signature"
	maxWebhookBody  = 1 << 20
)

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// GatewaySignature checks X-Signature against the raw request body. An empty
// secret disables the check. The body is restored for the next handler.
func GatewaySignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		got := strings.ToLower(strings.TrimSpace(c.GetHeader(SignatureHeader)))
		want := Sign(secret, body)
		if got == "" || !hmac.Equal([]byte(got), []byte(want)) {
			log.Warn().Str("ip", c.ClientIP()).Msg("webhook signature mismatch")
			abort(c, http.StatusUnauthorized, "invalid signature")
			return
		}
		c.Next()
	}
}
