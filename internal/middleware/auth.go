package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telecomstore/internal/auth"
	"telecomstore/internal/models"
)

const (
	UserIDKey = "userId"
	RoleKey   = "role"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

func bearerToken(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthGuard validates the access token and, when roles are given, requires one of them.
// It stores the caller's id under UserIDKey and role under RoleKey.
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
			abort(c, http.StatusUnauthorized, "missing token")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, err := auth.ParseToken(secret, raw)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("token rejected")
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := claims.ObjectID()
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if claims.Role == r {
					match = true
					break
				}
			}
			if !match {
				log.Warn().Str("user_id", userID.Hex()).Str("role", claims.Role).Str("path", c.FullPath()).Msg("role not allowed")
				abort(c, http.StatusForbidden, "forbidden")
				return
			}
		}

		c.Set(UserIDKey, userID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, models.RoleAdmin)
}
