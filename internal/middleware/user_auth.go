package middleware

import (
	"github.com/gin-gonic/gin"
)

// UserAuth accepts any signed-in caller, admins included.
func UserAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret)
}
