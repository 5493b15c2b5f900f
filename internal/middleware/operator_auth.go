package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"
)

const RoleOperator = "operator"

// OperatorAuthConfig lists the accepted operator credentials. Any one of them
// grants access.
type OperatorAuthConfig struct {
	// Token is a static shared secret.
	Token string
	// TokenBcrypt is a bcrypt hash of the shared secret, preferred over Token
	// when set.
	TokenBcrypt string
	// JWT validates signed operator tokens carrying role "operator".
	JWT *jwt.Service
}

func (c OperatorAuthConfig) configured() bool {
	return c.Token != "" || c.TokenBcrypt != "" || c.JWT != nil
}

// OperatorAuth protects operator endpoints with a bearer credential.
func OperatorAuth(cfg OperatorAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.configured() {
			logAuthFailure(c, http.StatusInternalServerError, "token_not_configured")
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operator auth is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(c, http.StatusUnauthorized, "missing_auth")
			response.Abort(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
			logAuthFailure(c, http.StatusUnauthorized, "invalid_auth_format")
			response.Abort(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			return
		}
		token := strings.TrimSpace(parts[1])

		operator, ok := authenticate(cfg, token)
		if !ok {
			logAuthFailure(c, http.StatusForbidden, "invalid_token")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "Invalid operator token")
			return
		}

		c.Set("operator", operator)
		c.Next()
	}
}

func authenticate(cfg OperatorAuthConfig, token string) (string, bool) {
	switch {
	case cfg.TokenBcrypt != "":
		if bcrypt.CompareHashAndPassword([]byte(cfg.TokenBcrypt), []byte(token)) == nil {
			return "internal", true
		}
	case cfg.Token != "":
		if subtle.ConstantTimeCompare([]byte(cfg.Token), []byte(token)) == 1 {
			return "internal", true
		}
	}

	if cfg.JWT != nil {
		claims, err := cfg.JWT.ValidateToken(token)
		if err == nil && claims.Role == RoleOperator {
			return claims.Subject, true
		}
	}
	return "", false
}

func logAuthFailure(c *gin.Context, status int, reason string) {
	log.Printf("level=warn msg=operator_auth_failed status=%d path=%s request_id=%s reason=%s",
		status, c.Request.URL.Path, requestID(c), reason)
}
