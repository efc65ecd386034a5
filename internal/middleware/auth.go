package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

// UserIDKey is the gin context key holding the authenticated subject.
const UserIDKey = "user_id"

// JWTAuth verifies HS256 bearer tokens and stores the token subject as the
// user id. When auth is disabled requests pass through untouched.
func JWTAuth(cfg domain.AuthConfig) gin.HandlerFunc {
	return bearerAuth(cfg, true)
}

// OptionalJWTAuth identifies the caller when a bearer token is presented and
// lets anonymous requests through. A presented token must still be valid.
func OptionalJWTAuth(cfg domain.AuthConfig) gin.HandlerFunc {
	return bearerAuth(cfg, false)
}

func bearerAuth(cfg domain.AuthConfig, required bool) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(c *gin.Context) {
		if !cfg.Enabled || UserID(c) != "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if !required {
				c.Next()
				return
			}
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "invalid authorization format")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, opts...)
		if err != nil || !token.Valid || claims.Subject == "" {
			abortWithError(c, http.StatusUnauthorized, domain.ErrCodeAuthentication, "invalid token")
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
