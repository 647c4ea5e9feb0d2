package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/service"
	"github.com/rs/zerolog/log"
)

// claimsKey is the gin context key the auth middleware stores claims under.
const claimsKey = "authClaims"

// RequireAuth rejects requests without a valid bearer token. A missing token
// is a 401, a token that fails validation a 403, so clients can tell "log in
// first" apart from "your token is bad".
func RequireAuth(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "authorization required"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "malformed authorization header"})
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole allows only the listed role codes past. Must run after
// RequireAuth.
func RequireRole(roles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "authorization required"})
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "insufficient role"})
	}
}

// ClaimsFrom returns the claims stored by RequireAuth, or nil.
func ClaimsFrom(c *gin.Context) *service.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}
