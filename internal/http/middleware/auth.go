package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

const (
	userIDKey   = "userID"
	identityKey = "identity"
	claimsKey   = "claims"
)

// Authenticator verifies a raw bearer token and resolves the caller.
// Implementations return tokens.ErrInvalidToken for any credential problem.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (domain.Identity, *tokens.Claims, error)
}

// Authenticate requires "Authorization: Bearer <token>". On success the
// caller is stored under "identity", its id under "userID" and the verified
// claims under "claims". Missing or rejected tokens answer 401; lookup
// failures answer 500.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing or malformed bearer token")
			return
		}
		id, claims, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, tokens.ErrInvalidToken) {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			LoggerFrom(c).Error().Err(err).Msg("authenticate")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		setIdentity(c, id, claims)
		c.Next()
	}
}

// RequireRole answers 403 unless the authenticated caller holds one of roles.
// It must run after Authenticate.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, "forbidden", "insufficient role")
	}
}

// IdentityFrom returns the caller stored by Authenticate.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// ClaimsFrom returns the verified token claims, or nil.
func ClaimsFrom(c *gin.Context) *tokens.Claims {
	v, _ := c.Get(claimsKey)
	cl, _ := v.(*tokens.Claims)
	return cl
}

// UserIDFrom returns the authenticated user id, or "" for anonymous requests.
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

func identityFrom(c *gin.Context) domain.Identity {
	id, _ := IdentityFrom(c)
	return id
}

func setIdentity(c *gin.Context, id domain.Identity, claims *tokens.Claims) {
	c.Set(identityKey, id)
	c.Set(userIDKey, id.ID)
	if claims != nil {
		c.Set(claimsKey, claims)
	}
}

func bearerToken(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// abortJSON writes the API error envelope and stops the chain.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}
