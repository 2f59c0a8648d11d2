package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalContextKey = "grabit.principal"

// principal is the caller identity. ID is the opaque actor token used by
// the booking core for ownership and requester checks.
type principal struct {
	ID        string
	ExpiresAt time.Time
}

// AuthMiddleware verifies HS256 bearer tokens issued by the identity service.
// Requests without a valid token continue anonymously; handlers decide.
type AuthMiddleware struct {
	Secret []byte
	Issuer string
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Secret) == 0 {
		c.Next()
		return
	}
	p, err := m.verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, p)
	c.Next()
}

func (m AuthMiddleware) verify(raw string) (principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if m.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, opts...); err != nil {
		return principal{}, err
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return principal{}, errors.New("token has no subject")
	}
	p := principal{ID: subject}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// IssueToken signs a token for subject. The identity service owns issuing in
// production; this is used by tests and the dev bootstrap.
func IssueToken(secret []byte, issuer, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireActor(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok || p.ID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "auth required"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
