package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/pkg/jwt"
	"github.com/minpic/core/internal/pkg/response"
)

const ContextKeySubject = "auth_subject"

// Authenticator validates operator credentials: a static API token or an HS256 JWT.
type Authenticator struct {
	token  string
	signer *jwt.Signer
}

// NewAuthenticator returns nil when neither credential is configured, which
// leaves the API open.
func NewAuthenticator(token, jwtSecret string) (*Authenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" && jwtSecret == "" {
		return nil, nil
	}
	a := &Authenticator{token: token}
	if jwtSecret != "" {
		signer, err := jwt.NewSigner(jwtSecret)
		if err != nil {
			return nil, err
		}
		a.signer = signer
	}
	return a, nil
}

// Validate returns the authenticated subject for rawToken.
func (a *Authenticator) Validate(rawToken string) (string, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return "", errors.New("token is required")
	}
	if a.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1 {
		return "api-token", nil
	}
	if a.signer == nil {
		return "", errors.New("invalid token")
	}
	claims, err := a.signer.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Auth returns a middleware that enforces authentication. A nil Authenticator
// lets every request through.
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}
		subject, err := a.Validate(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	if key := c.GetHeader("X-API-Key"); key != "" {
		return NormalizeToken(key)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
