package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minpic/core/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/private", Auth(a), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeySubject))
	})
	return r
}

func doGet(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthDisabledWhenUnconfigured(t *testing.T) {
	a, err := NewAuthenticator("", "")
	require.NoError(t, err)
	assert.Nil(t, a)

	w := doGet(newAuthRouter(a), "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthStaticToken(t *testing.T) {
	a, err := NewAuthenticator("s3cret", "")
	require.NoError(t, err)
	r := newAuthRouter(a)

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Authorization", "Bearer nope").Code)

	w := doGet(r, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "api-token", w.Body.String())

	assert.Equal(t, http.StatusOK, doGet(r, "X-API-Key", "s3cret").Code)
}

func TestAuthJWT(t *testing.T) {
	a, err := NewAuthenticator("", "jwt-secret")
	require.NoError(t, err)
	signer, err := jwt.NewSigner("jwt-secret")
	require.NoError(t, err)
	token, err := signer.Sign("operator", time.Hour)
	require.NoError(t, err)

	w := doGet(newAuthRouter(a), "Authorization", "bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator", w.Body.String())
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  Bearer abc "))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Equal(t, "", NormalizeToken("   "))
}
