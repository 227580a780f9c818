package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secured", JWTMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": currentUser(c)})
	})
	return r
}

func TestIssueAndParseJWT(t *testing.T) {
	token, err := issueJWT(42, testSecret)
	require.NoError(t, err)

	uid, err := parseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestJWTMiddlewareAcceptsBearerHeader(t *testing.T) {
	r := newAuthRouter()
	token, err := issueJWT(7, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/secured", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":7}`, w.Body.String())
}

func TestJWTMiddlewareAcceptsQueryToken(t *testing.T) {
	// Websocket clients pass the token as a query parameter.
	r := newAuthRouter()
	token, err := issueJWT(7, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/secured?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddlewareRejectsMissingOrBadTokens(t *testing.T) {
	r := newAuthRouter()

	cases := map[string]func(*http.Request){
		"no header":     func(*http.Request) {},
		"garbage token": func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		"wrong scheme":  func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secured", nil)
			mutate(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": float64(7),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	token, err := expired.SignedString(testSecret)
	require.NoError(t, err)

	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/secured", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	token, err := issueJWT(7, []byte("other-secret"))
	require.NoError(t, err)

	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/secured", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
