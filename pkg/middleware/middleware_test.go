package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCorrelationID_GeneratesAndPropagates(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())

	var fromGin, fromCtx string
	router.GET("/", func(c *gin.Context) {
		fromGin = GetCorrelationID(c)
		fromCtx = logger.CorrelationID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	header := w.Header().Get(CorrelationIDHeader)
	assert.NotEmpty(t, header)
	assert.Equal(t, header, fromGin)
	assert.Equal(t, header, fromCtx)
}

func TestCorrelationID_ReusesIncomingHeader(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, strings.Repeat("x", 500))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(CorrelationIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["success"])
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestMetrics_DoesNotInterfere(t *testing.T) {
	router := gin.New()
	router.Use(Metrics(), RequestLogger("/healthz"))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

var authCfg = config.JWTConfig{Secret: "test-secret", Issuer: "billing", Audience: "geoippro"}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "billing-worker",
		Issuer:    "billing",
		Audience:  jwt.ClaimStrings{"geoippro"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestServiceAuth(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + signToken(t, "test-secret", validClaims()), http.StatusOK},
		{"lowercase scheme", "bearer " + signToken(t, "test-secret", validClaims()), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims()), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "test-secret", expired), http.StatusUnauthorized},
		{"no expiry", "Bearer " + signToken(t, "test-secret", noExpiry), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, "test-secret", wrongIssuer), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + signToken(t, "test-secret", wrongAudience), http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(ServiceAuth(authCfg))
			var subject string
			router.GET("/", func(c *gin.Context) {
				subject = c.GetString(ServiceSubjectKey)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "billing-worker", subject)
			}
		})
	}
}

func TestServiceAuth_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims()).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(ServiceAuth(authCfg))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type probeRequest struct {
	IP    string `json:"ip" validate:"required,ip"`
	Email string `json:"email" validate:"omitempty,email"`
}

func bindRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(MaxBodySize(limit))
	router.POST("/", func(c *gin.Context) {
		var req probeRequest
		if !BindAndValidate(c, &req) {
			return
		}
		c.JSON(http.StatusOK, req)
	})
	return router
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantStatus int
		wantMsg    string
	}{
		{"valid", `{"ip":"203.0.113.9"}`, 1024, http.StatusOK, ""},
		{"malformed json", `{"ip":`, 1024, http.StatusBadRequest, "invalid request body"},
		{"invalid ip", `{"ip":"300.1.1.1"}`, 1024, http.StatusBadRequest, "validation failed"},
		{"invalid email", `{"ip":"203.0.113.9","email":"nope"}`, 1024, http.StatusBadRequest, "validation failed"},
		{"too large", `{"ip":"203.0.113.9","email":"` + strings.Repeat("a", 200) + `@example.com"}`, 32, http.StatusRequestEntityTooLarge, "request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			bindRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				errInfo := decodeBody(t, w)["error"].(map[string]interface{})
				assert.Equal(t, tt.wantMsg, errInfo["message"])
			}
		})
	}
}
