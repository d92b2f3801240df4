package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stagepass/internal/core/domain"
	"stagepass/internal/core/services"
	"stagepass/internal/infrastructure/repositories/memory"
	apperrors "stagepass/pkg/errors"
	"stagepass/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
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

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": string(UserID(c))})
}

func TestAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	token, err := auth.GenerateToken("user-1")
	require.NoError(t, err)

	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.GET("/me", AuthMiddleware(auth), whoAmI)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			body := decodeBody(t, w)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-1", body["user"])
			} else {
				assert.Equal(t, string(apperrors.ErrCodeUnauthenticated), body["error"])
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	token, err := auth.GenerateToken("user-1")
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", OptionalAuthMiddleware(auth), whoAmI)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decodeBody(t, w)["user"])

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, "user-1", decodeBody(t, w)["user"])
}

func TestAdminMiddleware(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	identities := memory.NewMemoryIdentityRepository()
	require.NoError(t, identities.Upsert(context.Background(), &domain.Identity{UserID: "admin-1", IsAdmin: true}))
	access := services.NewAccessService(identities, nil, zap.NewNop().Sugar())

	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.POST("/admin", AuthMiddleware(auth), AdminMiddleware(access), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(user domain.UserID) *httptest.ResponseRecorder {
		token, err := auth.GenerateToken(user)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, call("admin-1").Code)

	w := call("viewer-1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(apperrors.ErrCodePermissionDenied), decodeBody(t, w)["error"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	router.GET("/precondition", func(c *gin.Context) {
		_ = c.Error(apperrors.NewFailedPreconditionError("Stream is not live"))
	})
	router.GET("/plain", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/precondition", nil))
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "FAILED_PRECONDITION", body["error"])
	assert.Equal(t, "Stream is not live", body["message"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", decodeBody(t, w)["error"])
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop().Sugar()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", decodeBody(t, w)["error"])
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"*"}))
	router.GET("/token", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/token", nil)
	req.Header.Set("Origin", "https://app.example")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSMiddleware_RestrictedOrigins(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://app.example"}))
	router.GET("/token", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Header.Set("Origin", "https://app.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/token", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type recordedRequest struct {
	route  string
	status int
}

type fakeHTTPMetrics struct {
	requests []recordedRequest
}

func (f *fakeHTTPMetrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	f.requests = append(f.requests, recordedRequest{route: route, status: status})
}

func TestRequestMiddleware_LogsWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := &fakeHTTPMetrics{}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(RequestLoggingMiddleware(logger.NewContextLogger(zap.New(core)), metrics))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, []recordedRequest{{route: "/ping", status: http.StatusOK}}, metrics.requests)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}
