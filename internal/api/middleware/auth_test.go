package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/engram-api/internal/service/auth"
)

// fakeJWTService validates any token by returning the configured claims or error.
type fakeJWTService struct {
	claims      *auth.Claims
	validateErr error
	lastToken   string
}

func (f *fakeJWTService) GenerateToken(ctx context.Context, learnerID uuid.UUID) (string, error) {
	return "unused", nil
}

func (f *fakeJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	f.lastToken = tokenString
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.claims, nil
}

func (f *fakeJWTService) GenerateRefreshToken(ctx context.Context, learnerID uuid.UUID) (string, error) {
	return "unused", nil
}

func (f *fakeJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return f.claims, f.validateErr
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	learnerID := uuid.New()

	protected := func(m *AuthMiddleware) (http.Handler, *uuid.UUID) {
		var gotLearner uuid.UUID
		handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetLearnerID(r)
			require.True(t, ok)
			gotLearner = id
			w.WriteHeader(http.StatusOK)
		}))
		return handler, &gotLearner
	}

	t.Run("rejects a missing Authorization header", func(t *testing.T) {
		t.Parallel()
		m := NewAuthMiddleware(&fakeJWTService{})
		handler, _ := protected(m)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/queue", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authorization header required", errorBody(t, rec))
	})

	t.Run("rejects a header without the Bearer scheme", func(t *testing.T) {
		t.Parallel()
		m := NewAuthMiddleware(&fakeJWTService{})
		handler, _ := protected(m)

		req := httptest.NewRequest("GET", "/queue", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid authorization format", errorBody(t, rec))
	})

	t.Run("maps expired tokens to a specific message", func(t *testing.T) {
		t.Parallel()
		m := NewAuthMiddleware(&fakeJWTService{validateErr: auth.ErrExpiredToken})
		handler, _ := protected(m)

		req := httptest.NewRequest("GET", "/queue", nil)
		req.Header.Set("Authorization", "Bearer stale-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Token expired", errorBody(t, rec))
	})

	t.Run("maps invalid and wrong-type tokens to a generic message", func(t *testing.T) {
		t.Parallel()
		for _, tokenErr := range []error{auth.ErrInvalidToken, auth.ErrWrongTokenType} {
			m := NewAuthMiddleware(&fakeJWTService{validateErr: tokenErr})
			handler, _ := protected(m)

			req := httptest.NewRequest("GET", "/queue", nil)
			req.Header.Set("Authorization", "Bearer bad-token")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid token", errorBody(t, rec))
		}
	})

	t.Run("treats unexpected validation failures as server errors", func(t *testing.T) {
		t.Parallel()
		m := NewAuthMiddleware(&fakeJWTService{validateErr: errors.New("keystore unreachable")})
		handler, _ := protected(m)

		req := httptest.NewRequest("GET", "/queue", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "keystore")
	})

	t.Run("passes the learner ID to the handler on success", func(t *testing.T) {
		t.Parallel()
		svc := &fakeJWTService{claims: &auth.Claims{LearnerID: learnerID, TokenType: "access"}}
		m := NewAuthMiddleware(svc)
		handler, gotLearner := protected(m)

		req := httptest.NewRequest("GET", "/queue", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, learnerID, *gotLearner)
		assert.Equal(t, "good-token", svc.lastToken)
	})
}

func TestGetLearnerID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/queue", nil)
	_, ok := GetLearnerID(req)
	assert.False(t, ok, "unauthenticated request must not yield a learner ID")
}
