package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intern-service/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-key-for-testing")

	t.Run("RoundTrip", func(t *testing.T) {
		id := uuid.NewString()
		token, err := tm.Generate(id, "a@example.com", auth.RoleIntern, time.Minute)
		require.NoError(t, err)

		claims, err := tm.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, id, claims.Subject)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, auth.RoleIntern, claims.Role)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := tm.Generate("x", "", auth.RoleAdmin, -time.Minute)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := auth.NewTokenManager("other").Generate("x", "", auth.RoleAdmin, time.Minute)
		require.NoError(t, err)

		_, err = tm.Validate(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("RejectsNoneAlgorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{Role: auth.RoleAdmin})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.Validate(signed)
		assert.Error(t, err)
	})

	t.Run("RequiresSubject", func(t *testing.T) {
		_, err := tm.Generate("", "", auth.RoleIntern, time.Minute)
		assert.Error(t, err)
	})
}

func TestExtractBearer(t *testing.T) {
	token, ok := auth.ExtractBearer("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	_, ok = auth.ExtractBearer("Basic dXNlcjpwYXNz")
	assert.False(t, ok)

	_, ok = auth.ExtractBearer("")
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-key-for-testing")
	logger := discardLogger()

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tm, logger))
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.InternID(r.Context())
			if !ok {
				w.WriteHeader(http.StatusTeapot)
				return
			}
			w.Write([]byte(id.String()))
		})
		r.With(auth.RequireRole(auth.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	internID := uuid.New()
	internToken, err := tm.Generate(internID.String(), "i@example.com", auth.RoleIntern, time.Minute)
	require.NoError(t, err)
	adminToken, err := tm.Generate("admin-1", "", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)

	t.Run("NoToken", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: internToken})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, internID.String(), w.Body.String())
	})

	t.Run("Bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+internToken)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("AdminTokenIsNotAnIntern", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("RequireRole", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+internToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("WithClaims", func(t *testing.T) {
		ctx := auth.WithClaims(context.Background(), &auth.Claims{Role: auth.RoleIntern, RegisteredClaims: jwt.RegisteredClaims{Subject: internID.String()}})
		id, ok := auth.InternID(ctx)
		assert.True(t, ok)
		assert.Equal(t, internID, id)
	})
}
