package handler_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapkinv/gamesshop/internal/domain/auth"
	"github.com/lapkinv/gamesshop/internal/handler"
)

type stubKeyRepo struct {
	byHash map[string]auth.APIKeyInfo
}

func (r *stubKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := r.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &info, nil
}

func hashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRequireAPIKey(t *testing.T) {
	pepper := []byte("test-pepper")
	keyHash := hashKey("valid-key", pepper)
	repo := &stubKeyRepo{byHash: map[string]auth.APIKeyInfo{
		keyHash: {ID: "k1", UserID: 42, KeyHash: keyHash, Name: "test"},
	}}

	var gotOwner int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := handler.OwnerFromContext(r.Context())
		require.True(t, ok)
		gotOwner = id
		w.WriteHeader(http.StatusOK)
	})
	protected := handler.RequireAPIKey(repo, pepper)(next)

	t.Run("ValidKey", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("api_key", "valid-key")
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(42), gotOwner)
	})

	t.Run("MissingKey", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("api_key", "wrong-key")
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("PepperChangesHash", func(t *testing.T) {
		other := handler.RequireAPIKey(repo, []byte("other-pepper"))(next)

		r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		r.Header.Set("api_key", "valid-key")
		w := httptest.NewRecorder()

		other.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
