package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/lapkinv/gamesshop/internal/domain/auth"
)

// ownerKey is the context key for the authenticated owner id.
type ownerKey struct{}

// OwnerFromContext extracts the authenticated owner id from the context.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerKey{}).(int64)
	return id, ok
}

// ContextWithOwner returns a context carrying the given owner id. Intended
// for tests that exercise handlers without the auth middleware.
func ContextWithOwner(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// RequireAPIKey returns a middleware that authenticates requests via the
// api_key header: HMAC-SHA256 of the presented key (with the server-side
// pepper) is looked up among active keys, and the owning user id is put on
// the request context. Unauthenticated requests get a 401 and never reach
// the API.
func RequireAPIKey(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				writeErrorStatus(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels
			// if the repository ever returns a stale or wrong row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := ContextWithOwner(r.Context(), info.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
