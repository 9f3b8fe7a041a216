package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

// apiKeyHeader carries the admin API key on every admin request.
const apiKeyHeader = "X-API-Key"

type apiKeyContextKey struct{}

// APIKeyFrom returns the authenticated key info stored by RequireAPIKey, or
// nil on an unauthenticated request.
func APIKeyFrom(ctx context.Context) *auth.APIKeyInfo {
	info, _ := ctx.Value(apiKeyContextKey{}).(*auth.APIKeyInfo)
	return info
}

// Security authenticates admin requests via HMAC-SHA256 hashed API keys.
type Security struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security guard with the given API key repository and
// HMAC pepper.
func NewSecurity(apikeys auth.Repository, pepper []byte) *Security {
	return &Security{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// RequireAPIKey authenticates the request by computing the HMAC-SHA256 of the
// presented key, looking it up, and performing a constant-time comparison to
// prevent timing attacks. The key must also grant the given scope. On success
// the key info is attached to the request context.
func (s *Security) RequireAPIKey(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "missing api key")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !info.HasScope(scope) {
			writeError(w, r, http.StatusForbidden, "insufficient scope")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
