package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/soukly/storefront/internal/domain/auth"
)

// Security authenticates requests via HMAC-SHA256 hashed API keys carried in
// the api_key header.
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

// RequireAPIKey rejects requests that do not carry a valid API key. The raw
// key is hashed with HMAC-SHA256 under the server pepper, looked up, and the
// stored hash re-compared in constant time to guard against timing
// side-channels.
func (s *Security) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		hexHash := auth.HashKey(s.pepper, key)
		info, err := s.apikeys.FindByHash(r.Context(), hexHash)
		if err != nil {
			zctx.From(r.Context()).Debug("API key rejected", zap.Error(err))
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		computed, _ := hex.DecodeString(hexHash)
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}
