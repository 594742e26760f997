// Package oidctest runs an in-process authorization server for tests. It
// publishes a signing key set and signs identity tokens with it.
package oidctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/jwks"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/stretchr/testify/require"
)

// ClientID is the audience of tokens minted by the server.
const ClientID = "test-client"

// Server is a fake authorization server.
type Server struct {
	*httptest.Server
	Key *KeyPair

	t         testing.TB
	mux       *http.ServeMux
	jwksHits  atomic.Int32
	jwksDelay time.Duration
	mu        sync.Mutex
	extraKeys []jwks.JWK
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	key, err := GenerateRSAKeyPair("test-key-1", 2048)
	require.NoError(t, err)

	s := &Server{Key: key, t: t, mux: http.NewServeMux()}
	s.mux.HandleFunc("/.well-known/jwks.json", s.serveJWKS)
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	return s
}

// Handle registers an additional endpoint.
func (s *Server) Handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// SetJWKSDelay slows key set responses down so concurrent lookups overlap.
func (s *Server) SetJWKSDelay(d time.Duration) {
	s.jwksDelay = d
}

// AddKey publishes an additional key.
func (s *Server) AddKey(k jwks.JWK) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extraKeys = append(s.extraKeys, k)
}

// JWKSHits returns how often the key set was downloaded.
func (s *Server) JWKSHits() int {
	return int(s.jwksHits.Load())
}

// Options returns client options pointing at the server.
func (s *Server) Options() oauthmodel.AuthOptions {
	return oauthmodel.AuthOptions{
		Domain:       s.URL,
		ClientID:     ClientID,
		RedirectURI:  "https://app.example.com/callback",
		ResponseType: "token id_token",
		Scope:        "openid profile email",
	}
}

// Issuer is the iss claim of minted tokens.
func (s *Server) Issuer() string {
	return s.URL + "/"
}

// Claims returns a valid claim set for nonce, adjusted by overrides.
func (s *Server) Claims(nonce string, overrides jwt.MapClaims) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.Issuer(),
		"sub":   "auth0|123",
		"aud":   ClientID,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"nonce": nonce,
		"email": "user@example.com",
		"name":  "Test User",
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

// IDToken signs a valid identity token for nonce.
func (s *Server) IDToken(nonce string, overrides jwt.MapClaims) string {
	s.t.Helper()
	raw, err := s.Key.Sign(s.Claims(nonce, overrides))
	require.NoError(s.t, err)
	return raw
}

func (s *Server) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	s.jwksHits.Add(1)
	if s.jwksDelay > 0 {
		time.Sleep(s.jwksDelay)
	}
	s.mu.Lock()
	set := jwks.JWKS{Keys: append([]jwks.JWK{s.Key.JWK()}, s.extraKeys...)}
	s.mu.Unlock()
	WriteJSON(w, http.StatusOK, set)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
