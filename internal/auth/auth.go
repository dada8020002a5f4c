// Package auth validates bearer tokens against a JSON Web Key Set.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

type ClaimsWithGroups struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

type contextKey struct{}

// FromContext returns the claims attached to the request by Middleware.
func FromContext(ctx context.Context) (*ClaimsWithGroups, bool) {
	claims, ok := ctx.Value(contextKey{}).(*ClaimsWithGroups)
	return claims, ok
}

// Verifier checks bearer tokens on incoming requests.
type Verifier struct {
	jwks   *keyfunc.JWKS
	logger zerolog.Logger
}

// NewVerifier fetches the key set from jwksURL and keeps it refreshed in
// the background.
func NewVerifier(jwksURL string, logger zerolog.Logger) (*Verifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Msg("could not refresh JSON Web Key Set")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not retrieve JSON Web Key Set: %w", err)
	}

	return &Verifier{jwks: jwks, logger: logger}, nil
}

// NewVerifierFromJSON builds a verifier from a raw key set document.
func NewVerifierFromJSON(rawJWKS json.RawMessage, logger zerolog.Logger) (*Verifier, error) {
	jwks, err := keyfunc.NewJSON(rawJWKS)
	if err != nil {
		return nil, fmt.Errorf("could not parse JSON Web Key Set: %w", err)
	}

	return &Verifier{jwks: jwks, logger: logger}, nil
}

// ParseToken validates a signed token and returns its claims.
func (v *Verifier) ParseToken(tokenString string) (*ClaimsWithGroups, error) {
	claims := &ClaimsWithGroups{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	return claims, nil
}

// Middleware rejects requests that do not carry a valid bearer token and
// attaches the token claims to the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(authorization, "Bearer ")
		if authorization == "" || tokenString == authorization {
			writeUnauthorized(w, "request is missing a bearer token")
			return
		}

		claims, err := v.ParseToken(tokenString)
		if err != nil {
			v.logger.Debug().Err(err).Msg("rejected bearer token")
			writeUnauthorized(w, "bearer token is not valid")
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
