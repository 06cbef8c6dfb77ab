package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "auth.identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	TokenID string
	Name    string
}

// FromContext returns the authenticated identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Middleware returns a chi middleware that requires a valid bearer token.
// A missing Authorization header yields UNAUTHORIZED; an unknown, revoked,
// or expired token yields INVALID_TOKEN.
func Middleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, "UNAUTHORIZED", "missing Authorization header")
				return
			}

			plaintext := strings.TrimPrefix(header, "Bearer ")
			if plaintext == header || plaintext == "" {
				writeAuthError(w, "UNAUTHORIZED", "expected Bearer token")
				return
			}

			token, err := store.Verify(r.Context(), plaintext)
			if err != nil {
				if !errors.Is(err, ErrTokenNotFound) {
					log.Printf("auth: verifying token: %v", err)
				}
				writeAuthError(w, "INVALID_TOKEN", "token is invalid or expired")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				TokenID: token.ID,
				Name:    token.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"errors": []map[string]string{
			{"field": "authorization", "code": code, "message": message},
		},
	})
}
