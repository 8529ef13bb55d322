package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"unifinance/api/auth"
	"unifinance/api/constants"
)

type contextKey string

const (
	OwnerIDKey   contextKey = "ownerID"
	OwnerNameKey contextKey = "ownerName"
)

func GetOwnerIDFromCtx(ctx context.Context) string {
	if id, ok := ctx.Value(OwnerIDKey).(string); ok {
		return id
	}
	return ""
}

func GetOwnerNameFromCtx(ctx context.Context) string {
	if name, ok := ctx.Value(OwnerNameKey).(string); ok {
		return name
	}
	return ""
}

// WriteJSON writes the standard envelope used by every handler.
func WriteJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]interface{}{
		constants.KeySuccess: false,
		constants.KeyError:   msg,
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OwnerMiddleware resolves the bearer token to an active session and injects
// the verified owner_id into the request context. Handlers behind it never
// see a request without a trusted owner.
func OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			log.Println("[ERROR] Missing bearer token on", r.URL.Path)
			WriteError(w, http.StatusUnauthorized, constants.ErrMissingToken)
			return
		}

		s, ok := auth.ResolveToken(token)
		if !ok {
			log.Println("[ERROR] Invalid session token on", r.URL.Path)
			WriteError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}

		ctx := context.WithValue(r.Context(), OwnerIDKey, s.OwnerID)
		ctx = context.WithValue(ctx, OwnerNameKey, s.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
