package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/api/http/request"
	"github.com/zkvault/zkvault-server/internal/logger"
)

// TokenService resolves identity ID from bearer tokens.
type TokenService interface {
	GetIdentityID(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects identity ID into the
// request context.
type Authenticate struct {
	tokenService TokenService
	logger       *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, logger: logger}
}

// Wrap returns a handler that rejects requests without a valid bearer
// token. All failures produce the same generic 401 body.
func (m *Authenticate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identityID, err := m.authenticate(r)
		if err != nil {
			m.logger.Debug("Authenticate middleware: rejected request",
				"path", r.URL.Path,
				"error", err.Error())
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not verify"})
			return
		}

		next.ServeHTTP(w, r.WithContext(request.WithIdentityID(r.Context(), identityID)))
	})
}

func (m *Authenticate) authenticate(r *http.Request) (uuid.UUID, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return uuid.Nil, errMissingToken
	}

	identityID, err := m.tokenService.GetIdentityID(r.Context(), tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if identityID == uuid.Nil {
		return uuid.Nil, errInvalidToken
	}

	return identityID, nil
}
