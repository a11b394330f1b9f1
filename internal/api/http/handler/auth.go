package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/service"
	"github.com/zkvault/zkvault-server/internal/webauthn"
)

// AuthService defines the registration and login ceremonies.
type AuthService interface {
	StartRegistration(ctx context.Context, email string) (webauthn.CreationOptions, error)
	CompleteRegistration(ctx context.Context, email string, proof webauthn.RegistrationProof) (service.SessionResult, error)
	StartAuthentication(ctx context.Context, email string) (webauthn.RequestOptions, error)
	CompleteAuthentication(ctx context.Context, email string, proof webauthn.AssertionProof) (service.SessionResult, error)
}

// TokenService defines token refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	RevokeByToken(ctx context.Context, refreshToken string) error
}

// Auth handles HTTP endpoints for authentication ceremonies and tokens.
type Auth struct {
	authService  AuthService
	tokenService TokenService
	logger       *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, tokenService TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		authService:  authService,
		tokenService: tokenService,
		logger:       logger,
	}
}

type ceremonyStartRequest struct {
	Email string `json:"email"`
}

type registerCompleteRequest struct {
	Email string                     `json:"email"`
	Proof webauthn.RegistrationProof `json:"proof"`
}

type loginCompleteRequest struct {
	Email string                  `json:"email"`
	Proof webauthn.AssertionProof `json:"proof"`
}

type sessionResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ServerSalt   string `json:"serverSalt"`
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterStart begins a registration ceremony and returns creation options.
func (h *Auth) RegisterStart(w http.ResponseWriter, r *http.Request) {
	var req ceremonyStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	options, err := h.authService.StartRegistration(r.Context(), email)
	if err != nil {
		h.logger.Error("Auth handler: registration start failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, options)
}

// RegisterComplete verifies the possession proof and returns a session.
func (h *Auth) RegisterComplete(w http.ResponseWriter, r *http.Request) {
	var req registerCompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	result, err := h.authService.CompleteRegistration(r.Context(), req.Email, req.Proof)
	if err != nil {
		h.logger.Error("Auth handler: registration complete failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ServerSalt:   result.ServerSalt,
	})
}

// LoginStart begins a login ceremony and returns request options.
func (h *Auth) LoginStart(w http.ResponseWriter, r *http.Request) {
	var req ceremonyStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	options, err := h.authService.StartAuthentication(r.Context(), email)
	if err != nil {
		h.logger.Error("Auth handler: login start failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, options)
}

// LoginComplete verifies the assertion proof and returns a session with
// the identity's key derivation salt.
func (h *Auth) LoginComplete(w http.ResponseWriter, r *http.Request) {
	var req loginCompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	result, err := h.authService.CompleteAuthentication(r.Context(), req.Email, req.Proof)
	if err != nil {
		h.logger.Error("Auth handler: login complete failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ServerSalt:   result.ServerSalt,
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	access, refresh, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Error("Auth handler: token refresh failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Revoke revokes a refresh token.
func (h *Auth) Revoke(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := h.tokenService.RevokeByToken(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("Auth handler: token revoke failed", "error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeBody decodes a JSON request body into dst, writing a 400 response
// and returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
