package handler

import (
	"errors"
	"net/http"

	"github.com/zkvault/zkvault-server/internal/model"
)

// genericAuthFailure is the single body returned for every verification
// failure. Unknown identity, bad proof and bad token are deliberately
// indistinguishable to the caller.
const genericAuthFailure = "could not verify"

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrIdentityNotFound),
		errors.Is(err, model.ErrProofInvalid),
		errors.Is(err, model.ErrAuthenticationFailed),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenMismatch):
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
	case errors.Is(err, model.ErrCloneDetected):
		writeError(w, http.StatusForbidden, "credential revoked, re-registration required")
	case errors.Is(err, model.ErrNoPendingChallenge),
		errors.Is(err, model.ErrChallengeExpired):
		writeError(w, http.StatusConflict, "no active ceremony, restart from the beginning")
	case errors.Is(err, model.ErrIdentityConflict):
		writeError(w, http.StatusConflict, "credential conflict")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrUpstreamUnavailable):
		writeError(w, http.StatusServiceUnavailable, "breach check unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
