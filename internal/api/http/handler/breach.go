package handler

import (
	"context"
	"net/http"

	"github.com/zkvault/zkvault-server/internal/api/http/request"
	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/service"
)

// BreachService checks password hashes against the external breach corpus.
type BreachService interface {
	CheckPassword(ctx context.Context, hashHex string) (service.BreachResult, error)
}

// Breach handles the breach check relay endpoint.
type Breach struct {
	breachService BreachService
	logger        *logger.Logger
}

// NewBreach creates a new Breach handler.
func NewBreach(breachService BreachService, logger *logger.Logger) *Breach {
	return &Breach{breachService: breachService, logger: logger}
}

type breachResponse struct {
	Breached bool `json:"breached"`
	Count    int  `json:"count"`
}

// Check relays a password hash prefix to the breach corpus and reports
// whether the full hash appears in it.
func (h *Breach) Check(w http.ResponseWriter, r *http.Request) {
	if _, ok := request.IdentityID(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "hash query parameter is required")
		return
	}

	result, err := h.breachService.CheckPassword(r.Context(), hash)
	if err != nil {
		h.logger.Error("Breach handler: check failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, breachResponse{
		Breached: result.Breached,
		Count:    result.Count,
	})
}
