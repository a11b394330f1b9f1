package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/api/http/request"
	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/model"
)

// VaultService defines encrypted item storage operations.
type VaultService interface {
	GetManifest(ctx context.Context, identityID uuid.UUID) ([]model.ManifestEntry, error)
	GetItems(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) ([]model.VaultItem, error)
	SaveItems(ctx context.Context, identityID uuid.UUID, items []model.ItemWrite) ([]model.VaultItem, error)
	DeleteItems(ctx context.Context, identityID uuid.UUID, ids []uuid.UUID) error
}

// RotationService defines the master password rotation ceremony.
type RotationService interface {
	StartRotation(ctx context.Context, identityID uuid.UUID) (string, error)
	CompleteRotation(ctx context.Context, identityID uuid.UUID, items []model.ItemWrite) error
}

// Vault handles HTTP endpoints for vault item synchronization.
type Vault struct {
	vaultService    VaultService
	rotationService RotationService
	logger          *logger.Logger
}

// NewVault creates a new Vault handler.
func NewVault(vaultService VaultService, rotationService RotationService, logger *logger.Logger) *Vault {
	return &Vault{
		vaultService:    vaultService,
		rotationService: rotationService,
		logger:          logger,
	}
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type itemWriteRequest struct {
	ID       uuid.UUID      `json:"id"`
	Type     model.ItemType `json:"type"`
	Name     string         `json:"name"`
	Envelope string         `json:"envelope"`
}

type saveItemsRequest struct {
	Items []itemWriteRequest `json:"items"`
}

type itemResponse struct {
	ID        uuid.UUID      `json:"id"`
	Type      model.ItemType `json:"type"`
	Name      string         `json:"name"`
	Envelope  string         `json:"envelope"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type itemsResponse struct {
	Items []itemResponse `json:"items"`
}

type manifestResponse struct {
	Items []model.ManifestEntry `json:"items"`
}

type rotateStartResponse struct {
	ServerSalt string `json:"serverSalt"`
}

// Manifest returns the caller's vault manifest ordered by item id.
func (h *Vault) Manifest(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	entries, err := h.vaultService.GetManifest(r.Context(), identityID)
	if err != nil {
		h.logger.Error("Vault handler: manifest failed", "error", err.Error())
		handleError(w, err)
		return
	}
	if entries == nil {
		entries = []model.ManifestEntry{}
	}

	writeJSON(w, http.StatusOK, manifestResponse{Items: entries})
}

// FetchItems returns full envelopes for the requested ids. Ids the caller
// does not own are omitted from the response, never reported.
func (h *Vault) FetchItems(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	var req idsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items, err := h.vaultService.GetItems(r.Context(), identityID, req.IDs)
	if err != nil {
		h.logger.Error("Vault handler: fetch items failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemsResponse(items))
}

// SaveItems upserts a batch of envelopes and returns their stored state.
func (h *Vault) SaveItems(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	var req saveItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	saved, err := h.vaultService.SaveItems(r.Context(), identityID, toItemWrites(req.Items))
	if err != nil {
		h.logger.Error("Vault handler: save items failed",
			"saved", len(saved),
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemsResponse(saved))
}

// DeleteItems hard-deletes the caller's items by id. Foreign and unknown
// ids are ignored.
func (h *Vault) DeleteItems(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	var req idsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.vaultService.DeleteItems(r.Context(), identityID, req.IDs); err != nil {
		h.logger.Error("Vault handler: delete items failed", "error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RotateStart issues a candidate key derivation salt for password rotation.
func (h *Vault) RotateStart(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	salt, err := h.rotationService.StartRotation(r.Context(), identityID)
	if err != nil {
		h.logger.Error("Vault handler: rotation start failed", "error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rotateStartResponse{ServerSalt: salt})
}

// RotateComplete atomically swaps in the candidate salt and the full
// re-encrypted item set.
func (h *Vault) RotateComplete(w http.ResponseWriter, r *http.Request) {
	identityID, ok := request.IdentityID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, genericAuthFailure)
		return
	}

	var req saveItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.rotationService.CompleteRotation(r.Context(), identityID, toItemWrites(req.Items)); err != nil {
		h.logger.Error("Vault handler: rotation complete failed", "error", err.Error())
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toItemWrites(items []itemWriteRequest) []model.ItemWrite {
	writes := make([]model.ItemWrite, 0, len(items))
	for _, item := range items {
		writes = append(writes, model.ItemWrite{
			ID:       item.ID,
			Type:     item.Type,
			Name:     item.Name,
			Envelope: item.Envelope,
		})
	}
	return writes
}

func toItemsResponse(items []model.VaultItem) itemsResponse {
	resp := itemsResponse{Items: make([]itemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:        item.ID,
			Type:      item.Type,
			Name:      item.Name,
			Envelope:  item.Envelope,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return resp
}
