package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nikosoko-backend/internal/config"
	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"
)

// ScanRoute is the security map key of the gate scanner endpoint.
const ScanRoute = "POST /api/v1/gate/scan"

// GateHandler serves the gate scanner devices.
type GateHandler struct {
	gatePassSvc  service.GatePassService
	tokenManager security.TokenManager
}

func NewGateHandler(gatePassSvc service.GatePassService, tm security.TokenManager) *GateHandler {
	return &GateHandler{gatePassSvc: gatePassSvc, tokenManager: tm}
}

type scanRequest struct {
	AccessCode string `json:"access_code"`
}

type scanResponse struct {
	Result     string             `json:"result"`
	Invitation *domain.Invitation `json:"invitation,omitempty"`
}

// HandleScan redeems the scanned access code. Every rejected code gets the same
// "code_invalid" answer.
func (h *GateHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inv, err := h.gatePassSvc.Redeem(r.Context(), strings.TrimSpace(req.AccessCode))
	switch {
	case errors.Is(err, domain.ErrCodeInvalid):
		writeJSON(w, http.StatusUnprocessableEntity, scanResponse{Result: "code_invalid"})
	case err != nil:
		logger.Error("Gate scan failed", "device", claims.Subject, "error", err)
		http.Error(w, "Failed to redeem code", http.StatusInternalServerError)
	default:
		logger.Info("Visitor admitted", "device", claims.Subject, "invitationID", inv.ID)
		writeJSON(w, http.StatusOK, scanResponse{Result: "admitted", Invitation: inv})
	}
}

func (h *GateHandler) authorize(w http.ResponseWriter, r *http.Request) (*security.UserClaims, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		http.Error(w, "Missing bearer token", http.StatusUnauthorized)
		return nil, false
	}
	claims, err := h.tokenManager.ValidateToken(token)
	if err != nil || claims.Type != security.TokenTypeAccess {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return nil, false
	}
	if !claims.HasRole(config.RequiredRoles(ScanRoute)...) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return claims, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}
