// Copyright 2026 Meshlayer

package server

import (
	"net/http"
	"strconv"
	"strings"
)

// HandleRegistrationStatus handles GET /api/v1/registration/status,
// reporting every chain's current RegistrationStatus (spec section 6's
// `registration-status --all-chains`, surfaced as a read-only HTTP
// view of the same data the CLI prints).
func (h *Handlers) HandleRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	if h.reg == nil {
		h.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "registrar not wired yet")
		return
	}

	chains := h.reg.ChainIDs()
	out := make(map[string]interface{}, len(chains))
	for _, chainID := range chains {
		status, err := h.reg.GetRegistrationStatus(chainID)
		if err != nil {
			continue
		}
		out[strconv.FormatInt(chainID, 10)] = status.String()
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleRegistrationStatusForChain handles
// GET /api/v1/registration/status/{chain_id}.
func (h *Handlers) HandleRegistrationStatusForChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	if h.reg == nil {
		h.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "registrar not wired yet")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/registration/status/")
	chainIDStr := strings.TrimSuffix(path, "/")
	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_CHAIN_ID", "chain id must be an integer")
		return
	}

	status, err := h.reg.GetRegistrationStatus(chainID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "CHAIN_NOT_FOUND", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"chain_id": chainID,
		"status":   status.String(),
	})
}
