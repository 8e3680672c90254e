// Copyright 2026 Meshlayer

package server

import "net/http"

// HandleHealth is a liveness probe: it never consults collaborators, so
// it answers even if chain RPCs are down.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleHealthDetailed is a readiness probe: per-chain registration
// health from the monitor, degraded (but still 200) when a chain is
// unhealthy so a load balancer can make its own draining decision.
func (h *Handlers) HandleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	if h.reg == nil || h.mon == nil {
		h.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "registrar/monitor not wired yet")
		return
	}

	chains := h.reg.ChainIDs()
	report := make([]map[string]interface{}, 0, len(chains))
	allHealthy := true
	for _, chainID := range chains {
		health, ok := h.mon.GetHealth(chainID)
		if !ok {
			continue
		}
		if !health.IsHealthy {
			allHealthy = false
		}
		report = append(report, map[string]interface{}{
			"chain_id":   chainID,
			"status":     health.Status.String(),
			"is_healthy": health.IsHealthy,
			"issues":     health.Issues,
		})
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"chains": report,
	})
}
