// Copyright 2026 Meshlayer

package server

import "net/http"

// HandleBatchStats handles GET /api/v1/batch/stats, exposing the batch
// processor's running counters for operator dashboards.
func (h *Handlers) HandleBatchStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	if h.processor == nil {
		h.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "batch processor not wired yet")
		return
	}
	h.writeJSON(w, http.StatusOK, h.processor.Stats())
}

// HandleNodes handles GET /api/v1/nodes, exposing the load balancer's
// current node snapshot for operator dashboards.
func (h *Handlers) HandleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	if h.balancer == nil {
		h.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "load balancer not wired yet")
		return
	}
	h.writeJSON(w, http.StatusOK, h.balancer.Nodes())
}
