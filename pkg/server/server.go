// Copyright 2026 Meshlayer
//
// Dispatch-plane HTTP surface: health/readiness, Prometheus metrics and
// read-only registration status, for operators and load balancers in
// front of the worker process. Grounded on the teacher's
// pkg/server/proof_handlers.go constructor/helper shape (NewXHandlers
// with nil-logger defaulting, writeJSON/writeError/parseIntParam) and
// main.go's mux.HandleFunc wiring.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshlayer/infernode/pkg/batch"
	"github.com/meshlayer/infernode/pkg/loadbalancer"
	"github.com/meshlayer/infernode/pkg/metrics"
	"github.com/meshlayer/infernode/pkg/monitor"
	"github.com/meshlayer/infernode/pkg/registrar"
)

// Handlers bundles the worker's read-only HTTP surface. Every field is
// optional: New replaces a nil logger with a default, a nil metrics
// registry leaves /metrics unregistered, and a nil collaborator causes
// its handlers to report 503 rather than panicking, so the server can
// come up before every subsystem has finished wiring.
type Handlers struct {
	reg       *registrar.Registrar
	mon       *monitor.Monitor
	processor *batch.Processor
	balancer  *loadbalancer.Balancer
	metrics   *metrics.Registry
	logger    *log.Logger
}

// New builds Handlers. Collaborators left nil degrade gracefully.
func New(reg *registrar.Registrar, mon *monitor.Monitor, processor *batch.Processor, balancer *loadbalancer.Balancer, m *metrics.Registry, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}
	return &Handlers{reg: reg, mon: mon, processor: processor, balancer: balancer, metrics: m, logger: logger}
}

// NewMux builds the full dispatch-plane route table.
func NewMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/health/detailed", h.HandleHealthDetailed)
	mux.HandleFunc("/api/v1/registration/status", h.HandleRegistrationStatus)
	mux.HandleFunc("/api/v1/registration/status/", h.HandleRegistrationStatusForChain)
	mux.HandleFunc("/api/v1/batch/stats", h.HandleBatchStats)
	mux.HandleFunc("/api/v1/nodes", h.HandleNodes)
	if h.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.metrics.Gatherer(), promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *Handlers) parseIntParam(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("error encoding response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
