// Copyright 2026 Meshlayer

package server

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meshlayer/infernode/pkg/chain"
	"github.com/meshlayer/infernode/pkg/registrar"
	"github.com/meshlayer/infernode/pkg/registrar/mockclient"
)

func testRegistrar(t *testing.T) *registrar.Registrar {
	t.Helper()
	reg := chain.NewRegistry()
	reg.Add(chain.Config{ChainID: 8453, Name: "base"}, true)
	r := registrar.New(reg, registrar.NodeMetadata{Name: "node-1"}, "https://node.example", nil, 1000, 10*time.Millisecond, nil, nil)
	r.Attach(8453, mockclient.New("0xabc", big.NewInt(1_000_000)))
	return r
}

func TestNewDefaultsLogger(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	if h.logger == nil {
		t.Fatal("expected logger to be initialized")
	}
}

func TestHandleHealthOK(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	h.HandleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestHandleHealthMethodNotAllowed(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rr := httptest.NewRecorder()

	h.HandleHealth(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHandleHealthDetailedNotReadyWithoutCollaborators(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	rr := httptest.NewRecorder()

	h.HandleHealthDetailed(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandleRegistrationStatusNotReadyWithoutRegistrar(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registration/status", nil)
	rr := httptest.NewRecorder()

	h.HandleRegistrationStatus(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandleBatchStatsNotReadyWithoutProcessor(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch/stats", nil)
	rr := httptest.NewRecorder()

	h.HandleBatchStats(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandleNodesNotReadyWithoutBalancer(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil)
	rr := httptest.NewRecorder()

	h.HandleNodes(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHandleRegistrationStatusReportsAttachedChains(t *testing.T) {
	h := New(testRegistrar(t), nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registration/status", nil)
	rr := httptest.NewRecorder()

	h.HandleRegistrationStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["8453"] != "NotRegistered" {
		t.Fatalf("expected NotRegistered for chain 8453, got %v", body["8453"])
	}
}

func TestHandleRegistrationStatusForChainUnknownChain(t *testing.T) {
	h := New(testRegistrar(t), nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registration/status/999", nil)
	rr := httptest.NewRecorder()

	h.HandleRegistrationStatusForChain(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unattached chain, got %d", rr.Code)
	}
}

func TestHandleRegistrationStatusForChainInvalidID(t *testing.T) {
	h := New(testRegistrar(t), nil, nil, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registration/status/not-a-number", nil)
	rr := httptest.NewRecorder()

	h.HandleRegistrationStatusForChain(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric chain id, got %d", rr.Code)
	}
}

func TestNewMuxRegistersHealthRoute(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)
	mux := NewMux(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from mux-routed /health, got %d", rr.Code)
	}
}
