package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"FirepowerKit/internal/query"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultLimit = 25

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

// NewRouter wires the report routes.
func NewRouter(h *APIHandler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", h.runsHandler).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}/hosts", h.hostsHandler).Methods(http.MethodGet)
	api.HandleFunc("/runs/{run}/pairs", h.pairsHandler).Methods(http.MethodGet)
	api.HandleFunc("/rules/expensive", h.rulesHandler).Methods(http.MethodGet)
	return r
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to encode response: %v", err)
	}
}

func (h *APIHandler) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	runs, err := h.querier.Runs(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query runs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (h *APIHandler) hostsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hosts, err := h.querier.TopHosts(r.Context(), mux.Vars(r)["run"], limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query hosts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, hosts)
}

func (h *APIHandler) pairsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pairs, err := h.querier.Pairs(r.Context(), mux.Vars(r)["run"], r.URL.Query().Get("class"), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query pairs: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, pairs)
}

func (h *APIHandler) rulesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rules, err := h.querier.ExpensiveRules(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query rules: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rules)
}
