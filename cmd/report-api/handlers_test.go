package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"FirepowerKit/internal/query"
)

type fakeQuerier struct {
	runID string
	class string
	limit int
	err   error
}

func (f *fakeQuerier) Runs(_ context.Context, limit int) ([]query.Run, error) {
	f.limit = limit
	return []query.Run{{RunID: "r1", Hosts: 3}}, f.err
}

func (f *fakeQuerier) TopHosts(_ context.Context, runID string, limit int) ([]query.HostRow, error) {
	f.runID, f.limit = runID, limit
	return []query.HostRow{{Rank: 1, Host: "10.0.0.1", TotalBytes: 10}}, f.err
}

func (f *fakeQuerier) Pairs(_ context.Context, runID, class string, limit int) ([]query.PairRow, error) {
	f.runID, f.class, f.limit = runID, class, limit
	return []query.PairRow{{Class: "tcp", Source: "10.0.0.1"}}, f.err
}

func (f *fakeQuerier) ExpensiveRules(_ context.Context, limit int) ([]query.RuleRow, error) {
	f.limit = limit
	return []query.RuleRow{{GID: 1, SID: 2001}}, f.err
}

func TestRoutes(t *testing.T) {
	fq := &fakeQuerier{}
	srv := httptest.NewServer(NewRouter(&APIHandler{querier: fq}))
	defer srv.Close()

	tests := []struct {
		path      string
		wantRun   string
		wantClass string
		wantLimit int
	}{
		{"/api/v1/runs", "", "", defaultLimit},
		{"/api/v1/runs/r1/hosts?limit=5", "r1", "", 5},
		{"/api/v1/runs/r2/pairs?class=udp&limit=0", "r2", "udp", 0},
		{"/api/v1/rules/expensive?limit=3", "", "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			*fq = fakeQuerier{}
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("Expected 200, got %d", resp.StatusCode)
			}
			var body []map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body) != 1 {
				t.Fatalf("Unexpected body %v (%v)", body, err)
			}
			if fq.runID != tt.wantRun || fq.class != tt.wantClass || fq.limit != tt.wantLimit {
				t.Errorf("Unexpected query args: %+v", fq)
			}
		})
	}
}

func TestRoutes_Errors(t *testing.T) {
	fq := &fakeQuerier{}
	srv := httptest.NewServer(NewRouter(&APIHandler{querier: fq}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/runs?limit=-1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a negative limit, got %d", resp.StatusCode)
	}

	fq.err = errors.New("clickhouse down")
	resp, err = http.Get(srv.URL + "/api/v1/rules/expensive")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500 when the querier fails, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST, got %d", resp.StatusCode)
	}
}
