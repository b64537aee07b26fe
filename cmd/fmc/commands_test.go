package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"FirepowerKit/internal/cli"

	"github.com/gorilla/mux"
)

const testDomain = "11111111-2222-3333-4444-555555555555"

// fmcServer is an in-memory FMC answering the calls the subcommands make.
type fmcServer struct {
	mu          sync.Mutex
	url         string
	collections map[string][]map[string]interface{}
	objects     map[string]map[string]interface{}
	puts        map[string]map[string]interface{}
	posts       map[string]map[string]interface{}
}

func newFMCServer(t *testing.T) *fmcServer {
	t.Helper()
	s := &fmcServer{
		collections: map[string][]map[string]interface{}{},
		objects:     map[string]map[string]interface{}{},
		puts:        map[string]map[string]interface{}{},
		posts:       map[string]map[string]interface{}{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/fmc_platform/v1/auth/generatetoken", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "api" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-auth-access-token", "token-1")
		w.Header().Set("X-auth-refresh-token", "refresh-1")
		w.Header().Set("DOMAIN_UUID", testDomain)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	r.PathPrefix("/api/fmc_config/v1/domain/{domain}/").HandlerFunc(s.serve)

	srv := httptest.NewTLSServer(r)
	t.Cleanup(srv.Close)
	s.url = srv.URL
	return s
}

func (s *fmcServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("X-auth-access-token") != "token-1" || mux.Vars(r)["domain"] != testDomain {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/fmc_config/v1/domain/"+testDomain+"/")
	switch r.Method {
	case http.MethodGet:
		if items, ok := s.collections[rest]; ok {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			page := []map[string]interface{}{}
			if offset < len(items) {
				page = items[offset:min(offset+limit, len(items))]
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"items":  page,
				"paging": map[string]interface{}{"offset": offset, "limit": limit, "count": len(items)},
			})
			return
		}
		if obj, ok := s.objects[rest]; ok {
			writeJSON(w, http.StatusOK, obj)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "not found"})
	case http.MethodPut:
		body := map[string]interface{}{}
		json.NewDecoder(r.Body).Decode(&body)
		s.puts[rest] = body
		writeJSON(w, http.StatusOK, body)
	case http.MethodPost:
		body := map[string]interface{}{}
		json.NewDecoder(r.Body).Decode(&body)
		s.posts[rest] = body
		body["id"] = "route-1"
		writeJSON(w, http.StatusCreated, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func item(id, name, typ string) map[string]interface{} {
	return map[string]interface{}{"id": id, "name": name, "type": typ}
}

// execute runs the root command against s with the connection flags set
// and a config file that keeps the crawl delay short.
func execute(t *testing.T, s *fmcServer, password string, args ...string) (string, error) {
	t.Helper()
	for _, env := range []string{"FMC_SERVER", "FMC_USERNAME", "FMC_PASSWORD", "FMC_DOMAIN", "FMC_INSECURE"} {
		t.Setenv(env, "")
	}
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("fmc:\n  request_delay: 1ms\n  page_limit: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	base := []string{"--config", cfgPath, "--server", s.url, "-u", "api", "-p", password, "--domain", testDomain, "--insecure"}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func ruleVarsFixture(s *fmcServer) {
	s.collections["policy/accesspolicies"] = []map[string]interface{}{item("ap1", "Corp", "AccessPolicy")}
	s.collections["policy/accesspolicies/ap1/accessrules"] = []map[string]interface{}{item("r1", "allow-web", "AccessRule")}
	s.objects["policy/accesspolicies/ap1/accessrules/r1"] = map[string]interface{}{
		"id": "r1", "name": "allow-web", "action": "ALLOW",
		"metadata": map[string]interface{}{"accessPolicy": map[string]interface{}{"name": "Corp"}},
	}
	s.collections["object/securityzones"] = []map[string]interface{}{
		item("z1", "inside", "SecurityZone"), item("z2", "outside", "SecurityZone"), item("z3", "dmz", "SecurityZone"),
	}
	s.collections["policy/intrusionpolicies"] = []map[string]interface{}{item("ips1", "Balanced", "IntrusionPolicy")}
	s.collections["object/variablesets"] = []map[string]interface{}{item("vs1", "Default-Set", "VariableSet")}
}

func writeRuleMap(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.map")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRuleVarsCmd(t *testing.T) {
	s := newFMCServer(t)
	ruleVarsFixture(s)
	mapFile := writeRuleMap(t, "# index;src;dst;ips,vars\n1;inside,dmz;outside;Balanced,Default-Set\n")

	out, err := execute(t, s, "secret", "rulevars", "-n", "Corp", "-f", mapFile)
	if err != nil {
		t.Fatalf("rulevars failed: %v", err)
	}
	if !strings.Contains(out, "Done! 1 rules updated.") {
		t.Errorf("Unexpected output %q", out)
	}

	put, ok := s.puts["policy/accesspolicies/ap1/accessrules/r1"]
	if !ok {
		t.Fatalf("Expected a PUT for rule r1, got %v", s.puts)
	}
	src, _ := put["sourceZones"].(map[string]interface{})
	if objs, _ := src["objects"].([]interface{}); len(objs) != 2 {
		t.Errorf("Expected 2 source zones, got %v", put["sourceZones"])
	}
	if ips, _ := put["ipsPolicy"].(map[string]interface{}); ips["id"] != "ips1" {
		t.Errorf("Expected ips policy ips1, got %v", put["ipsPolicy"])
	}
	if _, ok := put["metadata"]; ok {
		t.Error("Read-only metadata should not be sent back")
	}
}

func TestRuleVarsCmd_Errors(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ruleMap  string
		code     int
	}{
		{"unknown zone", "secret", "1;inside;guest\n", 4},
		{"rule count mismatch", "secret", "1;any;any\n2;any;any\n", 4},
		{"bad credentials", "wrong", "1;any;any\n", 4},
		{"unsorted map", "secret", "2;any;any\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFMCServer(t)
			ruleVarsFixture(s)
			_, err := execute(t, s, tt.password, "rulevars", "--policy", "Corp", "--file", writeRuleMap(t, tt.ruleMap))
			if got := cli.ExitCodeFor(err); got != tt.code {
				t.Errorf("Expected exit code %d, got %d (%v)", tt.code, got, err)
			}
			if len(s.puts) != 0 {
				t.Errorf("Expected no rule updates, got %v", s.puts)
			}
		})
	}
}

func complexityFixture(s *fmcServer) {
	s.collections["policy/accesspolicies"] = []map[string]interface{}{item("ap1", "Corp", "AccessPolicy")}
	s.collections["policy/accesspolicies/ap1/accessrules"] = []map[string]interface{}{
		item("005056A0-BF7B-0ed3-0000-000268437834", "r1", "AccessRule"),
		item("005056A0-BF7B-0ed3-0000-000268437835", "r2", "AccessRule"),
	}
	meta := map[string]interface{}{"accessPolicy": map[string]interface{}{"name": "Corp"}}
	s.objects["policy/accesspolicies/ap1/accessrules/005056A0-BF7B-0ed3-0000-000268437834"] = map[string]interface{}{
		"id": "005056A0-BF7B-0ed3-0000-000268437834", "name": "r1", "metadata": meta,
		"sourceZones": map[string]interface{}{"objects": []interface{}{item("z1", "inside", "SecurityZone"), item("z2", "dmz", "SecurityZone")}},
		"sourceNetworks": map[string]interface{}{
			"objects": []interface{}{item("g1", "clients", "NetworkGroup")},
		},
	}
	s.objects["policy/accesspolicies/ap1/accessrules/005056A0-BF7B-0ed3-0000-000268437835"] = map[string]interface{}{
		"id": "005056A0-BF7B-0ed3-0000-000268437835", "name": "r2", "metadata": meta,
	}
	s.objects["object/networkgroups/g1"] = map[string]interface{}{
		"objects":  []interface{}{item("n1", "a", "Network"), item("n2", "b", "Host")},
		"literals": []interface{}{map[string]interface{}{"type": "Host", "value": "10.0.0.9"}},
	}
}

func TestComplexityCmd(t *testing.T) {
	s := newFMCServer(t)
	complexityFixture(s)

	tests := []struct {
		name string
		args []string
		rows []string
	}{
		{
			name: "single rule by policy name",
			args: []string{"complexity", "--policy", "Corp", "-r", "005056A0-BF7B-0ed3-0000-000268437834"},
			rows: []string{"Corp\tr1\t005056A0-BF7B-0ed3-0000-000268437834\t2\t1\t3\t1\t1\t6"},
		},
		{
			name: "whole policy by id",
			args: []string{"complexity", "--policy-id", "ap1"},
			rows: []string{
				"Corp\tr1\t005056A0-BF7B-0ed3-0000-000268437834\t2\t1\t3\t1\t1\t6",
				"Corp\tr2\t005056A0-BF7B-0ed3-0000-000268437835\t1\t1\t1\t1\t1\t1",
			},
		},
		{
			name: "incremental",
			args: []string{"complexity", "--policy-id", "ap1", "--rule", "005056A0-BF7B-0ed3-0000-000268437834", "--incremental", "2"},
			rows: []string{
				"Corp\tr1\t005056A0-BF7B-0ed3-0000-000268437834\t2\t1\t3\t1\t1\t6",
				"Corp\tr2\t005056A0-BF7B-0ed3-0000-000268437835\t1\t1\t1\t1\t1\t1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, s, "secret", tt.args...)
			if err != nil {
				t.Fatalf("complexity failed: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != 2+len(tt.rows) || lines[0] != "==== Policy Complexity Summary ====" {
				t.Fatalf("Unexpected output:\n%s", out)
			}
			for i, want := range tt.rows {
				if lines[2+i] != want {
					t.Errorf("Row %d: expected %q, got %q", i, want, lines[2+i])
				}
			}
		})
	}
}

func TestComplexityCmd_Errors(t *testing.T) {
	s := newFMCServer(t)
	complexityFixture(s)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no policy", []string{"complexity"}, 2},
		{"incremental without rule", []string{"complexity", "--policy-id", "ap1", "--incremental", "3"}, 2},
		{"unknown policy", []string{"complexity", "--policy", "Branch"}, 4},
		{"unknown rule", []string{"complexity", "--policy-id", "ap1", "-r", "005056A0-BF7B-0ed3-0000-000268437899"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, s, "secret", tt.args...)
			if got := cli.ExitCodeFor(err); got != tt.code {
				t.Errorf("Expected exit code %d, got %d (%v)", tt.code, got, err)
			}
		})
	}
}

func staticRouteFixture(s *fmcServer) {
	s.collections["devices/devicerecords"] = []map[string]interface{}{item("dev1", "ftd-01", "Device")}
	s.collections["object/networks"] = []map[string]interface{}{item("net1", "lan", "Network"), item("net2", "dmz-net", "Network")}
	s.collections["object/hosts"] = []map[string]interface{}{item("h1", "core-gw", "Host")}
}

func TestStaticRouteCmd(t *testing.T) {
	s := newFMCServer(t)
	staticRouteFixture(s)

	out, err := execute(t, s, "secret", "static-route",
		"-d", "ftd-01", "-i", "inside", "-n", "lan", "--network", "dmz-net", "-g", "core-gw", "-m", "5", "--tunneled")
	if err != nil {
		t.Fatalf("static-route failed: %v", err)
	}
	if !strings.Contains(out, "Post was successful...") || !strings.Contains(out, "Route id: route-1") {
		t.Errorf("Unexpected output %q", out)
	}

	body, ok := s.posts["devices/devicerecords/dev1/routing/ipv4staticroutes"]
	if !ok {
		t.Fatalf("Expected a route POST, got %v", s.posts)
	}
	if body["interfaceName"] != "inside" || body["metricValue"] != float64(5) || body["isTunneled"] != true {
		t.Errorf("Unexpected route body %v", body)
	}
	if nets, _ := body["selectedNetworks"].([]interface{}); len(nets) != 2 {
		t.Errorf("Expected 2 selected networks, got %v", body["selectedNetworks"])
	}
	gw, _ := body["gateway"].(map[string]interface{})
	if obj, _ := gw["object"].(map[string]interface{}); obj["id"] != "h1" {
		t.Errorf("Expected gateway h1, got %v", body["gateway"])
	}
}

func TestStaticRouteCmd_Errors(t *testing.T) {
	s := newFMCServer(t)
	staticRouteFixture(s)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown device", []string{"-d", "ftd-09", "-i", "inside", "-n", "lan", "-g", "core-gw"}, 4},
		{"unknown network", []string{"-d", "ftd-01", "-i", "inside", "-n", "wan", "-g", "core-gw"}, 4},
		{"unknown gateway", []string{"-d", "ftd-01", "-i", "inside", "-n", "lan", "-g", "edge-gw"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, s, "secret", append([]string{"static-route"}, tt.args...)...)
			if got := cli.ExitCodeFor(err); got != tt.code {
				t.Errorf("Expected exit code %d, got %d (%v)", tt.code, got, err)
			}
			if len(s.posts) != 0 {
				t.Errorf("Expected no route to be posted, got %v", s.posts)
			}
		})
	}
}
