package fmc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"FirepowerKit/internal/config"

	"github.com/gorilla/mux"
)

const testDomain = "11111111-2222-3333-4444-555555555555"

// fakeFMC serves collections and single objects from memory.
type fakeFMC struct {
	mu          sync.Mutex
	collections map[string][]map[string]interface{}
	objects     map[string]map[string]interface{}
	puts        map[string]map[string]interface{}
	posts       map[string][]map[string]interface{}
	postStatus  func(path string, body map[string]interface{}) int
	gets        int
}

func newFakeFMC() *fakeFMC {
	return &fakeFMC{
		collections: map[string][]map[string]interface{}{},
		objects:     map[string]map[string]interface{}{},
		puts:        map[string]map[string]interface{}{},
		posts:       map[string][]map[string]interface{}{},
	}
}

func configPath(rest string) string {
	return "/api/fmc_config/v1/domain/" + testDomain + "/" + rest
}

func (f *fakeFMC) addCollection(rest string, items ...map[string]interface{}) {
	f.collections[configPath(rest)] = items
	for _, it := range items {
		if id, ok := it["id"].(string); ok {
			if _, exists := f.objects[configPath(rest+"/"+id)]; !exists {
				f.objects[configPath(rest+"/"+id)] = it
			}
		}
	}
}

func (f *fakeFMC) addObject(rest string, obj map[string]interface{}) {
	f.objects[configPath(rest)] = obj
}

func (f *fakeFMC) start(t *testing.T) *Client {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/api/fmc_platform/v1/auth/generatetoken", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set(headerAccessToken, "token-1")
		w.Header().Set(headerRefreshToken, "refresh-1")
		w.Header().Set(headerDomain, testDomain)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	api := r.PathPrefix("/api/fmc_config/v1/domain/" + testDomain).Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(headerAccessToken) != "token-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	api.PathPrefix("/").HandlerFunc(f.serve)

	srv := httptest.NewTLSServer(r)
	t.Cleanup(srv.Close)

	c := NewClient(config.FMCConfig{Server: srv.URL, Username: "api", Password: "secret", InsecureSkipVerify: true, PageLimit: 2})
	if err := c.Authenticate(t.Context()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return c
}

func (f *fakeFMC) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch r.Method {
	case http.MethodGet:
		f.gets++
		if items, ok := f.collections[path]; ok {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			end := min(offset+limit, len(items))
			page := []map[string]interface{}{}
			if offset < len(items) {
				page = items[offset:end]
			}
			writeTestJSON(w, http.StatusOK, map[string]interface{}{
				"items":  page,
				"paging": map[string]interface{}{"offset": offset, "limit": limit, "count": len(items)},
			})
			return
		}
		if obj, ok := f.objects[path]; ok {
			writeTestJSON(w, http.StatusOK, obj)
			return
		}
		writeTestJSON(w, http.StatusNotFound, map[string]interface{}{"error": map[string]interface{}{"messages": []map[string]string{{"description": "not found"}}}})
	case http.MethodPut:
		body := decodeTestBody(r.Body)
		f.puts[path] = body
		writeTestJSON(w, http.StatusOK, body)
	case http.MethodPost:
		body := decodeTestBody(r.Body)
		f.posts[path] = append(f.posts[path], body)
		code := http.StatusCreated
		if f.postStatus != nil {
			code = f.postStatus(path, body)
		}
		writeTestJSON(w, code, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeTestJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeTestBody(r io.Reader) map[string]interface{} {
	var body map[string]interface{}
	json.NewDecoder(r).Decode(&body)
	return body
}

func ref(id, name, typ string) map[string]interface{} {
	return map[string]interface{}{"id": id, "name": name, "type": typ}
}

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Errorf("Expected %q to contain %q", s, sub)
	}
}
