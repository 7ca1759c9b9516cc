package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/middleware"
	"github.com/JaimeStill/glimpse/pkg/module"
)

func write(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}
}

func mustNew(t *testing.T, prefix string, router http.Handler, chain middleware.Chain) *module.Module {
	t.Helper()
	m, err := module.New(prefix, router, chain)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", prefix, err)
	}
	return m
}

func TestNewRejectsInvalidPrefix(t *testing.T) {
	for _, prefix := range []string{"", "/", "api", "/api/v1"} {
		t.Run(prefix, func(t *testing.T) {
			if _, err := module.New(prefix, http.NewServeMux(), nil); err == nil {
				t.Errorf("New(%q) should fail", prefix)
			}
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	mux := http.NewServeMux()

	var path, key string
	mux.HandleFunc("GET /debug/{key...}", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.PathValue("key")
	})
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	})

	m := mustNew(t, "/api", mux, nil)

	tests := []struct {
		name     string
		target   string
		wantPath string
		wantKey  string
	}{
		{"nested key", "/api/debug/elements/b1/e1.png", "/debug/elements/b1/e1.png", "elements/b1/e1.png"},
		{"escaped key", "/api/debug/run%2Fone.png", "/debug/run/one.png", "run/one.png"},
		{"root", "/api", "/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, key = "", ""
			m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.target, nil))
			if path != tt.wantPath {
				t.Errorf("inner path: got %s, want %s", path, tt.wantPath)
			}
			if key != tt.wantKey {
				t.Errorf("key: got %s, want %s", key, tt.wantKey)
			}
		})
	}
}

func TestServeLeavesOriginalRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /labels", write("ok"))

	req := httptest.NewRequest(http.MethodGet, "/api/labels", nil)
	mustNew(t, "/api", mux, nil).Serve(httptest.NewRecorder(), req)

	if req.URL.Path != "/api/labels" {
		t.Errorf("original path mutated: %s", req.URL.Path)
	}
}

func TestModuleChain(t *testing.T) {
	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /labels", func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Glimpse-Stage")
	})

	stage := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Set("X-Glimpse-Stage", "chained")
			next.ServeHTTP(w, r)
		})
	}

	m := mustNew(t, "/api", mux, middleware.Chain{stage})
	m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/labels", nil))

	if seen != "chained" {
		t.Errorf("stage header: got %q, want chained", seen)
	}
}

func TestRouterDispatch(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /labels", write("api"))

	router := module.NewRouter()
	if err := router.Mount(mustNew(t, "/api", apiMux, nil)); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	router.HandleNative("GET /healthz", write("ok"))

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"module", "/api/labels", http.StatusOK, "api"},
		{"trailing slash", "/api/labels/", http.StatusOK, "api"},
		{"native", "/healthz", http.StatusOK, "ok"},
		{"prefix lookalike", "/apix/labels", http.StatusNotFound, ""},
		{"unknown", "/readyz", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouterDuplicateMount(t *testing.T) {
	router := module.NewRouter()
	if err := router.Mount(mustNew(t, "/api", http.NewServeMux(), nil)); err != nil {
		t.Fatalf("first Mount failed: %v", err)
	}
	if err := router.Mount(mustNew(t, "/api", http.NewServeMux(), nil)); err == nil {
		t.Error("second Mount of /api should fail")
	}
}
