package routes_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	patterns := routes.Register(mux, routes.Group{
		Prefix: "/classifications",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: status(http.StatusOK)},
			{Method: "GET", Pattern: "/{id}", Handler: status(http.StatusOK)},
			{Method: "POST", Pattern: "/search", Handler: status(http.StatusCreated)},
		},
	})

	want := []string{
		"GET /classifications",
		"GET /classifications/{id}",
		"POST /classifications/search",
	}
	if !slices.Equal(patterns, want) {
		t.Errorf("patterns: got %v, want %v", patterns, want)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", "GET", "/classifications", http.StatusOK},
		{"find", "GET", "/classifications/123", http.StatusOK},
		{"search", "POST", "/classifications/search", http.StatusCreated},
		{"wrong method", "DELETE", "/classifications/123", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRegisterNestedGroups(t *testing.T) {
	mux := http.NewServeMux()

	patterns := routes.Register(mux, routes.Group{
		Prefix: "/api",
		Children: []routes.Group{
			{
				Prefix: "/debug",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{key...}", Handler: status(http.StatusOK)},
				},
			},
		},
	})

	if len(patterns) != 1 || patterns[0] != "GET /api/debug/{key...}" {
		t.Errorf("patterns: got %v", patterns)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/debug/elements/a/b.png", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("nested route: got %d, want 200", rec.Code)
	}
}

func TestRegisterAnyMethod(t *testing.T) {
	mux := http.NewServeMux()

	patterns := routes.Register(mux, routes.Group{
		Routes: []routes.Route{{Handler: status(http.StatusTeapot)}},
	})

	if len(patterns) != 1 || patterns[0] != "/" {
		t.Errorf("patterns: got %v, want [/]", patterns)
	}

	for _, method := range []string{"GET", "PUT"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, "/anything", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("%s: got %d, want 418", method, rec.Code)
		}
	}
}
