package web

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssets_IndexEmbedded(t *testing.T) {
	content, err := fs.ReadFile(Assets, "assets/index.html")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{"/api/ports", "/api/connect", "/api/disconnect", "/ws"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("index.html does not reference %s", want)
		}
	}
}

func TestHandler_ServesIndex(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "<html") {
		t.Error("body: missing <html")
	}
}

func TestHandler_UnknownPath(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}
