package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFrontend(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":    "<html>shell</html>",
		"assets/app.js": "console.log('app')",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func get(t *testing.T, h http.Handler, target string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	body, _ := io.ReadAll(w.Result().Body)
	return w.Code, string(body)
}

func TestSPAHandler(t *testing.T) {
	t.Parallel()

	h, err := SPAHandler(writeFrontend(t))
	if err != nil {
		t.Fatalf("SPAHandler: %v", err)
	}

	if code, body := get(t, h, "/assets/app.js"); code != http.StatusOK || !strings.Contains(body, "console.log") {
		t.Fatalf("static file: %d %q", code, body)
	}
	if code, body := get(t, h, "/lessons/3"); code != http.StatusOK || !strings.Contains(body, "shell") {
		t.Fatalf("SPA fallback: %d %q", code, body)
	}
	if code, _ := get(t, h, "/api/unknown"); code != http.StatusNotFound {
		t.Fatalf("API paths must not fall back, got %d", code)
	}
}

func TestSPAHandlerRequiresIndex(t *testing.T) {
	t.Parallel()

	if _, err := SPAHandler(t.TempDir()); !errors.Is(err, ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
}
