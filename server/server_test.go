package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestReplyWithFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.fits"), []byte("SIMPLE"), 0666); err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	ReplyWithFile(w, httptest.NewRequest(http.MethodGet, "/", nil), "a.fits", dir)
	if w.Code != http.StatusOK || w.Body.String() != "SIMPLE" {
		t.Errorf("expected the file contents with 200, got %d %q", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=a.fits" {
		t.Errorf("expected an attachment header got %q", cd)
	}

	w = httptest.NewRecorder()
	ReplyWithFile(w, httptest.NewRequest(http.MethodGet, "/", nil), "b.fits", dir)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing file got %d", w.Code)
	}
}
