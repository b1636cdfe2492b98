package imgrec

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/generichttp"
)

var fixedDay = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func newRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	root := t.TempDir()
	r := New(root, "sim", true)
	r.now = func() time.Time { return fixedDay }
	return r, filepath.Join(root, "2024-03-09")
}

func testFrame(t *testing.T, id int) *frame.Buffer {
	t.Helper()
	b, err := frame.NewBuffer([]int{4, 2}, frame.UInt16)
	if err != nil {
		t.Fatal(err)
	}
	b.UniqueID = id
	b.TimeStamp = fixedDay
	b.Attributes["RunID"] = "run-1"
	return b
}

func TestRecorderWritesNumberedFiles(t *testing.T) {
	r, dir := newRecorder(t)
	r.Publish(testFrame(t, 1))
	r.Publish(testFrame(t, 2))
	for _, fn := range []string{"sim000001.fits", "sim000002.fits"} {
		data, err := os.ReadFile(filepath.Join(dir, fn))
		if err != nil {
			t.Fatalf("expected %s to be written: %v", fn, err)
		}
		if !bytes.HasPrefix(data, []byte("SIMPLE")) || len(data)%2880 != 0 {
			t.Errorf("expected %s to be a FITS file", fn)
		}
		if !bytes.Contains(data, []byte("RUNID")) {
			t.Errorf("expected %s to carry the run ID card", fn)
		}
	}
	if r.Written() != 2 || r.Failures() != 0 {
		t.Errorf("expected 2 written and 0 failures, got %d and %d", r.Written(), r.Failures())
	}
}

func TestRecorderContinuesExistingSequence(t *testing.T) {
	r, dir := newRecorder(t)
	os.MkdirAll(dir, 0777)
	os.WriteFile(filepath.Join(dir, "sim000007.fits"), []byte("x"), 0666)
	os.WriteFile(filepath.Join(dir, "other000100.fits"), []byte("x"), 0666)
	r.Publish(testFrame(t, 1))
	if _, err := os.Stat(filepath.Join(dir, "sim000008.fits")); err != nil {
		t.Errorf("expected the next file to be number 8: %v", err)
	}
}

func TestRecorderDisabledWritesNothing(t *testing.T) {
	r, dir := newRecorder(t)
	r.SetEnabled(false)
	r.Publish(testFrame(t, 1))
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected a disabled recorder not to touch the disk")
	}
}

func TestPrefixChangeRestartsCount(t *testing.T) {
	r, dir := newRecorder(t)
	r.Publish(testFrame(t, 1))
	r.SetPrefix("dark")
	r.Publish(testFrame(t, 2))
	if _, err := os.Stat(filepath.Join(dir, "dark000001.fits")); err != nil {
		t.Errorf("expected the new prefix to start at 1: %v", err)
	}
}

type table struct {
	rt generichttp.RouteTable
}

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPWrapperRoutes(t *testing.T) {
	r, _ := newRecorder(t)
	h := table{rt: generichttp.RouteTable{}}
	NewHTTPWrapper(r).Inject(h)
	mux := chi.NewRouter()
	h.RT().Bind(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/autowrite/prefix", strings.NewReader(`{"str":"flat"}`)))
	if w.Code != http.StatusOK || r.Prefix() != "flat" {
		t.Errorf("expected prefix flat with 200, got %q and %d", r.Prefix(), w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/autowrite/enabled", strings.NewReader(`{"bool":false}`)))
	if r.Enabled() {
		t.Error("expected the recorder to be disabled")
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/autowrite/enabled", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"bool":false}` {
		t.Errorf("expected {\"bool\":false} got %s", got)
	}
}

func TestLastFileRoute(t *testing.T) {
	r, dir := newRecorder(t)
	h := table{rt: generichttp.RouteTable{}}
	NewHTTPWrapper(r).Inject(h)
	mux := chi.NewRouter()
	h.RT().Bind(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/autowrite/last", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before any file is written, got %d", w.Code)
	}

	r.Publish(testFrame(t, 1))
	if want := filepath.Join(dir, "sim000001.fits"); r.Last() != want {
		t.Errorf("expected last file %s got %s", want, r.Last())
	}
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/autowrite/last", nil))
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("SIMPLE")) {
		t.Errorf("expected the FITS file with 200, got %d", w.Code)
	}
}
