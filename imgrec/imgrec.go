// Package imgrec contains an image recorder used to automatically save frames to disk.
package imgrec

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/generichttp"
	"github.com/nasa-jpl/simpeaks/server"
)

// Recorder records frames as FITS files with incrementing filenames in
// yyyy-mm-dd subfolders of Root.  It is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	root    string
	prefix  string
	enabled bool

	// counter is the number of the next file; 0 means scan the folder
	counter int

	// timeFldr is the subfolder with yyyy-mm-dd format
	timeFldr string

	written  uint64
	failures uint64

	// last is the path of the newest file
	last string

	// Metadata, if not nil, adds header cards to each file
	Metadata func(*frame.Buffer) []fitsio.Card

	// Log receives write failures
	Log *zap.Logger

	now func() time.Time
}

// New returns a recorder writing under root with the given filename prefix
func New(root, prefix string, enabled bool) *Recorder {
	return &Recorder{root: root, prefix: prefix, enabled: enabled, now: time.Now}
}

// Root is the folder the date subfolders are made in
func (r *Recorder) Root() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// SetRoot changes the root folder, creating it if needed
func (r *Recorder) SetRoot(root string) error {
	if err := os.MkdirAll(root, 0777); err != nil {
		return err
	}
	r.mu.Lock()
	r.root = root
	r.counter = 0
	r.mu.Unlock()
	return nil
}

// Prefix is the start of every filename
func (r *Recorder) Prefix() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefix
}

// SetPrefix changes the filename prefix
func (r *Recorder) SetPrefix(prefix string) error {
	r.mu.Lock()
	r.prefix = prefix
	r.counter = 0
	r.mu.Unlock()
	return nil
}

// Enabled is true if published frames are written
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SetEnabled turns recording on or off
func (r *Recorder) SetEnabled(b bool) error {
	r.mu.Lock()
	r.enabled = b
	r.mu.Unlock()
	return nil
}

// Written is the number of files written
func (r *Recorder) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Failures is the number of frames that could not be written
func (r *Recorder) Failures() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Last is the path of the most recently written file, "" if none
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Publish writes b to the next file if the recorder is enabled and has a
// root.  Failures are logged and counted, never returned.
func (r *Recorder) Publish(b *frame.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || r.root == "" {
		return
	}
	fn, err := r.write(b)
	if err != nil {
		r.failures++
		if r.Log != nil {
			r.Log.Error("frame not recorded", zap.Int("uniqueID", b.UniqueID), zap.Error(err))
		}
		return
	}
	r.written++
	r.last = fn
	if r.Log != nil {
		r.Log.Debug("frame recorded", zap.Int("uniqueID", b.UniqueID), zap.String("file", fn))
	}
}

// write encodes b and writes it to disk.  Caller holds the lock.
func (r *Recorder) write(b *frame.Buffer) (string, error) {
	cards := Cards(b)
	if r.Metadata != nil {
		cards = append(cards, r.Metadata(b)...)
	}
	var buf bytes.Buffer
	if err := frame.WriteFits(&buf, cards, b); err != nil {
		return "", err
	}

	var fn string
	op := func() error {
		fldr, err := r.mkDir()
		if err != nil {
			return err
		}
		if r.counter == 0 {
			r.counter = r.scan(fldr) + 1
		}
		fn = filepath.Join(fldr, fmt.Sprintf("%s%06d.fits", r.prefix, r.counter))
		err = writeNew(fn, buf.Bytes())
		if os.IsExist(err) {
			// someone else took the name; rescan on the retry
			r.counter = 0
		}
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         200 * time.Millisecond,
		MaxElapsedTime:      time.Second,
		Clock:               backoff.SystemClock,
	})
	if err != nil {
		return "", err
	}
	r.counter++
	return fn, nil
}

// writeNew writes p to a file which must not already exist
func writeNew(fn string, p []byte) error {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return err
	}
	if _, err = f.Write(p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// mkDir updates the date folder, makes it, and returns it.  A new day
// restarts the counter.
func (r *Recorder) mkDir() (string, error) {
	now := time.Now()
	if r.now != nil {
		now = r.now()
	}
	fldr := fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day())
	if fldr != r.timeFldr {
		r.timeFldr = fldr
		r.counter = 0
	}
	dn := filepath.Join(r.root, r.timeFldr)
	return dn, os.MkdirAll(dn, 0777)
}

// scan returns the largest file number in dn with the current prefix
func (r *Recorder) scan(dn string) int {
	entries, err := os.ReadDir(dn)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		// skip directories, non-fits, and wrong prefix
		if e.IsDir() {
			continue
		}
		fn := e.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fn, r.prefix), ".fits"))
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	return count
}

// Cards returns the header cards describing a frame
func Cards(b *frame.Buffer) []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "UNIQUEID", Value: b.UniqueID, Comment: "frame sequence number"},
		{Name: "DATATYPE", Value: b.Type.String(), Comment: "element type"},
	}
	if !b.TimeStamp.IsZero() {
		cards = append(cards, fitsio.Card{Name: "DATE-OBS", Value: b.TimeStamp.UTC().Format("2006-01-02T15:04:05.000"), Comment: "frame completion time, UTC"})
	}
	if id := b.Attributes["RunID"]; id != "" {
		cards = append(cards, fitsio.Card{Name: "RUNID", Value: id, Comment: "acquisition run"})
	}
	if port := b.Attributes["Port"]; port != "" {
		cards = append(cards, fitsio.Card{Name: "PORT", Value: port, Comment: "detector port"})
	}
	return cards
}

// HTTPWrapper is an HTTP wrapper around an image recorder that allows the folder and prefix to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// Inject adds GET and POST routes for /autowrite/root, /autowrite/prefix and /autowrite/enabled to the HTTPer which manipulate this wrapper's recorder,
// and GET /autowrite/last which downloads the newest file
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rec := h.Recorder
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(rec.SetRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(func() (string, error) { return rec.Root(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(rec.SetPrefix)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(func() (string, error) { return rec.Prefix(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(rec.SetEnabled)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(func() (bool, error) { return rec.Enabled(), nil })
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/last"}] = func(w http.ResponseWriter, r *http.Request) {
		fn := rec.Last()
		if fn == "" {
			http.Error(w, "no file has been recorded", http.StatusNotFound)
			return
		}
		server.ReplyWithFile(w, r, filepath.Base(fn), filepath.Dir(fn))
	}
}
