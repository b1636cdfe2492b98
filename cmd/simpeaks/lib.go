package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"github.com/nasa-jpl/simpeaks/acquire"
	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/generichttp"
	"github.com/nasa-jpl/simpeaks/generichttp/camera"
	"github.com/nasa-jpl/simpeaks/imgrec"
	"github.com/nasa-jpl/simpeaks/logging"
	"github.com/nasa-jpl/simpeaks/noise"
	"github.com/nasa-jpl/simpeaks/params"
	"github.com/nasa-jpl/simpeaks/preset"
	"github.com/nasa-jpl/simpeaks/server/middleware/locker"
	"github.com/nasa-jpl/simpeaks/sink"
)

// RecorderConfig holds the arguments of the FITS recorder
type RecorderConfig struct {
	// Root is the root folder to write to
	Root string `yaml:"Root" koanf:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// Enabled turns on writing every frame at startup
	Enabled bool `yaml:"Enabled" koanf:"Enabled"`
}

// Config is the configuration of the server
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Root is the URL the detector's routes are served under
	Root string `yaml:"Root" koanf:"Root"`

	// Acquire sizes the detector
	Acquire acquire.Config `yaml:"Acquire" koanf:"Acquire"`

	// Seed seeds the noise source; 0 seeds from the clock
	Seed int64 `yaml:"Seed" koanf:"Seed"`

	// Preset is the path to a preset file applied at startup and reapplied
	// whenever it changes.  Empty for none.
	Preset string `yaml:"Preset" koanf:"Preset"`

	Recorder RecorderConfig `yaml:"Recorder" koanf:"Recorder"`

	Log logging.Config `yaml:"Log" koanf:"Log"`

	// PreviewRate caps the frames per second offered to the /image route;
	// 0 is uncapped
	PreviewRate float64 `yaml:"PreviewRate" koanf:"PreviewRate"`
}

// DefaultConfig is the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		Addr: ":8000",
		Root: "/",
		Acquire: acquire.Config{
			PortName: "SIM1",
			MaxSizeX: 1024,
			MaxSizeY: 0,
			MaxPeaks: 10,
			DataType: frame.Float64,
		},
		Recorder:    RecorderConfig{Prefix: "sim"},
		Log:         logging.DefaultConfig(),
		PreviewRate: 10,
	}
}

// Node is a running simulated detector with its outputs
type Node struct {
	Store    *params.Store
	Pool     *frame.Pool
	Ctl      *acquire.Controller
	Latest   *sink.Latest
	Stats    *sink.Stats
	Bus      *sink.Bus
	Recorder *imgrec.Recorder
	Preview  *sink.Throttle

	cancel context.CancelFunc
}

// NewNode builds the parameter table, buffer pool, sinks and controller of a
// detector and applies the configured preset
func NewNode(c Config, log *zap.Logger) (*Node, error) {
	log = logging.OrNop(log)
	n := &Node{
		Store:    params.NewDetector(c.Acquire.Detector()),
		Pool:     frame.NewPool(c.Acquire.MaxBuffers, c.Acquire.MaxMemory),
		Latest:   &sink.Latest{},
		Bus:      sink.NewBus(),
		Recorder: imgrec.New(c.Recorder.Root, c.Recorder.Prefix, c.Recorder.Enabled),
	}
	n.Stats = &sink.Stats{Store: n.Store}
	n.Preview = sink.NewThrottle(n.Latest, c.PreviewRate)
	n.Recorder.Log = log.Named("recorder")

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	if c.Preset != "" {
		if err := preset.Watch(ctx, c.Preset, n.Store, log); err != nil {
			cancel()
			return nil, err
		}
	}

	opts := []acquire.Option{acquire.WithLogger(log.Named("acquire"))}
	if c.Seed != 0 {
		opts = append(opts, acquire.WithSource(noise.NewSource(c.Seed)))
	}
	out := sink.Multi{n.Stats, n.Preview, n.Bus, n.Recorder}
	ctl, err := acquire.New(c.Acquire, n.Store, n.Pool, out, opts...)
	if err != nil {
		cancel()
		return nil, err
	}
	n.Ctl = ctl
	return n, nil
}

// Close stops the controller and releases every frame held by the outputs
func (n *Node) Close() error {
	n.cancel()
	err := n.Ctl.Close()
	n.Bus.Close()
	n.Latest.Close()
	return err
}

// BuildMux constructs the HTTP interface of a node.  The detector's routes
// are mounted at c.Root behind a lock; the root serves /endpoints, a JSON
// map of mount points to their routes.
func BuildMux(c Config, n *Node) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Use(middleware.Recoverer)
	supergraph := map[string][]string{}

	httper := camera.NewHTTPDetector(n.Store, n.Ctl, n.Latest, n.Stats, n.Pool)
	httper.RouteTable[generichttp.MethodPath{Method: http.MethodGet, Path: "/bus"}] = func(w http.ResponseWriter, r *http.Request) {
		generichttp.WriteJSON(w, n.Bus.Stats())
	}
	imgrec.NewHTTPWrapper(n.Recorder).Inject(httper)

	lock := locker.New()
	locker.Inject(httper, lock)

	hndlS := generichttp.SubMuxSanitize(c.Root)
	supergraph[hndlS] = httper.RT().Endpoints()

	r := chi.NewRouter()
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(hndlS, r)

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}

// envKey maps SIMPEAKS_ACQUIRE_MAXSIZEX to the matching key of known, e.g.
// Acquire.MaxSizeX.  Unknown variables keep their lower case dotted form.
func envKey(prefix string, known []string) func(string) string {
	canon := make(map[string]string, len(known))
	for _, k := range known {
		canon[strings.ToLower(k)] = k
	}
	return func(s string) string {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "_", ".")
		if k, ok := canon[key]; ok {
			return k
		}
		return key
	}
}
