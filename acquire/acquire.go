/*
Package acquire runs the acquisition loop of a simulated peak detector.

A Controller owns one producer goroutine.  It idles until the Acquire
parameter is written 1, then repeatedly composes a frame from the live
parameters, stamps and publishes it, and waits out the rest of the
acquisition period.  The wait is the only place the goroutine blocks and a
stop request ends it immediately.

The controller never owns the parameter store; every value is read fresh at
the start of the frame that uses it.
*/
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/noise"
	"github.com/nasa-jpl/simpeaks/params"
	"github.com/nasa-jpl/simpeaks/synth"
)

// ImageMode is the value of the ImageMode parameter
type ImageMode int

const (
	// Single acquires one frame per start
	Single ImageMode = iota

	// Multiple acquires NumImages frames per start
	Multiple

	// Continuous acquires until stopped
	Continuous
)

// String returns the display name of the mode
func (m ImageMode) String() string {
	switch m {
	case Single:
		return "Single"
	case Multiple:
		return "Multiple"
	case Continuous:
		return "Continuous"
	}
	return fmt.Sprintf("ImageMode(%d)", int(m))
}

// Status is the value of the Status parameter.  The ordinals are those of
// an areaDetector driver's ADStatus.
type Status int

const (
	// StatusIdle means no acquisition is running
	StatusIdle Status = 0

	// StatusAcquire means frames are being produced
	StatusAcquire Status = 1

	// StatusError means the last frame could not be produced
	StatusError Status = 6

	// StatusAborted means a Single or Multiple acquisition was stopped early
	StatusAborted Status = 10
)

// ParameterStore is where the controller reads its configuration and
// writes its counters.  *params.Store satisfies it.
type ParameterStore interface {
	GetInt(key string, idx int) (int, error)
	GetFloat(key string, idx int) (float64, error)
	GetString(key string, idx int) (string, error)
	SetInt(key string, idx int, i int) error
	SetFloat(key string, idx int, f float64) error
	SetString(key string, idx int, s string) error
	OnChange(key string, fn func(params.Change)) error
}

// BufferPool supplies frame buffers.  *frame.Pool satisfies it.
type BufferPool interface {
	Alloc(dims []int, dtype frame.DataType) (*frame.Buffer, error)
	Release(*frame.Buffer)
	Copy(*frame.Buffer) (*frame.Buffer, error)
}

// OutputSink receives completed frames.  The buffer is only valid for the
// duration of the call; a sink that keeps it must Reserve it.
type OutputSink interface {
	Publish(*frame.Buffer)
}

// Clock is the source of frame timestamps
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock
var SystemClock Clock = systemClock{}

// Config holds the construction parameters of a controller
type Config struct {
	// PortName identifies the detector in logs and frame attributes
	PortName string `json:"portName" yaml:"PortName" koanf:"PortName"`

	// MaxSizeX is the largest frame width
	MaxSizeX int `json:"maxSizeX" yaml:"MaxSizeX" koanf:"MaxSizeX"`

	// MaxSizeY is the largest frame height; 0 makes a 1D detector
	MaxSizeY int `json:"maxSizeY" yaml:"MaxSizeY" koanf:"MaxSizeY"`

	// MaxPeaks is the number of peak slots
	MaxPeaks int `json:"maxPeaks" yaml:"MaxPeaks" koanf:"MaxPeaks"`

	// DataType is the initial element type
	DataType frame.DataType `json:"dataType" yaml:"DataType" koanf:"DataType"`

	// MaxBuffers and MaxMemory size the buffer pool; 0 is unlimited
	MaxBuffers int `json:"maxBuffers" yaml:"MaxBuffers" koanf:"MaxBuffers"`
	MaxMemory  int `json:"maxMemory" yaml:"MaxMemory" koanf:"MaxMemory"`
}

// TwoD is true if the detector produces 2D frames
func (c Config) TwoD() bool {
	return c.MaxSizeY > 0
}

// Detector returns the configuration of the detector's parameter table
func (c Config) Detector() params.DetectorConfig {
	return params.DetectorConfig{
		MaxSizeX: c.MaxSizeX,
		MaxSizeY: c.MaxSizeY,
		MaxPeaks: c.MaxPeaks,
		DataType: int(c.DataType),
	}
}

// ErrBadConfig is generated when a controller cannot be constructed
var ErrBadConfig = errors.New("invalid acquisition configuration")

// ErrGeometry is generated when the requested frame size is out of range
var ErrGeometry = errors.New("frame size out of range")

// State is a snapshot of the controller
type State struct {
	Acquiring       bool          `json:"acquiring"`
	ImageMode       ImageMode     `json:"imageMode"`
	FramesCompleted int           `json:"framesCompleted"`
	Elapsed         time.Duration `json:"elapsed"`
	Started         time.Time     `json:"started"`
	RunID           string        `json:"runID"`
}

// Option configures a Controller
type Option func(*Controller)

// WithClock sets the clock used to stamp frames
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithSource sets the noise random number stream
func WithSource(src noise.Source) Option {
	return func(ctl *Controller) { ctl.src = src }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// Controller produces frames on its own goroutine.  All exported methods are
// safe for concurrent use.
type Controller struct {
	cfg   Config
	store ParameterStore
	pool  BufferPool
	sink  OutputSink
	clock Clock
	src   noise.Source
	log   *zap.Logger

	// limiter throttles repeated error logs from the producer
	limiter    *rate.Limiter
	suppressed int

	start chan struct{}
	stop  chan struct{}

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	needsReset atomic.Bool

	mu    sync.Mutex
	state State

	// owned by the producer goroutine
	buf *frame.Buffer
}

// New validates cfg, registers the controller's hooks on store and starts
// the producer goroutine.  sink may be nil, in which case frames are counted
// but not published.
func New(cfg Config, store ParameterStore, pool BufferPool, sink OutputSink, opts ...Option) (*Controller, error) {
	if store == nil || pool == nil {
		return nil, fmt.Errorf("%w: a parameter store and buffer pool are required", ErrBadConfig)
	}
	if cfg.MaxSizeX < 1 || cfg.MaxSizeY < 0 {
		return nil, fmt.Errorf("%w: max size %dx%d", ErrBadConfig, cfg.MaxSizeX, cfg.MaxSizeY)
	}
	if cfg.MaxPeaks < 0 {
		return nil, fmt.Errorf("%w: max peaks %d", ErrBadConfig, cfg.MaxPeaks)
	}
	c := &Controller{
		cfg:     cfg,
		store:   store,
		pool:    pool,
		sink:    sink,
		clock:   SystemClock,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		start:   make(chan struct{}, 1),
		stop:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = noise.NewSource(0)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.With(zap.String("port", cfg.PortName))

	if err := store.OnChange(params.Acquire, c.onAcquire); err != nil {
		return nil, fmt.Errorf("registering acquire hook: %w", err)
	}
	if err := store.OnChange(params.ResetIntegration, c.onResetIntegration); err != nil {
		return nil, fmt.Errorf("registering reset hook: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx)
	return c, nil
}

// Close stops the producer goroutine and releases its buffer.  It blocks
// until the current frame, if any, is finished.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

// Config returns the construction parameters
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns a snapshot of the controller
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Acquiring is true while frames are being produced
func (c *Controller) Acquiring() bool {
	return c.State().Acquiring
}

// signal is a non blocking send on a one slot channel.  The most recent
// request wins; repeats are dropped.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func (c *Controller) onAcquire(ch params.Change) {
	if ch.Int != 0 {
		signal(c.start)
		return
	}
	signal(c.stop)
}

func (c *Controller) onResetIntegration(ch params.Change) {
	if ch.Int != 0 {
		c.needsReset.Store(true)
	}
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if c.buf != nil {
			c.pool.Release(c.buf)
			c.buf = nil
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.start:
		}
		// a stop issued before this point is visible in the Acquire value;
		// one issued after it stays in the channel for the wait to see
		drain(c.stop)
		if c.readInt(params.Acquire, 0) == 0 {
			continue
		}
		c.begin()
		c.acquire(ctx)
	}
}

func (c *Controller) begin() {
	now := c.clock.Now()
	mode := ImageMode(c.readInt(params.ImageMode, 0))
	id := uuid.New().String()

	c.writeInt(params.NumImagesCounter, 0)
	c.writeString(params.RunID, id)
	c.writeInt(params.Status, int(StatusAcquire))
	c.writeString(params.StatusMessage, "Acquiring")
	c.needsReset.Store(true)

	c.mu.Lock()
	c.state = State{
		Acquiring: true,
		ImageMode: mode,
		Started:   now,
		RunID:     id,
	}
	c.mu.Unlock()
	c.log.Info("acquisition started", zap.Stringer("mode", mode), zap.String("runID", id))
}

// finish returns to idle.  A completed acquisition clears Acquire itself;
// a stopped one leaves it as the user wrote it.
func (c *Controller) finish(status Status, msg string, autoStop bool) {
	c.writeInt(params.Status, int(status))
	c.writeString(params.StatusMessage, msg)
	c.mu.Lock()
	c.state.Acquiring = false
	st := c.state
	c.mu.Unlock()
	if autoStop {
		c.writeInt(params.Acquire, 0)
	}
	c.log.Info("acquisition finished",
		zap.String("reason", msg),
		zap.Int("frames", st.FramesCompleted),
		zap.Duration("elapsed", st.Elapsed),
		zap.String("runID", st.RunID))
}

func (c *Controller) acquire(ctx context.Context) {
	for {
		began := c.clock.Now()
		c.cycle()

		if c.complete() {
			c.finish(StatusIdle, "Acquisition complete", true)
			return
		}

		period := time.Duration(c.readFloat(params.AcquirePeriod, 0) * float64(time.Second))
		remaining := period - c.clock.Now().Sub(began)
		if c.wait(ctx, remaining) {
			if ctx.Err() != nil {
				c.finish(StatusAborted, "Closed", false)
				return
			}
			if ImageMode(c.readInt(params.ImageMode, 0)) == Continuous {
				c.finish(StatusIdle, "Acquisition stopped", false)
			} else {
				c.finish(StatusAborted, "Acquisition aborted", false)
			}
			return
		}
	}
}

// wait blocks for d or until a stop request or cancellation, whichever is
// first.  It returns true if the acquisition should end.
func (c *Controller) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	default:
	}
	if d <= 0 {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-c.stop:
		return true
	case <-ctx.Done():
		return true
	}
}

// complete reports whether the current acquisition has all of its frames
func (c *Controller) complete() bool {
	// skipped frames are not counted, so a Single run retries until one is made
	switch ImageMode(c.readInt(params.ImageMode, 0)) {
	case Single:
		return c.readInt(params.NumImagesCounter, 0) >= 1
	case Multiple:
		return c.readInt(params.NumImagesCounter, 0) >= c.readInt(params.NumImages, 0)
	}
	return false
}

// cycle produces one frame.  Failures are logged and skip the frame; the
// acquisition carries on.
func (c *Controller) cycle() {
	defer func() {
		if r := recover(); r != nil {
			c.logError("acquisition cycle panicked", zap.Any("panic", r))
			c.writeInt(params.Status, int(StatusError))
		}
	}()

	dims, dtype, err := c.geometry()
	if err != nil {
		c.skip(err)
		return
	}
	if err := c.ensureBuffer(dims, dtype); err != nil {
		c.skip(err)
		return
	}

	integrate := c.readInt(params.Integrate, 0) != 0
	reset := c.needsReset.Swap(false)
	if err := synth.Compose(c.buf, c.scene(), c.src, integrate, &reset); err != nil {
		c.skip(err)
		return
	}

	counter := c.readInt(params.ArrayCounter, 0) + 1
	images := c.readInt(params.NumImagesCounter, 0) + 1
	now := c.clock.Now()

	c.mu.Lock()
	c.state.FramesCompleted = images
	c.state.Elapsed = now.Sub(c.state.Started)
	elapsed := c.state.Elapsed
	runID := c.state.RunID
	c.mu.Unlock()

	c.buf.UniqueID = counter
	c.buf.TimeStamp = now
	c.buf.Attributes["RunID"] = runID
	c.buf.Attributes["Port"] = c.cfg.PortName

	c.writeInt(params.ArrayCounter, counter)
	c.writeInt(params.UniqueID, counter)
	c.writeInt(params.NumImagesCounter, images)
	c.writeFloat(params.ElapsedTime, elapsed.Seconds())
	c.writeFloat(params.TimeStamp, float64(now.UnixNano())/1e9)

	if c.sink == nil || c.readInt(params.ArrayCallbacks, 0) == 0 {
		return
	}
	if !integrate {
		c.sink.Publish(c.buf)
		return
	}
	// c.buf keeps accumulating, so consumers get a copy
	cp, err := c.pool.Copy(c.buf)
	if err != nil {
		c.logError("frame not published", zap.Error(err), zap.Int("uniqueID", counter))
		return
	}
	defer c.pool.Release(cp)
	c.sink.Publish(cp)
}

func (c *Controller) skip(err error) {
	c.logError("frame skipped", zap.Error(err))
	c.writeString(params.StatusMessage, err.Error())
}

// geometry reads the requested frame size and element type
func (c *Controller) geometry() ([]int, frame.DataType, error) {
	dtype, err := frame.DataTypeFromOrdinal(c.readInt(params.DataType, 0))
	if err != nil {
		return nil, dtype, err
	}
	w := c.readInt(params.SizeX, 0)
	if w < 1 || w > c.cfg.MaxSizeX {
		return nil, dtype, fmt.Errorf("%w: width %d not in [1, %d]", ErrGeometry, w, c.cfg.MaxSizeX)
	}
	if !c.cfg.TwoD() {
		return []int{w}, dtype, nil
	}
	h := c.readInt(params.SizeY, 0)
	if h < 1 || h > c.cfg.MaxSizeY {
		return nil, dtype, fmt.Errorf("%w: height %d not in [1, %d]", ErrGeometry, h, c.cfg.MaxSizeY)
	}
	return []int{w, h}, dtype, nil
}

// ensureBuffer makes c.buf a buffer of the given shape that nobody else
// holds.  A new buffer starts from zero.
func (c *Controller) ensureBuffer(dims []int, dtype frame.DataType) error {
	if c.buf != nil && c.buf.SameShape(dims, dtype) && !c.buf.Shared() {
		return nil
	}
	if c.buf != nil {
		c.pool.Release(c.buf)
		c.buf = nil
	}
	buf, err := c.pool.Alloc(dims, dtype)
	if err != nil {
		return err
	}
	c.buf = buf
	c.needsReset.Store(true)
	return nil
}

// logError logs at error level, at most a few times a second.  The number
// of dropped messages is reported with the next one let through.
func (c *Controller) logError(msg string, fields ...zap.Field) {
	if !c.limiter.Allow() {
		c.suppressed++
		return
	}
	if c.suppressed > 0 {
		fields = append(fields, zap.Int("suppressed", c.suppressed))
		c.suppressed = 0
	}
	c.log.Error(msg, fields...)
}

func (c *Controller) readInt(key string, idx int) int {
	v, err := c.store.GetInt(key, idx)
	if err != nil {
		c.logError("parameter read failed", zap.String("key", key), zap.Int("index", idx), zap.Error(err))
	}
	return v
}

func (c *Controller) readFloat(key string, idx int) float64 {
	v, err := c.store.GetFloat(key, idx)
	if err != nil {
		c.logError("parameter read failed", zap.String("key", key), zap.Int("index", idx), zap.Error(err))
	}
	return v
}

func (c *Controller) writeInt(key string, i int) {
	if err := c.store.SetInt(key, 0, i); err != nil {
		c.logError("parameter write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Controller) writeFloat(key string, f float64) {
	if err := c.store.SetFloat(key, 0, f); err != nil {
		c.logError("parameter write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Controller) writeString(key string, s string) {
	if err := c.store.SetString(key, 0, s); err != nil {
		c.logError("parameter write failed", zap.String("key", key), zap.Error(err))
	}
}
