package sink

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/params"
)

func newFrame(t *testing.T, vals ...float64) *frame.Buffer {
	t.Helper()
	b, err := frame.NewBuffer([]int{len(vals)}, frame.Float64)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := frame.Slice[float64](b)
	copy(data, vals)
	return b
}

func TestMultiCallsInOrder(t *testing.T) {
	var order []int
	m := Multi{
		Func(func(*frame.Buffer) { order = append(order, 1) }),
		nil,
		Func(func(*frame.Buffer) { order = append(order, 2) }),
	}
	m.Publish(newFrame(t, 1))
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected [1 2] got %v", order)
	}
}

func TestBusDropNew(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ch := make(chan *frame.Buffer, 1)
	if err := bus.Subscribe("slow", ch); err != nil {
		t.Fatal(err)
	}
	f1, f2 := newFrame(t, 1), newFrame(t, 2)
	bus.Publish(f1)
	bus.Publish(f2)

	got := <-ch
	if got != f1 {
		t.Error("expected the first frame to be delivered")
	}
	if f1.Refs() != 2 {
		t.Errorf("expected the delivered frame to carry a reference, refs %d", f1.Refs())
	}
	if f2.Refs() != 1 {
		t.Errorf("expected the dropped frame's reference to be returned, refs %d", f2.Refs())
	}
	st := bus.Stats()
	if st.TotalPublished != 2 || st.Subscribers["slow"].Sent != 1 || st.Subscribers["slow"].Dropped != 1 {
		t.Errorf("expected 2 published, 1 sent, 1 dropped, got %+v", st)
	}
}

func TestBusConservation(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	bus.Subscribe("a", make(chan *frame.Buffer, 10))
	bus.Subscribe("b", make(chan *frame.Buffer, 1))
	for i := 0; i < 5; i++ {
		bus.Publish(newFrame(t, float64(i)))
	}
	st := bus.Stats()
	if st.TotalSent+st.TotalDropped != st.TotalPublished*2 {
		t.Errorf("expected sent + dropped to equal published x subscribers, got %+v", st)
	}
}

func TestBusSubscribeErrors(t *testing.T) {
	bus := NewBus()
	if err := bus.Subscribe("x", nil); !errors.Is(err, ErrNilChannel) {
		t.Errorf("expected ErrNilChannel got %v", err)
	}
	bus.Subscribe("x", make(chan *frame.Buffer))
	if _, err := bus.SubscribeDropOld("x"); !errors.Is(err, ErrSubscriberExists) {
		t.Errorf("expected ErrSubscriberExists got %v", err)
	}
	if err := bus.Unsubscribe("y"); !errors.Is(err, ErrSubscriberNotFound) {
		t.Errorf("expected ErrSubscriberNotFound got %v", err)
	}
	bus.Close()
	if err := bus.Subscribe("z", make(chan *frame.Buffer)); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed got %v", err)
	}
}

func TestReceiverKeepsNewest(t *testing.T) {
	bus := NewBus()
	r, err := bus.SubscribeDropOld("viewer")
	if err != nil {
		t.Fatal(err)
	}
	f1, f2 := newFrame(t, 1), newFrame(t, 2)
	bus.Publish(f1)
	bus.Publish(f2)
	if f1.Refs() != 1 {
		t.Errorf("expected the replaced frame to be released, refs %d", f1.Refs())
	}
	got, err := r.Receive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != f2 {
		t.Error("expected the newest frame")
	}
	got.Release()
	if st := bus.Stats().Subscribers["viewer"]; st.Dropped != 1 {
		t.Errorf("expected one overwritten frame, got %+v", st)
	}

	bus.Close()
	if _, err := r.Receive(context.Background()); !errors.Is(err, ErrReceiverClosed) {
		t.Errorf("expected ErrReceiverClosed got %v", err)
	}
}

func TestReceiveWaitsForPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	r, _ := bus.SubscribeDropOld("viewer")
	f := newFrame(t, 3)
	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Publish(f)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := r.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != f {
		t.Error("expected the published frame")
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	r, _ := bus.SubscribeDropOld("viewer")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected a deadline error got %v", err)
	}
}

func TestLatest(t *testing.T) {
	var l Latest
	if l.Get() != nil {
		t.Error("expected nil before any publish")
	}
	f1, f2 := newFrame(t, 1), newFrame(t, 2)
	l.Publish(f1)
	l.Publish(f2)
	if f1.Refs() != 1 {
		t.Errorf("expected the old frame to be released, refs %d", f1.Refs())
	}
	got := l.Get()
	if got != f2 || f2.Refs() != 3 {
		t.Errorf("expected the newest frame with a reference for the caller, refs %d", f2.Refs())
	}
	got.Release()
	l.Close()
	if f2.Refs() != 1 {
		t.Errorf("expected Close to release, refs %d", f2.Refs())
	}
}

func TestComputeStats(t *testing.T) {
	fs := Compute(newFrame(t, 1, 2, 3, 4))
	if fs.Min != 1 || fs.Max != 4 || fs.Total != 10 || fs.Mean != 2.5 {
		t.Errorf("unexpected stats %+v", fs)
	}
	if want := math.Sqrt(5. / 3); math.Abs(fs.Sigma-want) > 1e-12 {
		t.Errorf("expected sample sigma %f got %f", want, fs.Sigma)
	}
	if one := Compute(newFrame(t, 7)); one.Sigma != 0 || one.Mean != 7 {
		t.Errorf("expected a single element frame to have mean 7 and sigma 0, got %+v", one)
	}
}

func TestStatsWritesParameters(t *testing.T) {
	store := params.NewDetector(params.DetectorConfig{MaxSizeX: 4, MaxPeaks: 1})
	s := &Stats{Store: store}
	s.Publish(newFrame(t, 0, 10))
	if v, _ := store.GetFloat(params.StatsMax, 0); v != 10 {
		t.Errorf("expected StatsMax 10 got %f", v)
	}
	if v, _ := store.GetFloat(params.StatsTotal, 0); v != 10 {
		t.Errorf("expected StatsTotal 10 got %f", v)
	}
	if s.Last().Mean != 5 {
		t.Errorf("expected mean 5 got %f", s.Last().Mean)
	}
}

func TestStatsKeepsStoreError(t *testing.T) {
	// a table without the statistics keys
	store := params.New(map[string]params.Def{}, 1)
	s := &Stats{Store: store}
	s.Publish(newFrame(t, 1, 2))
	var unknown params.ErrUnknownKey
	if !errors.As(s.Err(), &unknown) {
		t.Errorf("expected an unknown key error got %v", s.Err())
	}
	if s.Last().Max != 2 {
		t.Errorf("expected the statistics to be kept anyway, max %f", s.Last().Max)
	}

	s.Store = params.NewDetector(params.DetectorConfig{MaxSizeX: 4, MaxPeaks: 1})
	s.Publish(newFrame(t, 1, 2))
	if s.Err() != nil {
		t.Errorf("expected no error once the keys exist, got %v", s.Err())
	}
}

func TestThrottle(t *testing.T) {
	n := 0
	th := NewThrottle(Func(func(*frame.Buffer) { n++ }), 1)
	for i := 0; i < 5; i++ {
		th.Publish(newFrame(t, 1))
	}
	if n != 1 || th.Dropped() != 4 {
		t.Errorf("expected 1 forwarded and 4 dropped, got %d and %d", n, th.Dropped())
	}

	n = 0
	open := NewThrottle(Func(func(*frame.Buffer) { n++ }), 0)
	for i := 0; i < 5; i++ {
		open.Publish(newFrame(t, 1))
	}
	if n != 5 {
		t.Errorf("expected an unlimited throttle to pass every frame, got %d", n)
	}
}
