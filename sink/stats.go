package sink

import (
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/params"
)

// FrameStats summarizes one frame
type FrameStats struct {
	UniqueID int     `json:"uniqueID"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Sigma    float64 `json:"sigma"`
	Total    float64 `json:"total"`
}

// Compute returns the statistics of b.  Sigma is the sample standard
// deviation, zero for frames of fewer than two elements.
func Compute(b *frame.Buffer) FrameStats {
	x := b.Float64s()
	out := FrameStats{UniqueID: b.UniqueID}
	if len(x) == 0 {
		return out
	}
	out.Min = floats.Min(x)
	out.Max = floats.Max(x)
	out.Total = floats.Sum(x)
	if len(x) < 2 {
		out.Mean = x[0]
		return out
	}
	out.Mean, out.Sigma = stat.MeanStdDev(x, nil)
	return out
}

// FloatSetter is where Stats writes its results.  *params.Store satisfies it.
type FloatSetter interface {
	SetFloat(key string, idx int, f float64) error
}

// Stats computes the statistics of every frame and, if Store is not nil,
// writes them to the StatsMin, StatsMax, StatsMean, StatsSigma and
// StatsTotal parameters
type Stats struct {
	Store FloatSetter

	mu   sync.Mutex
	last FrameStats
	err  error
}

// Publish satisfies Sink
func (s *Stats) Publish(b *frame.Buffer) {
	fs := Compute(b)
	s.mu.Lock()
	s.last = fs
	s.mu.Unlock()
	if s.Store == nil {
		return
	}
	var first error
	for k, v := range map[string]float64{
		params.StatsMin:   fs.Min,
		params.StatsMax:   fs.Max,
		params.StatsMean:  fs.Mean,
		params.StatsSigma: fs.Sigma,
		params.StatsTotal: fs.Total,
	} {
		if err := s.Store.SetFloat(k, 0, v); err != nil && first == nil {
			first = err
		}
	}
	s.mu.Lock()
	s.err = first
	s.mu.Unlock()
}

// Err is the first error the Store returned for the most recent frame, nil
// if every statistic was written
func (s *Stats) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Last returns the statistics of the most recent frame
func (s *Stats) Last() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
