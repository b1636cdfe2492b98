package params

import (
	"errors"
	"testing"
)

func testStore() *Store {
	return NewDetector(DetectorConfig{MaxSizeX: 100, MaxSizeY: 50, MaxPeaks: 4, DataType: 3})
}

func TestPowerOnValues(t *testing.T) {
	s := testStore()
	if v, _ := s.GetInt(SizeX, 0); v != 100 {
		t.Errorf("expected SizeX 100 got %d", v)
	}
	if v, _ := s.GetFloat(AcquirePeriod, 0); v != 1 {
		t.Errorf("expected AcquirePeriod 1 got %f", v)
	}
	if v, _ := s.GetInt(PeakBoundXMax, 3); v != 99 {
		t.Errorf("expected the last peak's X bound to default to 99 got %d", v)
	}
}

func TestOneDimensionalSizeY(t *testing.T) {
	s := NewDetector(DetectorConfig{MaxSizeX: 10, MaxPeaks: 1})
	s.SetInt(SizeY, 0, 30)
	if v, _ := s.GetInt(SizeY, 0); v != 1 {
		t.Errorf("expected SizeY clamped to 1 for a 1D detector got %d", v)
	}
}

func TestLimitsClamp(t *testing.T) {
	s := testStore()
	s.SetInt(SizeX, 0, 1000)
	if v, _ := s.GetInt(SizeX, 0); v != 100 {
		t.Errorf("expected SizeX clamped to 100 got %d", v)
	}
	s.SetInt(SizeX, 0, -5)
	if v, _ := s.GetInt(SizeX, 0); v != 1 {
		t.Errorf("expected SizeX clamped to 1 got %d", v)
	}
	s.SetFloat(PeakCorrelation, 2, -3)
	if v, _ := s.GetFloat(PeakCorrelation, 2); v != -1 {
		t.Errorf("expected correlation clamped to -1 got %f", v)
	}
}

func TestErrors(t *testing.T) {
	s := testStore()
	var unk ErrUnknownKey
	if _, err := s.GetInt("Bogus", 0); !errors.As(err, &unk) || unk.Key != "Bogus" {
		t.Errorf("expected ErrUnknownKey got %v", err)
	}
	var oor ErrIndexOutOfRange
	if err := s.SetFloat(PeakPosX, 4, 1); !errors.As(err, &oor) {
		t.Errorf("expected ErrIndexOutOfRange got %v", err)
	}
	if _, err := s.GetInt(Acquire, 1); !errors.As(err, &oor) {
		t.Errorf("expected index 1 of a global parameter to be out of range got %v", err)
	}
	var wk ErrWrongKind
	if _, err := s.GetFloat(SizeX, 0); !errors.As(err, &wk) {
		t.Errorf("expected ErrWrongKind got %v", err)
	}
}

func TestOnChangeRunsAfterWrite(t *testing.T) {
	s := testStore()
	var got []Change
	s.OnChange(Acquire, func(c Change) {
		// the store must not be locked here
		v, _ := s.GetInt(Acquire, 0)
		if v != c.Int {
			t.Errorf("expected the value to be stored before the hook, got %d want %d", v, c.Int)
		}
		got = append(got, c)
	})
	s.SetInt(Acquire, 0, 1)
	s.SetInt(Acquire, 0, 7)
	if len(got) != 2 || got[0].Int != 1 || got[1].Int != 1 {
		t.Errorf("expected two clamped changes of 1, got %+v", got)
	}
	if err := s.OnChange("Bogus", func(Change) {}); err == nil {
		t.Error("expected an error registering a hook on an unknown key")
	}
}

func TestSnapshot(t *testing.T) {
	s := testStore()
	s.SetFloat(PeakAmplitude, 1, 42)
	snap := s.Snapshot()
	amps, ok := snap[PeakAmplitude].([]interface{})
	if !ok || len(amps) != 4 || amps[1] != 42.0 {
		t.Errorf("expected an indexed slice with 42 at 1, got %v", snap[PeakAmplitude])
	}
	if snap[StatusMessage] != "Idle" {
		t.Errorf("expected StatusMessage Idle got %v", snap[StatusMessage])
	}
}
