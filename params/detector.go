package params

import "math"

// keys of the detector parameters
const (
	Acquire          = "Acquire"
	ImageMode        = "ImageMode"
	NumImages        = "NumImages"
	NumImagesCounter = "NumImagesCounter"
	ArrayCounter     = "ArrayCounter"
	ArrayCallbacks   = "ArrayCallbacks"
	AcquirePeriod    = "AcquirePeriod"
	SizeX            = "SizeX"
	SizeY            = "SizeY"
	MaxSizeX         = "MaxSizeX"
	MaxSizeY         = "MaxSizeY"
	DataType         = "DataType"
	Integrate        = "Integrate"
	ResetIntegration = "ResetIntegration"
	Status           = "Status"
	StatusMessage    = "StatusMessage"
	ElapsedTime      = "ElapsedTime"
	TimeStamp        = "TimeStamp"
	UniqueID         = "UniqueID"
	RunID            = "RunID"

	BackgroundTypeX  = "BackgroundTypeX"
	BackgroundC0X    = "BackgroundC0X"
	BackgroundC1X    = "BackgroundC1X"
	BackgroundC2X    = "BackgroundC2X"
	BackgroundC3X    = "BackgroundC3X"
	BackgroundShiftX = "BackgroundShiftX"
	BackgroundTypeY  = "BackgroundTypeY"
	BackgroundC0Y    = "BackgroundC0Y"
	BackgroundC1Y    = "BackgroundC1Y"
	BackgroundC2Y    = "BackgroundC2Y"
	BackgroundC3Y    = "BackgroundC3Y"
	BackgroundShiftY = "BackgroundShiftY"

	NoiseType  = "NoiseType"
	NoiseLevel = "NoiseLevel"
	NoiseClamp = "NoiseClamp"
	NoiseLower = "NoiseLower"
	NoiseUpper = "NoiseUpper"

	StatsMin   = "StatsMin"
	StatsMax   = "StatsMax"
	StatsMean  = "StatsMean"
	StatsSigma = "StatsSigma"
	StatsTotal = "StatsTotal"

	PeakType1D      = "PeakType1D"
	PeakType2D      = "PeakType2D"
	PeakPosX        = "PeakPosX"
	PeakPosY        = "PeakPosY"
	PeakFWHMX       = "PeakFWHMX"
	PeakFWHMY       = "PeakFWHMY"
	PeakAmplitude   = "PeakAmplitude"
	PeakCorrelation = "PeakCorrelation"
	PeakP1          = "PeakP1"
	PeakP2          = "PeakP2"
	PeakBoundUse    = "PeakBoundUse"
	PeakBoundXMin   = "PeakBoundXMin"
	PeakBoundXMax   = "PeakBoundXMax"
	PeakBoundYMin   = "PeakBoundYMin"
	PeakBoundYMax   = "PeakBoundYMax"
)

// DetectorConfig sizes the detector parameter table
type DetectorConfig struct {
	// MaxSizeX is the largest frame width
	MaxSizeX int

	// MaxSizeY is the largest frame height; 0 makes a 1D detector
	MaxSizeY int

	// MaxPeaks is the number of peak slots
	MaxPeaks int

	// DataType is the initial element type ordinal
	DataType int
}

func limit(min, max float64) *Limits {
	return &Limits{Min: min, Max: max}
}

// DetectorDefs returns the definition table of a simulated peak detector
func DetectorDefs(c DetectorConfig) map[string]Def {
	maxY := c.MaxSizeY
	if maxY < 1 {
		maxY = 1
	}
	inf := math.Inf(1)
	i := Def{Kind: Int}
	f := Def{Kind: Float}
	s := Def{Kind: String}
	pi := Def{Kind: Int, Indexed: true}
	pf := Def{Kind: Float, Indexed: true}
	return map[string]Def{
		Acquire:          {Kind: Int, Limits: limit(0, 1)},
		ImageMode:        {Kind: Int, Limits: limit(0, 2)},
		NumImages:        {Kind: Int, Limits: limit(1, inf)},
		NumImagesCounter: i,
		ArrayCounter:     i,
		ArrayCallbacks:   i,
		AcquirePeriod:    {Kind: Float, Limits: limit(0, inf)},
		SizeX:            {Kind: Int, Limits: limit(1, float64(c.MaxSizeX))},
		SizeY:            {Kind: Int, Limits: limit(1, float64(maxY))},
		MaxSizeX:         i,
		MaxSizeY:         i,
		DataType:         i,
		Integrate:        i,
		ResetIntegration: i,
		Status:           i,
		StatusMessage:    s,
		ElapsedTime:      f,
		TimeStamp:        f,
		UniqueID:         i,
		RunID:            s,

		BackgroundTypeX:  i,
		BackgroundC0X:    f,
		BackgroundC1X:    f,
		BackgroundC2X:    f,
		BackgroundC3X:    f,
		BackgroundShiftX: f,
		BackgroundTypeY:  i,
		BackgroundC0Y:    f,
		BackgroundC1Y:    f,
		BackgroundC2Y:    f,
		BackgroundC3Y:    f,
		BackgroundShiftY: f,

		NoiseType:  i,
		NoiseLevel: f,
		NoiseClamp: i,
		NoiseLower: f,
		NoiseUpper: f,

		StatsMin:   f,
		StatsMax:   f,
		StatsMean:  f,
		StatsSigma: f,
		StatsTotal: f,

		PeakType1D:      pi,
		PeakType2D:      pi,
		PeakPosX:        pf,
		PeakPosY:        pf,
		PeakFWHMX:       pf,
		PeakFWHMY:       pf,
		PeakAmplitude:   pf,
		PeakCorrelation: {Kind: Float, Indexed: true, Limits: limit(-1, 1)},
		PeakP1:          pf,
		PeakP2:          pf,
		PeakBoundUse:    pi,
		PeakBoundXMin:   pi,
		PeakBoundXMax:   pi,
		PeakBoundYMin:   pi,
		PeakBoundYMax:   pi,
	}
}

// NewDetector returns a store holding the detector parameters with their
// power-on values
func NewDetector(c DetectorConfig) *Store {
	s := New(DetectorDefs(c), c.MaxPeaks)
	maxY := c.MaxSizeY
	if maxY < 1 {
		maxY = 1
	}
	ints := map[string]int{
		NumImages:      1,
		ArrayCallbacks: 1,
		SizeX:          c.MaxSizeX,
		SizeY:          maxY,
		MaxSizeX:       c.MaxSizeX,
		MaxSizeY:       c.MaxSizeY,
		DataType:       c.DataType,
	}
	for k, v := range ints {
		s.SetInt(k, 0, v)
	}
	s.SetFloat(AcquirePeriod, 0, 1.0)
	s.SetString(StatusMessage, 0, "Idle")
	for p := 0; p < s.IndexLen(); p++ {
		s.SetFloat(PeakFWHMX, p, 1)
		s.SetFloat(PeakFWHMY, p, 1)
		// Moffat beta; 1 and below have no finite profile
		s.SetFloat(PeakP1, p, 2.5)
		s.SetInt(PeakBoundXMax, p, c.MaxSizeX-1)
		s.SetInt(PeakBoundYMax, p, maxY-1)
	}
	return s
}
