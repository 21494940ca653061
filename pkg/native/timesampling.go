package native

import (
	"fmt"
	"math"
	"slices"
)

// TimeSamplingType identifies how sample indices map to time.
type TimeSamplingType uint8

const (
	// Uniform samples are TimePerCycle apart starting at Times[0].
	Uniform TimeSamplingType = iota
	// Cyclic samples repeat the offsets in Times every TimePerCycle.
	Cyclic
	// Acyclic samples are listed explicitly in Times.
	Acyclic
)

func (t TimeSamplingType) String() string {
	switch t {
	case Uniform:
		return "uniform"
	case Cyclic:
		return "cyclic"
	case Acyclic:
		return "acyclic"
	default:
		return fmt.Sprintf("tstype(%d)", uint8(t))
	}
}

// TimeSampling maps a sample index to a time in seconds.
type TimeSampling struct {
	Type         TimeSamplingType
	TimePerCycle float64
	Times        []float64
}

// IdentityIndex is the slot every archive reserves for the identity
// sampling. Properties on it hold static data.
const IdentityIndex = 0

// IdentitySampling is the sampling at IdentityIndex of every archive: one
// sample per second starting at zero. A sampling equal to it in value but
// registered at another index is a real sampling.
func IdentitySampling() TimeSampling {
	return UniformSampling(1, 0)
}

// UniformSampling returns a sampling with one sample every timePerCycle
// seconds starting at start.
func UniformSampling(timePerCycle, start float64) TimeSampling {
	return TimeSampling{Type: Uniform, TimePerCycle: timePerCycle, Times: []float64{start}}
}

// CyclicSampling returns a sampling whose first cycle holds the given times.
func CyclicSampling(timePerCycle float64, times []float64) TimeSampling {
	return TimeSampling{Type: Cyclic, TimePerCycle: timePerCycle, Times: slices.Clone(times)}
}

// AcyclicSampling returns a sampling with an explicit time per sample.
func AcyclicSampling(times []float64) TimeSampling {
	return TimeSampling{Type: Acyclic, TimePerCycle: math.Inf(1), Times: slices.Clone(times)}
}

// SamplesPerCycle is the number of stored times.
func (ts TimeSampling) SamplesPerCycle() int {
	return len(ts.Times)
}

// SampleTime returns the time of sample i.
func (ts TimeSampling) SampleTime(i int) float64 {
	if len(ts.Times) == 0 {
		return 0
	}
	if i < 0 {
		i = 0
	}
	switch ts.Type {
	case Uniform:
		return ts.Times[0] + float64(i)*ts.TimePerCycle
	case Cyclic:
		spc := len(ts.Times)
		return ts.Times[i%spc] + float64(i/spc)*ts.TimePerCycle
	default:
		if i >= len(ts.Times) {
			i = len(ts.Times) - 1
		}
		return ts.Times[i]
	}
}

// Equal reports whether two samplings produce the same times.
func (ts TimeSampling) Equal(other TimeSampling) bool {
	if ts.Type != other.Type || !slices.Equal(ts.Times, other.Times) {
		return false
	}
	if ts.Type == Acyclic {
		return true
	}
	return ts.TimePerCycle == other.TimePerCycle
}

// Shift returns a copy of ts with every time moved by dt seconds.
func (ts TimeSampling) Shift(dt float64) TimeSampling {
	out := TimeSampling{Type: ts.Type, TimePerCycle: ts.TimePerCycle, Times: make([]float64, len(ts.Times))}
	for i, t := range ts.Times {
		out.Times[i] = t + dt
	}
	return out
}

func (ts TimeSampling) String() string {
	switch ts.Type {
	case Uniform:
		return fmt.Sprintf("uniform(tpc=%g start=%g)", ts.TimePerCycle, ts.SampleTime(0))
	case Cyclic:
		return fmt.Sprintf("cyclic(tpc=%g times=%v)", ts.TimePerCycle, ts.Times)
	default:
		return fmt.Sprintf("acyclic(times=%v)", ts.Times)
	}
}
