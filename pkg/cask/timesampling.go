package cask

import (
	"fmt"
	"math"
	"sort"

	"github.com/odvcencio/cask/pkg/native"
)

// DefaultFPS is the frame rate of archives that do not set one.
const DefaultFPS = 24.0

// Sample locates one sample of a property: by Index, by Time in seconds or
// by Frame at the archive frame rate. Time and frame resolve to the nearest
// sample of the property's time sampling; nothing is interpolated.
type Sample interface {
	// sampleIndex resolves the locator against p, which currently holds n
	// addressable samples.
	sampleIndex(p *Property, n int) int
}

// Index locates a sample by position.
type Index int

// Time locates the sample nearest to a time in seconds.
type Time float64

// Frame locates the sample nearest to a frame at the archive frame rate.
type Frame float64

func (i Index) sampleIndex(*Property, int) int { return int(i) }

func (t Time) sampleIndex(p *Property, n int) int {
	return nearestIndex(p.sampling(), float64(t), n)
}

func (f Frame) sampleIndex(p *Property, n int) int {
	return nearestIndex(p.sampling(), float64(f)/p.fps(), n)
}

func (i Index) String() string { return fmt.Sprintf("index %d", int(i)) }
func (t Time) String() string  { return fmt.Sprintf("time %g", float64(t)) }
func (f Frame) String() string { return fmt.Sprintf("frame %g", float64(f)) }

// nearestIndex returns the index in [0, n) whose sample time is closest to
// t. Ties resolve to the earlier sample.
func nearestIndex(ts native.TimeSampling, t float64, n int) int {
	if n <= 1 {
		return 0
	}
	hi := sort.Search(n, func(i int) bool { return ts.SampleTime(i) > t })
	switch hi {
	case 0:
		return 0
	case n:
		return n - 1
	}
	if t-ts.SampleTime(hi-1) <= ts.SampleTime(hi)-t {
		return hi - 1
	}
	return hi
}

// sampledRange returns the first and last sample time of n samples.
func sampledRange(ts native.TimeSampling, n int) (float64, float64) {
	if n <= 0 {
		return 0, 0
	}
	if ts.Type == native.Acyclic && n > len(ts.Times) {
		n = len(ts.Times)
	}
	return ts.SampleTime(0), ts.SampleTime(n - 1)
}

// TimeToFrame converts seconds to the nearest frame at fps.
func TimeToFrame(t, fps float64) int {
	return int(math.Round(t * fps))
}

// FrameToTime converts a frame at fps to seconds.
func FrameToTime(frame int, fps float64) float64 {
	return float64(frame) / fps
}

// defaultSampling is the sampling of properties that never chose one: the
// first sampling after the identity slot, or one sample per frame starting
// at zero.
func defaultSampling(samplings []native.TimeSampling, fps float64) (native.TimeSampling, int) {
	if len(samplings) > native.IdentityIndex+1 {
		return samplings[native.IdentityIndex+1], native.IdentityIndex + 1
	}
	return native.UniformSampling(1/fps, 0), -1
}
