package cask

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/odvcencio/cask/pkg/native"
)

// Archive is one time-sampled hierarchy, either opened from disk or built
// in memory. It owns Top, the time samplings and the native handles.
type Archive struct {
	path          string
	fps           float64
	timeSamplings []native.TimeSampling
	top           *Object

	engine native.Engine
	reader native.ArchiveReader
	writer native.ArchiveWriter
	logger *slog.Logger
	policy SavePolicy

	// stored caches the range covered by the samples of the read handle.
	stored      timeSpan
	storedReady bool

	startSet, endSet bool
	start, end       float64

	saveErrs []error
	closed   bool
}

type timeSpan struct {
	start, end float64
	ok         bool
}

func (s *timeSpan) add(start, end float64) {
	if !s.ok {
		s.start, s.end, s.ok = start, end, true
		return
	}
	s.start = min(s.start, start)
	s.end = max(s.end, end)
}

func newArchive(o options) *Archive {
	return &Archive{
		fps:    o.fps,
		engine: o.engine,
		logger: o.logger,
		policy: o.policy,
	}
}

// New returns an empty archive holding a bare Top.
func New(opts ...Option) *Archive {
	a := newArchive(buildOptions(opts))
	a.timeSamplings = []native.TimeSampling{native.IdentitySampling()}
	a.setTop(newTop())
	return a
}

// Open binds an archive to the file at path. Nothing below Top is read until
// it is navigated.
func Open(path string, opts ...Option) (*Archive, error) {
	a := newArchive(buildOptions(opts))
	r, err := a.engine.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	for i := 0; i < r.NumTimeSamplings(); i++ {
		ts, err := r.TimeSampling(i)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
		}
		a.timeSamplings = append(a.timeSamplings, ts)
	}
	top, err := r.Top()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	a.path = path
	a.reader = r
	a.setTop(Wrap(top))
	a.logger.Debug("opened archive", "path", path, "samplings", len(a.timeSamplings))
	return a, nil
}

func (a *Archive) setTop(top *Object) {
	a.top = top
	top.arena.archive = a
}

// Top returns the root object.
func (a *Archive) Top() *Object { return a.top }

// Path returns the file the archive was opened from, empty for archives
// built in memory.
func (a *Archive) Path() string { return a.path }

// FPS returns the frame rate.
func (a *Archive) FPS() float64 { return a.fps }

// SetFPS changes the frame rate.
func (a *Archive) SetFPS(fps float64) error {
	if fps <= 0 {
		return fmt.Errorf("%w: %g", ErrFPS, fps)
	}
	a.fps = fps
	return nil
}

// TimeSamplings returns the registered time samplings. Index 0 is the
// identity sampling.
func (a *Archive) TimeSamplings() []native.TimeSampling {
	return slices.Clone(a.timeSamplings)
}

// AddTimeSampling registers ts and returns its index, reusing an equal
// sampling. The identity slot is never shared.
func (a *Archive) AddTimeSampling(ts native.TimeSampling) int {
	for i := native.IdentityIndex + 1; i < len(a.timeSamplings); i++ {
		if a.timeSamplings[i].Equal(ts) {
			return i
		}
	}
	a.timeSamplings = append(a.timeSamplings, ts)
	return len(a.timeSamplings) - 1
}

// TimeRange returns the first and last sample time over every sampled
// property, or (0, 0) when nothing is sampled. Properties on the identity
// slot hold static data and do not count.
func (a *Archive) TimeRange() (float64, float64) {
	if !a.storedReady && a.reader != nil {
		for i, ts := range a.timeSamplings {
			if i != native.IdentityIndex {
				a.stored.add(sampledRange(ts, a.reader.MaxNumSamples(i)))
			}
		}
		a.storedReady = true
	}
	span := a.stored

	counts := make(map[int]int)
	if a.top != nil {
		collectSampleCounts(a.top, counts)
	}
	def, _ := defaultSampling(a.timeSamplings, a.fps)
	for i, n := range counts {
		if n == 0 || i == native.IdentityIndex {
			continue
		}
		ts := def
		if i > 0 && i < len(a.timeSamplings) {
			ts = a.timeSamplings[i]
		}
		span.add(sampledRange(ts, n))
	}
	if !span.ok {
		return 0, 0
	}
	return span.start, span.end
}

// collectSampleCounts records the largest sample count per time sampling
// index over the materialized simple properties below n. Nothing is read
// from disk.
func collectSampleCounts(n Node, counts map[int]int) {
	if p, ok := n.(*Property); ok && p.tag == propSimple {
		counts[p.tsIndex] = max(counts[p.tsIndex], p.NumSamples())
	}
	for _, c := range n.owned() {
		collectSampleCounts(c, counts)
	}
}

// StartTime returns the start of the time range.
func (a *Archive) StartTime() float64 {
	if a.startSet {
		return a.start
	}
	start, _ := a.TimeRange()
	return start
}

// EndTime returns the end of the time range.
func (a *Archive) EndTime() float64 {
	if a.endSet {
		return a.end
	}
	_, end := a.TimeRange()
	return end
}

// SetStartTime moves the start of the time range, pushing the end along
// when it would precede the new start. Written archives start there.
func (a *Archive) SetStartTime(t float64) {
	if a.EndTime() < t {
		a.end, a.endSet = t, true
	}
	a.start, a.startSet = t, true
}

// SetEndTime moves the end of the time range, pulling the start along when
// it would follow the new end. The end is only reported by EndTime and
// EndFrame: samples are never trimmed, so a written archive ends where its
// last sample falls.
func (a *Archive) SetEndTime(t float64) {
	if a.StartTime() > t {
		a.start, a.startSet = t, true
	}
	a.end, a.endSet = t, true
}

// StartFrame returns the start of the time range in frames.
func (a *Archive) StartFrame() int { return TimeToFrame(a.StartTime(), a.fps) }

// EndFrame returns the end of the time range in frames.
func (a *Archive) EndFrame() int { return TimeToFrame(a.EndTime(), a.fps) }

// SetStartFrame moves the start of the time range to a frame.
func (a *Archive) SetStartFrame(frame int) { a.SetStartTime(FrameToTime(frame, a.fps)) }

// SetEndFrame moves the end of the time range to a frame. Like SetEndTime
// it does not affect what WriteToFile stores.
func (a *Archive) SetEndFrame(frame int) { a.SetEndTime(FrameToTime(frame, a.fps)) }

// Walk calls fn for Top and every descendant, parents first. Children are
// read from disk as the walk reaches them. A non-nil error from fn stops
// the walk.
func (a *Archive) Walk(fn func(*Object) error) error {
	if a.closed {
		return ErrClosed
	}
	return walk(a.top, fn)
}

func walk(o *Object, fn func(*Object) error) error {
	if err := fn(o); err != nil {
		return err
	}
	kids, err := o.Children()
	if err != nil {
		return err
	}
	for _, c := range kids.Values() {
		if err := walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the object at an absolute path such as "/root/body".
func (a *Archive) Find(path string) (*Object, error) {
	if a.closed {
		return nil, ErrClosed
	}
	rel := strings.Trim(path, "/")
	if rel == "" {
		return a.top, nil
	}
	return a.top.Child(rel)
}

// SaveErrors returns the failures reported by the last WriteToFile.
func (a *Archive) SaveErrors() []error { return slices.Clone(a.saveErrs) }

// SaveError joins the failures reported by the last WriteToFile.
func (a *Archive) SaveError() error { return errors.Join(a.saveErrs...) }

// saver carries one WriteToFile pass.
type saver struct {
	a *Archive
	w native.ArchiveWriter
	// indices maps archive time sampling indices to writer indices.
	indices      []uint32
	defaultIndex uint32
	errs         []error
}

// fail reports a failure at path. It returns nil when the walk should go on.
func (s *saver) fail(path string, err error) error {
	err = fmt.Errorf("save %s: %w", path, err)
	if s.a.policy == SaveStrict {
		return err
	}
	s.a.logger.Warn("save failed", "path", path, "err", err)
	s.errs = append(s.errs, err)
	return nil
}

func (s *saver) samplingIndex(i int) uint32 {
	if i < 0 || i >= len(s.indices) {
		return s.defaultIndex
	}
	return s.indices[i]
}

// WriteToFile writes the whole tree to path and closes the archive. A start
// set with SetStartTime shifts every sampling so the archive begins there;
// an end set with SetEndTime is not written. Under SaveReport failing nodes
// and values are skipped and listed in SaveErrors; under SaveStrict the
// first failure aborts the write.
func (a *Archive) WriteToFile(path string) error {
	if a.closed {
		return ErrClosed
	}
	if a.reader != nil && samePath(a.reader.Path(), path) {
		return fmt.Errorf("%w: %s", ErrOverwriteSource, path)
	}

	natural, _ := a.TimeRange()
	samplings := slices.Clone(a.timeSamplings)
	_, def := defaultSampling(samplings, a.fps)
	if def < 0 {
		samplings = append(samplings, native.UniformSampling(1/a.fps, 0))
		def = len(samplings) - 1
	}
	if a.startSet && a.start != natural {
		dt := a.start - natural
		for i, ts := range samplings {
			if i != native.IdentityIndex {
				samplings[i] = ts.Shift(dt)
			}
		}
	}

	w, err := a.engine.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.writer = w
	s := &saver{a: a, w: w}
	for i, ts := range samplings {
		if i == native.IdentityIndex {
			s.indices = append(s.indices, native.IdentityIndex)
			continue
		}
		s.indices = append(s.indices, w.AddTimeSampling(ts))
	}
	s.defaultIndex = s.indices[def]

	if err := a.saveTree(s); err != nil {
		w.Abort()
		a.Close()
		return err
	}
	a.saveErrs = s.errs
	if err := w.Close(); err != nil {
		a.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.logger.Debug("wrote archive", "path", path, "failures", len(s.errs))
	return a.Close()
}

func (a *Archive) saveTree(s *saver) error {
	if err := a.top.save(s); err != nil {
		return err
	}
	return saveChildren(s, a.top)
}

// saveChildren saves the children of o and then their subtrees. An object
// that got no write handle takes its subtree with it.
func saveChildren(s *saver, o *Object) error {
	if o.writer == nil {
		return nil
	}
	kids, err := o.Children()
	if err != nil {
		return s.fail(o.Path(), err)
	}
	for _, c := range kids.Values() {
		if err := c.save(s); err != nil {
			return err
		}
		if err := saveChildren(s, c); err != nil {
			return err
		}
	}
	return nil
}

func samePath(a, b string) bool {
	if absA, err := filepath.Abs(a); err == nil {
		if absB, err := filepath.Abs(b); err == nil && absA == absB {
			return true
		}
	}
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	return err == nil && os.SameFile(sa, sb)
}

// Close releases every native handle held by the archive and its
// materialized nodes. Navigating the tree afterwards fails with ErrClosed.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	release(a.top)
	var err error
	if a.reader != nil {
		err = a.reader.Close()
		a.reader = nil
	}
	a.writer = nil
	a.top.arena.clear()
	return err
}

func release(n Node) {
	n.release()
	for _, c := range n.owned() {
		release(c)
	}
}
