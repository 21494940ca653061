package cask

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/odvcencio/cask/pkg/native"
	"github.com/odvcencio/cask/pkg/pack"
)

// buildScene assembles /xf/mesh with schema samples and custom properties.
func buildScene(t *testing.T, a *Archive) {
	t.Helper()
	kids := topChildren(t, a)

	xf := NewXform("xf")
	if err := kids.Set("xf", xf); err != nil {
		t.Fatalf("Set(xf): %v", err)
	}
	x, err := xf.Xform()
	if err != nil {
		t.Fatalf("Xform: %v", err)
	}
	if err := x.SetMatrix(Translate44d(V3d{1, 2, 3}), Index(0)); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}

	mesh := NewPolyMesh("mesh")
	if err := xf.AddChild(mesh); err != nil {
		t.Fatalf("AddChild(mesh): %v", err)
	}
	m, err := mesh.Mesh()
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if err := m.SetPositions([]P3f{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Index(0)); err != nil {
		t.Fatalf("SetPositions: %v", err)
	}
	if err := m.SetFaceIndices([]int32{0, 1, 2}, Index(0)); err != nil {
		t.Fatalf("SetFaceIndices: %v", err)
	}
	if err := m.SetFaceCounts([]int32{3}, Index(0)); err != nil {
		t.Fatalf("SetFaceCounts: %v", err)
	}

	weights := NewProperty("weights")
	for _, w := range [][]float64{{0.5, 1}, {0.25, 2}} {
		if err := weights.AppendValue(w); err != nil {
			t.Fatalf("AppendValue: %v", err)
		}
	}
	if err := mesh.AddProperty(weights); err != nil {
		t.Fatalf("AddProperty(weights): %v", err)
	}

	tags := NewCompoundProperty("tags")
	label := NewProperty("label")
	if err := label.SetValue("hero", Index(0)); err != nil {
		t.Fatalf("SetValue(label): %v", err)
	}
	if err := tags.AddProperty(label); err != nil {
		t.Fatalf("AddProperty(label): %v", err)
	}
	if err := mesh.AddProperty(tags); err != nil {
		t.Fatalf("AddProperty(tags): %v", err)
	}
}

func mustWrite(t *testing.T, a *Archive, path string) {
	t.Helper()
	if err := a.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
}

func mustOpen(t *testing.T, path string, opts ...Option) *Archive {
	t.Helper()
	a, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func mustFind(t *testing.T, a *Archive, path string) *Object {
	t.Helper()
	o, err := a.Find(path)
	if err != nil {
		t.Fatalf("Find(%s): %v", path, err)
	}
	return o
}

func mustProperty(t *testing.T, o *Object, path string) *Property {
	t.Helper()
	p, err := o.Property(path)
	if err != nil {
		t.Fatalf("Property(%s): %v", path, err)
	}
	return p
}

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.abc")
	a := New()
	buildScene(t, a)
	mustWrite(t, a, path)
	if errs := a.SaveErrors(); len(errs) != 0 {
		t.Fatalf("save errors: %v", errs)
	}

	b := mustOpen(t, path)
	if names := topChildren(t, b).Names(); !slices.Equal(names, []string{"xf"}) {
		t.Fatalf("top children = %v, want [xf]", names)
	}

	xf := mustFind(t, b, "/xf")
	if xf.Kind() != KindXform {
		t.Errorf("/xf kind = %v, want Xform", xf.Kind())
	}
	x, err := xf.Xform()
	if err != nil {
		t.Fatal(err)
	}
	mat, err := x.Matrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if mat != Translate44d(V3d{1, 2, 3}) {
		t.Errorf("matrix = %v", mat)
	}

	mesh := mustFind(t, b, "/xf/mesh")
	if mesh.Type() != "PolyMesh" {
		t.Errorf("mesh type = %q", mesh.Type())
	}
	world, err := mesh.GlobalMatrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if got := world.Translation(); got != (V3d{1, 2, 3}) {
		t.Errorf("world translation = %v, want {1 2 3}", got)
	}

	m, err := mesh.Mesh()
	if err != nil {
		t.Fatal(err)
	}
	pts, err := m.Positions(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]P3f{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, pts); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	counts, err := m.FaceCounts(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(counts, []int32{3}) {
		t.Errorf("face counts = %v, want [3]", counts)
	}
	bounds, err := m.SelfBounds(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if bounds != (Box3d{Max: V3d{1, 1, 0}}) {
		t.Errorf("bounds = %v", bounds)
	}

	props, err := mesh.Properties()
	if err != nil {
		t.Fatal(err)
	}
	names := props.Names()
	slices.Sort(names)
	if !slices.Equal(names, []string{".geom", "tags", "weights"}) {
		t.Errorf("property names = %v", names)
	}

	values, err := mustProperty(t, mesh, "weights").Values()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{[]float64{0.5, 1}, []float64{0.25, 2}}, values); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}

	if !mustProperty(t, mesh, "tags").IsCompound() {
		t.Error("tags read back as simple")
	}
	v, err := mustProperty(t, mesh, "tags/label").GetValue(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if v != "hero" {
		t.Errorf("label = %v, want hero", v)
	}
}

// buildAnimatedXform adds /xf with one translation per frame and an unsampled
// /still.
func buildAnimatedXform(t *testing.T, a *Archive, frames int) {
	t.Helper()
	kids := topChildren(t, a)
	xf := NewXform("xf")
	if err := kids.Set("xf", xf); err != nil {
		t.Fatal(err)
	}
	x, err := xf.Xform()
	if err != nil {
		t.Fatal(err)
	}
	for i := range frames {
		if err := x.SetMatrix(Translate44d(V3d{float64(i), 0, 0}), Index(i)); err != nil {
			t.Fatalf("SetMatrix(%d): %v", i, err)
		}
	}
	if err := kids.Set("still", NewPoints("still")); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveFrameRangeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anim.abc")
	a := New()
	buildAnimatedXform(t, a, 24)

	if a.StartFrame() != 0 || a.EndFrame() != 23 {
		t.Fatalf("frames = %d-%d, want 0-23", a.StartFrame(), a.EndFrame())
	}

	a.SetStartFrame(1001)
	if a.StartFrame() != 1001 {
		t.Errorf("start frame = %d, want 1001", a.StartFrame())
	}
	if a.EndFrame() < 1001 {
		t.Errorf("end frame %d precedes start", a.EndFrame())
	}
	mustWrite(t, a, path)

	b := mustOpen(t, path)
	if b.StartFrame() != 1001 || b.EndFrame() != 1024 {
		t.Fatalf("written frames = %d-%d, want 1001-1024", b.StartFrame(), b.EndFrame())
	}

	xb := mustFind(t, b, "/xf")
	view, err := xb.Xform()
	if err != nil {
		t.Fatal(err)
	}
	mat, err := view.Matrix(Frame(1010))
	if err != nil {
		t.Fatal(err)
	}
	if got := mat.Translation(); got != (V3d{9, 0, 0}) {
		t.Errorf("translation at 1010 = %v, want {9 0 0}", got)
	}

	animated, err := xb.IsAnimated()
	if err != nil {
		t.Fatal(err)
	}
	if !animated {
		t.Error("/xf not animated")
	}
	animated, err = mustFind(t, b, "/still").IsAnimated()
	if err != nil {
		t.Fatal(err)
	}
	if animated {
		t.Error("/still animated")
	}
}

func TestArchiveTimeRangeAtOneFPS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fps1.abc")
	a := New(WithFPS(1))
	o := NewObject("o")
	if err := topChildren(t, a).Set("o", o); err != nil {
		t.Fatal(err)
	}
	p := NewProperty("p")
	for i := range 3 {
		if err := p.AppendValue(float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.AddProperty(p); err != nil {
		t.Fatal(err)
	}

	if start, end := a.TimeRange(); start != 0 || end != 2 {
		t.Fatalf("time range = %g-%g, want 0-2", start, end)
	}

	a.SetStartFrame(10)
	mustWrite(t, a, path)

	b := mustOpen(t, path, WithFPS(1))
	if b.StartFrame() != 10 || b.EndFrame() != 12 {
		t.Fatalf("written frames = %d-%d, want 10-12", b.StartFrame(), b.EndFrame())
	}
	samplings := b.TimeSamplings()
	if len(samplings) != 2 {
		t.Fatalf("samplings = %v, want identity plus one", samplings)
	}
	if !samplings[native.IdentityIndex].Equal(native.IdentitySampling()) {
		t.Errorf("identity slot was shifted to %v", samplings[native.IdentityIndex])
	}
	pb := mustProperty(t, mustFind(t, b, "/o"), "p")
	if pb.TimeSamplingIndex() != 1 {
		t.Errorf("property sampling index = %d, want 1", pb.TimeSamplingIndex())
	}
	v, err := pb.GetValue(Frame(11))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.0 {
		t.Errorf("value at frame 11 = %v, want 1", v)
	}
}

func ptr[T any](v T) *T { return &v }

func TestArchiveTimeRangeSamplings(t *testing.T) {
	tests := []struct {
		name       string
		ts         *native.TimeSampling
		samples    int
		start, end float64
	}{
		{"uniform", ptr(native.UniformSampling(0.5, 1)), 4, 1, 2.5},
		{"cyclic", ptr(native.CyclicSampling(1, []float64{0, 0.25})), 5, 0, 2},
		{"acyclic", ptr(native.AcyclicSampling([]float64{0.1, 0.4, 0.9})), 3, 0.1, 0.9},
		{"acyclic overrun clamps", ptr(native.AcyclicSampling([]float64{0.1, 0.4, 0.9})), 5, 0.1, 0.9},
		{"identity slot is static", nil, 4, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := New()
			i := native.IdentityIndex
			if tc.ts != nil {
				i = a.AddTimeSampling(*tc.ts)
				if i == native.IdentityIndex {
					t.Fatalf("%v registered in the identity slot", *tc.ts)
				}
			}
			p := NewProperty("p")
			p.SetTimeSamplingIndex(i)
			for n := range tc.samples {
				if err := p.AppendValue(int32(n)); err != nil {
					t.Fatal(err)
				}
			}
			o := NewObject("o")
			if err := topChildren(t, a).Set("o", o); err != nil {
				t.Fatal(err)
			}
			if err := o.AddProperty(p); err != nil {
				t.Fatal(err)
			}

			start, end := a.TimeRange()
			if math.Abs(start-tc.start) > 1e-9 || math.Abs(end-tc.end) > 1e-9 {
				t.Fatalf("time range = %g-%g, want %g-%g", start, end, tc.start, tc.end)
			}
		})
	}
}

func TestArchiveStartEndClamp(t *testing.T) {
	a := New()
	if a.StartTime() != 0 || a.EndTime() != 0 {
		t.Fatalf("empty range = %g-%g", a.StartTime(), a.EndTime())
	}

	a.SetStartTime(2)
	if a.EndTime() != 2 {
		t.Errorf("end = %g, want pushed to 2", a.EndTime())
	}
	a.SetEndTime(1)
	if a.StartTime() != 1 {
		t.Errorf("start = %g, want pulled to 1", a.StartTime())
	}
	a.SetEndFrame(48)
	if a.EndFrame() != 48 || a.StartFrame() != 24 {
		t.Errorf("frames = %d-%d, want 24-48", a.StartFrame(), a.EndFrame())
	}
	if err := a.SetFPS(0); !errors.Is(err, ErrFPS) {
		t.Errorf("SetFPS(0): err = %v, want ErrFPS", err)
	}
}

func TestArchiveEndOverrideIsNotWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "end.abc")
	a := New()
	buildAnimatedXform(t, a, 24)
	a.SetEndFrame(100)
	if a.EndFrame() != 100 {
		t.Fatalf("end frame = %d, want 100", a.EndFrame())
	}
	mustWrite(t, a, path)

	b := mustOpen(t, path)
	if b.StartFrame() != 0 || b.EndFrame() != 23 {
		t.Fatalf("written frames = %d-%d, want the sampled 0-23", b.StartFrame(), b.EndFrame())
	}
}

func TestArchiveDefaultSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.abc")
	a := New()
	kids := topChildren(t, a)
	for _, o := range []*Object{
		NewXform("xf"), NewPolyMesh("mesh"), NewSubD("subd"), NewCamera("cam"),
		NewCurve("curve"), NewNuPatch("patch"), NewPoints("pts"), NewMaterial("mat"),
		NewLight("light"), NewObject("group"),
	} {
		if err := kids.Set(o.Name(), o); err != nil {
			t.Fatalf("Set(%s): %v", o.Name(), err)
		}
	}
	mesh, err := kids.Get("mesh")
	if err != nil {
		t.Fatal(err)
	}
	if err := mesh.AddChild(NewFaceSet("faces")); err != nil {
		t.Fatal(err)
	}

	mustWrite(t, a, path)
	if errs := a.SaveErrors(); len(errs) != 0 {
		t.Fatalf("save errors: %v", errs)
	}

	b := mustOpen(t, path)

	cv, err := mustFind(t, b, "/cam").Camera()
	if err != nil {
		t.Fatal(err)
	}
	core, err := cv.Core(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaultCameraCore, core); diff != "" {
		t.Errorf("camera core mismatch (-want +got):\n%s", diff)
	}
	if fov := core.FieldOfView(); math.Abs(fov-54.432) > 0.001 {
		t.Errorf("field of view = %g, want about 54.432", fov)
	}

	x, err := mustFind(t, b, "/xf").Xform()
	if err != nil {
		t.Fatal(err)
	}
	mat, err := x.Matrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if mat != Identity44d() {
		t.Errorf("default matrix = %v, want identity", mat)
	}
	inherits, err := x.Inherits()
	if err != nil {
		t.Fatal(err)
	}
	if !inherits {
		t.Error("default xform does not inherit")
	}

	mv, err := mustFind(t, b, "/mesh").Mesh()
	if err != nil {
		t.Fatal(err)
	}
	pts, err := mv.Positions(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 0 {
		t.Errorf("default positions = %v, want none", pts)
	}

	if k := mustFind(t, b, "/mesh/faces").Kind(); k != KindFaceSet {
		t.Errorf("/mesh/faces kind = %v, want FaceSet", k)
	}

	v, err := mustProperty(t, mustFind(t, b, "/subd"), ".geom/.scheme").GetValue(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if v != "catmull-clark" {
		t.Errorf("subd scheme = %v, want catmull-clark", v)
	}

	for path, kind := range map[string]Kind{
		"/curve": KindCurve, "/patch": KindNuPatch, "/pts": KindPoints,
		"/mat": KindMaterial, "/light": KindLight, "/group": KindObject,
	} {
		if got := mustFind(t, b, path).Kind(); got != kind {
			t.Errorf("%s kind = %v, want %v", path, got, kind)
		}
	}
}

func TestArchiveSavePolicy(t *testing.T) {
	build := func(t *testing.T, a *Archive) {
		t.Helper()
		kids := topChildren(t, a)
		if err := kids.Set("good", NewXform("good")); err != nil {
			t.Fatal(err)
		}
		weird := NewKind(Kind(200), "weird")
		if err := kids.Set("weird", weird); err != nil {
			t.Fatal(err)
		}
		if err := weird.AddChild(NewPoints("orphan")); err != nil {
			t.Fatal(err)
		}
		foreign := NewObject("foreign")
		foreign.MetaData()["schema"] = "Studio_Rig_v7"
		if err := kids.Set("foreign", foreign); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.abc")
		var logs bytes.Buffer
		a := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		build(t, a)
		mustWrite(t, a, path)

		if errs := a.SaveErrors(); len(errs) != 2 {
			t.Fatalf("save errors = %v, want 2", errs)
		}
		if !errors.Is(a.SaveError(), ErrUnresolvedWriteClass) {
			t.Errorf("SaveError = %v, want ErrUnresolvedWriteClass", a.SaveError())
		}
		if !strings.Contains(logs.String(), "save failed") {
			t.Errorf("failures not logged: %q", logs.String())
		}

		b := mustOpen(t, path)
		if names := topChildren(t, b).Names(); !slices.Equal(names, []string{"good"}) {
			t.Errorf("written children = %v, want [good]", names)
		}
	})

	t.Run("strict", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "strict.abc")
		a := New(WithSavePolicy(SaveStrict))
		build(t, a)
		if err := a.WriteToFile(path); !errors.Is(err, ErrUnresolvedWriteClass) {
			t.Fatalf("WriteToFile: err = %v, want ErrUnresolvedWriteClass", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("aborted archive exists: %v", err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("left behind %d files", len(entries))
		}
	})
}

var errRejected = errors.New("sample rejected by backend")

// rejectingEngine writes through the pack engine but refuses one sample of
// one property. The writer wrappers only intercept the calls that lead to
// that property.
type rejectingEngine struct {
	native.Engine
	prop   string
	sample int
}

func (e *rejectingEngine) Create(path string) (native.ArchiveWriter, error) {
	w, err := e.Engine.Create(path)
	if err != nil {
		return nil, err
	}
	return &rejectingArchive{ArchiveWriter: w, e: e}, nil
}

type rejectingArchive struct {
	native.ArchiveWriter
	e *rejectingEngine
}

func (w *rejectingArchive) Top() native.ObjectWriter {
	return &rejectingObject{ObjectWriter: w.ArchiveWriter.Top(), e: w.e}
}

type rejectingObject struct {
	native.ObjectWriter
	e *rejectingEngine
}

func (w *rejectingObject) CreateChild(name, metadata string) (native.ObjectWriter, error) {
	c, err := w.ObjectWriter.CreateChild(name, metadata)
	if err != nil {
		return nil, err
	}
	return &rejectingObject{ObjectWriter: c, e: w.e}, nil
}

func (w *rejectingObject) Properties() native.CompoundWriter {
	return &rejectingCompound{CompoundWriter: w.ObjectWriter.Properties(), e: w.e}
}

type rejectingCompound struct {
	native.CompoundWriter
	e *rejectingEngine
}

func (w *rejectingCompound) CreateCompound(name, metadata string) (native.CompoundWriter, error) {
	c, err := w.CompoundWriter.CreateCompound(name, metadata)
	if err != nil {
		return nil, err
	}
	return &rejectingCompound{CompoundWriter: c, e: w.e}, nil
}

func (w *rejectingCompound) CreateSimple(h native.PropertyHeader) (native.SimpleWriter, error) {
	s, err := w.CompoundWriter.CreateSimple(h)
	if err != nil || h.Name != w.e.prop {
		return s, err
	}
	return &rejectingSimple{SimpleWriter: s, e: w.e}, nil
}

type rejectingSimple struct {
	native.SimpleWriter
	e    *rejectingEngine
	next int
}

func (w *rejectingSimple) SetSample(sample any) error {
	i := w.next
	w.next++
	if i == w.e.sample {
		return errRejected
	}
	return w.SimpleWriter.SetSample(sample)
}

func TestArchiveBackendRejectsSample(t *testing.T) {
	build := func(t *testing.T, a *Archive) {
		t.Helper()
		o := NewObject("o")
		if err := topChildren(t, a).Set("o", o); err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"vals", "other"} {
			p := NewProperty(name)
			for i := range 3 {
				if err := p.AppendValue(float32(i)); err != nil {
					t.Fatal(err)
				}
			}
			if err := o.AddProperty(p); err != nil {
				t.Fatal(err)
			}
		}
	}
	engine := func() native.Engine {
		return &rejectingEngine{Engine: pack.NewEngine(), prop: "vals", sample: 1}
	}

	t.Run("report", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.abc")
		a := New(WithEngine(engine()), WithLogger(slog.New(slog.DiscardHandler)))
		build(t, a)
		mustWrite(t, a, path)

		errs := a.SaveErrors()
		if len(errs) != 1 {
			t.Fatalf("save errors = %v, want 1", errs)
		}
		if !errors.Is(errs[0], errRejected) {
			t.Errorf("save error = %v, want the backend rejection", errs[0])
		}
		if !strings.Contains(errs[0].Error(), "vals[1]") {
			t.Errorf("save error %q does not name the sample", errs[0])
		}

		b := mustOpen(t, path)
		o := mustFind(t, b, "/o")
		vals, err := mustProperty(t, o, "vals").Values()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]any{float32(0), float32(2)}, vals); diff != "" {
			t.Errorf("vals mismatch (-want +got):\n%s", diff)
		}
		if n := mustProperty(t, o, "other").NumSamples(); n != 3 {
			t.Errorf("other holds %d samples, want 3", n)
		}
	})

	t.Run("strict", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "strict.abc")
		a := New(WithEngine(engine()), WithSavePolicy(SaveStrict))
		build(t, a)
		if err := a.WriteToFile(path); !errors.Is(err, errRejected) {
			t.Fatalf("WriteToFile: err = %v, want the backend rejection", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("aborted archive exists: %v", err)
		}
		if len(a.SaveErrors()) != 0 {
			t.Errorf("strict write reported %v", a.SaveErrors())
		}
	})
}

func TestArchiveOpenErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing.abc")); !errors.Is(err, ErrOpen) {
		t.Errorf("missing file: err = %v, want ErrOpen", err)
	}

	junk := filepath.Join(dir, "junk.abc")
	if err := os.WriteFile(junk, []byte("not an archive at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(junk)
	if !errors.Is(err, ErrOpen) || !errors.Is(err, pack.ErrInvalidArchive) {
		t.Errorf("junk file: err = %v, want ErrOpen wrapping ErrInvalidArchive", err)
	}
}

func TestArchiveRefusesToOverwriteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.abc")
	a := New()
	buildScene(t, a)
	mustWrite(t, a, path)

	b := mustOpen(t, path)
	if err := b.WriteToFile(path); !errors.Is(err, ErrOverwriteSource) {
		t.Fatalf("WriteToFile(source): err = %v, want ErrOverwriteSource", err)
	}
}

func TestArchiveRewriteKeepsReadData(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.abc")
	second := filepath.Join(dir, "second.abc")
	a := New()
	buildScene(t, a)
	mustWrite(t, a, first)

	b := mustOpen(t, first)
	if err := mustFind(t, b, "/xf/mesh").SetName("body"); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, b, second)
	if errs := b.SaveErrors(); len(errs) != 0 {
		t.Fatalf("save errors: %v", errs)
	}

	c := mustOpen(t, second)
	if n := mustProperty(t, mustFind(t, c, "/xf/body"), "weights").NumSamples(); n != 2 {
		t.Errorf("weights holds %d samples, want 2", n)
	}
	if _, err := c.Find("/xf/mesh"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old name: err = %v, want ErrNotFound", err)
	}
}

func TestArchiveCloseInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.abc")
	a := New()
	buildScene(t, a)
	mustWrite(t, a, path)

	b, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	top := b.Top()
	if top.Archive() != b {
		t.Fatal("top does not point back at its archive")
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := top.Children(); !errors.Is(err, ErrClosed) {
		t.Errorf("Children after Close: err = %v, want ErrClosed", err)
	}
	if top.Archive() != nil {
		t.Error("top still points at a closed archive")
	}
	if _, err := b.Find("/xf"); !errors.Is(err, ErrClosed) {
		t.Errorf("Find after Close: err = %v, want ErrClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWrapResolvesParentLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.abc")
	a := New()
	buildScene(t, a)
	mustWrite(t, a, path)

	r, err := pack.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	root, err := r.Top()
	if err != nil {
		t.Fatal(err)
	}
	xfr, err := root.Child(0)
	if err != nil {
		t.Fatal(err)
	}
	meshr, err := xfr.Child(0)
	if err != nil {
		t.Fatal(err)
	}

	if k := Wrap(root).Kind(); k != KindTop {
		t.Errorf("root kind = %v, want Top", k)
	}
	mesh := Wrap(meshr)
	if mesh.Kind() != KindPolyMesh || mesh.Path() != "/xf/mesh" {
		t.Fatalf("wrapped %v at %q", mesh.Kind(), mesh.Path())
	}

	parent := mesh.Parent()
	if parent == nil {
		t.Fatal("wrapped mesh has no parent")
	}
	if parent.Kind() != KindXform {
		t.Errorf("parent kind = %v, want Xform", parent.Kind())
	}
	if mesh.Parent() != parent {
		t.Error("parent materialized twice")
	}
	got, err := parent.Child("mesh")
	if err != nil {
		t.Fatal(err)
	}
	if got != mesh {
		t.Error("parent does not hold the wrapped mesh")
	}
	if mesh.Path() != "/xf/mesh" {
		t.Errorf("path = %q after parent resolution", mesh.Path())
	}
}

func TestTypedViewsCheckKind(t *testing.T) {
	x := NewXform("x")
	if _, err := x.Mesh(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Mesh on xform: err = %v, want ErrKindMismatch", err)
	}
	if _, err := x.Camera(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Camera on xform: err = %v, want ErrKindMismatch", err)
	}

	v1, err := x.Xform()
	if err != nil {
		t.Fatal(err)
	}
	v2, err := x.Xform()
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Error("Xform view rebuilt")
	}

	pts := NewPoints("p")
	if _, err := pts.Mesh(); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Mesh on points: err = %v, want ErrKindMismatch", err)
	}
	g, err := pts.Geom()
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetPositions([]P3f{{-1, 0, 2}, {3, 1, -2}}, Index(0)); err != nil {
		t.Fatal(err)
	}
	bounds, err := g.SelfBounds(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if want := (Box3d{Min: V3d{-1, 0, -2}, Max: V3d{3, 1, 2}}); bounds != want {
		t.Errorf("bounds = %v, want %v", bounds, want)
	}

	mv, err := NewMaterial("m").Material()
	if err != nil {
		t.Fatal(err)
	}
	names, err := mv.Params()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("fresh material params = %v", names)
	}
	if err := mv.SetParam("roughness", float32(0.4), Index(0)); err != nil {
		t.Fatal(err)
	}
	v, err := mv.Param("roughness", Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if v != float32(0.4) {
		t.Errorf("roughness = %v, want 0.4", v)
	}
}

func TestGlobalMatrixStopsAtNonInheriting(t *testing.T) {
	kids := topChildren(t, New())
	outer, inner := NewXform("outer"), NewXform("inner")
	if err := kids.Set("outer", outer); err != nil {
		t.Fatal(err)
	}
	if err := outer.AddChild(inner); err != nil {
		t.Fatal(err)
	}
	leaf := NewPolyMesh("leaf")
	if err := inner.AddChild(leaf); err != nil {
		t.Fatal(err)
	}

	ov, err := outer.Xform()
	if err != nil {
		t.Fatal(err)
	}
	if err := ov.SetMatrix(Translate44d(V3d{10, 0, 0}), Index(0)); err != nil {
		t.Fatal(err)
	}
	iv, err := inner.Xform()
	if err != nil {
		t.Fatal(err)
	}
	if err := iv.SetMatrix(Translate44d(V3d{0, 1, 0}), Index(0)); err != nil {
		t.Fatal(err)
	}

	m, err := leaf.GlobalMatrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Translation(); got != (V3d{10, 1, 0}) {
		t.Errorf("inherited translation = %v, want {10 1 0}", got)
	}

	if err := iv.SetInherits(false); err != nil {
		t.Fatal(err)
	}
	m, err = leaf.GlobalMatrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Translation(); got != (V3d{0, 1, 0}) {
		t.Errorf("non-inheriting translation = %v, want {0 1 0}", got)
	}

	m, err = NewPoints("alone").GlobalMatrix(Index(0))
	if err != nil {
		t.Fatal(err)
	}
	if m != Identity44d() {
		t.Errorf("detached matrix = %v, want identity", m)
	}
}
