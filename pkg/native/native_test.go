package native

import (
	"errors"
	"math"
	"testing"
)

func TestMetaDataRoundTrip(t *testing.T) {
	md := ParseMetaData("schema=AbcGeom_Xform_v3;schemaObjTitle=AbcGeom_Xform_v3:.xform;;broken;=x")
	if len(md) != 2 {
		t.Fatalf("expected 2 keys, got %v", md)
	}
	if !md.Matches("AbcGeom_Xform_v3") {
		t.Error("Matches should report the declared schema")
	}
	if md.Matches("") || md.Matches("AbcGeom_PolyMesh_v1") {
		t.Error("Matches should reject other schemas")
	}
	want := "schema=AbcGeom_Xform_v3;schemaObjTitle=AbcGeom_Xform_v3:.xform"
	if got := md.String(); got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
	if got := (MetaData{}).String(); got != "" {
		t.Errorf("empty String: got %q", got)
	}
}

func TestMetaDataEscapesSeparators(t *testing.T) {
	md := MetaData{
		"label":   "a;b=c",
		"path":    `C:\shots\010`,
		"k=v;x":   "plain",
		"empty":   "",
		"trailer": `ends\`,
	}
	s := md.String()
	back := ParseMetaData(s)
	if len(back) != len(md) {
		t.Fatalf("parsed %d keys from %q, want %d", len(back), s, len(md))
	}
	for k, v := range md {
		if back[k] != v {
			t.Errorf("key %q: got %q, want %q", k, back[k], v)
		}
	}
	if got := ParseMetaData(`a=x\;y;b=2`); got["a"] != "x;y" || got["b"] != "2" {
		t.Errorf("escaped separator: got %v", got)
	}
}

func TestTimeSamplingSampleTime(t *testing.T) {
	tests := []struct {
		name string
		ts   TimeSampling
		i    int
		want float64
	}{
		{name: "identity", ts: IdentitySampling(), i: 5, want: 5},
		{name: "uniform", ts: UniformSampling(0.5, 10), i: 3, want: 11.5},
		{name: "cyclic first cycle", ts: CyclicSampling(1, []float64{0, 0.25}), i: 1, want: 0.25},
		{name: "cyclic later cycle", ts: CyclicSampling(1, []float64{0, 0.25}), i: 5, want: 2.25},
		{name: "acyclic", ts: AcyclicSampling([]float64{0, 1, 4}), i: 2, want: 4},
		{name: "acyclic past end", ts: AcyclicSampling([]float64{0, 1, 4}), i: 10, want: 4},
		{name: "negative index", ts: UniformSampling(1, 3), i: -2, want: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ts.SampleTime(tc.i); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("SampleTime(%d): got %g, want %g", tc.i, got, tc.want)
			}
		})
	}
}

func TestTimeSamplingShiftAndEqual(t *testing.T) {
	ts := UniformSampling(1.0/24, 0)
	shifted := ts.Shift(1)
	if shifted.SampleTime(0) != 1 || ts.SampleTime(0) != 0 {
		t.Fatal("Shift must copy rather than mutate")
	}
	if ts.Equal(shifted) {
		t.Error("shifted sampling should differ")
	}
	if !AcyclicSampling([]float64{1, 2}).Equal(AcyclicSampling([]float64{1, 2})) {
		t.Error("equal acyclic samplings should compare equal")
	}
}

func TestCheckSample(t *testing.T) {
	scalar := PropertyHeader{Name: "s", Type: Scalar, DataType: DataType{POD: PODFloat32, Extent: 3}}
	array := PropertyHeader{Name: "a", Type: Array, DataType: DataType{POD: PODInt32, Extent: 2}}

	if err := CheckSample(scalar, []float32{1, 2, 3}); err != nil {
		t.Errorf("valid scalar: %v", err)
	}
	if err := CheckSample(scalar, []float32{1, 2}); !errors.Is(err, ErrSampleExtent) {
		t.Errorf("short scalar: got %v", err)
	}
	if err := CheckSample(scalar, []float64{1, 2, 3}); !errors.Is(err, ErrSampleType) {
		t.Errorf("wrong pod: got %v", err)
	}
	if err := CheckSample(array, []int32{}); err != nil {
		t.Errorf("empty array: %v", err)
	}
	if err := CheckSample(array, []int32{1, 2, 3}); !errors.Is(err, ErrSampleExtent) {
		t.Errorf("ragged array: got %v", err)
	}
	if err := CheckSample(PropertyHeader{Type: Compound}, []int32{1}); !errors.Is(err, ErrSampleType) {
		t.Errorf("compound: got %v", err)
	}
}
