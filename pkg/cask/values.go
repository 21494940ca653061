package cask

import (
	"fmt"

	"github.com/odvcencio/cask/pkg/native"
)

// Vector and matrix value types. Each maps to one value class; the same
// memory layout under different names carries a different interpretation.
type (
	V2f   [2]float32
	V3f   [3]float32
	P3f   [3]float32
	N3f   [3]float32
	V3d   [3]float64
	C3f   [3]float32
	Quatf [4]float32
	Box3d struct{ Min, Max V3d }
	M44d  [4][4]float64
)

// Identity44d returns the 4x4 identity matrix.
func Identity44d() M44d {
	return M44d{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Mul returns m × n. Points transform as row vectors, so a child's world
// matrix is its local matrix multiplied by its parent's world matrix.
func (m M44d) Mul(n M44d) M44d {
	var out M44d
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Translation returns the translation row of m.
func (m M44d) Translation() V3d {
	return V3d{m[3][0], m[3][1], m[3][2]}
}

// Translate44d returns a matrix translating by t.
func Translate44d(t V3d) M44d {
	m := Identity44d()
	m[3][0], m[3][1], m[3][2] = t[0], t[1], t[2]
	return m
}

// Class is the concrete value class of a simple property: its native
// shape and the Go type of its values.
type Class struct {
	Name           string
	Type           native.PropertyType
	DataType       native.DataType
	Interpretation string

	goType string
	match  func(v any) bool
	encode func(v any) (any, error)
	decode func(flat any) (any, error)
}

func (c *Class) String() string { return c.Name }

// IsArray reports whether values are variable-length arrays.
func (c *Class) IsArray() bool { return c.Type == native.Array }

// Encode converts a Go value to a flat native sample.
func (c *Class) Encode(v any) (any, error) {
	if !c.match(v) {
		return nil, fmt.Errorf("%w: %s wants %s, got %T", ErrValueType, c.Name, c.goType, v)
	}
	return c.encode(v)
}

// Decode converts a flat native sample to a Go value.
func (c *Class) Decode(flat any) (any, error) {
	return c.decode(flat)
}

type pod interface {
	~bool | ~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 |
		~uint64 | ~int64 | ~float32 | ~float64 | ~string
}

func flatAs[T pod](c string, flat any, extent int, scalar bool) ([]T, error) {
	s, ok := flat.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: %s sample has type %T", ErrValueType, c, flat)
	}
	if scalar && len(s) != extent {
		return nil, fmt.Errorf("%w: %s sample has %d elements, want %d", ErrValueType, c, len(s), extent)
	}
	if !scalar && len(s)%extent != 0 {
		return nil, fmt.Errorf("%w: %s sample has %d elements, not a multiple of %d", ErrValueType, c, len(s), extent)
	}
	return s, nil
}

// podClasses returns the scalar and array classes of a plain POD.
func podClasses[T pod](name string, p native.PODType) []*Class {
	dt := native.DataType{POD: p, Extent: 1}
	scalar := &Class{
		Name: name, Type: native.Scalar, DataType: dt, goType: fmt.Sprintf("%T", *new(T)),
		match:  func(v any) bool { _, ok := v.(T); return ok },
		encode: func(v any) (any, error) { return []T{v.(T)}, nil },
	}
	scalar.decode = func(flat any) (any, error) {
		s, err := flatAs[T](scalar.Name, flat, 1, true)
		if err != nil {
			return nil, err
		}
		return s[0], nil
	}
	array := &Class{
		Name: name + "Array", Type: native.Array, DataType: dt, goType: fmt.Sprintf("%T", []T(nil)),
		match: func(v any) bool { _, ok := v.([]T); return ok },
		encode: func(v any) (any, error) {
			return append([]T(nil), v.([]T)...), nil
		},
	}
	array.decode = func(flat any) (any, error) {
		s, err := flatAs[T](array.Name, flat, 1, false)
		if err != nil {
			return nil, err
		}
		return append([]T{}, s...), nil
	}
	return []*Class{scalar, array}
}

// tupleClasses returns the scalar and array classes of a fixed-size tuple
// type V made of extent elements of T.
func tupleClasses[T pod, V any](name string, p native.PODType, extent int, interp string,
	flatten func(V) []T, build func([]T) V) []*Class {
	dt := native.DataType{POD: p, Extent: uint8(extent)}
	scalar := &Class{
		Name: name, Type: native.Scalar, DataType: dt, Interpretation: interp,
		goType: fmt.Sprintf("%T", *new(V)),
		match:  func(v any) bool { _, ok := v.(V); return ok },
		encode: func(v any) (any, error) { return flatten(v.(V)), nil },
	}
	scalar.decode = func(flat any) (any, error) {
		s, err := flatAs[T](scalar.Name, flat, extent, true)
		if err != nil {
			return nil, err
		}
		return build(s), nil
	}
	array := &Class{
		Name: name + "Array", Type: native.Array, DataType: dt, Interpretation: interp,
		goType: fmt.Sprintf("%T", []V(nil)),
		match:  func(v any) bool { _, ok := v.([]V); return ok },
		encode: func(v any) (any, error) {
			vs := v.([]V)
			out := make([]T, 0, len(vs)*extent)
			for _, e := range vs {
				out = append(out, flatten(e)...)
			}
			return out, nil
		},
	}
	array.decode = func(flat any) (any, error) {
		s, err := flatAs[T](array.Name, flat, extent, false)
		if err != nil {
			return nil, err
		}
		out := make([]V, 0, len(s)/extent)
		for i := 0; i < len(s); i += extent {
			out = append(out, build(s[i:i+extent]))
		}
		return out, nil
	}
	return []*Class{scalar, array}
}

func m44dFlat(m M44d) []float64 {
	out := make([]float64, 0, 16)
	for _, row := range m {
		out = append(out, row[:]...)
	}
	return out
}

func m44dBuild(s []float64) M44d {
	var m M44d
	for i := range m {
		copy(m[i][:], s[i*4:i*4+4])
	}
	return m
}

// classes is the fixed value class registry. Lookups return the first
// match, so a plain class precedes interpreted ones sharing its layout.
var classes = func() []*Class {
	var cs []*Class
	cs = append(cs, podClasses[bool]("Bool", native.PODBool)...)
	cs = append(cs, podClasses[uint8]("Uchar", native.PODUint8)...)
	cs = append(cs, podClasses[int8]("Char", native.PODInt8)...)
	cs = append(cs, podClasses[uint16]("Uint16", native.PODUint16)...)
	cs = append(cs, podClasses[int16]("Int16", native.PODInt16)...)
	cs = append(cs, podClasses[uint32]("Uint32", native.PODUint32)...)
	cs = append(cs, podClasses[int32]("Int32", native.PODInt32)...)
	cs = append(cs, podClasses[uint64]("Uint64", native.PODUint64)...)
	cs = append(cs, podClasses[int64]("Int64", native.PODInt64)...)
	cs = append(cs, podClasses[float32]("Float", native.PODFloat32)...)
	cs = append(cs, podClasses[float64]("Double", native.PODFloat64)...)
	cs = append(cs, podClasses[string]("String", native.PODString)...)

	cs = append(cs, tupleClasses("V2f", native.PODFloat32, 2, "vector",
		func(v V2f) []float32 { return v[:] }, func(s []float32) V2f { return V2f(s) })...)
	cs = append(cs, tupleClasses("V3f", native.PODFloat32, 3, "vector",
		func(v V3f) []float32 { return v[:] }, func(s []float32) V3f { return V3f(s) })...)
	cs = append(cs, tupleClasses("P3f", native.PODFloat32, 3, "point",
		func(v P3f) []float32 { return v[:] }, func(s []float32) P3f { return P3f(s) })...)
	cs = append(cs, tupleClasses("N3f", native.PODFloat32, 3, "normal",
		func(v N3f) []float32 { return v[:] }, func(s []float32) N3f { return N3f(s) })...)
	cs = append(cs, tupleClasses("C3f", native.PODFloat32, 3, "rgb",
		func(v C3f) []float32 { return v[:] }, func(s []float32) C3f { return C3f(s) })...)
	cs = append(cs, tupleClasses("V3d", native.PODFloat64, 3, "vector",
		func(v V3d) []float64 { return v[:] }, func(s []float64) V3d { return V3d(s) })...)
	cs = append(cs, tupleClasses("Quatf", native.PODFloat32, 4, "quat",
		func(v Quatf) []float32 { return v[:] }, func(s []float32) Quatf { return Quatf(s) })...)
	cs = append(cs, tupleClasses("Box3d", native.PODFloat64, 6, "box",
		func(b Box3d) []float64 { return []float64{b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2]} },
		func(s []float64) Box3d { return Box3d{Min: V3d(s[0:3]), Max: V3d(s[3:6])} })...)
	cs = append(cs, tupleClasses("M44d", native.PODFloat64, 16, "matrix", m44dFlat, m44dBuild)...)
	return cs
}()

// ClassByName returns the registered class with the given name.
func ClassByName(name string) (*Class, error) {
	for _, c := range classes {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no class named %q", ErrUnknownPropertyType, name)
}

// classForHeader resolves a class from a native header. An exact
// interpretation match wins; otherwise the first class with the same shape.
func classForHeader(h native.PropertyHeader) (*Class, error) {
	extent := h.DataType.Extent
	if extent == 0 {
		extent = 1
	}
	interp := native.ParseMetaData(h.MetaData)[native.KeyInterpretation]
	var fallback *Class
	for _, c := range classes {
		if c.Type != h.Type || c.DataType.POD != h.DataType.POD || c.DataType.Extent != extent {
			continue
		}
		if c.Interpretation == interp {
			return c, nil
		}
		if fallback == nil {
			fallback = c
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrUnknownPropertyType, h.Type, h.DataType)
	}
	return fallback, nil
}

// classForValue resolves a class from the Go type of v.
func classForValue(v any) (*Class, error) {
	for _, c := range classes {
		if c.match(v) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownPropertyType, v)
}
