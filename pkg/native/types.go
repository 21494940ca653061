package native

import (
	"errors"
	"fmt"
)

// PODType is the plain-old-data element type of a property sample.
type PODType uint8

const (
	PODUnknown PODType = iota
	PODBool
	PODUint8
	PODInt8
	PODUint16
	PODInt16
	PODUint32
	PODInt32
	PODUint64
	PODInt64
	PODFloat32
	PODFloat64
	PODString
)

var podNames = [...]string{
	PODUnknown: "unknown",
	PODBool:    "bool",
	PODUint8:   "uint8",
	PODInt8:    "int8",
	PODUint16:  "uint16",
	PODInt16:   "int16",
	PODUint32:  "uint32",
	PODInt32:   "int32",
	PODUint64:  "uint64",
	PODInt64:   "int64",
	PODFloat32: "float32",
	PODFloat64: "float64",
	PODString:  "string",
}

func (p PODType) String() string {
	if int(p) < len(podNames) {
		return podNames[p]
	}
	return fmt.Sprintf("pod(%d)", uint8(p))
}

// Size returns the encoded width of one element, or 0 for variable-width
// types.
func (p PODType) Size() int {
	switch p {
	case PODBool, PODUint8, PODInt8:
		return 1
	case PODUint16, PODInt16:
		return 2
	case PODUint32, PODInt32, PODFloat32:
		return 4
	case PODUint64, PODInt64, PODFloat64:
		return 8
	default:
		return 0
	}
}

// PODOf reports the POD type matching a flat sample slice.
func PODOf(sample any) PODType {
	switch sample.(type) {
	case []bool:
		return PODBool
	case []uint8:
		return PODUint8
	case []int8:
		return PODInt8
	case []uint16:
		return PODUint16
	case []int16:
		return PODInt16
	case []uint32:
		return PODUint32
	case []int32:
		return PODInt32
	case []uint64:
		return PODUint64
	case []int64:
		return PODInt64
	case []float32:
		return PODFloat32
	case []float64:
		return PODFloat64
	case []string:
		return PODString
	default:
		return PODUnknown
	}
}

// SampleLen returns the element count of a flat sample slice, or -1 when the
// value is not a supported slice type.
func SampleLen(sample any) int {
	switch s := sample.(type) {
	case []bool:
		return len(s)
	case []uint8:
		return len(s)
	case []int8:
		return len(s)
	case []uint16:
		return len(s)
	case []int16:
		return len(s)
	case []uint32:
		return len(s)
	case []int32:
		return len(s)
	case []uint64:
		return len(s)
	case []int64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	case []string:
		return len(s)
	default:
		return -1
	}
}

// DataType is a POD type together with the number of PODs per logical
// element, e.g. float32 x 3 for a vector.
type DataType struct {
	POD    PODType
	Extent uint8
}

func (d DataType) String() string {
	if d.Extent <= 1 {
		return d.POD.String()
	}
	return fmt.Sprintf("%s[%d]", d.POD, d.Extent)
}

// PropertyType distinguishes compound properties from the two simple kinds.
type PropertyType uint8

const (
	Compound PropertyType = iota
	Scalar
	Array
)

func (t PropertyType) String() string {
	switch t {
	case Compound:
		return "compound"
	case Scalar:
		return "scalar"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("ptype(%d)", uint8(t))
	}
}

// PropertyHeader describes a property independent of its samples.
type PropertyHeader struct {
	Name              string
	Type              PropertyType
	DataType          DataType
	MetaData          string
	TimeSamplingIndex uint32
}

var (
	// ErrSampleType indicates a sample slice whose element type does not match
	// the property's POD.
	ErrSampleType = errors.New("native: sample type mismatch")

	// ErrSampleExtent indicates a sample whose length does not fit the
	// property's extent.
	ErrSampleExtent = errors.New("native: sample extent mismatch")
)

// CheckSample validates a flat sample against a simple property header.
func CheckSample(h PropertyHeader, sample any) error {
	pod := PODOf(sample)
	if pod != h.DataType.POD {
		return fmt.Errorf("%w: property %q wants %s, got %T", ErrSampleType, h.Name, h.DataType.POD, sample)
	}
	extent := int(h.DataType.Extent)
	if extent < 1 {
		extent = 1
	}
	n := SampleLen(sample)
	switch h.Type {
	case Scalar:
		if n != extent {
			return fmt.Errorf("%w: scalar property %q wants %d elements, got %d", ErrSampleExtent, h.Name, extent, n)
		}
	case Array:
		if n%extent != 0 {
			return fmt.Errorf("%w: array property %q wants a multiple of %d elements, got %d", ErrSampleExtent, h.Name, extent, n)
		}
	default:
		return fmt.Errorf("%w: property %q is compound", ErrSampleType, h.Name)
	}
	return nil
}
