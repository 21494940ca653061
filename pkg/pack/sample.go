package pack

import (
	"encoding/binary"
	"fmt"

	"github.com/odvcencio/cask/pkg/native"
)

// encodeSample serializes a flat sample slice. Fixed-width PODs are stored
// little-endian back to back; strings are a count followed by
// length-prefixed bytes.
func encodeSample(sample any) ([]byte, error) {
	if s, ok := sample.([]string); ok {
		out := binary.AppendUvarint(nil, uint64(len(s)))
		for _, v := range s {
			out = binary.AppendUvarint(out, uint64(len(v)))
			out = append(out, v...)
		}
		return out, nil
	}
	if native.PODOf(sample) == native.PODUnknown {
		return nil, fmt.Errorf("%w: unsupported sample type %T", native.ErrSampleType, sample)
	}
	return binary.Append(nil, binary.LittleEndian, sample)
}

// decodeSample is the inverse of encodeSample for the given POD.
func decodeSample(pod native.PODType, data []byte) (any, error) {
	if pod == native.PODString {
		return decodeStrings(data)
	}
	size := pod.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: cannot decode %s samples", ErrCorruptEntry, pod)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s values", ErrCorruptEntry, len(data), pod)
	}
	n := len(data) / size

	var out any
	switch pod {
	case native.PODBool:
		out = make([]bool, n)
	case native.PODUint8:
		out = make([]uint8, n)
	case native.PODInt8:
		out = make([]int8, n)
	case native.PODUint16:
		out = make([]uint16, n)
	case native.PODInt16:
		out = make([]int16, n)
	case native.PODUint32:
		out = make([]uint32, n)
	case native.PODInt32:
		out = make([]int32, n)
	case native.PODUint64:
		out = make([]uint64, n)
	case native.PODInt64:
		out = make([]int64, n)
	case native.PODFloat32:
		out = make([]float32, n)
	case native.PODFloat64:
		out = make([]float64, n)
	}
	if n == 0 {
		return out, nil
	}
	if _, err := binary.Decode(data, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return out, nil
}

func decodeStrings(data []byte) ([]string, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad string count", ErrCorruptEntry)
	}
	off := n
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: string count %d exceeds payload", ErrCorruptEntry, count)
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		l, m := binary.Uvarint(data[off:])
		if m <= 0 {
			return nil, fmt.Errorf("%w: bad string length at %d", ErrCorruptEntry, i)
		}
		off += m
		if uint64(len(data)-off) < l {
			return nil, fmt.Errorf("%w: string %d truncated", ErrCorruptEntry, i)
		}
		out = append(out, string(data[off:off+int(l)]))
		off += int(l)
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after strings", ErrCorruptEntry, len(data)-off)
	}
	return out, nil
}
