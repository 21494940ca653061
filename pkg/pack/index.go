package pack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/odvcencio/cask/pkg/native"
)

// objectRecord is one hierarchy node as stored in the index.
type objectRecord struct {
	name     string
	metadata string
	props    *propertyRecord
	children []*objectRecord
}

// propertyRecord is one property as stored in the index. Simple properties
// list the entry offset of each sample.
type propertyRecord struct {
	header  native.PropertyHeader
	props   []*propertyRecord
	samples []uint64
}

func newObjectRecord(name, metadata string) *objectRecord {
	return &objectRecord{
		name:     name,
		metadata: metadata,
		props:    &propertyRecord{header: native.PropertyHeader{Type: native.Compound}},
	}
}

func (o *objectRecord) child(name string) *objectRecord {
	for _, c := range o.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (p *propertyRecord) property(name string) *propertyRecord {
	for _, c := range p.props {
		if c.header.Name == name {
			return c
		}
	}
	return nil
}

// index is the decoded content of the index entry.
type index struct {
	timeSamplings []native.TimeSampling
	maxSamples    []uint32
	top           *objectRecord
}

// collectMaxSamples recomputes maxSamples from the tree.
func (ix *index) collectMaxSamples() {
	ix.maxSamples = make([]uint32, len(ix.timeSamplings))
	var walkProp func(p *propertyRecord)
	walkProp = func(p *propertyRecord) {
		if p.header.Type == native.Compound {
			for _, c := range p.props {
				walkProp(c)
			}
			return
		}
		i := p.header.TimeSamplingIndex
		if int(i) < len(ix.maxSamples) && uint32(len(p.samples)) > ix.maxSamples[i] {
			ix.maxSamples[i] = uint32(len(p.samples))
		}
	}
	var walkObj func(o *objectRecord)
	walkObj = func(o *objectRecord) {
		walkProp(o.props)
		for _, c := range o.children {
			walkObj(c)
		}
	}
	walkObj(ix.top)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type indexEncoder struct {
	buf []byte
}

func (e *indexEncoder) uvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *indexEncoder) putByte(b byte)   { e.buf = append(e.buf, b) }
func (e *indexEncoder) float(f float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(f))
}
func (e *indexEncoder) str(s string) {
	e.uvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// marshalIndex serializes the index:
//
//	count, then per time sampling: type, time per cycle, count, times
//	max sample count per time sampling
//	top object
//
// An object is its name, metadata, top compound property and children. A
// property is its header followed by sub-properties (compound) or sample
// offsets (simple).
func marshalIndex(ix *index) []byte {
	e := &indexEncoder{}
	e.uvarint(uint64(len(ix.timeSamplings)))
	for _, ts := range ix.timeSamplings {
		e.putByte(byte(ts.Type))
		e.float(ts.TimePerCycle)
		e.uvarint(uint64(len(ts.Times)))
		for _, t := range ts.Times {
			e.float(t)
		}
	}
	for _, n := range ix.maxSamples {
		e.uvarint(uint64(n))
	}
	e.object(ix.top)
	return e.buf
}

func (e *indexEncoder) object(o *objectRecord) {
	e.str(o.name)
	e.str(o.metadata)
	e.property(o.props)
	e.uvarint(uint64(len(o.children)))
	for _, c := range o.children {
		e.object(c)
	}
}

func (e *indexEncoder) property(p *propertyRecord) {
	h := p.header
	e.str(h.Name)
	e.putByte(byte(h.Type))
	e.putByte(byte(h.DataType.POD))
	e.putByte(h.DataType.Extent)
	e.str(h.MetaData)
	e.uvarint(uint64(h.TimeSamplingIndex))
	if h.Type == native.Compound {
		e.uvarint(uint64(len(p.props)))
		for _, c := range p.props {
			e.property(c)
		}
		return
	}
	e.uvarint(uint64(len(p.samples)))
	for _, off := range p.samples {
		e.uvarint(off)
	}
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

type indexDecoder struct {
	data []byte
	off  int
	err  error
}

func (d *indexDecoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: index: %s at byte %d", ErrCorruptEntry, fmt.Sprintf(format, args...), d.off)
	}
}

func (d *indexDecoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.data[d.off:])
	if n <= 0 {
		d.fail("bad varint")
		return 0
	}
	d.off += n
	return v
}

// count reads a length prefix and rejects values that cannot fit in the
// remaining payload.
func (d *indexDecoder) count() int {
	v := d.uvarint()
	if v > uint64(len(d.data)-d.off) {
		d.fail("count %d exceeds payload", v)
		return 0
	}
	return int(v)
}

func (d *indexDecoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if d.off >= len(d.data) {
		d.fail("truncated")
		return 0
	}
	b := d.data[d.off]
	d.off++
	return b
}

func (d *indexDecoder) float() float64 {
	if d.err != nil {
		return 0
	}
	if len(d.data)-d.off < 8 {
		d.fail("truncated float")
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.off:]))
	d.off += 8
	return v
}

func (d *indexDecoder) str() string {
	n := d.count()
	if d.err != nil {
		return ""
	}
	s := string(d.data[d.off : d.off+n])
	d.off += n
	return s
}

func unmarshalIndex(data []byte) (*index, error) {
	d := &indexDecoder{data: data}
	ix := &index{}
	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		ts := native.TimeSampling{
			Type:         native.TimeSamplingType(d.readByte()),
			TimePerCycle: d.float(),
		}
		nt := d.count()
		for j := 0; j < nt && d.err == nil; j++ {
			ts.Times = append(ts.Times, d.float())
		}
		ix.timeSamplings = append(ix.timeSamplings, ts)
	}
	for range ix.timeSamplings {
		ix.maxSamples = append(ix.maxSamples, uint32(d.uvarint()))
	}
	ix.top = d.object()
	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(data) {
		return nil, fmt.Errorf("%w: index: %d trailing bytes", ErrCorruptEntry, len(data)-d.off)
	}
	if len(ix.timeSamplings) == 0 {
		return nil, fmt.Errorf("%w: index: no time samplings", ErrCorruptEntry)
	}
	return ix, nil
}

func (d *indexDecoder) object() *objectRecord {
	o := &objectRecord{name: d.str(), metadata: d.str()}
	o.props = d.property()
	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		o.children = append(o.children, d.object())
	}
	return o
}

func (d *indexDecoder) property() *propertyRecord {
	p := &propertyRecord{}
	p.header.Name = d.str()
	p.header.Type = native.PropertyType(d.readByte())
	p.header.DataType.POD = native.PODType(d.readByte())
	p.header.DataType.Extent = d.readByte()
	p.header.MetaData = d.str()
	p.header.TimeSamplingIndex = uint32(d.uvarint())
	if d.err != nil {
		return p
	}
	switch p.header.Type {
	case native.Compound:
		n := d.count()
		for i := 0; i < n && d.err == nil; i++ {
			p.props = append(p.props, d.property())
		}
	case native.Scalar, native.Array:
		n := d.count()
		for i := 0; i < n && d.err == nil; i++ {
			p.samples = append(p.samples, d.uvarint())
		}
	default:
		d.fail("unknown property type %d", p.header.Type)
	}
	return p
}
