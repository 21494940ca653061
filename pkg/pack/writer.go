package pack

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/cask/pkg/native"
)

// TopName is the name of every archive's root object.
const TopName = "ABC"

type countedWriter struct {
	w io.Writer
	n uint64
}

func (cw *countedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

// Writer assembles an archive. Samples stream to a temp file as they are
// set; Close writes the index and renames the temp file into place.
type Writer struct {
	path    string
	tmp     *os.File
	buf     *bufio.Writer
	counter *countedWriter
	codec   *codec
	ix      *index
	blobs   map[Digest]uint64
	top     *ObjectWriter
	err     error
	closed  bool
}

// Create starts a new archive bound to path. Nothing appears at path until
// Close succeeds.
func Create(path string, opts ...Option) (*Writer, error) {
	o := buildOptions(opts)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pack create mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cask-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("pack create tmpfile: %w", err)
	}
	c, err := newEncoder(o.level)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("pack create: %w", err)
	}

	buf := bufio.NewWriter(tmp)
	w := &Writer{
		path:    path,
		tmp:     tmp,
		buf:     buf,
		counter: &countedWriter{w: buf},
		codec:   c,
		ix: &index{
			timeSamplings: []native.TimeSampling{native.IdentitySampling()},
			top:           newObjectRecord(TopName, ""),
		},
		blobs: make(map[Digest]uint64),
	}
	w.top = &ObjectWriter{w: w, rec: w.ix.top, fullName: "/"}

	if _, err := w.counter.Write(FileHeader{Version: supportedVersion}.Marshal()); err != nil {
		w.abort()
		return nil, fmt.Errorf("pack create: write header: %w", err)
	}
	return w, nil
}

// Path returns the destination path.
func (w *Writer) Path() string { return w.path }

// Top returns the root object writer.
func (w *Writer) Top() native.ObjectWriter { return w.top }

// AddTimeSampling registers ts, reusing the index of an equal sampling.
// The identity slot is never shared.
func (w *Writer) AddTimeSampling(ts native.TimeSampling) uint32 {
	for i := native.IdentityIndex + 1; i < len(w.ix.timeSamplings); i++ {
		if w.ix.timeSamplings[i].Equal(ts) {
			return uint32(i)
		}
	}
	w.ix.timeSamplings = append(w.ix.timeSamplings, ts)
	return uint32(len(w.ix.timeSamplings) - 1)
}

// writeEntry appends one entry and returns its offset.
func (w *Writer) writeEntry(kind EntryKind, raw []byte) (uint64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}
	offset := w.counter.n
	compressed := w.codec.compress(raw)
	prefix := marshalEntryPrefix(kind, uint64(len(raw)), uint64(len(compressed)), DigestOf(kind, raw))
	if _, err := w.counter.Write(prefix); err != nil {
		w.err = fmt.Errorf("write %s entry header: %w", kind, err)
		return 0, w.err
	}
	if _, err := w.counter.Write(compressed); err != nil {
		w.err = fmt.Errorf("write %s entry payload: %w", kind, err)
		return 0, w.err
	}
	return offset, nil
}

// writeSample stores one encoded sample, reusing an identical earlier one.
func (w *Writer) writeSample(raw []byte) (uint64, error) {
	d := DigestOf(EntrySample, raw)
	if off, ok := w.blobs[d]; ok {
		return off, nil
	}
	off, err := w.writeEntry(EntrySample, raw)
	if err != nil {
		return 0, err
	}
	w.blobs[d] = off
	return off, nil
}

// Close writes the index and trailer, then atomically moves the archive to
// its destination. A writer that hit an I/O error discards the temp file and
// returns that error.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if w.err != nil {
		w.abort()
		return w.err
	}

	w.ix.collectMaxSamples()
	indexOffset, err := w.writeEntry(EntryIndex, marshalIndex(w.ix))
	if err != nil {
		w.abort()
		return fmt.Errorf("pack close: %w", err)
	}
	if _, err := w.counter.Write(marshalTrailer(indexOffset)); err != nil {
		w.abort()
		return fmt.Errorf("pack close: write trailer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return fmt.Errorf("pack close: flush: %w", err)
	}
	tmpName := w.tmp.Name()
	if err := w.tmp.Close(); err != nil {
		os.Remove(tmpName)
		w.finish()
		return fmt.Errorf("pack close: %w", err)
	}
	w.finish()
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("pack close: rename: %w", err)
	}
	return nil
}

// Abort discards the archive. Nothing appears at the destination.
func (w *Writer) Abort() error {
	if w.closed {
		return ErrClosed
	}
	w.abort()
	return nil
}

func (w *Writer) abort() {
	if w.closed {
		return
	}
	tmpName := w.tmp.Name()
	w.tmp.Close()
	os.Remove(tmpName)
	w.finish()
}

func (w *Writer) finish() {
	w.closed = true
	w.codec.close()
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Object and property writers
// ---------------------------------------------------------------------------

// ObjectWriter is the write handle of one object.
type ObjectWriter struct {
	w        *Writer
	rec      *objectRecord
	fullName string
	props    *CompoundWriter
}

// Name returns the object name.
func (o *ObjectWriter) Name() string { return o.rec.name }

// FullName returns the slash-separated path from the root.
func (o *ObjectWriter) FullName() string { return o.fullName }

// CreateChild adds a child object.
func (o *ObjectWriter) CreateChild(name, metadata string) (native.ObjectWriter, error) {
	if o.w.closed {
		return nil, ErrClosed
	}
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("create child of %s: %w", o.fullName, err)
	}
	if o.rec.child(name) != nil {
		return nil, fmt.Errorf("create child of %s: %w: %q", o.fullName, ErrDuplicateName, name)
	}
	rec := newObjectRecord(name, metadata)
	o.rec.children = append(o.rec.children, rec)
	return &ObjectWriter{w: o.w, rec: rec, fullName: joinPath(o.fullName, name)}, nil
}

// Properties returns the object's top compound property writer.
func (o *ObjectWriter) Properties() native.CompoundWriter {
	if o.props == nil {
		o.props = &CompoundWriter{w: o.w, rec: o.rec.props, fullName: o.fullName}
	}
	return o.props
}

// CompoundWriter creates sub-properties under a compound property.
type CompoundWriter struct {
	w        *Writer
	rec      *propertyRecord
	fullName string
}

// Name returns the property name; empty for an object's top compound.
func (c *CompoundWriter) Name() string { return c.rec.header.Name }

func (c *CompoundWriter) add(h native.PropertyHeader) (*propertyRecord, error) {
	if c.w.closed {
		return nil, ErrClosed
	}
	if err := validName(h.Name); err != nil {
		return nil, fmt.Errorf("create property under %s: %w", c.fullName, err)
	}
	if c.rec.property(h.Name) != nil {
		return nil, fmt.Errorf("create property under %s: %w: %q", c.fullName, ErrDuplicateName, h.Name)
	}
	if int(h.TimeSamplingIndex) >= len(c.w.ix.timeSamplings) {
		return nil, fmt.Errorf("create property %s: %w: time sampling %d", h.Name, ErrOutOfRange, h.TimeSamplingIndex)
	}
	rec := &propertyRecord{header: h}
	c.rec.props = append(c.rec.props, rec)
	return rec, nil
}

// CreateCompound adds a compound sub-property.
func (c *CompoundWriter) CreateCompound(name, metadata string) (native.CompoundWriter, error) {
	rec, err := c.add(native.PropertyHeader{Name: name, Type: native.Compound, MetaData: metadata})
	if err != nil {
		return nil, err
	}
	return &CompoundWriter{w: c.w, rec: rec, fullName: joinPath(c.fullName, name)}, nil
}

// CreateSimple adds a scalar or array sub-property.
func (c *CompoundWriter) CreateSimple(h native.PropertyHeader) (native.SimpleWriter, error) {
	if h.Type != native.Scalar && h.Type != native.Array {
		return nil, fmt.Errorf("create property %s: %w: type %s", h.Name, native.ErrSampleType, h.Type)
	}
	if h.DataType.POD == native.PODUnknown {
		return nil, fmt.Errorf("create property %s: %w: unknown POD", h.Name, native.ErrSampleType)
	}
	if h.DataType.Extent == 0 {
		h.DataType.Extent = 1
	}
	rec, err := c.add(h)
	if err != nil {
		return nil, err
	}
	return &SimpleWriter{w: c.w, rec: rec}, nil
}

// SimpleWriter appends samples to a scalar or array property.
type SimpleWriter struct {
	w   *Writer
	rec *propertyRecord
}

// Header returns the property header.
func (s *SimpleWriter) Header() native.PropertyHeader { return s.rec.header }

// NumSamples returns the number of samples set so far.
func (s *SimpleWriter) NumSamples() int { return len(s.rec.samples) }

// SetSample appends one sample.
func (s *SimpleWriter) SetSample(sample any) error {
	if err := native.CheckSample(s.rec.header, sample); err != nil {
		return err
	}
	raw, err := encodeSample(sample)
	if err != nil {
		return err
	}
	off, err := s.w.writeSample(raw)
	if err != nil {
		return fmt.Errorf("set sample %d of %s: %w", len(s.rec.samples), s.rec.header.Name, err)
	}
	s.rec.samples = append(s.rec.samples, off)
	return nil
}

func joinPath(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}
