package pack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/odvcencio/cask/pkg/native"
)

// Reader is the read handle of an archive on disk. The index is decoded on
// Open; sample payloads are read and verified on demand.
type Reader struct {
	path  string
	f     *os.File
	size  int64
	codec *codec
	cache *blobCache
	ix    *index
	top   *ObjectReader
}

// Open binds a reader to the archive at path.
func Open(path string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pack open: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pack open: %w", err)
	}
	if st.IsDir() {
		f.Close()
		return nil, fmt.Errorf("pack open %s: %w: is a directory", path, ErrInvalidArchive)
	}
	c, err := newDecoder()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pack open: %w", err)
	}

	r := &Reader{path: path, f: f, size: st.Size(), codec: c, cache: newBlobCache(o.cacheSize)}
	if err := r.load(); err != nil {
		r.Close()
		return nil, fmt.Errorf("pack open %s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load() error {
	if r.size < headerSize+trailerSize {
		return fmt.Errorf("%w: file too short (%d bytes)", ErrInvalidArchive, r.size)
	}
	head := make([]byte, headerSize)
	if _, err := r.f.ReadAt(head, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if _, err := UnmarshalFileHeader(head); err != nil {
		return err
	}
	tail := make([]byte, trailerSize)
	if _, err := r.f.ReadAt(tail, r.size-trailerSize); err != nil {
		return fmt.Errorf("read trailer: %w", err)
	}
	indexOffset, err := unmarshalTrailer(tail)
	if err != nil {
		return err
	}
	if indexOffset < headerSize || indexOffset >= uint64(r.size-trailerSize) {
		return fmt.Errorf("%w: index offset %d out of bounds", ErrInvalidArchive, indexOffset)
	}

	kind, raw, err := r.readEntry(indexOffset)
	if err != nil {
		return fmt.Errorf("%w: read index: %v", ErrInvalidArchive, err)
	}
	if kind != EntryIndex {
		return fmt.Errorf("%w: entry at %d is %s, want index", ErrInvalidArchive, indexOffset, kind)
	}
	ix, err := unmarshalIndex(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	r.ix = ix
	r.top = &ObjectReader{r: r, rec: ix.top, fullName: "/"}
	return nil
}

// readEntry reads, decompresses and verifies the entry at offset.
func (r *Reader) readEntry(offset uint64) (EntryKind, []byte, error) {
	if r.f == nil {
		return 0, nil, ErrClosed
	}
	limit := uint64(r.size - trailerSize)
	if offset >= limit {
		return 0, nil, fmt.Errorf("%w: entry offset %d out of bounds", ErrCorruptEntry, offset)
	}
	n := min(uint64(maxEntryPrefix), limit-offset)
	head := make([]byte, n)
	if _, err := r.f.ReadAt(head, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return 0, nil, fmt.Errorf("read entry at %d: %w", offset, err)
	}
	prefix, err := unmarshalEntryPrefix(head)
	if err != nil {
		return 0, nil, fmt.Errorf("entry at %d: %w", offset, err)
	}
	start := offset + uint64(prefix.length)
	if prefix.compressedSize > limit-start {
		return 0, nil, fmt.Errorf("%w: entry at %d overruns file", ErrCorruptEntry, offset)
	}
	compressed := make([]byte, prefix.compressedSize)
	if _, err := r.f.ReadAt(compressed, int64(start)); err != nil {
		return 0, nil, fmt.Errorf("read entry at %d: %w", offset, err)
	}
	raw, err := r.codec.decompress(compressed, prefix.size)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: entry at %d: %v", ErrCorruptEntry, offset, err)
	}
	if got := DigestOf(prefix.kind, raw); !bytes.Equal(got[:], prefix.digest[:]) {
		return 0, nil, fmt.Errorf("%w: entry at %d: digest mismatch", ErrCorruptEntry, offset)
	}
	return prefix.kind, raw, nil
}

func (r *Reader) readSample(offset uint64) ([]byte, error) {
	if raw, ok := r.cache.get(offset); ok {
		return raw, nil
	}
	kind, raw, err := r.readEntry(offset)
	if err != nil {
		return nil, err
	}
	if kind != EntrySample {
		return nil, fmt.Errorf("%w: entry at %d is %s, want sample", ErrCorruptEntry, offset, kind)
	}
	r.cache.put(offset, raw)
	return raw, nil
}

// Path returns the archive path.
func (r *Reader) Path() string { return r.path }

// Top returns the root object reader.
func (r *Reader) Top() (native.ObjectReader, error) {
	if r.f == nil {
		return nil, ErrClosed
	}
	return r.top, nil
}

// NumTimeSamplings returns the number of registered time samplings,
// including the identity sampling at index 0.
func (r *Reader) NumTimeSamplings() int { return len(r.ix.timeSamplings) }

// TimeSampling returns time sampling i.
func (r *Reader) TimeSampling(i int) (native.TimeSampling, error) {
	if i < 0 || i >= len(r.ix.timeSamplings) {
		return native.TimeSampling{}, fmt.Errorf("time sampling %d: %w", i, ErrOutOfRange)
	}
	return r.ix.timeSamplings[i], nil
}

// MaxNumSamples returns the largest sample count using time sampling i.
func (r *Reader) MaxNumSamples(i int) int {
	if i < 0 || i >= len(r.ix.maxSamples) {
		return 0
	}
	return int(r.ix.maxSamples[i])
}

// CachedSamples reports how many decoded samples the reader holds.
func (r *Reader) CachedSamples() int { return r.cache.len() }

// Close releases the file and the sample cache.
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	r.cache.clear()
	r.codec.close()
	return err
}

// ---------------------------------------------------------------------------
// Object and property readers
// ---------------------------------------------------------------------------

// ObjectReader is the read handle of one object.
type ObjectReader struct {
	r        *Reader
	rec      *objectRecord
	parent   *ObjectReader
	fullName string
}

// Name returns the object name.
func (o *ObjectReader) Name() string { return o.rec.name }

// FullName returns the slash-separated path from the root.
func (o *ObjectReader) FullName() string { return o.fullName }

// MetaData returns the serialized object metadata.
func (o *ObjectReader) MetaData() string { return o.rec.metadata }

// Parent returns the parent reader, or nil for the root.
func (o *ObjectReader) Parent() native.ObjectReader {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

// NumChildren returns the number of child objects.
func (o *ObjectReader) NumChildren() int { return len(o.rec.children) }

// Child returns child i.
func (o *ObjectReader) Child(i int) (native.ObjectReader, error) {
	if i < 0 || i >= len(o.rec.children) {
		return nil, fmt.Errorf("child %d of %s: %w", i, o.fullName, ErrOutOfRange)
	}
	rec := o.rec.children[i]
	return &ObjectReader{r: o.r, rec: rec, parent: o, fullName: joinPath(o.fullName, rec.name)}, nil
}

// Properties returns the top compound property reader.
func (o *ObjectReader) Properties() native.PropertyReader {
	return &PropertyReader{r: o.r, rec: o.rec.props}
}

// PropertyReader is the read handle of one property.
type PropertyReader struct {
	r   *Reader
	rec *propertyRecord
}

// Header returns the property header.
func (p *PropertyReader) Header() native.PropertyHeader { return p.rec.header }

// NumProperties returns the number of sub-properties.
func (p *PropertyReader) NumProperties() int { return len(p.rec.props) }

// Property returns sub-property i.
func (p *PropertyReader) Property(i int) (native.PropertyReader, error) {
	if i < 0 || i >= len(p.rec.props) {
		return nil, fmt.Errorf("property %d of %q: %w", i, p.rec.header.Name, ErrOutOfRange)
	}
	return &PropertyReader{r: p.r, rec: p.rec.props[i]}, nil
}

// NumSamples returns the number of samples.
func (p *PropertyReader) NumSamples() int { return len(p.rec.samples) }

// Sample decodes sample i.
func (p *PropertyReader) Sample(i int) (any, error) {
	if i < 0 || i >= len(p.rec.samples) {
		return nil, fmt.Errorf("sample %d of %q: %w", i, p.rec.header.Name, ErrOutOfRange)
	}
	raw, err := p.r.readSample(p.rec.samples[i])
	if err != nil {
		return nil, fmt.Errorf("sample %d of %q: %w", i, p.rec.header.Name, err)
	}
	v, err := decodeSample(p.rec.header.DataType.POD, raw)
	if err != nil {
		return nil, fmt.Errorf("sample %d of %q: %w", i, p.rec.header.Name, err)
	}
	return v, nil
}

// IsConstant reports whether every sample references the same entry.
func (p *PropertyReader) IsConstant() bool {
	for _, off := range p.rec.samples[min(1, len(p.rec.samples)):] {
		if off != p.rec.samples[0] {
			return false
		}
	}
	return true
}

// SampleOffset returns the entry offset backing sample i. Tooling uses it to
// locate payloads on disk.
func (p *PropertyReader) SampleOffset(i int) (uint64, error) {
	if i < 0 || i >= len(p.rec.samples) {
		return 0, fmt.Errorf("sample %d of %q: %w", i, p.rec.header.Name, ErrOutOfRange)
	}
	return p.rec.samples[i], nil
}
