package native

// Engine opens archives for reading and creates archives for writing.
type Engine interface {
	Open(path string) (ArchiveReader, error)
	Create(path string) (ArchiveWriter, error)
}

// ArchiveReader is the read handle of an archive already on disk.
type ArchiveReader interface {
	Path() string
	Top() (ObjectReader, error)
	NumTimeSamplings() int
	TimeSampling(i int) (TimeSampling, error)
	// MaxNumSamples is the largest sample count of any property using
	// time sampling i.
	MaxNumSamples(i int) int
	Close() error
}

// ObjectReader is the read handle of one hierarchy node.
type ObjectReader interface {
	Name() string
	FullName() string
	MetaData() string
	// Parent returns nil for the archive root.
	Parent() ObjectReader
	NumChildren() int
	Child(i int) (ObjectReader, error)
	// Properties returns the node's top-level compound property.
	Properties() PropertyReader
}

// PropertyReader is the read handle of one property. Compound readers expose
// sub-properties, simple readers expose samples.
type PropertyReader interface {
	Header() PropertyHeader
	NumProperties() int
	Property(i int) (PropertyReader, error)
	NumSamples() int
	// Sample decodes sample i into a flat slice of the header's POD type.
	Sample(i int) (any, error)
	// IsConstant reports whether every sample holds the same data.
	IsConstant() bool
}

// ArchiveWriter is the write handle of an archive being assembled. Nothing
// reaches its destination until Close.
type ArchiveWriter interface {
	Path() string
	Top() ObjectWriter
	// AddTimeSampling registers ts and returns its index. Index 0 is
	// reserved for the identity sampling and is never returned; adding a
	// sampling equal to one already registered returns the existing index.
	AddTimeSampling(ts TimeSampling) uint32
	Close() error
	// Abort discards everything written so far.
	Abort() error
}

// ObjectWriter is the write handle of one hierarchy node.
type ObjectWriter interface {
	Name() string
	FullName() string
	CreateChild(name, metadata string) (ObjectWriter, error)
	Properties() CompoundWriter
}

// CompoundWriter creates sub-properties.
type CompoundWriter interface {
	Name() string
	CreateCompound(name, metadata string) (CompoundWriter, error)
	// CreateSimple creates a scalar or array property described by h.
	CreateSimple(h PropertyHeader) (SimpleWriter, error)
}

// SimpleWriter appends samples to a scalar or array property.
type SimpleWriter interface {
	Header() PropertyHeader
	SetSample(sample any) error
	NumSamples() int
}
