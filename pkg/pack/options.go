package pack

import (
	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/cask/pkg/native"
)

// DefaultCacheSize is the number of decoded samples a reader keeps.
const DefaultCacheSize = 256

type options struct {
	cacheSize int
	level     zstd.EncoderLevel
}

// Option configures readers and writers.
type Option func(*options)

// WithCacheSize bounds the reader's decoded-sample cache. Zero or a negative
// size disables caching.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithCompressionLevel sets the zstd level used by writers.
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(o *options) { o.level = level }
}

func buildOptions(opts []Option) options {
	o := options{cacheSize: DefaultCacheSize, level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine opens and creates pack archives with a fixed set of options.
type Engine struct {
	opts []Option
}

// NewEngine returns an engine applying opts to every reader and writer.
func NewEngine(opts ...Option) *Engine {
	return &Engine{opts: opts}
}

// Open implements native.Engine.
func (e *Engine) Open(path string) (native.ArchiveReader, error) {
	r, err := Open(path, e.opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create implements native.Engine.
func (e *Engine) Create(path string) (native.ArchiveWriter, error) {
	w, err := Create(path, e.opts...)
	if err != nil {
		return nil, err
	}
	return w, nil
}
