package cask

import (
	"log/slog"

	"github.com/odvcencio/cask/pkg/native"
	"github.com/odvcencio/cask/pkg/pack"
)

// SavePolicy decides what WriteToFile does when one node or value fails.
type SavePolicy uint8

const (
	// SaveReport logs each failure, keeps it in SaveErrors and carries on
	// with the rest of the tree.
	SaveReport SavePolicy = iota
	// SaveStrict discards the output and returns the first failure.
	SaveStrict
)

func (p SavePolicy) String() string {
	if p == SaveStrict {
		return "strict"
	}
	return "report"
}

type options struct {
	fps       float64
	engine    native.Engine
	logger    *slog.Logger
	policy    SavePolicy
	cacheSize int
}

// Option configures an Archive.
type Option func(*options)

// WithFPS sets the frame rate used for frame locators and default
// samplings. Non-positive rates are ignored.
func WithFPS(fps float64) Option {
	return func(o *options) {
		if fps > 0 {
			o.fps = fps
		}
	}
}

// WithEngine replaces the pack engine.
func WithEngine(e native.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLogger sets the logger for save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSavePolicy sets how WriteToFile treats failures.
func WithSavePolicy(p SavePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithCacheSize bounds the decoded-sample cache of the default engine.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func buildOptions(opts []Option) options {
	o := options{fps: DefaultFPS, cacheSize: pack.DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = pack.NewEngine(pack.WithCacheSize(o.cacheSize))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
