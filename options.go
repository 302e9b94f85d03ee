package bundler

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// NowFunc defines a function that returns the current time.
type NowFunc func() time.Time

// Option defines a function that configures a Bundler or a Store.
type Option func(*options)

type options struct {
	fs       afero.Fs
	log      *zap.Logger
	registry *Registry
	hashFunc HashFunc
	nowFunc  NowFunc
	store    *Store
}

func newOptions(opts []Option) options {
	o := options{
		fs:      afero.NewOsFs(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	return o
}

// WithFs sets the filesystem sources are read from and bundles written to.
// This is primarily useful for testing with in-memory filesystems.
//
// Example:
//
//	b, err := bundler.New(cfg, bundler.WithFs(afero.NewMemMapFs()))
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLogger sets the diagnostics sink. Nothing is logged unless
// Config.Debug is set.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRegistry replaces the built-in minifier strategies.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithHashFunc sets a custom fingerprint for bundle identifiers, overriding
// Config.Hash.
//
// Note: Changing the hash function renames every bundle, so existing
// artifacts are no longer found.
func WithHashFunc(hashFunc HashFunc) Option {
	return func(o *options) {
		o.hashFunc = hashFunc
	}
}

// WithNowFunc sets a custom time function.
// This is primarily useful for testing with deterministic timestamps.
func WithNowFunc(nowFunc NowFunc) Option {
	return func(o *options) {
		o.nowFunc = nowFunc
	}
}

// WithStore makes a Bundler build through a shared store, so concurrent
// requests for the same bundle in one process share a single build.
// The store's filesystem and registry take precedence over WithFs and
// WithRegistry for building.
func WithStore(s *Store) Option {
	return func(o *options) {
		o.store = s
	}
}
