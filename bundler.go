package bundler

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Bundler collects the members of one bundle and materializes it.
// A Bundler is not safe for concurrent use; create one per request.
type Bundler struct {
	cfg   Config
	log   *zap.Logger
	files *FileSet
	keys  *KeyGenerator
	store *Store
}

// New creates a bundler for cfg. Unset fields of cfg take their defaults.
// Returns a *ValidationError if cfg is invalid.
func New(cfg Config, opts ...Option) (*Bundler, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	log := zap.NewNop()
	if cfg.Debug {
		log = o.log
		if log == nil {
			dev, err := zap.NewDevelopment()
			if err != nil {
				return nil, fmt.Errorf("failed to create logger: %w", err)
			}
			log = dev
		}
	}
	log = log.Named("bundler").With(zap.String("type", string(cfg.Type)))

	hashFunc := o.hashFunc
	if hashFunc == nil {
		fn, err := lookupHash(cfg.Hash)
		if err != nil {
			return nil, err
		}
		hashFunc = fn
	}

	store := o.store
	if store == nil {
		store = &Store{fs: o.fs, registry: o.registry, log: log, now: o.nowFunc}
	}

	return &Bundler{
		cfg:   cfg,
		log:   log,
		files: NewFileSet(cfg, o.fs, log),
		keys:  NewKeyGenerator(hashFunc),
		store: store,
	}, nil
}

// Config returns the configuration with defaults applied.
func (b *Bundler) Config() Config {
	return b.cfg
}

// Store returns the store the bundler writes through.
func (b *Bundler) Store() *Store {
	return b.store
}

// AddFiles adds files to the bundle. Files that don't exist are skipped.
func (b *Bundler) AddFiles(paths ...string) {
	b.files.Add(paths...)
}

// AddFile adds a single file to the bundle.
func (b *Bundler) AddFile(path string) {
	b.files.AddFile(path)
}

// AddGlob adds every file matching pattern.
func (b *Bundler) AddGlob(pattern string) error {
	return b.files.AddGlob(pattern)
}

// Files returns the member paths in concatenation order.
func (b *Bundler) Files() []string {
	return b.files.Paths()
}

// Identifier returns the identifier of the current member set.
func (b *Bundler) Identifier() Identifier {
	return b.keys.Identifier(b.files)
}

// Bundle returns the artifact for the current members, building it if it
// doesn't exist or overwrite is set.
func (b *Bundler) Bundle(overwrite bool) (*Artifact, error) {
	return b.store.Resolve(b.Identifier(), b.files, b.cfg, overwrite)
}

// References returns what the page has to include. With bundling enabled it
// is the single bundle; otherwise every member, in order.
func (b *Bundler) References(overwrite bool) ([]Reference, error) {
	if !b.cfg.Type.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, b.cfg.Type)
	}

	if !b.cfg.BundlingEnabled() {
		b.log.Debug("bundling disabled, referencing files individually")
		paths := b.files.Paths()
		refs := make([]Reference, len(paths))
		for i, p := range paths {
			refs[i] = Reference{Type: b.cfg.Type, Href: p}
		}
		return refs, nil
	}

	a, err := b.Bundle(overwrite)
	if err != nil {
		return nil, err
	}
	return []Reference{{Type: b.cfg.Type, Href: a.WebPath()}}, nil
}

// WriteTags writes the HTML tags of References to w, one per line.
func (b *Bundler) WriteTags(w io.Writer, overwrite bool) error {
	refs, err := b.References(overwrite)
	if err != nil {
		return err
	}
	return writeTags(w, refs)
}

// Stale reports which members of the current bundle changed since it was
// built. The bundle is not rebuilt.
func (b *Bundler) Stale() (bool, []string, error) {
	return b.store.Stale(b.cfg, b.Identifier())
}
