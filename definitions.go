package bundler

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definitions is a file of named bundles, as read by the bundler command.
type Definitions struct {
	Bundles []Definition `yaml:"bundles"`
}

// Definition describes one bundle: its members and the settings that
// differ from the base configuration.
type Definition struct {
	Name      string   `yaml:"name"`
	Type      Type     `yaml:"type"`
	Minifier  string   `yaml:"minifier"`
	Compress  *bool    `yaml:"compress"`
	ShowList  *bool    `yaml:"show_list"`
	SourceDir string   `yaml:"source_dir"`
	BundleDir string   `yaml:"bundle_dir"`
	Files     []string `yaml:"files"`
	Globs     []string `yaml:"globs"`
}

// LoadDefinitions decodes and validates a definitions file.
// Unknown keys are rejected.
func LoadDefinitions(r io.Reader) (*Definitions, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Definitions
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode definitions: %w", err)
	}

	if err := defs.validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

// Lookup returns the definition called name.
func (d *Definitions) Lookup(name string) (Definition, bool) {
	for _, def := range d.Bundles {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

func (d *Definitions) validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(d.Bundles))

	for i, def := range d.Bundles {
		if def.Name == "" {
			errs = append(errs, fmt.Errorf("bundle %d: missing name", i))
		} else if _, dup := seen[def.Name]; dup {
			errs = append(errs, fmt.Errorf("bundle %q: defined twice", def.Name))
		}
		seen[def.Name] = struct{}{}

		if len(def.Files) == 0 && len(def.Globs) == 0 {
			errs = append(errs, fmt.Errorf("bundle %q: no files", def.Name))
		}
	}

	return newValidationError(errs)
}

// Apply overlays the settings of d on base. Directories left empty in both
// follow the bundle type.
func (d Definition) Apply(base Config) Config {
	cfg := base
	if d.Type != "" && d.Type != base.Type {
		cfg.Type = d.Type
		// Defaults derived from the base type don't carry over.
		cfg.Minifier = ""
	}
	if d.Minifier != "" {
		cfg.Minifier = d.Minifier
	}
	if d.Compress != nil {
		cfg.Compress = d.Compress
	}
	if d.ShowList != nil {
		cfg.ShowList = d.ShowList
	}
	if d.SourceDir != "" {
		cfg.SourceDir = d.SourceDir
	}
	if d.BundleDir != "" {
		cfg.BundleDir = d.BundleDir
	}
	return cfg.WithDefaults()
}

// Bundler creates a bundler for d on top of base and adds its members.
func (d Definition) Bundler(base Config, opts ...Option) (*Bundler, error) {
	b, err := New(d.Apply(base), opts...)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: %w", d.Name, err)
	}
	b.AddFiles(d.Files...)
	for _, pattern := range d.Globs {
		if err := b.AddGlob(pattern); err != nil {
			return nil, fmt.Errorf("bundle %q: %w", d.Name, err)
		}
	}
	return b, nil
}
