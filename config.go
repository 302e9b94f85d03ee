package bundler

import (
	"fmt"
	"path"
	"strings"
)

// Type tags the content of a bundle.
type Type string

const (
	TypeScript Type = "script"
	TypeStyle  Type = "style"
)

// Extension returns the file extension used for artifacts of this type.
// Unknown types use the tag itself.
func (t Type) Extension() string {
	switch t {
	case TypeScript:
		return "js"
	case TypeStyle:
		return "css"
	default:
		return string(t)
	}
}

// Known reports whether t has an output form.
func (t Type) Known() bool {
	return t == TypeScript || t == TypeStyle
}

// Config is the immutable configuration of one Bundler.
// Paths are root-relative and use forward slashes; AppRoot is the
// filesystem directory they hang from.
type Config struct {
	Type        Type     `mapstructure:"type" yaml:"type"`
	Enabled     *bool    `mapstructure:"enabled" yaml:"enabled"`
	Debug       bool     `mapstructure:"debug" yaml:"debug"`
	Compress    *bool    `mapstructure:"compress" yaml:"compress"`
	Minifier    string   `mapstructure:"minifier" yaml:"minifier"`
	AppRoot     string   `mapstructure:"app_root" yaml:"app_root"`
	SourceDir   string   `mapstructure:"source_dir" yaml:"source_dir"`
	BundleDir   string   `mapstructure:"bundle_dir" yaml:"bundle_dir"`
	ShowList    *bool    `mapstructure:"show_list" yaml:"show_list"`
	Hash        string   `mapstructure:"hash" yaml:"hash"`
	Precompress []string `mapstructure:"precompress" yaml:"precompress"`
}

// Default minifier per type.
var defaultMinifiers = map[Type]string{
	TypeScript: "jsmin",
	TypeStyle:  "strip",
}

// DefaultConfig returns a script bundler configuration with every default applied.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Type == "" {
		c.Type = TypeScript
	}
	if c.Enabled == nil {
		c.Enabled = Bool(true)
	}
	if c.Compress == nil {
		c.Compress = Bool(true)
	}
	if c.ShowList == nil {
		c.ShowList = Bool(true)
	}
	if c.Minifier == "" {
		c.Minifier = defaultMinifiers[c.Type]
	}
	if c.SourceDir == "" {
		c.SourceDir = "/" + string(c.Type)
	}
	if c.BundleDir == "" {
		c.BundleDir = "/" + string(c.Type) + "/bundles"
	}
	if c.Hash == "" {
		c.Hash = HashXXH
	}
	c.Precompress = append([]string(nil), c.Precompress...)
	return c
}

// BundlingEnabled reports whether members are bundled or referenced one by one.
func (c Config) BundlingEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CompressEnabled reports whether the minifier runs on a miss.
func (c Config) CompressEnabled() bool {
	return c.Compress == nil || *c.Compress
}

// ShowListEnabled reports whether artifacts start with the member list comment.
func (c Config) ShowListEnabled() bool {
	return c.ShowList == nil || *c.ShowList
}

// Validate checks every field and reports all problems at once.
// An unknown Type or Minifier is not an error here: minification fails open
// and reference emission reports ErrUnsupportedType.
func (c Config) Validate() error {
	var errs []error

	if c.SourceDir != "" && !strings.HasPrefix(c.SourceDir, "/") {
		errs = append(errs, fmt.Errorf("source dir must be root-relative: %q", c.SourceDir))
	}
	if c.BundleDir != "" && !strings.HasPrefix(c.BundleDir, "/") {
		errs = append(errs, fmt.Errorf("bundle dir must be root-relative: %q", c.BundleDir))
	}
	if c.Hash != "" {
		if _, err := lookupHash(c.Hash); err != nil {
			errs = append(errs, err)
		}
	}
	for _, enc := range c.Precompress {
		if _, ok := encoders[enc]; !ok {
			errs = append(errs, fmt.Errorf("unknown precompress encoding: %q", enc))
		}
	}

	return newValidationError(errs)
}

// bundleWebDir returns the web-visible directory holding artifacts.
func (c Config) bundleWebDir() string {
	return path.Clean(c.BundleDir)
}

// Bool returns a pointer to v, for the optional switches of Config.
func Bool(v bool) *bool {
	return &v
}
