/*
	Package bundler concatenates script and stylesheet files into single, optionally minified bundles.

A bundle is named by a fingerprint of its sorted member paths and reused
until it is deleted or rebuilt explicitly.

# Overview

A Bundler collects the member files of one bundle, derives its identifier,
and resolves the identifier to an artifact in the bundle directory. If the
artifact exists it is reused as is; otherwise the members are read in the
order they were added, concatenated, minified and written atomically.

# Core Architecture

  - FileSet - validated, deduplicated root-relative member paths
  - KeyGenerator - identifier from sorted member paths and the content type
  - Registry - minification strategies per content type
  - Store - existence check, build on miss, manifests, statistics

# Basic Usage

Creating a bundler:

	b, err := bundler.New(bundler.Config{
	    Type:      bundler.TypeScript,
	    AppRoot:   "/www",
	    SourceDir: "/js",
	    BundleDir: "/bundles",
	})
	if err != nil {
	    log.Fatalf("Failed to create bundler: %v", err)
	}

Adding files:

	b.AddFile("/scripts/myScript.js")
	b.AddFiles("/scripts/otherScript.js", "/scripts/yetAnotherScript.js")

Emitting the page reference, building the bundle if needed:

	if err := b.WriteTags(w, false); err != nil {
	    log.Fatalf("Failed to write bundle tags: %v", err)
	}

# Identifiers and Staleness

Identifiers depend on which files are bundled, never on their content.
Editing a member keeps the old bundle in service. Delete it with
Store.Delete or Store.PruneStale, or rebuild with Bundle(true).
Store.Stale reports which members changed since a bundle was built.

# Minifiers

Scripts: "jsmin" (default, removes comments and whitespace only) and
"packer" (renames locals and compacts syntax). Styles: "strip" (default,
textual reduction) and "cssmin". Register more with Registry.Register.
An unknown strategy or a failing one leaves the bundle unminified and logs
a diagnostic; it never fails the build.

# File Structure

	<app root><bundle dir>/
	├── 1f0c...9a.js          artifact
	├── 1f0c...9a.js.gz       precompressed copies (optional)
	└── .manifests/
	    └── [first 2 chars of id]/
	        └── [id].json

# Error Handling

  - Missing member files are dropped from the set and logged
  - *StorageError: reading a member or writing the artifact failed
  - ErrUnsupportedType: no reference form exists for the bundle type
  - *ValidationError: invalid configuration or definitions file
*/
package bundler
