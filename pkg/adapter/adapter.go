// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package adapter defines the per-registry adapter contract (C5): the
// polymorphic interface each package-manager-specific loader implements so
// the orchestrator can enumerate versions, fetch artifacts and synthesise
// releases without knowing anything registry-specific.
package adapter

import (
	"context"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/pkg/object"
)

// ManifestFormat identifies the intrinsic-metadata format an adapter reads
// out of an unpacked artifact. It is descriptive only: ExtID derivation does
// not read it, and an adapter whose registry provides no checksum derives
// its ExtID from other fields (URL, name and version) in
// KnownArtifactToExtID.
type ManifestFormat string

const (
	ManifestNone          ManifestFormat = ""
	ManifestPackageJSON   ManifestFormat = "package.json"
	ManifestPyProjectDist ManifestFormat = "PKG-INFO"
	ManifestMetaYAML      ManifestFormat = "META.yml"
	ManifestMetaJSON      ManifestFormat = "META.json"
	ManifestSrcinfo       ManifestFormat = ".SRCINFO"
	ManifestDebianControl ManifestFormat = "debian/control"
	ManifestCargoToml     ManifestFormat = "Cargo.toml"
	ManifestGemspec       ManifestFormat = "gemspec"
	ManifestPOM           ManifestFormat = "pom.xml"
	ManifestGoMod         ManifestFormat = "go.mod"
	ManifestPubspec       ManifestFormat = "pubspec.yaml"
)

// PackageInfo carries everything an adapter learned about a single artifact
// from the registry index, plus room for what's read out of the artifact
// itself during unpack (intrinsic metadata).
type PackageInfo struct {
	URL       string
	Filename  string
	Version   string
	Checksums map[string]string // algorithm -> hex digest, as declared upstream
	Length    int64             // declared length, 0 if unknown
	Author    string
	Date      *time.Time
	// Intrinsic holds the raw bytes of the format named by ManifestFormat,
	// read from the unpacked tree if BuildRelease chooses to use it instead
	// of (or in addition to) registry-supplied fields.
	Intrinsic      []byte
	ManifestFormat ManifestFormat
}

// BranchInfo pairs a branch name (§6.4) with the PackageInfo that should be
// fetched and archived for it. A single version can yield more than one
// branch, e.g. one per distributed filename.
type BranchInfo struct {
	Branch string
	Info   PackageInfo
}

// Adapter is the capability set every per-registry loader implements.
type Adapter interface {
	// Ecosystem names the registry this adapter serves (one of §6.6's visit
	// types), used for ExtID namespacing and log context.
	Ecosystem() string

	// GetVersions returns the package's versions in adapter-defined but
	// stable order. Ordering affects only traversal, never the resulting
	// snapshot (§4.6 tie-break).
	GetVersions(ctx context.Context) ([]string, error)

	// GetDefaultVersion returns the version HEAD should alias, if the
	// registry designates one.
	GetDefaultVersion(ctx context.Context) (version string, ok bool, err error)

	// GetPackageInfo returns the branches a version contributes.
	GetPackageInfo(ctx context.Context, version string) ([]BranchInfo, error)

	// BuildRelease synthesises a Release from a fetched, unpacked, hashed
	// artifact. Returning a nil Release (with nil error) skips the branch.
	BuildRelease(ctx context.Context, info PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error)

	// KnownArtifactToExtID derives the ExtID an already-ingested artifact
	// would be recognised by, so the orchestrator can short-circuit refetching
	// it on a later visit. Returning nil means this artifact can't be
	// fingerprinted this way (it will always be refetched and rehashed, but
	// still produce the same content ids).
	KnownArtifactToExtID(info PackageInfo, targetID object.ID) *object.ExtID

	// CarryForward reports whether unchanged branches from the previous
	// snapshot should be carried forward into the new one when the adapter's
	// get_versions() listing still contains them but ExtID resolution found
	// no change (§9 Open Question: carry-forward is an adapter opt-in, not a
	// core-wide default).
	CarryForward() bool
}
