// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cpan adapts the MetaCPAN registry client to the adapter contract
// (C5). CPAN distributions declare no registry-side checksum, so authorship
// and versioning both come from intrinsic metadata (META.yml or META.json,
// whichever the tarball carries) read out of the unpacked tree.
package cpan

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"
	"gopkg.in/yaml.v3"

	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/cpan"
)

// metaCommon is the overlapping subset of fields this adapter reads out of
// either manifest format (META.yml or META.json).
type metaCommon struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Author  interface{} `json:"author" yaml:"author"`
}

// Adapter loads releases from MetaCPAN.
type Adapter struct {
	Registry     cpan.Registry
	Distribution string

	releases []cpan.Release
}

func New(reg cpan.Registry, distribution string) *Adapter {
	return &Adapter{Registry: reg, Distribution: distribution}
}

func (a *Adapter) Ecosystem() string { return "cpan" }

func (a *Adapter) load(ctx context.Context) ([]cpan.Release, error) {
	if a.releases != nil {
		return a.releases, nil
	}
	rs, err := a.Registry.Releases(ctx, a.Distribution)
	if err != nil {
		return nil, err
	}
	a.releases = rs
	return rs, nil
}

// GetVersions returns the indexed versions in lexicographic order: CPAN
// version strings are not reliably semver (many distributions use
// x.y-style or date-based schemes), so per §9's fallback this adapter uses
// lexicographic order; traversal order doesn't affect the resulting
// snapshot.
func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	rs, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(rs))
	for _, r := range rs {
		versions = append(versions, r.Version)
	}
	sort.Strings(versions)
	return versions, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	versions, err := a.GetVersions(ctx)
	if err != nil || len(versions) == 0 {
		return "", false, err
	}
	return versions[len(versions)-1], true, nil
}

func (a *Adapter) findRelease(ctx context.Context, version string) (*cpan.Release, error) {
	rs, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rs {
		if rs[i].Version == version {
			return &rs[i], nil
		}
	}
	return nil, nil
}

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	rel, err := a.findRelease(ctx, version)
	if err != nil || rel == nil {
		return nil, err
	}
	info := adapter.PackageInfo{
		URL:      rel.Download,
		Filename: rel.Name + ".tar.gz",
		Version:  version,
		Author:   rel.Author,
		// ManifestFormat stays META.yml here; BuildRelease reads META.json
		// or META.yml, whichever the unpacked tarball carries, since some
		// distributions ship one and some the other (scenario #4).
		ManifestFormat: adapter.ManifestMetaYAML,
	}
	if !rel.Date.IsZero() {
		t := rel.Date
		info.Date = &t
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

// BuildRelease reads whichever of META.yml/META.json the unpacked tree
// carries, preferring the author and version it declares over the registry
// index's own fields (scenario #4: intrinsic metadata wins for
// author/version, extrinsic registry date is kept).
func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	meta := readMeta(unpacked)
	author := info.Author
	version := info.Version
	if meta != nil && meta.Name != "" {
		if s := authorString(meta.Author); s != "" {
			author = s
		}
		if meta.Version != "" {
			version = meta.Version
		}
	}
	return &object.Release{
		Name:     adapter.VersionBranch(version),
		Message:  fmt.Sprintf("Synthetic release for cpan source package %s version %s\n", a.Distribution, version),
		Author:   author,
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

func authorString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		var parts []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		out := parts[0]
		for _, p := range parts[1:] {
			out += "\n" + p
		}
		return out
	default:
		return ""
	}
}

func readMeta(fs billy.Filesystem) *metaCommon {
	if f, err := fs.Open("META.json"); err == nil {
		defer f.Close()
		var m metaCommon
		if json.NewDecoder(f).Decode(&m) == nil {
			return &m
		}
	}
	if f, err := fs.Open("META.yml"); err == nil {
		defer f.Close()
		var m metaCommon
		if yaml.NewDecoder(f).Decode(&m) == nil {
			return &m
		}
	}
	return nil
}

func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	return &object.ExtID{
		Type:       "cpan-release-url",
		Version:    1,
		ExtID:      []byte(info.URL),
		TargetType: object.TargetDir,
		TargetID:   targetID,
	}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
