// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package npm adapts the npm registry client to the adapter contract (C5).
package npm

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/npm"
)

// packageJSON is the subset of package.json this adapter reads as intrinsic
// metadata; "author" may be a bare string or an object in the wild, so it's
// decoded leniently.
type packageJSON struct {
	Name   string          `json:"name"`
	Author json.RawMessage `json:"author"`
}

type authorObject struct {
	Name string `json:"name"`
}

// Adapter loads releases from the npm registry.
type Adapter struct {
	Registry npm.Registry
	Package  string

	pkg *npm.NPMPackage
}

// New constructs an npm adapter for pkg using reg.
func New(reg npm.Registry, pkg string) *Adapter {
	return &Adapter{Registry: reg, Package: pkg}
}

func (a *Adapter) Ecosystem() string { return "npm" }

func (a *Adapter) load(ctx context.Context) (*npm.NPMPackage, error) {
	if a.pkg != nil {
		return a.pkg, nil
	}
	p, err := a.Registry.Package(ctx, a.Package)
	if err != nil {
		return nil, err
	}
	a.pkg = p
	return p, nil
}

// GetVersions returns the package's versions in semver order, per §9's
// recommendation for registries with real semver.
func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(p.Versions))
	for v := range p.Versions {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Cmp(versions[i], versions[j]) < 0 })
	return versions, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	p, err := a.load(ctx)
	if err != nil {
		return "", false, err
	}
	if p.DistTags.Latest == "" {
		return "", false, nil
	}
	if _, ok := p.Versions[p.DistTags.Latest]; !ok {
		return "", false, nil
	}
	return p.DistTags.Latest, true, nil
}

// GetPackageInfo returns the single tarball branch for version.
func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	release, ok := p.Versions[version]
	if !ok {
		return nil, nil
	}
	info := adapter.PackageInfo{
		URL:            release.Dist.URL,
		Filename:       path.Base(release.Dist.URL),
		Version:        version,
		ManifestFormat: adapter.ManifestPackageJSON,
	}
	if release.Dist.SHA1 != "" {
		info.Checksums = map[string]string{"sha1": release.Dist.SHA1}
	}
	if t, ok := p.UploadTimes[version]; ok {
		info.Date = &t
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

// BuildRelease reads the author out of the unpacked package.json, if present,
// falling back to an author-less release (§9: absent metadata stays absent).
func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	author := readAuthor(unpacked)
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  fmt.Sprintf("Synthetic release for npm source package %s version %s\n", a.Package, info.Version),
		Author:   author,
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

func readAuthor(fs billy.Filesystem) string {
	f, err := fs.Open("package.json")
	if err != nil {
		return ""
	}
	defer f.Close()
	var pj packageJSON
	if err := json.NewDecoder(f).Decode(&pj); err != nil {
		return ""
	}
	if len(pj.Author) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(pj.Author, &s); err == nil {
		return s
	}
	var o authorObject
	if err := json.Unmarshal(pj.Author, &o); err == nil {
		return o.Name
	}
	return ""
}

// KnownArtifactToExtID fingerprints by the tarball's declared sha1, the only
// digest the npm index reliably publishes in hex form (the SRI "integrity"
// field is base64, not a raw hex digest, so it's not used here).
func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	sha1hex, ok := info.Checksums["sha1"]
	if !ok {
		return nil
	}
	raw, err := hex.DecodeString(sha1hex)
	if err != nil {
		return nil
	}
	return &object.ExtID{Type: "npm-tarball-sha1", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
