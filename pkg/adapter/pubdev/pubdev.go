// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package pubdev adapts the pub.dev registry client to the adapter contract
// (C5).
package pubdev

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/pubdev"
)

// Adapter loads releases from pub.dev.
type Adapter struct {
	Registry pubdev.Registry
	Package  string

	pkg *pubdev.Package
}

func New(reg pubdev.Registry, pkg string) *Adapter {
	return &Adapter{Registry: reg, Package: pkg}
}

func (a *Adapter) Ecosystem() string { return "pubdev" }

func (a *Adapter) load(ctx context.Context) (*pubdev.Package, error) {
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

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(p.Versions))
	for _, v := range p.Versions {
		versions = append(versions, v.Version)
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Cmp(versions[i], versions[j]) < 0 })
	return versions, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	p, err := a.load(ctx)
	if err != nil {
		return "", false, err
	}
	if p.Latest.Version == "" {
		return "", false, nil
	}
	return p.Latest.Version, true, nil
}

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range p.Versions {
		if v.Version != version {
			continue
		}
		info := adapter.PackageInfo{
			URL:            v.ArchiveURL,
			Filename:       fmt.Sprintf("%s-%s.tar.gz", a.Package, version),
			Version:        version,
			ManifestFormat: adapter.ManifestPubspec,
		}
		if v.ArchiveSHA256 != "" {
			info.Checksums = map[string]string{"sha256": v.ArchiveSHA256}
		}
		if !v.Published.IsZero() {
			t := v.Published
			info.Date = &t
		}
		return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
	}
	return nil, nil
}

// BuildRelease uses the registry's own `published` field for the release
// date (scenario #3), as pub.dev's pubspec.yaml carries no author field.
func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  fmt.Sprintf("Synthetic release for pub.dev source package %s version %s\n", a.Package, info.Version),
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	sha256hex, ok := info.Checksums["sha256"]
	if !ok {
		return nil
	}
	raw, err := hex.DecodeString(sha256hex)
	if err != nil {
		return nil
	}
	return &object.ExtID{Type: "pubdev-archive-sha256", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
