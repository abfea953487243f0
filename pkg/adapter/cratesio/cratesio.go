// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cratesio adapts the crates.io registry client to the adapter
// contract (C5).
package cratesio

import (
	"context"
	"encoding/hex"
	"fmt"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/cratesio"
)

// Adapter loads releases from crates.io.
type Adapter struct {
	Registry cratesio.Registry
	Package  string

	crate *cratesio.Crate
}

func New(reg cratesio.Registry, pkg string) *Adapter {
	return &Adapter{Registry: reg, Package: pkg}
}

func (a *Adapter) Ecosystem() string { return "crates" }

func (a *Adapter) load(ctx context.Context) (*cratesio.Crate, error) {
	if a.crate != nil {
		return a.crate, nil
	}
	c, err := a.Registry.Crate(ctx, a.Package)
	if err != nil {
		return nil, err
	}
	a.crate = c
	return c, nil
}

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	c, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(c.Versions))
	for _, v := range c.Versions {
		if v.Yanked {
			continue
		}
		versions = append(versions, v.Version)
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Cmp(versions[i], versions[j]) < 0 })
	return versions, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	versions, err := a.GetVersions(ctx)
	if err != nil || len(versions) == 0 {
		return "", false, err
	}
	return versions[len(versions)-1], true, nil
}

func (a *Adapter) findVersion(ctx context.Context, version string) (*cratesio.Version, error) {
	c, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range c.Versions {
		if c.Versions[i].Version == version {
			return &c.Versions[i], nil
		}
	}
	return nil, nil
}

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	v, err := a.findVersion(ctx, version)
	if err != nil || v == nil {
		return nil, err
	}
	info := adapter.PackageInfo{
		URL:            v.DownloadURL,
		Filename:       path.Base(v.DownloadPath),
		Version:        version,
		ManifestFormat: adapter.ManifestCargoToml,
	}
	if v.Checksum != "" {
		info.Checksums = map[string]string{"sha256": v.Checksum}
	}
	if !v.Created.IsZero() {
		t := v.Created
		info.Date = &t
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  fmt.Sprintf("Synthetic release for crates.io source package %s version %s\n", a.Package, info.Version),
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

// KnownArtifactToExtID fingerprints by the crate's published sha256 cksum.
func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	sha256hex, ok := info.Checksums["sha256"]
	if !ok {
		return nil
	}
	raw, err := hex.DecodeString(sha256hex)
	if err != nil {
		return nil
	}
	return &object.ExtID{Type: "cratesio-cksum-sha256", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
