// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package pypi adapts the PyPI registry client to the adapter contract (C5).
package pypi

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/pypi"
)

// Adapter loads releases from PyPI. A PyPI version typically distributes
// several artifacts (an sdist plus one or more wheels), so each artifact
// gets its own branch per §6.4's filename-qualified naming.
type Adapter struct {
	Registry pypi.Registry
	Package  string

	project *pypi.Project
}

func New(reg pypi.Registry, pkg string) *Adapter {
	return &Adapter{Registry: reg, Package: pkg}
}

func (a *Adapter) Ecosystem() string { return "pypi" }

func (a *Adapter) load(ctx context.Context) (*pypi.Project, error) {
	if a.project != nil {
		return a.project, nil
	}
	p, err := a.Registry.Project(ctx, a.Package)
	if err != nil {
		return nil, err
	}
	a.project = p
	return p, nil
}

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(p.Releases))
	for v := range p.Releases {
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
	if p.Info.Version == "" {
		return "", false, nil
	}
	if _, ok := p.Releases[p.Info.Version]; !ok {
		return "", false, nil
	}
	return p.Info.Version, true, nil
}

// GetPackageInfo returns one branch per distributed artifact (sdist/wheel),
// named `releases/<version>/<filename>` per §6.4.
func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	p, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	artifacts, ok := p.Releases[version]
	if !ok {
		return nil, nil
	}
	branches := make([]adapter.BranchInfo, 0, len(artifacts))
	for _, art := range artifacts {
		info := adapter.PackageInfo{
			URL:            art.URL,
			Filename:       art.Filename,
			Version:        version,
			Length:         art.Size,
			ManifestFormat: adapter.ManifestPyProjectDist,
		}
		t := art.UploadTime
		if !t.IsZero() {
			info.Date = &t
		}
		checksums := map[string]string{}
		if art.Digests.SHA256 != "" {
			checksums["sha256"] = art.Digests.SHA256
		}
		if art.Digests.MD5 != "" {
			checksums["md5"] = art.Digests.MD5
		}
		if len(checksums) > 0 {
			info.Checksums = checksums
		}
		branches = append(branches, adapter.BranchInfo{
			Branch: adapter.VersionFilenameBranch(version, art.Filename),
			Info:   info,
		})
	}
	return branches, nil
}

func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	return &object.Release{
		Name:     adapter.VersionFilenameBranch(info.Version, info.Filename),
		Message:  fmt.Sprintf("Synthetic release for pypi source package %s version %s\n", a.Package, info.Version),
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

// KnownArtifactToExtID fingerprints by the artifact's declared sha256,
// PyPI's most reliably published digest.
func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	sha256hex, ok := info.Checksums["sha256"]
	if !ok {
		return nil
	}
	raw, err := hex.DecodeString(sha256hex)
	if err != nil {
		return nil
	}
	return &object.ExtID{Type: "pypi-artifact-sha256", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
