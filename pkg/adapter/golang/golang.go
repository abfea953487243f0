// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package golang adapts the Go module proxy registry client to the adapter
// contract (C5).
package golang

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/golang"
)

// Adapter loads releases from the Go module proxy. Modules have no
// registry-declared checksum surface in the public proxy protocol beyond
// go.sum (out of scope here), so ExtID fingerprinting falls back to the
// proxy's own Module@Version identity rather than a content digest.
type Adapter struct {
	Registry golang.Registry
	Module   string
}

func New(reg golang.Registry, module string) *Adapter {
	return &Adapter{Registry: reg, Module: module}
}

func (a *Adapter) Ecosystem() string { return "golang" }

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	versions, err := a.Registry.List(ctx, a.Module)
	if err != nil {
		return nil, err
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

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	info := adapter.PackageInfo{
		URL:            fmt.Sprintf("https://proxy.golang.org/%s/@v/%s.zip", a.Module, version),
		Filename:       fmt.Sprintf("%s@%s.zip", a.Module, version),
		Version:        version,
		ManifestFormat: adapter.ManifestGoMod,
	}
	if meta, err := a.Registry.VersionInfo(ctx, a.Module, version); err == nil && meta != nil && !meta.Time.IsZero() {
		t := meta.Time
		info.Date = &t
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  fmt.Sprintf("Synthetic release for golang source package %s version %s\n", a.Module, info.Version),
		Date:     info.Date,
		TargetID: directoryID,
	}, nil
}

// KnownArtifactToExtID fingerprints by module path + version, since the
// proxy protocol publishes no artifact checksum this adapter can read
// without also pulling go.sum (out of scope).
func (a *Adapter) KnownArtifactToExtID(info adapter.PackageInfo, targetID object.ID) *object.ExtID {
	return &object.ExtID{
		Type:       "golang-module-version",
		Version:    1,
		ExtID:      []byte(fmt.Sprintf("%s@%s", a.Module, info.Version)),
		TargetType: object.TargetDir,
		TargetID:   targetID,
	}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
