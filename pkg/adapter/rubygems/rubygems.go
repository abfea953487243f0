// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package rubygems adapts the RubyGems registry client to the adapter
// contract (C5).
package rubygems

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/internal/semver"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/rubygems"
)

// Adapter loads releases from RubyGems.
type Adapter struct {
	Registry rubygems.Registry
	Gem      string

	versions []rubygems.VersionInfo
	gem      *rubygems.Gem
}

func New(reg rubygems.Registry, gem string) *Adapter {
	return &Adapter{Registry: reg, Gem: gem}
}

func (a *Adapter) Ecosystem() string { return "rubygems" }

func (a *Adapter) load(ctx context.Context) ([]rubygems.VersionInfo, error) {
	if a.versions != nil {
		return a.versions, nil
	}
	v, err := a.Registry.Versions(ctx, a.Gem)
	if err != nil {
		return nil, err
	}
	a.versions = v
	return v, nil
}

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	infos, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(infos))
	for _, v := range infos {
		versions = append(versions, v.Number)
	}
	sort.Slice(versions, func(i, j int) bool { return semver.Cmp(versions[i], versions[j]) < 0 })
	return versions, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	if a.gem == nil {
		g, err := a.Registry.Gem(ctx, a.Gem)
		if err != nil {
			return "", false, err
		}
		a.gem = g
	}
	if a.gem.Version == "" {
		return "", false, nil
	}
	return a.gem.Version, true, nil
}

func (a *Adapter) findVersion(ctx context.Context, version string) (*rubygems.VersionInfo, error) {
	infos, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Number == version {
			return &infos[i], nil
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
		URL:            fmt.Sprintf("https://rubygems.org/gems/%s-%s.gem", a.Gem, version),
		Filename:       fmt.Sprintf("%s-%s.gem", a.Gem, version),
		Version:        version,
		ManifestFormat: adapter.ManifestGemspec,
	}
	if v.SHA != "" {
		info.Checksums = map[string]string{"sha256": v.SHA}
	}
	if !v.CreatedAt.IsZero() {
		t := v.CreatedAt
		info.Date = &t
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  fmt.Sprintf("Synthetic release for rubygems source package %s version %s\n", a.Gem, info.Version),
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
	return &object.ExtID{Type: "rubygems-sha256", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
