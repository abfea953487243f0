// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package debian adapts the Debian archive registry client to the adapter
// contract (C5). Debian publishes no single "list all versions" endpoint in
// the surface this core uses (that would require mirroring the Sources
// index, out of scope here); the adapter is therefore constructed with the
// version list already known to the caller (e.g. from an upstream Sources
// listing fetched once per visit).
package debian

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/debian"
)

// Adapter loads releases from the Debian archive pool.
type Adapter struct {
	Registry  debian.Registry
	Component string
	Package   string
	Versions  []string

	descriptions map[string]string // version -> raw Description field, filled in by GetPackageInfo
}

func New(reg debian.Registry, component, pkg string, versions []string) *Adapter {
	return &Adapter{Registry: reg, Component: component, Package: pkg, Versions: versions, descriptions: map[string]string{}}
}

func (a *Adapter) Ecosystem() string { return "debian" }

// GetVersions returns the configured versions in lexicographic order:
// Debian version strings are not semver (epoch:upstream-revision), and the
// pack carries no dpkg-version-compare implementation, so per §9's fallback
// rule this adapter uses plain lexicographic order. Traversal order has no
// effect on the resulting snapshot.
func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	versions := append([]string(nil), a.Versions...)
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

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	artifactName := debian.ArtifactName(a.Package, version)
	info := adapter.PackageInfo{
		URL:            debian.PoolURL(a.Component, a.Package, artifactName),
		Filename:       artifactName,
		Version:        version,
		ManifestFormat: adapter.ManifestDebianControl,
	}
	_, dsc, err := a.Registry.DSC(ctx, a.Component, a.Package, version)
	if err == nil && dsc != nil {
		for _, stanza := range dsc.Stanzas {
			for _, line := range stanza.Fields["Checksums-Sha256"] {
				var hash, size, filename string
				if _, scanErr := fmt.Sscanf(line, "%s %s %s", &hash, &size, &filename); scanErr == nil && filename == artifactName {
					info.Checksums = map[string]string{"sha256": hash}
				}
			}
			if len(stanza.Fields["Maintainer"]) > 0 {
				info.Author = stanza.Fields["Maintainer"][0]
			}
			if len(stanza.Fields["Description"]) > 0 {
				a.descriptions[version] = strings.Join(stanza.Fields["Description"], "\n")
			}
		}
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: info}}, nil
}

func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	message := fmt.Sprintf("Synthetic release for debian source package %s version %s\n", a.Package, info.Version)
	if desc := a.descriptions[info.Version]; desc != "" {
		message += "\n" + desc + "\n"
	}
	return &object.Release{
		Name:     adapter.VersionBranch(info.Version),
		Message:  message,
		Author:   info.Author,
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
	return &object.ExtID{Type: "debian-pool-sha256", Version: 1, ExtID: raw, TargetType: object.TargetDir, TargetID: targetID}
}

func (a *Adapter) CarryForward() bool { return true }

var _ adapter.Adapter = &Adapter{}
