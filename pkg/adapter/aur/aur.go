// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package aur adapts the Arch User Repository registry client to the
// adapter contract (C5). AUR packages have no traditional version history
// API: the RPC endpoint reports only the current state of a package, so
// this adapter always yields exactly one version, the one currently live.
package aur

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/registry/aur"
)

// Adapter loads the current release of an AUR package.
type Adapter struct {
	Registry aur.Registry
	Package  string

	info *aur.Info
}

func New(reg aur.Registry, pkg string) *Adapter {
	return &Adapter{Registry: reg, Package: pkg}
}

func (a *Adapter) Ecosystem() string { return "aur" }

func (a *Adapter) load(ctx context.Context) (*aur.Info, error) {
	if a.info != nil {
		return a.info, nil
	}
	info, err := a.Registry.Info(ctx, a.Package)
	if err != nil {
		return nil, err
	}
	a.info = info
	return info, nil
}

func (a *Adapter) GetVersions(ctx context.Context) ([]string, error) {
	info, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return []string{info.Version}, nil
}

func (a *Adapter) GetDefaultVersion(ctx context.Context) (string, bool, error) {
	info, err := a.load(ctx)
	if err != nil {
		return "", false, err
	}
	return info.Version, true, nil
}

func (a *Adapter) GetPackageInfo(ctx context.Context, version string) ([]adapter.BranchInfo, error) {
	info, err := a.load(ctx)
	if err != nil || info.Version != version {
		return nil, err
	}
	pinfo := adapter.PackageInfo{
		URL:            "https://aur.archlinux.org" + info.URLPath,
		Filename:       a.Package + ".tar.gz",
		Version:        version,
		Author:         info.Maintainer,
		ManifestFormat: adapter.ManifestSrcinfo,
	}
	return []adapter.BranchInfo{{Branch: adapter.VersionBranch(version), Info: pinfo}}, nil
}

// BuildRelease concatenates a multi-valued .SRCINFO pkgdesc field with
// newlines per the documented fixture behaviour (scenario #5), rather than
// keeping only the first declaration. Other .SRCINFO fields, url included,
// are not read.
func (a *Adapter) BuildRelease(ctx context.Context, info adapter.PackageInfo, unpacked billy.Filesystem, directoryID object.ID) (*object.Release, error) {
	message := fmt.Sprintf("Synthetic release for aur source package %s version %s\n", a.Package, info.Version)
	if src, err := a.Registry.SRCINFO(ctx, a.Package); err == nil && src != nil {
		if desc := src.Fields["pkgdesc"]; len(desc) > 0 {
			message += strings.Join(desc, "\n") + "\n"
		}
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
	return &object.ExtID{
		Type:       "aur-package-version",
		Version:    1,
		ExtID:      []byte(a.Package + "@" + info.Version),
		TargetType: object.TargetDir,
		TargetID:   targetID,
	}
}

// CarryForward is false: AUR has no stable version history, so each visit
// should reflect exactly the current upstream state rather than carry
// forward a branch upstream no longer lists.
func (a *Adapter) CarryForward() bool { return false }

var _ adapter.Adapter = &Adapter{}
