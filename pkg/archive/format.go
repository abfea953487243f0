// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package archive extracts third-party package artifacts (tarballs, zips,
// gems, debs, jars, crates, rpms) into a sandboxed directory tree.
package archive

import (
	"strings"

	"github.com/ossarchive/pkgloader/pkg/errkind"
)

// Format identifies the on-disk encoding of a downloaded artifact.
type Format int

const (
	UnknownFormat Format = iota
	TarFormat
	TarGzFormat
	TarBz2Format
	TarXzFormat
	TarZstFormat
	ZipFormat
	GemFormat
	DebFormat
	JarFormat
	CrateFormat
	RpmFormat
)

// String returns a human-readable name for the format, used in error messages.
func (f Format) String() string {
	switch f {
	case TarFormat:
		return "tar"
	case TarGzFormat:
		return "tar.gz"
	case TarBz2Format:
		return "tar.bz2"
	case TarXzFormat:
		return "tar.xz"
	case TarZstFormat:
		return "tar.zst"
	case ZipFormat:
		return "zip"
	case GemFormat:
		return "gem"
	case DebFormat:
		return "deb"
	case JarFormat:
		return "jar"
	case CrateFormat:
		return "crate"
	case RpmFormat:
		return "rpm"
	default:
		return "unknown"
	}
}

// ErrUnsafeArchive indicates an archive entry would escape the extraction root.
var ErrUnsafeArchive = errkind.UnsafeArchive

// ErrUnknownFormat indicates the archive kind could not be inferred or is unsupported.
var ErrUnknownFormat = errkind.ArchiveDecodeError

// DetectFormat infers a Format from a filename's extension.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".crate"):
		return CrateFormat
	case strings.HasSuffix(lower, ".gem"):
		return GemFormat
	case strings.HasSuffix(lower, ".deb"), strings.HasSuffix(lower, ".udeb"):
		return DebFormat
	case strings.HasSuffix(lower, ".jar"), strings.HasSuffix(lower, ".war"):
		return JarFormat
	case strings.HasSuffix(lower, ".rpm"):
		return RpmFormat
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.z"):
		return TarGzFormat
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz"), strings.HasSuffix(lower, ".tbz2"):
		return TarBz2Format
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return TarXzFormat
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return TarZstFormat
	case strings.HasSuffix(lower, ".tar"):
		return TarFormat
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".whl"), strings.HasSuffix(lower, ".egg"):
		return ZipFormat
	default:
		return UnknownFormat
	}
}
