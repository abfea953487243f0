// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import "io/fs"

// Canonical permission bits every unpacked entry is normalized to (§4.2).
const (
	RegularFileMode    fs.FileMode = 0o644
	ExecutableFileMode fs.FileMode = 0o755
	SymlinkMode        fs.FileMode = 0o120000
	DirectoryMode      fs.FileMode = 0o040000
)

// NormalizeFileMode collapses an archive-supplied mode to one of the three
// canonical file perm classes. Anything with an executable bit set for the
// owner is treated as executable; everything else is a plain regular file.
func NormalizeFileMode(mode fs.FileMode) fs.FileMode {
	if mode&0o100 != 0 {
		return ExecutableFileMode
	}
	return RegularFileMode
}
