// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package adapter

import "fmt"

// HeadBranch is the alias pointing at the default version's branch.
const HeadBranch = "HEAD"

// VersionBranch implements the default §6.4 naming convention for adapters
// where a version yields exactly one artifact.
func VersionBranch(version string) string {
	return fmt.Sprintf("releases/%s", version)
}

// VersionFilenameBranch implements the §6.4 naming convention for adapters
// where a version yields multiple artifacts (distinguished by filename).
func VersionFilenameBranch(version, filename string) string {
	return fmt.Sprintf("releases/%s/%s", version, filename)
}
