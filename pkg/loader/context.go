// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package loader orchestrates the archival of a package's versions from
// an upstream registry into the content-addressed object graph: it wires
// together fetching, unpacking, hashing and staging per visit.
package loader

type ctxKey int

const (
	// ScratchDirID holds the billy.Filesystem used for transient fetch/unpack
	// staging during a single visit.
	ScratchDirID ctxKey = iota
	// VisitIDKey holds the generated correlation id for the in-progress
	// visit, used in log lines and scratch-path namespacing.
	VisitIDKey
)
