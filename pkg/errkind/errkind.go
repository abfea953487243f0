// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package errkind defines the abstract error kinds propagated between the
// fetcher, unpacker, adapters, staging and the orchestrator. Structural
// errors (ChecksumMismatch, UnsafeArchive, ...) are fatal for the branch
// that produced them and are never retried within a visit; transient kinds
// (StoreUnavailable, network errors) are retried per their component's
// policy. See the failure-accounting design for how these surface in a
// LoadResult.
package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds. Wrap these with errors.Wrap/errors.Wrapf (or match
// with errors.Is against the unwrapped cause) rather than comparing error
// strings.
var (
	// NotFound indicates the origin or artifact is absent upstream (HTTP 404).
	NotFound = errors.New("not found")
	// ChecksumMismatch indicates a downloaded artifact's digest did not match
	// the registry's declared value.
	ChecksumMismatch = errors.New("checksum mismatch")
	// LengthMismatch indicates a downloaded artifact's length did not match
	// the registry's declared value.
	LengthMismatch = errors.New("length mismatch")
	// UnsafeArchive indicates a path-traversal or symlink-escape attempt
	// during unpacking.
	UnsafeArchive = errors.New("unsafe archive")
	// ArchiveDecodeError indicates a structurally invalid archive.
	ArchiveDecodeError = errors.New("archive decode error")
	// AdapterError indicates an adapter raised or returned inconsistent data.
	AdapterError = errors.New("adapter error")
	// StoreUnavailable indicates the persistence layer is failing; staging
	// flushes are retried at the orchestrator level on this kind.
	StoreUnavailable = errors.New("store unavailable")
	// Cancelled indicates an externally requested cancellation.
	Cancelled = errors.New("cancelled")
	// Timeout indicates a wall-clock cap was breached.
	Timeout = errors.New("timeout")
)

// ChecksumMismatchError carries the declared vs. observed digest for a
// failed verification, structurally rather than only formatted into the
// error string, so callers (failure accounting, §4.8/§8 scenario 6) can
// recover the expected/actual values without parsing error text.
type ChecksumMismatchError struct {
	URL, Algo, Expected, Actual string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: %s checksum mismatch: want %s, got %s", e.URL, e.Algo, e.Expected, e.Actual)
}

// Is reports that a *ChecksumMismatchError matches the ChecksumMismatch
// sentinel under errors.Is, without needing errors.Wrap at the call site.
func (e *ChecksumMismatchError) Is(target error) bool { return target == ChecksumMismatch }

// LengthMismatchError carries the declared vs. observed artifact length.
type LengthMismatchError struct {
	URL              string
	Expected, Actual int64
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: length mismatch: want %d, got %d", e.URL, e.Expected, e.Actual)
}

func (e *LengthMismatchError) Is(target error) bool { return target == LengthMismatch }

// Structural reports whether err represents a structural (non-retriable)
// failure: one that should be recorded against its branch and never
// retried within the visit.
func Structural(err error) bool {
	switch {
	case errors.Is(err, ChecksumMismatch),
		errors.Is(err, LengthMismatch),
		errors.Is(err, UnsafeArchive),
		errors.Is(err, ArchiveDecodeError),
		errors.Is(err, AdapterError),
		errors.Is(err, NotFound),
		errors.Is(err, Timeout):
		return true
	default:
		return false
	}
}

// Transient reports whether err should be retried per its component's
// backoff policy.
func Transient(err error) bool {
	return errors.Is(err, StoreUnavailable)
}
