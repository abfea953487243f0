// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/store"
)

// Failure records one branch (or the visit as a whole, if Branch is empty)
// that did not make it into the resulting snapshot. URL/Expected/Actual are
// populated when the underlying error carries them (e.g. a checksum or
// length mismatch); Kind names the errkind sentinel the error matched, or
// is empty if it matched none.
type Failure struct {
	Branch   string
	URL      string
	Kind     string
	Err      error
	Expected string
	Actual   string
}

// classifyFailure builds a Failure from err, recovering URL/Kind/Expected/
// Actual where the error (or one it wraps) carries them structurally,
// instead of requiring callers to parse the error string.
func classifyFailure(branch string, err error) Failure {
	f := Failure{Branch: branch, Err: err}
	var ce *errkind.ChecksumMismatchError
	if errors.As(err, &ce) {
		f.URL, f.Kind, f.Expected, f.Actual = ce.URL, "checksum_mismatch", ce.Expected, ce.Actual
		return f
	}
	var le *errkind.LengthMismatchError
	if errors.As(err, &le) {
		f.URL, f.Kind = le.URL, "length_mismatch"
		f.Expected, f.Actual = fmt.Sprintf("%d", le.Expected), fmt.Sprintf("%d", le.Actual)
		return f
	}
	switch {
	case errkind.Structural(err):
		switch {
		case errors.Is(err, errkind.NotFound):
			f.Kind = "not_found"
		case errors.Is(err, errkind.UnsafeArchive):
			f.Kind = "unsafe_archive"
		case errors.Is(err, errkind.ArchiveDecodeError):
			f.Kind = "archive_decode_error"
		case errors.Is(err, errkind.AdapterError):
			f.Kind = "adapter_error"
		case errors.Is(err, errkind.Timeout):
			f.Kind = "timeout"
		}
	case errkind.Transient(err):
		f.Kind = "store_unavailable"
	case errors.Is(err, errkind.Cancelled):
		f.Kind = "cancelled"
	}
	return f
}

// Stats counts what happened to each branch a visit considered, for
// metrics and for deciding the visit's terminal status.
type Stats struct {
	VersionsConsidered int
	BranchesAttempted  int
	BranchesKnown      int // short-circuited via a previously recorded ExtID
	BranchesCarried    int // unchanged branches carried forward from the prior snapshot
	BranchesSucceeded  int // freshly fetched, unpacked and staged
	BranchesSkipped    int // adapter.BuildRelease returned a nil release
	BranchesFailed     int
}

// LoadResult is the outcome of one visit. Load never returns a Go error for
// registry- or artifact-level failures; those are folded into Status and
// Failures instead, per branch.
type LoadResult struct {
	Status     store.VisitStatus
	SnapshotID *object.ID
	Stats      Stats
	Failures   []Failure

	// VisitLog holds every line the visit's logger emitted, captured via
	// ScopedLogCapture. Useful for attaching to a failure report without
	// requiring the caller to have configured its own log sink.
	VisitLog string
}

// recordStatus writes a visit status transition and returns the store's
// error, if any. Load ignores that error for the created and ongoing
// transitions and only logs it for the terminal one.
// uneventful is §8 scenario 1's flag, not a status of its own (store.go:48):
// it marks a full/partial visit that resolved every branch without staging
// anything new.
func recordStatus(ctx context.Context, s store.Store, origin store.Origin, visitID int64, status store.VisitStatus, snapID *object.ID, uneventful bool) error {
	return s.OriginVisitStatusAdd(ctx, store.OriginVisitStatusRecord{
		Origin:     origin,
		VisitID:    visitID,
		Status:     status,
		Uneventful: uneventful,
		SnapshotID: snapID,
		Recorded:   time.Now(),
	})
}

// uneventfulVisit reports whether a completed visit resolved every branch it
// touched without producing any newly fetched-and-staged content: every
// attempted branch either short-circuited via a known ExtID or was carried
// forward unchanged from the prior snapshot. Only meaningful for a terminal
// full/partial status; a failed or not-found visit is never uneventful.
func uneventfulVisit(status store.VisitStatus, stats Stats) bool {
	if status != store.StatusFull && status != store.StatusPartial {
		return false
	}
	total := stats.BranchesAttempted + stats.BranchesCarried
	return total > 0 && stats.BranchesCarried+stats.BranchesKnown == total
}

// finalStatus picks the terminal OriginVisit status from what a visit's
// branches actually produced (§4.6 step 7): full once every attempted
// branch is accounted for with no failures, partial if some succeeded and
// some failed, failed if none succeeded at all.
func finalStatus(stats Stats) store.VisitStatus {
	succeeded := stats.BranchesKnown + stats.BranchesCarried + stats.BranchesSucceeded
	switch {
	case succeeded == 0:
		return store.StatusFailed
	case stats.BranchesFailed > 0:
		return store.StatusPartial
	default:
		return store.StatusFull
	}
}
