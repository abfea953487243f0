// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/pkg/adapter"
	"github.com/ossarchive/pkgloader/pkg/archive"
	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/ossarchive/pkgloader/pkg/fetch"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/stage"
	"github.com/ossarchive/pkgloader/pkg/store"
)

// Loader is the package-loader orchestrator (C6): it drives one adapter
// against one origin, combining the fetcher (C1), unpacker (C2), content
// hasher (C3) and staging (C4) into a single visit, and tracks the visit
// state machine (C7) and failure accounting (C8) along the way.
type Loader struct {
	Store   store.Store
	Adapter adapter.Adapter
	Client  httpx.BasicClient
	Policy  fetch.Policy
	Limits  stage.Limits

	// Logger receives progress lines for the duration of a visit. Defaults
	// to log.Default() if nil.
	Logger *log.Logger
}

// New constructs a Loader with the staging and fetch defaults.
func New(s store.Store, a adapter.Adapter, client httpx.BasicClient) *Loader {
	return &Loader{Store: s, Adapter: a, Client: client, Policy: fetch.DefaultPolicy, Limits: stage.DefaultLimits}
}

const (
	// visitTimeout bounds the wall-clock duration of a single Load call
	// (§4.6 step 2, spec.md:158's per-visit cap).
	visitTimeout = 6 * time.Hour
	// branchTimeout bounds one branch's fetch+unpack+hash span (spec.md:158's
	// per-artifact cap), independent of fetch.go's inner per-request timeout.
	branchTimeout = 1 * time.Hour
)

// wrapContextErr classifies a ctx.Err() (or an error a component returned
// after its ctx expired) into errkind.Timeout or errkind.Cancelled, so
// classifyFailure can tell a wall-clock cap breach apart from an externally
// requested cancellation instead of recording neither.
func wrapContextErr(label string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrapf(errkind.Timeout, "%s: %v", label, err)
	case errors.Is(err, context.Canceled):
		return errors.Wrapf(errkind.Cancelled, "%s: %v", label, err)
	default:
		return err
	}
}

func (l *Loader) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return log.Default()
}

// Load runs a single visit of origin: it enumerates the adapter's versions,
// fetches and archives whatever isn't already known, and commits a new
// Snapshot. Load never lets a registry or artifact-level error escape: every
// failure it can attribute to a branch is folded into the returned
// LoadResult instead.
func (l *Loader) Load(ctx context.Context, origin store.Origin) (result LoadResult) {
	logger := l.logger()
	result = LoadResult{Status: store.StatusFailed}

	correlationID := uuid.New().String()
	ctx = context.WithValue(ctx, VisitIDKey, correlationID)
	ctx, cancelVisit := context.WithTimeout(ctx, visitTimeout)
	defer cancelVisit()
	var captured bytes.Buffer
	restore := ScopedLogCapture(logger, &captured)
	defer func() {
		restore()
		result.VisitLog = captured.String()
	}()
	logger.Printf("pkgloader: visit %s: starting %s", correlationID, origin.URL)

	scratchDir, err := os.MkdirTemp("", fmt.Sprintf("pkgloader-visit-%s-*", correlationID))
	if err != nil {
		result.Failures = append(result.Failures, Failure{Err: errors.Wrap(err, "creating scratch directory")})
		return result
	}
	defer os.RemoveAll(scratchDir) // §4.6 step 8: always discard scratch state
	scratch := osfs.New(scratchDir)
	ctx = context.WithValue(ctx, ScratchDirID, scratch)

	if err := l.Store.OriginAdd(ctx, origin); err != nil {
		result.Failures = append(result.Failures, Failure{Err: errors.Wrap(err, "recording origin")})
		return result
	}
	visitID := time.Now().UnixNano()
	visit := store.OriginVisit{Origin: origin, VisitID: visitID, Type: l.Adapter.Ecosystem(), Started: time.Now()}
	if err := l.Store.OriginVisitAdd(ctx, visit); err != nil {
		result.Failures = append(result.Failures, Failure{Err: errors.Wrap(err, "recording visit")})
		return result
	}
	_ = recordStatus(ctx, l.Store, origin, visitID, store.StatusCreated, nil, false)
	_ = recordStatus(ctx, l.Store, origin, visitID, store.StatusOngoing, nil, false)

	status, snapID := l.run(ctx, origin, scratch, &result)
	result.Status = status
	result.SnapshotID = snapID
	uneventful := uneventfulVisit(status, result.Stats)
	if err := recordStatus(ctx, l.Store, origin, visitID, status, snapID, uneventful); err != nil {
		logger.Printf("pkgloader: %s: recording final status %s: %v", origin.URL, status, err)
	}
	logger.Printf("pkgloader: visit %s: finished %s with status %s", correlationID, origin.URL, status)
	return result
}

// run implements the body of §4.6 steps 2-6, leaving status bookkeeping
// (steps 1 and 7) to the caller.
func (l *Loader) run(ctx context.Context, origin store.Origin, scratch billy.Filesystem, result *LoadResult) (store.VisitStatus, *object.ID) {
	prevBranches, err := l.previousBranches(ctx, origin)
	if err != nil {
		result.Failures = append(result.Failures, classifyFailure("", errors.Wrap(err, "loading prior snapshot")))
	}

	versions, err := l.Adapter.GetVersions(ctx)
	if err != nil {
		if errors.Is(err, errkind.NotFound) {
			return store.StatusNotFound, nil
		}
		result.Failures = append(result.Failures, classifyFailure("", errors.Wrap(err, "listing versions")))
		return store.StatusFailed, nil
	}
	result.Stats.VersionsConsidered = len(versions)

	fetcher := fetch.New(scratch, l.Client, l.Policy)
	staging := stage.New(l.Store, l.Limits)

	branches := map[string]object.Branch{}
	var extIDs []object.ExtID
	var branchCounter int

	for _, version := range versions {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, classifyFailure("", wrapContextErr("visit", err)))
			break
		}
		infos, err := l.Adapter.GetPackageInfo(ctx, version)
		if err != nil {
			result.Failures = append(result.Failures, classifyFailure(version, err))
			result.Stats.BranchesFailed++
			continue
		}
		for _, bi := range infos {
			branchCounter++
			if existing, ok := branches[bi.Branch]; ok {
				f := classifyFailure(bi.Branch, errors.Wrapf(errkind.AdapterError, "branch %q already resolved to %s", bi.Branch, existing.TargetID))
				f.URL = bi.Info.URL
				result.Failures = append(result.Failures, f)
				result.Stats.BranchesFailed++
				continue
			}
			result.Stats.BranchesAttempted++
			branchCtx, branchCancel := context.WithTimeout(ctx, branchTimeout)
			branch, ext, known, err := l.resolveBranch(branchCtx, bi, scratch, fetcher, staging, branchCounter)
			branchCancel()
			if err != nil {
				err = wrapContextErr(bi.Branch, err)
				f := classifyFailure(bi.Branch, err)
				if f.URL == "" {
					f.URL = bi.Info.URL
				}
				result.Failures = append(result.Failures, f)
				result.Stats.BranchesFailed++
				continue
			}
			if branch == nil {
				result.Stats.BranchesSkipped++
				continue
			}
			branches[bi.Branch] = *branch
			if ext != nil {
				extIDs = append(extIDs, *ext)
			}
			if known {
				result.Stats.BranchesKnown++
			} else {
				result.Stats.BranchesSucceeded++
			}
		}
	}

	if l.Adapter.CarryForward() {
		for name, b := range prevBranches {
			if _, ok := branches[name]; !ok {
				branches[name] = b
				result.Stats.BranchesCarried++
			}
		}
	}

	if headTarget, ok := resolveDefaultBranch(ctx, l.Adapter, branches); ok {
		branches[adapter.HeadBranch] = object.Branch{
			Name: adapter.HeadBranch, TargetType: object.TargetAlias, AliasTarget: headTarget,
		}
	}

	if err := flushWithRetry(ctx, staging); err != nil {
		result.Failures = append(result.Failures, classifyFailure("", errors.Wrap(err, "flushing staged objects")))
		return store.StatusFailed, nil
	}

	if len(branches) == 0 {
		return finalStatus(result.Stats), nil
	}

	snap := object.Snapshot{Branches: make([]object.Branch, 0, len(branches))}
	for _, b := range branches {
		snap.Branches = append(snap.Branches, b)
	}
	snapID, err := l.Store.SnapshotAdd(ctx, snap)
	if err != nil {
		result.Failures = append(result.Failures, Failure{Err: errors.Wrap(err, "committing snapshot")})
		return store.StatusFailed, nil
	}
	if len(extIDs) > 0 {
		if err := l.Store.ExtIDAdd(ctx, extIDs); err != nil {
			result.Failures = append(result.Failures, Failure{Err: errors.Wrap(err, "committing extids")})
		}
	}
	return finalStatus(result.Stats), &snapID
}

// previousBranches returns the branch set of the most recent full or
// partial snapshot for origin, used both for carry-forward and (indirectly,
// through the ExtID index) for the known-artifact short-circuit.
func (l *Loader) previousBranches(ctx context.Context, origin store.Origin) (map[string]object.Branch, error) {
	snap, _, ok, err := l.Store.SnapshotGetLatest(ctx, origin, []store.VisitStatus{store.StatusFull, store.StatusPartial})
	if err != nil || !ok {
		return nil, err
	}
	out := make(map[string]object.Branch, len(snap.Branches))
	for _, b := range snap.Branches {
		out[b.Name] = b
	}
	return out, nil
}

// resolveBranch runs one branch's worth of §4.6 step 4: it short-circuits
// against a previously recorded ExtID when possible, otherwise fetches,
// unpacks and content-addresses the artifact and asks the adapter to
// synthesise a Release. A nil branch with a nil error means the adapter
// chose to skip this branch. The known bool reports whether this branch was
// resolved via the ExtID short-circuit, for stats purposes.
func (l *Loader) resolveBranch(ctx context.Context, bi adapter.BranchInfo, scratch billy.Filesystem, fetcher *fetch.Fetcher, staging *stage.Staging, seq int) (*object.Branch, *object.ExtID, bool, error) {
	info := bi.Info
	if probe := l.Adapter.KnownArtifactToExtID(info, object.ID{}); probe != nil {
		found, err := l.Store.ExtIDGetFromExtID(ctx, probe.Type, [][]byte{probe.ExtID})
		if err != nil {
			return nil, nil, false, errors.Wrap(err, "checking known artifacts")
		}
		if known, ok := found[string(probe.ExtID)]; ok {
			// The artifact's bytes were already content-addressed on a prior
			// visit: skip straight to the known directory id without
			// re-fetching or re-unpacking. Adapters that read intrinsic
			// manifests (npm, cpan) see an empty tree here and behave as
			// they do when no manifest is present: cpan keeps the registry's
			// author and version, npm builds a release with no author.
			release, err := l.Adapter.BuildRelease(ctx, info, memfs.New(), known.TargetID)
			if err != nil {
				return nil, nil, false, err
			}
			if release == nil {
				return nil, nil, false, nil
			}
			if err := staging.AddRelease(ctx, *release); err != nil {
				return nil, nil, false, err
			}
			branch := &object.Branch{Name: bi.Branch, TargetType: object.TargetRelease, TargetID: release.ID()}
			return branch, nil, true, nil
		}
	}

	req := fetch.Request{URL: info.URL, ExpectedDigests: fetch.Digests(info.Checksums), ExpectedLength: info.Length}
	res, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, nil, false, err
	}

	unpackPath := filepath.Join("unpack", fmt.Sprintf("%d", seq))
	if err := scratch.MkdirAll(unpackPath, 0o755); err != nil {
		return nil, nil, false, errors.Wrap(err, "preparing unpack directory")
	}
	unpackFS, err := scratch.Chroot(unpackPath)
	if err != nil {
		return nil, nil, false, errors.Wrap(err, "chrooting unpack directory")
	}
	archivePath := filepath.Join(scratch.Root(), res.Path)
	kind := archive.DetectFormat(info.Filename)
	if kind == archive.UnknownFormat {
		kind = archive.DetectFormat(info.URL)
	}
	if err := archive.Unpack(archivePath, kind, unpackFS); err != nil {
		return nil, nil, false, err
	}

	directoryID, err := hashTree(ctx, unpackFS, "/", staging)
	if err != nil {
		return nil, nil, false, err
	}

	release, err := l.Adapter.BuildRelease(ctx, info, unpackFS, directoryID)
	if err != nil {
		return nil, nil, false, err
	}
	if release == nil {
		return nil, nil, false, nil
	}
	if err := staging.AddRelease(ctx, *release); err != nil {
		return nil, nil, false, err
	}
	branch := &object.Branch{Name: bi.Branch, TargetType: object.TargetRelease, TargetID: release.ID()}
	ext := l.Adapter.KnownArtifactToExtID(info, directoryID)
	return branch, ext, false, nil
}

// maxFlushAttempts bounds retries of a transient (store-unavailable) flush
// failure within a single visit (§4.8: transient errors are retried per
// their component's policy; structural ones never are).
const maxFlushAttempts = 3

// flushWithRetry flushes staging, retrying a bounded number of times when
// the failure is classified as transient (errkind.StoreUnavailable).
// Structural failures (or a non-transient error) return immediately.
func flushWithRetry(ctx context.Context, staging *stage.Staging) error {
	var lastErr error
	for attempt := 0; attempt < maxFlushAttempts; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		err := staging.Flush(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errkind.Transient(err) {
			return err
		}
	}
	return lastErr
}

// resolveDefaultBranch finds the single branch HEAD should alias to, given
// the adapter's designated default version. A version that fanned out into
// more than one branch (one per distributed filename, §6.4) has no single
// HEAD target and is left unaliased.
func resolveDefaultBranch(ctx context.Context, a adapter.Adapter, branches map[string]object.Branch) (string, bool) {
	version, ok, err := a.GetDefaultVersion(ctx)
	if err != nil || !ok {
		return "", false
	}
	exact := adapter.VersionBranch(version)
	if _, ok := branches[exact]; ok {
		return exact, true
	}
	prefix := exact + "/"
	var match string
	for name := range branches {
		if strings.HasPrefix(name, prefix) {
			if match != "" {
				return "", false // more than one artifact for the default version: ambiguous
			}
			match = name
		}
	}
	if match == "" {
		return "", false
	}
	return match, true
}
