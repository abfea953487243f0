// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package fetch implements the retrying, checksum-verifying artifact
// downloader (C1): it streams an artifact to a per-visit scratch directory,
// retrying transient failures with exponential backoff and full jitter, and
// memoising successful downloads for the lifetime of a visit.
package fetch

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/ossarchive/pkgloader/internal/cache"
	"github.com/ossarchive/pkgloader/internal/hashext"
	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/internal/ratex"
	"github.com/ossarchive/pkgloader/pkg/errkind"
)

// Digests holds the registry's declared digests for an artifact, keyed by
// algorithm name (e.g. "sha256", "sha1", "md5"). Unsupported algorithm
// names are ignored; at least one recognised algorithm should be supplied
// for meaningful verification.
type Digests map[string]string

// Request describes one artifact to fetch.
type Request struct {
	URL             string
	ExpectedDigests Digests
	ExpectedLength  int64 // 0 means unknown/unchecked
}

// Result is the outcome of a successful fetch.
type Result struct {
	Path   string
	Length int64
	Digest map[string]string // algorithm -> hex digest, as actually observed
}

// Policy bounds retry and timeout behaviour. The zero value is not usable;
// use DefaultPolicy.
type Policy struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
}

// DefaultPolicy matches the fetcher contract's stated defaults.
var DefaultPolicy = Policy{
	MaxAttempts:    3,
	BaseBackoff:    10 * time.Second,
	MaxBackoff:     2 * time.Minute,
	RequestTimeout: 120 * time.Second,
}

// Fetcher downloads artifacts into a scratch directory, retrying transient
// failures and memoising successful fetches for the duration of a visit.
type Fetcher struct {
	Scratch billy.Filesystem
	Client  httpx.BasicClient
	Policy  Policy

	memo    *cache.CoalescingMemoryCache
	limiter *ratex.BackoffLimiter
}

// New constructs a Fetcher writing into scratch and issuing requests
// through client. A Fetcher is scoped to a single visit: discard it (and
// its scratch dir) when the visit ends. All fetches through it share a
// single backoff limiter, so one registry returning 429/5xx slows down
// every subsequent request to it for the rest of the visit, not just
// retries of the request that got throttled.
func New(scratch billy.Filesystem, client httpx.BasicClient, policy Policy) *Fetcher {
	return &Fetcher{
		Scratch: scratch,
		Client:  client,
		Policy:  policy,
		memo:    &cache.CoalescingMemoryCache{},
		limiter: ratex.NewBackoffLimiter(minFetchInterval),
	}
}

// minFetchInterval is the rate limiter's floor: small enough to be
// invisible under normal operation, present so a burst of fetches to the
// same registry never reduces to zero pacing.
const minFetchInterval = time.Millisecond

func memoKey(req Request) string {
	return req.URL + "|" + digestKey(req.ExpectedDigests)
}

func digestKey(d Digests) string {
	// Deterministic enough for memoisation purposes: digest maps are small
	// and typically carry at most one or two algorithms.
	var key string
	for _, algo := range []string{"sha256", "sha1", "sha1-git", "blake2s-256", "md5"} {
		if v, ok := d[algo]; ok {
			key += algo + "=" + v + ";"
		}
	}
	return key
}

// Fetch downloads req, retrying per f.Policy, and returns the local path it
// was streamed to. A second call with the same URL+digest during this
// Fetcher's lifetime returns the cached path without re-downloading.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	v, err := f.memo.GetOrSet(memoKey(req), func() (any, error) {
		return f.fetchUncached(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (f *Fetcher) fetchUncached(ctx context.Context, req Request) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < f.Policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, f.Policy, attempt); err != nil {
				return Result{}, err
			}
		}
		res, retry, err := f.attempt(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			return Result{}, err
		}
	}
	return Result{}, errors.Wrapf(lastErr, "fetch %s: exhausted %d attempts", req.URL, f.Policy.MaxAttempts)
}

// attempt performs one HTTP GET and verification pass. The bool return
// indicates whether the caller should retry on error.
func (f *Fetcher) attempt(ctx context.Context, req Request) (Result, bool, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Result{}, false, errors.Wrap(err, "waiting for fetch rate limiter")
	}
	reqCtx, cancel := context.WithTimeout(ctx, f.Policy.RequestTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Result{}, false, errors.Wrap(err, "building request")
	}
	resp, err := f.Client.Do(httpReq)
	if err != nil {
		return Result{}, true, errors.Wrapf(err, "fetching %s", req.URL)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		f.limiter.Success()
		return Result{}, false, errors.Wrapf(errkind.NotFound, "%s", req.URL)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		f.limiter.Backoff()
		return Result{}, true, errors.Errorf("fetching %s: %s", req.URL, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		f.limiter.Success()
		return Result{}, false, errors.Errorf("fetching %s: %s", req.URL, resp.Status)
	}
	f.limiter.Success()
	return f.stream(req, resp.Body)
}

func (f *Fetcher) stream(req Request, body io.Reader) (Result, bool, error) {
	name := filepath.Join("fetch", scratchName(req.URL))
	if err := f.Scratch.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return Result{}, false, errors.Wrap(err, "preparing scratch dir")
	}
	out, err := f.Scratch.Create(name)
	if err != nil {
		return Result{}, false, errors.Wrap(err, "creating scratch file")
	}
	mh := hashext.NewMultiHash(crypto.SHA256, crypto.SHA1)
	n, err := io.Copy(io.MultiWriter(out, mh), body)
	closeErr := out.Close()
	if err != nil {
		return Result{}, true, errors.Wrapf(err, "downloading %s", req.URL)
	}
	if closeErr != nil {
		return Result{}, false, errors.Wrap(closeErr, "closing scratch file")
	}
	if req.ExpectedLength != 0 && n != req.ExpectedLength {
		return Result{}, false, &errkind.LengthMismatchError{URL: req.URL, Expected: req.ExpectedLength, Actual: n}
	}
	sum := mh.Sum(nil)
	sha256Sum := sum[8 : 8+sha256.Size]
	sha1Off := 8 + sha256.Size + 8
	sha1Sum := sum[sha1Off : sha1Off+sha1.Size]
	observed := map[string]string{
		"sha256": fmt.Sprintf("%x", sha256Sum),
		"sha1":   fmt.Sprintf("%x", sha1Sum),
	}
	for algo, want := range req.ExpectedDigests {
		got, ok := observed[algo]
		if !ok {
			continue // unsupported algorithm name; caller verifies out of band if needed
		}
		if got != want {
			return Result{}, false, &errkind.ChecksumMismatchError{URL: req.URL, Algo: algo, Expected: want, Actual: got}
		}
	}
	return Result{Path: name, Length: n, Digest: observed}, false, nil
}

func scratchName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)
}

// sleepBackoff waits the exponential-backoff-with-full-jitter duration for
// the given attempt index (1-based retry count), or returns ctx.Err() if
// cancelled first.
func sleepBackoff(ctx context.Context, p Policy, attempt int) error {
	ceiling := float64(p.MaxBackoff)
	base := float64(p.BaseBackoff)
	upper := math.Min(ceiling, base*math.Pow(2, float64(attempt)))
	n, err := rand.Int(rand.Reader, big.NewInt(int64(upper)+1))
	var wait time.Duration
	if err != nil {
		wait = time.Duration(upper) // degrade to no jitter rather than fail the fetch
	} else {
		wait = time.Duration(n.Int64())
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

