// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package stage implements object staging (C4): bounded batch buffers for
// Content, Directory and Release objects, flushed to the store in
// the dependency order the graph requires.
package stage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/store"
)

// Limits bounds how many objects of each kind accumulate before a flush is
// forced mid-artifact.
type Limits struct {
	Contents   int
	Directries int
	Releases   int
}

// DefaultLimits matches the staging contract's stated defaults.
var DefaultLimits = Limits{Contents: 1000, Directries: 2500, Releases: 1000}

// Staging buffers objects for one visit and flushes them to a store in
// dependency order: Contents, then Directories, then Releases. Snapshot,
// ExtIDs and the visit status are committed separately once a visit's
// branches are fully resolved (§4.4, §4.6 step 6).
type Staging struct {
	store   store.Store
	limits  Limits
	flushes int

	contents   []object.Content
	directries []object.Directory
	releases   []object.Release
}

// New constructs a Staging writing into s, flushing partial batches
// whenever a buffer reaches its configured limit.
func New(s store.Store, limits Limits) *Staging {
	return &Staging{store: s, limits: limits}
}

// AddContent buffers c, then flushes the content batch (c included) once it
// has reached its limit.
func (s *Staging) AddContent(ctx context.Context, c object.Content) error {
	s.contents = append(s.contents, c)
	if len(s.contents) >= s.limits.Contents {
		return s.flushContents(ctx)
	}
	return nil
}

// AddDirectory buffers d, then flushes the directory batch (d included) once
// it has reached its limit.
func (s *Staging) AddDirectory(ctx context.Context, d object.Directory) error {
	s.directries = append(s.directries, d)
	if len(s.directries) >= s.limits.Directries {
		return s.flushDirectories(ctx)
	}
	return nil
}

// AddRelease buffers r, then flushes the release batch (r included) once it
// has reached its limit.
func (s *Staging) AddRelease(ctx context.Context, r object.Release) error {
	s.releases = append(s.releases, r)
	if len(s.releases) >= s.limits.Releases {
		return s.flushReleases(ctx)
	}
	return nil
}

// Flush writes every buffered object kind to the store in dependency order
// and clears the buffers. Call this at artifact boundaries and again,
// unconditionally, before committing the Snapshot.
func (s *Staging) Flush(ctx context.Context) error {
	if err := s.flushContents(ctx); err != nil {
		return err
	}
	if err := s.flushDirectories(ctx); err != nil {
		return err
	}
	return s.flushReleases(ctx)
}

func (s *Staging) flushContents(ctx context.Context) error {
	if len(s.contents) == 0 {
		return nil
	}
	if err := s.store.ContentAdd(ctx, s.contents); err != nil {
		return errors.Wrapf(errkind.StoreUnavailable, "flushing %d contents: %v", len(s.contents), err)
	}
	s.flushes++
	s.contents = s.contents[:0]
	return nil
}

func (s *Staging) flushDirectories(ctx context.Context) error {
	if len(s.directries) == 0 {
		return nil
	}
	if err := s.store.DirectoryAdd(ctx, s.directries); err != nil {
		return errors.Wrapf(errkind.StoreUnavailable, "flushing %d directories: %v", len(s.directries), err)
	}
	s.flushes++
	s.directries = s.directries[:0]
	return nil
}

func (s *Staging) flushReleases(ctx context.Context) error {
	if len(s.releases) == 0 {
		return nil
	}
	if err := s.store.ReleaseAdd(ctx, s.releases); err != nil {
		return errors.Wrapf(errkind.StoreUnavailable, "flushing %d releases: %v", len(s.releases), err)
	}
	s.flushes++
	s.releases = s.releases[:0]
	return nil
}

// Flushes reports how many non-empty batches have been written, for
// metrics/testing.
func (s *Staging) Flushes() int { return s.flushes }
