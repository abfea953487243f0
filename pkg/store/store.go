// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package store defines the object-store interface (§6.1) the orchestrator
// writes to and reads from. The store itself is an external collaborator;
// this package only describes the contract plus an in-memory reference
// implementation used by tests and small deployments.
package store

import (
	"context"
	"time"

	"github.com/ossarchive/pkgloader/pkg/object"
)

// VisitStatus is the terminal (or in-progress) status of an OriginVisit.
type VisitStatus string

const (
	StatusCreated   VisitStatus = "created"
	StatusOngoing   VisitStatus = "ongoing"
	StatusFull      VisitStatus = "full"
	StatusPartial   VisitStatus = "partial"
	StatusFailed    VisitStatus = "failed"
	StatusNotFound  VisitStatus = "not_found"
)

// Origin is the stable identity of one package: an immutable key.
type Origin struct {
	URL  string
	Type string // visit type, e.g. "npm", "pypi" (§6.6)
}

// OriginVisit is one ingestion attempt for an Origin.
type OriginVisit struct {
	Origin    Origin
	VisitID   int64 // monotonic per origin
	Type      string
	Started   time.Time
}

// OriginVisitStatusRecord records a status transition for a visit.
type OriginVisitStatusRecord struct {
	Origin     Origin
	VisitID    int64
	Status     VisitStatus
	Uneventful bool
	SnapshotID *object.ID
	Recorded   time.Time
}

// Store is the full set of operations the core requires of the downstream
// object store. Every Add method is idempotent on the object's id.
type Store interface {
	ContentAdd(ctx context.Context, batch []object.Content) error
	DirectoryAdd(ctx context.Context, batch []object.Directory) error
	ReleaseAdd(ctx context.Context, batch []object.Release) error
	SnapshotAdd(ctx context.Context, snap object.Snapshot) (object.ID, error)
	ExtIDAdd(ctx context.Context, batch []object.ExtID) error

	OriginAdd(ctx context.Context, o Origin) error
	OriginVisitAdd(ctx context.Context, v OriginVisit) error
	OriginVisitStatusAdd(ctx context.Context, s OriginVisitStatusRecord) error

	// SnapshotGetLatest returns the most recent snapshot for o whose visit
	// status is in allowed, or ok=false if none exists.
	SnapshotGetLatest(ctx context.Context, o Origin, allowed []VisitStatus) (snap object.Snapshot, id object.ID, ok bool, err error)
	// ExtIDGetFromExtID resolves previously stored ExtIDs of the given type
	// whose fingerprint is in ids, keyed by fingerprint.
	ExtIDGetFromExtID(ctx context.Context, extIDType string, ids [][]byte) (map[string]object.ExtID, error)
}
