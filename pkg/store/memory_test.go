// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/ossarchive/pkgloader/pkg/object"
)

func TestMemory_SnapshotGetLatest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	origin := Origin{URL: "https://registry.npmjs.org/left-pad", Type: "npm"}
	if err := m.OriginAdd(ctx, origin); err != nil {
		t.Fatalf("OriginAdd() error = %v", err)
	}
	snap := object.Snapshot{Branches: []object.Branch{
		{Name: "releases/1.0.0", TargetType: object.TargetRelease, TargetID: mustTestID(1)},
	}}
	id, err := m.SnapshotAdd(ctx, snap)
	if err != nil {
		t.Fatalf("SnapshotAdd() error = %v", err)
	}
	if err := m.OriginVisitStatusAdd(ctx, OriginVisitStatusRecord{
		Origin: origin, VisitID: 1, Status: StatusFull, SnapshotID: &id, Recorded: time.Now(),
	}); err != nil {
		t.Fatalf("OriginVisitStatusAdd() error = %v", err)
	}

	got, gotID, ok, err := m.SnapshotGetLatest(ctx, origin, []VisitStatus{StatusFull, StatusPartial})
	if err != nil {
		t.Fatalf("SnapshotGetLatest() error = %v", err)
	}
	if !ok {
		t.Fatal("SnapshotGetLatest() ok = false, want true")
	}
	if gotID != id {
		t.Errorf("SnapshotGetLatest() id = %s, want %s", gotID, id)
	}
	if len(got.Branches) != 1 {
		t.Errorf("SnapshotGetLatest() branches = %d, want 1", len(got.Branches))
	}
}

func TestMemory_SnapshotGetLatest_NoneMatching(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	origin := Origin{URL: "https://registry.npmjs.org/nope", Type: "npm"}
	if err := m.OriginVisitStatusAdd(ctx, OriginVisitStatusRecord{
		Origin: origin, VisitID: 1, Status: StatusFailed, Recorded: time.Now(),
	}); err != nil {
		t.Fatalf("OriginVisitStatusAdd() error = %v", err)
	}
	_, _, ok, err := m.SnapshotGetLatest(ctx, origin, []VisitStatus{StatusFull, StatusPartial})
	if err != nil {
		t.Fatalf("SnapshotGetLatest() error = %v", err)
	}
	if ok {
		t.Error("SnapshotGetLatest() ok = true, want false")
	}
}

func TestMemory_ExtIDAdd_NeverRewritten(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first := object.ExtID{Type: "pypi-sha256", ExtID: []byte("digest"), TargetType: object.TargetRelease, TargetID: mustTestID(1)}
	second := object.ExtID{Type: "pypi-sha256", ExtID: []byte("digest"), TargetType: object.TargetRelease, TargetID: mustTestID(2)}
	if err := m.ExtIDAdd(ctx, []object.ExtID{first}); err != nil {
		t.Fatalf("ExtIDAdd() error = %v", err)
	}
	if err := m.ExtIDAdd(ctx, []object.ExtID{second}); err != nil {
		t.Fatalf("ExtIDAdd() error = %v", err)
	}
	got, err := m.ExtIDGetFromExtID(ctx, "pypi-sha256", [][]byte{[]byte("digest")})
	if err != nil {
		t.Fatalf("ExtIDGetFromExtID() error = %v", err)
	}
	e, ok := got["digest"]
	if !ok {
		t.Fatal("ExtIDGetFromExtID() missing entry")
	}
	if e.TargetID != first.TargetID {
		t.Errorf("ExtIDGetFromExtID() target = %s, want %s (first write must win)", e.TargetID, first.TargetID)
	}
}

func mustTestID(b byte) object.ID {
	var id object.ID
	for i := range id {
		id[i] = b
	}
	return id
}
