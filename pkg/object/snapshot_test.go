// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import "testing"

func TestSnapshot_Canonical_OrderIndependent(t *testing.T) {
	s1 := Snapshot{Branches: []Branch{
		{Name: "releases/0.0.4", TargetType: TargetRelease, TargetID: mustID(1)},
		{Name: "releases/0.0.2", TargetType: TargetRelease, TargetID: mustID(2)},
		{Name: "HEAD", TargetType: TargetAlias, AliasTarget: "releases/0.0.4"},
	}}
	s2 := Snapshot{Branches: []Branch{s1.Branches[2], s1.Branches[0], s1.Branches[1]}}
	id1, err := s1.ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	id2, err := s2.ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("ID() order dependent: %s != %s", id1, id2)
	}
}

func TestSnapshot_Canonical_DuplicateBranchRejected(t *testing.T) {
	s := Snapshot{Branches: []Branch{
		{Name: "releases/1.0.0", TargetType: TargetRelease, TargetID: mustID(1)},
		{Name: "releases/1.0.0", TargetType: TargetRelease, TargetID: mustID(2)},
	}}
	if _, err := s.Canonical(); err == nil {
		t.Error("Canonical() with duplicate branch names want error, got nil")
	}
}

func TestSnapshot_EmptyStillWellDefined(t *testing.T) {
	id, err := (Snapshot{}).ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if id.IsZero() {
		t.Error("empty snapshot id should not be the zero value")
	}
}
