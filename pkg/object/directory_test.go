// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"testing"
)

func mustID(b byte) ID {
	var id ID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestDirectory_Canonical_SortsByName(t *testing.T) {
	d := Directory{Entries: []DirEntry{
		{Name: "zeta.txt", Perms: 0o644, TargetType: TargetFile, TargetID: mustID(1)},
		{Name: "alpha.txt", Perms: 0o644, TargetType: TargetFile, TargetID: mustID(2)},
	}}
	unsorted := Directory{Entries: []DirEntry{d.Entries[1], d.Entries[0]}}
	a, err := d.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	b, err := unsorted.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("Canonical() order dependent: %q != %q", a, b)
	}
	idA, _ := d.ID()
	idB, _ := unsorted.ID()
	if idA != idB {
		t.Errorf("ID() = %s, want %s (order-independent)", idA, idB)
	}
}

func TestDirectory_Canonical_DuplicateNameRejected(t *testing.T) {
	d := Directory{Entries: []DirEntry{
		{Name: "a", Perms: 0o644, TargetType: TargetFile, TargetID: mustID(1)},
		{Name: "a", Perms: 0o644, TargetType: TargetFile, TargetID: mustID(2)},
	}}
	if _, err := d.Canonical(); err == nil {
		t.Error("Canonical() with duplicate names want error, got nil")
	}
}

func TestDirectory_ID_Deterministic(t *testing.T) {
	d := Directory{Entries: []DirEntry{
		{Name: "file.txt", Perms: 0o644, TargetType: TargetFile, TargetID: mustID(7)},
	}}
	id1, err := d.ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	id2, err := d.ID()
	if err != nil {
		t.Fatalf("ID() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("ID() not deterministic: %s != %s", id1, id2)
	}
}
