// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"crypto/sha1"
	"fmt"
	"sort"
)

// Branch is one named pointer inside a Snapshot.
type Branch struct {
	Name string
	// TargetType is TargetRelease, TargetRevision or TargetAlias.
	TargetType TargetType
	// TargetID is the pointed-to object's id, valid unless TargetType is
	// TargetAlias.
	TargetID ID
	// AliasTarget is the name of the branch this one aliases, valid only
	// when TargetType is TargetAlias (e.g. HEAD -> releases/1.2.3).
	AliasTarget string
}

// Snapshot is the immutable mapping from branch name to release/alias
// target representing the state of an origin at one visit.
type Snapshot struct {
	Branches []Branch
}

// Sorted returns a copy of s's branches in the name order canonicalisation
// requires.
func (s Snapshot) Sorted() []Branch {
	out := append([]Branch(nil), s.Branches...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Canonical returns the §6.3 snapshot serialisation: branches sorted by
// name, each `<branch name> NUL <target_type byte> <target id or
// alias-target>`, concatenated.
func (s Snapshot) Canonical() ([]byte, error) {
	branches := s.Sorted()
	for i := 1; i < len(branches); i++ {
		if branches[i].Name == branches[i-1].Name {
			return nil, fmt.Errorf("duplicate branch name %q", branches[i].Name)
		}
	}
	var buf []byte
	for _, b := range branches {
		buf = append(buf, []byte(b.Name)...)
		buf = append(buf, 0)
		buf = append(buf, b.TargetType.typeByte())
		if b.TargetType == TargetAlias {
			buf = append(buf, []byte(b.AliasTarget)...)
		} else {
			buf = append(buf, b.TargetID[:]...)
		}
	}
	return buf, nil
}

// ID computes the snapshot id: sha1 over the canonical bytes.
func (s Snapshot) ID() (ID, error) {
	b, err := s.Canonical()
	if err != nil {
		return ID{}, err
	}
	return ID(sha1.Sum(b)), nil
}
