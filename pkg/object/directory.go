// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"crypto/sha1"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
)

// DirEntry is one named member of a Directory.
type DirEntry struct {
	Name       string
	Perms      fs.FileMode
	TargetType TargetType
	TargetID   ID
}

// Directory is a Merkle-hashed tree level: an ordered set of named entries
// pointing at Content, other Directories, or symlinks.
type Directory struct {
	Entries []DirEntry
}

// Sorted returns a copy of d's entries in the name order canonicalisation
// requires.
func (d Directory) Sorted() []DirEntry {
	out := append([]DirEntry(nil), d.Entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Canonical returns the §6.3 directory serialisation: entries sorted by
// name, each `<octal perms> SP <name> NUL <20-byte id>`, concatenated.
func (d Directory) Canonical() ([]byte, error) {
	entries := d.Sorted()
	for i := 1; i < len(entries); i++ {
		if entries[i].Name == entries[i-1].Name {
			return nil, fmt.Errorf("duplicate directory entry name %q", entries[i].Name)
		}
	}
	var buf []byte
	for _, e := range entries {
		buf = append(buf, []byte(strconv.FormatInt(int64(e.Perms), 8))...)
		buf = append(buf, ' ')
		buf = append(buf, []byte(e.Name)...)
		buf = append(buf, 0)
		buf = append(buf, e.TargetID[:]...)
	}
	return buf, nil
}

// ID computes the directory id: sha1 over the canonical bytes.
func (d Directory) ID() (ID, error) {
	b, err := d.Canonical()
	if err != nil {
		return ID{}, err
	}
	sum := sha1.Sum(b)
	return ID(sum), nil
}
