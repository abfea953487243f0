// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"time"
)

// Release is a synthetic commit-like object wrapping a directory tree with
// metadata. Author and Date are optional: absent metadata stays absent
// rather than being defaulted, per the source registry's own knowledge.
type Release struct {
	Name     string
	Message  string
	Author   string
	Date     *time.Time
	TargetID ID // the directory this release points to
}

// Canonical returns the §6.3 release serialisation: a header block followed
// by a blank line and the message bytes.
func (r Release) Canonical() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "name %s\n", r.Name)
	fmt.Fprintf(&buf, "target %s\n", r.TargetID.String())
	fmt.Fprintf(&buf, "target_type dir\n")
	if r.Author != "" {
		fmt.Fprintf(&buf, "author %s\n", r.Author)
	}
	if r.Date != nil {
		fmt.Fprintf(&buf, "date %s\n", r.Date.Format(time.RFC3339))
	}
	fmt.Fprintf(&buf, "synthetic true\n")
	buf.WriteByte('\n')
	buf.WriteString(r.Message)
	return buf.Bytes()
}

// ID computes the release id: sha1 over the canonical block.
func (r Release) ID() ID {
	return ID(sha1.Sum(r.Canonical()))
}
