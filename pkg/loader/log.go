// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"io"
	"log"
)

// ScopedLogCapture tees l's output to w for the duration of a single visit,
// returning a func to restore the original output. Used to fold per-visit
// log lines into LoadResult.VisitLog while the original output still
// receives them.
func ScopedLogCapture(l *log.Logger, w io.Writer) func() {
	orig := l.Writer()
	mw := io.MultiWriter(orig, w)
	l.SetOutput(mw)
	return func() { l.SetOutput(orig) }
}
