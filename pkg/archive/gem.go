// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// extractGem unpacks a RubyGems .gem file: a plain tar containing
// `metadata.gz`, `data.tar.gz` (the gem's source tree) and a checksums
// entry. Only `data.tar.gz` is unpacked into dst.
func extractGem(r io.Reader, dst billy.Filesystem) error {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return errors.New("gem archive missing data.tar.gz member")
		}
		if err != nil {
			return errors.Wrap(err, "reading gem outer tar header")
		}
		if h.Name != "data.tar.gz" {
			continue
		}
		decompressed, closeFn, err := decompressor(tr, TarGzFormat)
		if err != nil {
			return errors.Wrap(err, "decompressing data.tar.gz")
		}
		defer closeFn()
		return extractTar(tar.NewReader(decompressed), dst)
	}
}
