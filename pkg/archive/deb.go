// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"io"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// extractDeb unpacks a Debian binary package: an `ar` container holding
// `debian-binary`, a `control.tar.*` member and a `data.tar.*` member. Only
// the `data.tar.*` payload is unpacked into dst; the control archive carries
// maintainer scripts, not the package's source tree.
func extractDeb(r io.Reader, dst billy.Filesystem) error {
	ar := ar.NewReader(r)
	for {
		hdr, err := ar.Next()
		if err == io.EOF {
			return errors.New("deb archive missing data.tar member")
		}
		if err != nil {
			return errors.Wrap(err, "reading ar header")
		}
		name := strings.TrimSpace(hdr.Name)
		if !strings.HasPrefix(name, "data.tar") {
			continue
		}
		format := dataMemberFormat(name)
		decompressed, closeFn, err := decompressor(ar, format)
		if err != nil {
			return errors.Wrapf(err, "decompressing %s", name)
		}
		defer closeFn()
		return extractTar(tar.NewReader(decompressed), dst)
	}
}

func dataMemberFormat(name string) Format {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return TarGzFormat
	case strings.HasSuffix(name, ".bz2"):
		return TarBz2Format
	case strings.HasSuffix(name, ".xz"):
		return TarXzFormat
	case strings.HasSuffix(name, ".zst"):
		return TarZstFormat
	default:
		return TarFormat
	}
}
