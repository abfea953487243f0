// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"compress/bzip2"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// decompressor returns a reader over the decompressed bytes of src for the
// given Format. TarFormat returns src unchanged; a format that is neither
// plain tar nor a compressed-tar variant returns ErrUnknownFormat.
func decompressor(src io.Reader, f Format) (io.Reader, func(), error) {
	switch f {
	case TarGzFormat, GemFormat, CrateFormat:
		gzr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing gzip reader")
		}
		return gzr, func() { gzr.Close() }, nil
	case TarBz2Format:
		return bzip2.NewReader(src), func() {}, nil
	case TarXzFormat:
		xzr, err := xz.NewReader(src)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing xz reader")
		}
		return xzr, func() {}, nil
	case TarZstFormat:
		zr, err := zstd.NewReader(src)
		if err != nil {
			return nil, nil, errors.Wrap(err, "initializing zstd reader")
		}
		return zr, zr.Close, nil
	case TarFormat:
		return src, func() {}, nil
	default:
		return nil, nil, errors.Wrapf(ErrUnknownFormat, "%v", f)
	}
}
