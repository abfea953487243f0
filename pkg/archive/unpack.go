// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// Unpack extracts the archive at path into dst, inferring its Format from
// the filename unless kind is given explicitly (UnknownFormat means infer).
// dst should be an empty directory; Unpack does not clear it first.
func Unpack(path string, kind Format, dst billy.Filesystem) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close()
	if kind == UnknownFormat {
		kind = DetectFormat(path)
	}
	switch kind {
	case DebFormat:
		return extractDeb(f, dst)
	case GemFormat:
		return extractGem(f, dst)
	case RpmFormat:
		return extractRPM(f, dst)
	case ZipFormat, JarFormat:
		info, err := f.Stat()
		if err != nil {
			return errors.Wrap(err, "stat archive")
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return errors.Wrap(err, "initializing zip reader")
		}
		return extractZip(zr, dst)
	case TarFormat, TarGzFormat, TarBz2Format, TarXzFormat, TarZstFormat, CrateFormat:
		decompressed, closeFn, err := decompressor(f, normalizeTarKind(kind))
		if err != nil {
			return err
		}
		defer closeFn()
		return extractTar(tar.NewReader(decompressed), dst)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%s", path)
	}
}

// normalizeTarKind maps ecosystem-specific tar-family aliases onto the
// underlying compressed-tar Format the decompressor understands.
func normalizeTarKind(kind Format) Format {
	if kind == CrateFormat {
		return TarGzFormat
	}
	return kind
}

// UnpackReader extracts an archive read from r (whose length is not known in
// advance, so zip archives must be buffered) given its Format.
func UnpackReader(r io.Reader, kind Format, dst billy.Filesystem) error {
	switch kind {
	case DebFormat:
		return extractDeb(r, dst)
	case GemFormat:
		return extractGem(r, dst)
	case RpmFormat:
		return extractRPM(r, dst)
	case ZipFormat, JarFormat:
		buf, err := io.ReadAll(r)
		if err != nil {
			return errors.Wrap(err, "buffering zip stream")
		}
		zr, err := zip.NewReader(readerAt(buf), int64(len(buf)))
		if err != nil {
			return errors.Wrap(err, "initializing zip reader")
		}
		return extractZip(zr, dst)
	case TarFormat, TarGzFormat, TarBz2Format, TarXzFormat, TarZstFormat, CrateFormat:
		decompressed, closeFn, err := decompressor(r, normalizeTarKind(kind))
		if err != nil {
			return err
		}
		defer closeFn()
		return extractTar(tar.NewReader(decompressed), dst)
	default:
		return errors.Wrap(ErrUnknownFormat, "UnpackReader")
	}
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func readerAt(b []byte) io.ReaderAt {
	return bytesReaderAt(b)
}
