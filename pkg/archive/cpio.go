// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// No cpio library appears anywhere in the retrieved reference pack, so this
// is a minimal hand-rolled reader for the "newc" (SVR4 no-CRC) format, the
// only variant rpm(8) produces. See DESIGN.md for why this is the one
// hand-rolled parser in the unpacker.

const (
	cpioMagic      = "070701"
	cpioHeaderSize = 6 + 13*8
	cpioTrailer    = "TRAILER!!!"
)

type cpioHeader struct {
	mode     uint32
	fileSize int64
	nameSize int
}

func parseCpioHeader(b []byte) (cpioHeader, error) {
	if len(b) != cpioHeaderSize || string(b[:6]) != cpioMagic {
		return cpioHeader{}, errors.New("invalid cpio newc magic")
	}
	field := func(i int) (uint32, error) {
		v, err := strconv.ParseUint(string(b[6+i*8:6+i*8+8]), 16, 32)
		return uint32(v), err
	}
	mode, err := field(1)
	if err != nil {
		return cpioHeader{}, errors.Wrap(err, "parsing mode")
	}
	fileSize, err := field(6)
	if err != nil {
		return cpioHeader{}, errors.Wrap(err, "parsing filesize")
	}
	nameSize, err := field(11)
	if err != nil {
		return cpioHeader{}, errors.Wrap(err, "parsing namesize")
	}
	return cpioHeader{mode: mode, fileSize: int64(fileSize), nameSize: int(nameSize)}, nil
}

// align4 rounds n up to the next multiple of 4, the newc padding convention.
func align4(n int64) int64 {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}

func skipPad(r io.Reader, consumed int64) error {
	pad := align4(consumed) - consumed
	if pad == 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, pad)
	return err
}

// cpio file type bits, from the mode field (S_IFMT).
const (
	cpioTypeMask    = 0o170000
	cpioTypeDir     = 0o040000
	cpioTypeSymlink = 0o120000
)

// extractCpio writes the contents of a cpio "newc" stream to dst.
func extractCpio(r io.Reader, dst billy.Filesystem) error {
	for {
		hdrBytes := make([]byte, cpioHeaderSize)
		if _, err := io.ReadFull(r, hdrBytes); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return errors.New("cpio archive missing trailer")
			}
			return errors.Wrap(err, "reading cpio header")
		}
		hdr, err := parseCpioHeader(hdrBytes)
		if err != nil {
			return err
		}
		nameBuf := make([]byte, hdr.nameSize)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return errors.Wrap(err, "reading cpio entry name")
		}
		if err := skipPad(r, cpioHeaderSize+int64(hdr.nameSize)); err != nil {
			return errors.Wrap(err, "skipping name padding")
		}
		name := string(nameBuf[:len(nameBuf)-1]) // drop trailing NUL
		if name == cpioTrailer {
			return nil
		}
		clean, err := sanitizeEntryPath(name)
		if err != nil {
			return err
		}
		switch hdr.mode & cpioTypeMask {
		case cpioTypeDir:
			if err := dst.MkdirAll(clean, DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating dir %s", clean)
			}
		case cpioTypeSymlink:
			target := make([]byte, hdr.fileSize)
			if _, err := io.ReadFull(r, target); err != nil {
				return errors.Wrapf(err, "reading symlink target for %s", clean)
			}
			if err := skipPad(r, hdr.fileSize); err != nil {
				return err
			}
			if err := checkSymlinkEscapes(clean, string(target)); err != nil {
				return err
			}
			if err := dst.MkdirAll(filepath.Dir(clean), DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", clean)
			}
			if err := dst.Symlink(string(target), clean); err != nil {
				return errors.Wrapf(err, "symlinking %s", clean)
			}
		default:
			if err := dst.MkdirAll(filepath.Dir(clean), DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", clean)
			}
			f, err := dst.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, NormalizeFileMode(os.FileMode(hdr.mode&0o777)))
			if err != nil {
				return errors.Wrapf(err, "creating %s", clean)
			}
			if _, err := io.CopyN(f, r, hdr.fileSize); err != nil {
				f.Close()
				return errors.Wrapf(err, "writing %s", clean)
			}
			if err := f.Close(); err != nil {
				return err
			}
			if err := skipPad(r, hdr.fileSize); err != nil {
				return err
			}
		}
	}
}
