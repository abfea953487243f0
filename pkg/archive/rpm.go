// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

const rpmLeadSize = 96

var rpmHeaderMagic = []byte{0x8e, 0xad, 0xe8, 0x01}

// skipRPMHeaderBlock reads one RPM header-structure block (used for both
// the signature header and the main header) and discards it, returning once
// r is positioned at the first byte after the block. With pad8 set (the
// signature header), the padding that aligns the block's end to an 8-byte
// boundary is skipped too; the main header carries no such padding.
//
// Block layout: 4-byte magic, 4 reserved bytes, uint32 index-entry count,
// uint32 data-section size, followed by (count * 16) bytes of index entries
// and then the data section itself.
func skipRPMHeaderBlock(r *bufio.Reader, pad8 bool) error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return errors.Wrap(err, "reading rpm header magic")
	}
	if string(magic) != string(rpmHeaderMagic) {
		return errors.New("invalid rpm header magic")
	}
	if _, err := io.CopyN(io.Discard, r, 4); err != nil { // reserved
		return err
	}
	var counts [2]uint32
	if err := binary.Read(r, binary.BigEndian, &counts); err != nil {
		return errors.Wrap(err, "reading rpm header counts")
	}
	indexBytes := int64(counts[0]) * 16
	dataBytes := int64(counts[1])
	body := indexBytes + dataBytes
	if pad8 {
		body += (8 - dataBytes%8) % 8
	}
	if _, err := io.CopyN(io.Discard, r, body); err != nil {
		return errors.Wrap(err, "skipping rpm header body")
	}
	return nil
}

// extractRPM skips the RPM lead and the two header blocks (signature +
// header), locates the payload by sniffing its compression magic (rpm
// records the payload compressor in a header tag, but distinguishing it
// from the data section without a full tag index is unreliable; sniffing
// the well-known magic bytes is simpler and sufficient here), and unpacks
// the cpio "newc" payload it decompresses to.
func extractRPM(r io.Reader, dst billy.Filesystem) error {
	br := bufio.NewReader(r)
	if _, err := io.CopyN(io.Discard, br, rpmLeadSize); err != nil {
		return errors.Wrap(err, "skipping rpm lead")
	}
	if err := skipRPMHeaderBlock(br, true); err != nil {
		return errors.Wrap(err, "skipping rpm signature header")
	}
	if err := skipRPMHeaderBlock(br, false); err != nil {
		return errors.Wrap(err, "skipping rpm header")
	}
	payload, closeFn, err := decompressor(br, sniffPayloadFormat(br))
	if err != nil {
		return errors.Wrap(err, "decompressing rpm payload")
	}
	defer closeFn()
	return extractCpio(payload, dst)
}

func sniffPayloadFormat(r *bufio.Reader) Format {
	magic, err := r.Peek(6)
	if err != nil {
		return TarGzFormat // best-effort default: gzip is the common case
	}
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return TarGzFormat
	case magic[0] == 0xfd && string(magic[1:4]) == "7zX":
		return TarXzFormat
	case magic[0] == 0x28 && magic[1] == 0xb5 && magic[2] == 0x2f && magic[3] == 0xfd:
		return TarZstFormat
	case magic[0] == 0x42 && magic[1] == 0x5a && magic[2] == 0x68:
		return TarBz2Format
	default:
		return TarGzFormat
	}
}
