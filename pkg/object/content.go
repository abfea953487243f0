// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2s"

	"github.com/ossarchive/pkgloader/internal/hashext"
)

// Content is the identity of one file's bytes: four parallel digests plus
// its length. ID is the sha1-git (git blob) digest, the one used as a
// target_id elsewhere in the object graph; the other three are retained for
// fixity verification and export.
type Content struct {
	Length     int64
	SHA1       []byte
	SHA1Git    ID
	SHA256     []byte
	Blake2s256 []byte
}

// ID returns the content identifier used when this Content is referenced as
// a Directory entry's target.
func (c Content) ID() ID {
	return c.SHA1Git
}

// HashContent streams r once, computing all four Content digests. size must
// be the exact byte length of r in advance: the sha1-git digest is a git
// blob hash, which embeds the length in its header before any content bytes
// are hashed, so it cannot be computed from an unbounded stream alone.
func HashContent(r io.Reader, size int64) (Content, error) {
	mh := hashext.NewMultiHash(crypto.SHA1, crypto.SHA256, crypto.BLAKE2s_256)
	git := sha1.New()
	if _, err := io.WriteString(git, "blob "+strconv.FormatInt(size, 10)+"\x00"); err != nil {
		return Content{}, err
	}
	n, err := io.Copy(io.MultiWriter(mh, git), r)
	if err != nil {
		return Content{}, fmt.Errorf("hashing content: %w", err)
	}
	if n != size {
		return Content{}, fmt.Errorf("hashing content: declared size %d, actual %d", size, n)
	}
	sum := mh.Sum(nil)
	// Layout per MultiHash.Sum: 8-byte algorithm id + digest, repeated in the
	// order the algorithms were supplied to NewMultiHash.
	sha1Sum := sum[8 : 8+sha1.Size]
	sha256Off := 8 + sha1.Size + 8
	sha256Sum := sum[sha256Off : sha256Off+sha256.Size]
	blakeOff := sha256Off + sha256.Size + 8
	blakeSum := sum[blakeOff : blakeOff+blake2s.Size]
	c := Content{
		Length:     n,
		SHA1:       append([]byte(nil), sha1Sum...),
		SHA256:     append([]byte(nil), sha256Sum...),
		Blake2s256: append([]byte(nil), blakeSum...),
	}
	copy(c.SHA1Git[:], git.Sum(nil))
	return c, nil
}

// HashSymlink computes the Content identity of a symlink's target string: a
// dangling symlink still has a well-defined id, the hash of the link text
// rather than of anything at that path.
func HashSymlink(target string) (Content, error) {
	return HashContent(strings.NewReader(target), int64(len(target)))
}
