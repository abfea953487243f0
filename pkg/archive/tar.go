// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// extractTar writes the contents of a tar stream to a billy.Filesystem,
// rejecting path traversal and symlinks that escape the extraction root.
func extractTar(tr *tar.Reader, dst billy.Filesystem) error {
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading tar header")
		}
		name, err := sanitizeEntryPath(h.Name)
		if err != nil {
			return err
		}
		if name == "" || name == "." {
			continue
		}
		switch h.Typeflag {
		case tar.TypeDir:
			if err := dst.MkdirAll(name, DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating dir %s", name)
			}
		case tar.TypeSymlink, tar.TypeLink:
			if err := checkSymlinkEscapes(name, h.Linkname); err != nil {
				return err
			}
			if err := dst.MkdirAll(filepath.Dir(name), DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", name)
			}
			if err := dst.Symlink(h.Linkname, name); err != nil {
				return errors.Wrapf(err, "symlinking %s", name)
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := dst.MkdirAll(filepath.Dir(name), DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", name)
			}
			mode := NormalizeFileMode(h.FileInfo().Mode())
			f, err := dst.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
			if err != nil {
				return errors.Wrapf(err, "creating %s", name)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return errors.Wrapf(err, "writing %s", name)
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "closing %s", name)
			}
		case tar.TypeGNUSparse, tar.TypeGNULongName, tar.TypeGNULongLink:
			return errors.Errorf("unsupported tar entry type %v for %s", h.Typeflag, h.Name)
		default:
			// Skip unsupported entry kinds (char/block devices, fifos).
			continue
		}
	}
}

// sanitizeEntryPath cleans an archive-supplied path and rejects attempts to
// escape the extraction root via ".." segments or an absolute path.
func sanitizeEntryPath(name string) (string, error) {
	name = filepath.ToSlash(name)
	clean := filepath.Clean("/" + name)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(name) {
		return "", errors.Wrapf(ErrUnsafeArchive, "entry %q", name)
	}
	return clean, nil
}

// checkSymlinkEscapes rejects symlinks whose resolved target would leave the
// extraction root. Dangling targets are permitted (§4.2); only traversal out
// of the root is rejected.
func checkSymlinkEscapes(entry, target string) error {
	if filepath.IsAbs(target) {
		return errors.Wrapf(ErrUnsafeArchive, "absolute symlink target %q for %q", target, entry)
	}
	resolved := filepath.Clean(filepath.Join(filepath.Dir(entry), target))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return errors.Wrapf(ErrUnsafeArchive, "symlink %q escapes root via %q", entry, target)
	}
	return nil
}
