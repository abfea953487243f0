// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
)

// extractZip writes the contents of a zip archive to a billy.Filesystem,
// applying the same traversal and symlink checks as extractTar.
func extractZip(zr *zip.Reader, dst billy.Filesystem) error {
	for _, f := range zr.File {
		name, err := sanitizeEntryPath(f.Name)
		if err != nil {
			return err
		}
		if name == "" || name == "." {
			continue
		}
		mode := f.Mode()
		if mode&os.ModeSymlink != 0 {
			rc, err := f.Open()
			if err != nil {
				return errors.Wrapf(err, "opening symlink entry %s", f.Name)
			}
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return errors.Wrapf(err, "reading symlink target for %s", f.Name)
			}
			if err := checkSymlinkEscapes(name, string(target)); err != nil {
				return err
			}
			if err := dst.MkdirAll(filepath.Dir(name), DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating parent dir for %s", name)
			}
			if err := dst.Symlink(string(target), name); err != nil {
				return errors.Wrapf(err, "symlinking %s", name)
			}
			continue
		}
		if mode.IsDir() {
			if err := dst.MkdirAll(name, DirectoryMode); err != nil {
				return errors.Wrapf(err, "creating dir %s", name)
			}
			continue
		}
		if err := dst.MkdirAll(filepath.Dir(name), DirectoryMode); err != nil {
			return errors.Wrapf(err, "creating parent dir for %s", name)
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s", f.Name)
		}
		out, err := dst.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, NormalizeFileMode(mode))
		if err != nil {
			rc.Close()
			return errors.Wrapf(err, "creating %s", name)
		}
		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return errors.Wrapf(err, "writing %s", name)
		}
		rc.Close()
		if err := out.Close(); err != nil {
			return errors.Wrapf(err, "closing %s", name)
		}
	}
	return nil
}
