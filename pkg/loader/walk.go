// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"

	"github.com/ossarchive/pkgloader/pkg/archive"
	"github.com/ossarchive/pkgloader/pkg/object"
	"github.com/ossarchive/pkgloader/pkg/stage"
)

// hashTree is the content hasher (C3): it walks an unpacked artifact tree
// depth-first, stages a Content object for every file and symlink and a
// Directory object for every directory level, and returns the root
// Directory's id. Traversal order doesn't affect the result: Directory.ID
// sorts entries by name before hashing.
func hashTree(ctx context.Context, fs billy.Filesystem, path string, staging *stage.Staging) (object.ID, error) {
	infos, err := fs.ReadDir(path)
	if err != nil {
		return object.ID{}, errors.Wrapf(err, "reading %s", path)
	}
	var dir object.Directory
	for _, info := range infos {
		name := fs.Join(path, info.Name())
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := fs.Readlink(name)
			if err != nil {
				return object.ID{}, errors.Wrapf(err, "reading symlink %s", name)
			}
			content, err := object.HashSymlink(target)
			if err != nil {
				return object.ID{}, err
			}
			if err := staging.AddContent(ctx, content); err != nil {
				return object.ID{}, err
			}
			dir.Entries = append(dir.Entries, object.DirEntry{
				Name: info.Name(), Perms: archive.SymlinkMode,
				TargetType: object.TargetSymlink, TargetID: content.ID(),
			})
		case info.IsDir():
			id, err := hashTree(ctx, fs, name, staging)
			if err != nil {
				return object.ID{}, err
			}
			dir.Entries = append(dir.Entries, object.DirEntry{
				Name: info.Name(), Perms: archive.DirectoryMode,
				TargetType: object.TargetDir, TargetID: id,
			})
		default:
			content, err := hashFile(fs, name, info.Size())
			if err != nil {
				return object.ID{}, err
			}
			if err := staging.AddContent(ctx, content); err != nil {
				return object.ID{}, err
			}
			dir.Entries = append(dir.Entries, object.DirEntry{
				Name: info.Name(), Perms: archive.NormalizeFileMode(info.Mode()),
				TargetType: object.TargetFile, TargetID: content.ID(),
			})
		}
	}
	if err := staging.AddDirectory(ctx, dir); err != nil {
		return object.ID{}, err
	}
	return dir.ID()
}

func hashFile(fs billy.Filesystem, name string, size int64) (object.Content, error) {
	f, err := fs.Open(name)
	if err != nil {
		return object.Content{}, errors.Wrapf(err, "opening %s", name)
	}
	defer f.Close()
	return object.HashContent(f, size)
}
