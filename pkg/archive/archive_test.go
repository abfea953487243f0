// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

func readFile(t *testing.T, fs billy.Filesystem, name string) []byte {
	t.Helper()
	f, err := fs.Open(name)
	if err != nil {
		t.Fatalf("opening %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return data
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"pkg-1.0.0.tar.gz":  TarGzFormat,
		"pkg-1.0.0.tgz":     TarGzFormat,
		"pkg-1.0.0.tar.bz2": TarBz2Format,
		"pkg-1.0.0.tar.xz":  TarXzFormat,
		"pkg-1.0.0.tar":     TarFormat,
		"pkg-1.0.0.crate":   CrateFormat,
		"pkg-1.0.0.gem":     GemFormat,
		"pkg_1.0.0_amd64.deb": DebFormat,
		"pkg-1.0.0.whl":     ZipFormat,
		"pkg-1.0.0.jar":     JarFormat,
		"pkg-1.0.0.rpm":     RpmFormat,
		"pkg-1.0.0.unknown": UnknownFormat,
	}
	for name, want := range cases {
		if got := DetectFormat(name); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", name, got, want)
		}
	}
}

func buildTarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, contents := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(contents))}); err != nil {
			t.Fatalf("writing tar header for %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(contents)); err != nil {
			t.Fatalf("writing tar body for %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestUnpackReader_TarGz(t *testing.T) {
	body := buildTarGzBytes(t, map[string]string{
		"pkg/README.md": "hello",
		"pkg/src/a.go":  "package a",
	})
	dst := memfs.New()
	if err := UnpackReader(bytes.NewReader(body), TarGzFormat, dst); err != nil {
		t.Fatalf("UnpackReader() error = %v", err)
	}
	got := readFile(t, dst, "pkg/README.md")
	if string(got) != "hello" {
		t.Errorf("pkg/README.md = %q, want %q", got, "hello")
	}
}

func TestUnpackReader_TarRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: "../../etc/passwd", Mode: 0o644, Size: 4}); err != nil {
		t.Fatalf("writing tar header: %v", err)
	}
	if _, err := tw.Write([]byte("evil")); err != nil {
		t.Fatalf("writing tar body: %v", err)
	}
	tw.Close()

	dst := memfs.New()
	err := UnpackReader(bytes.NewReader(buf.Bytes()), TarFormat, dst)
	if err == nil {
		t.Fatal("UnpackReader() = nil error, want ErrUnsafeArchive for a path-traversal entry")
	}
}

func TestUnpackReader_Zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("pkg/module.py")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte("print('hi')")); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}

	dst := memfs.New()
	if err := UnpackReader(bytes.NewReader(buf.Bytes()), ZipFormat, dst); err != nil {
		t.Fatalf("UnpackReader() error = %v", err)
	}
	got := readFile(t, dst, "pkg/module.py")
	if string(got) != "print('hi')" {
		t.Errorf("pkg/module.py = %q, want %q", got, "print('hi')")
	}
}

// arEntry encodes one BSD/GNU `ar` container member: a fixed 60-byte header
// (name, mtime, uid, gid, mode, size, magic) followed by the data, padded to
// an even length as the format requires.
func arEntry(name string, data []byte) []byte {
	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "%-16s%-12d%-6d%-6d%-8s%-10d`\n", name, 0, 0, 0, "644", len(data))
	body := append(hdr.Bytes(), data...)
	if len(data)%2 != 0 {
		body = append(body, '\n')
	}
	return body
}

func buildDebBytes(t *testing.T, dataTarGz []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	buf.Write(arEntry("debian-binary", []byte("2.0\n")))
	buf.Write(arEntry("control.tar.gz", []byte{}))
	buf.Write(arEntry("data.tar.gz", dataTarGz))
	return buf.Bytes()
}

func TestUnpackReader_Deb(t *testing.T) {
	dataTarGz := buildTarGzBytes(t, map[string]string{"usr/bin/tool": "#!/bin/sh\necho hi\n"})
	deb := buildDebBytes(t, dataTarGz)

	dst := memfs.New()
	if err := UnpackReader(bytes.NewReader(deb), DebFormat, dst); err != nil {
		t.Fatalf("UnpackReader() error = %v", err)
	}
	got := readFile(t, dst, "usr/bin/tool")
	if string(got) != "#!/bin/sh\necho hi\n" {
		t.Errorf("usr/bin/tool = %q, want the data.tar.gz payload only (not control.tar.gz)", got)
	}
}
