// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package pubdev describes the pub.dev registry interface, modeled on the
// pypi HTTP-registry shape.
package pubdev

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/pkg/errors"
)

var registryURL, _ = url.Parse("https://pub.dev")

// Package is the pub.dev package index payload.
type Package struct {
	Name     string    `json:"name"`
	Latest   Version   `json:"latest"`
	Versions []Version `json:"versions"`
}

// Version is a single published version of a pub.dev package.
type Version struct {
	Version     string    `json:"version"`
	ArchiveURL  string    `json:"archive_url"`
	ArchiveSHA256 string  `json:"archive_sha256"`
	Published   time.Time `json:"published"`
}

// Registry is a pub.dev package registry.
type Registry interface {
	Package(ctx context.Context, name string) (*Package, error)
	Artifact(ctx context.Context, archiveURL string) (io.ReadCloser, error)
}

// HTTPRegistry is a Registry implementation that uses the pub.dev HTTP API.
type HTTPRegistry struct {
	Client httpx.BasicClient
}

// Package returns the package index for name.
func (r HTTPRegistry) Package(ctx context.Context, name string) (*Package, error) {
	pathURL, err := url.Parse(path.Join("/api/packages", name))
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, registryURL.ResolveReference(pathURL).String(), nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s", name)
	}
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("pub.dev registry error: %v", resp.Status)
	}
	var p Package
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Artifact downloads the archive at archiveURL.
func (r HTTPRegistry) Artifact(ctx context.Context, archiveURL string) (io.ReadCloser, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.Wrapf(errkind.NotFound, "%s", archiveURL)
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching artifact: %v", resp.Status)
	}
	return resp.Body, nil
}

var _ Registry = &HTTPRegistry{}
