// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cpan describes the MetaCPAN registry interface, modeled on the
// pypi/npm HTTP-registry shape: a JSON index lookup plus a plain artifact
// download.
package cpan

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/pkg/errors"
)

var registryURL, _ = url.Parse("https://fastapi.metacpan.org")

// Release is a single distribution release as indexed by MetaCPAN.
type Release struct {
	Name        string    `json:"name"`
	Distribution string   `json:"distribution"`
	Version     string    `json:"version"`
	Author      string    `json:"author"`
	Date        time.Time `json:"date"`
	Download    string    `json:"download_url"`
	Status      string    `json:"status"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Release `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Registry is a MetaCPAN package registry.
type Registry interface {
	Releases(ctx context.Context, distribution string) ([]Release, error)
	Artifact(ctx context.Context, downloadURL string) (io.ReadCloser, error)
}

// HTTPRegistry is a Registry implementation that uses the MetaCPAN fast API.
type HTTPRegistry struct {
	Client httpx.BasicClient
}

// Releases lists every indexed release of distribution, newest first as
// MetaCPAN's default relevance sort returns them.
func (r HTTPRegistry) Releases(ctx context.Context, distribution string) ([]Release, error) {
	pathURL, err := url.Parse("/v1/release/_search")
	if err != nil {
		return nil, err
	}
	full := registryURL.ResolveReference(pathURL)
	q := full.Query()
	q.Set("q", "distribution:"+distribution)
	q.Set("size", "250")
	full.RawQuery = q.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, full.String(), nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s", distribution)
	}
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("metacpan registry error: %v", resp.Status)
	}
	var s searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, err
	}
	if len(s.Hits.Hits) == 0 {
		// The search endpoint returns 200 with no hits for an unknown
		// distribution rather than a 404.
		return nil, errors.Wrapf(errkind.NotFound, "%s", distribution)
	}
	releases := make([]Release, 0, len(s.Hits.Hits))
	for _, h := range s.Hits.Hits {
		releases = append(releases, h.Source)
	}
	return releases, nil
}

// Artifact downloads the tarball at downloadURL.
func (r HTTPRegistry) Artifact(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.Wrapf(errkind.NotFound, "%s", downloadURL)
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching artifact: %v", resp.Status)
	}
	return resp.Body, nil
}

var _ Registry = &HTTPRegistry{}
