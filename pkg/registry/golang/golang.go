// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package golang

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/internal/urlx"
	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/pkg/errors"
)

var proxyURL = urlx.MustParse("https://proxy.golang.org")

// Info is the @v/<version>.info payload the module proxy protocol returns.
type Info struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}

// Registry is a Go module registry.
type Registry interface {
	// List fetches the known versions for a module from @v/list.
	List(ctx context.Context, pkg string) ([]string, error)
	// VersionInfo fetches the @v/<version>.info metadata for a module version.
	VersionInfo(ctx context.Context, pkg, version string) (*Info, error)
	// Module fetches the .zip archive for a module.
	Module(ctx context.Context, pkg, version string) (io.ReadCloser, error)
}

// HTTPRegistry is a Registry implementation that uses the proxy.golang.org HTTP API.
type HTTPRegistry struct {
	Client httpx.BasicClient
}

// List fetches the newline-separated version list from @v/list.
func (r HTTPRegistry) List(ctx context.Context, pkg string) ([]string, error) {
	pathURL, err := url.Parse(path.Join(pkg, "@v", "list"))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", proxyURL.ResolveReference(pathURL).String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s", pkg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if line != "" {
			versions = append(versions, line)
		}
	}
	return versions, nil
}

// VersionInfo fetches the @v/<version>.info metadata for a module version.
func (r HTTPRegistry) VersionInfo(ctx context.Context, pkg, version string) (*Info, error) {
	pathURL, err := url.Parse(path.Join(pkg, "@v", version+".info"))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", proxyURL.ResolveReference(pathURL).String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s@%s", pkg, version)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Module fetches the .zip archive for a module from proxy.golang.org.
func (r HTTPRegistry) Module(ctx context.Context, pkg, version string) (io.ReadCloser, error) {
	pathURL, err := url.Parse(path.Join(pkg, "@v", version+".zip"))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", proxyURL.ResolveReference(pathURL).String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.Wrapf(errkind.NotFound, "%s@%s", pkg, version)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	return resp.Body, nil
}
