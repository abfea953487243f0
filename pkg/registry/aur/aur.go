// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package aur describes the Arch User Repository registry interface: the
// RPC metadata endpoint plus a .SRCINFO control-stanza format, parsed the
// way the pack's debian .dsc parser handles Debian's control stanzas.
package aur

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ossarchive/pkgloader/internal/httpx"
	"github.com/ossarchive/pkgloader/pkg/errkind"
	"github.com/pkg/errors"
)

var (
	rpcURL   = "https://aur.archlinux.org/rpc/"
	cgitBase = "https://aur.archlinux.org/cgit/aur.git/plain"
)

// Info is a single package's RPC v5 info result.
type Info struct {
	Name        string `json:"Name"`
	Version     string `json:"Version"`
	URLPath     string `json:"URLPath"`
	Maintainer  string `json:"Maintainer"`
	LastModified int64 `json:"LastModified"`
}

type rpcResponse struct {
	Results []Info `json:"results"`
}

// SRCINFO is the parsed .SRCINFO for a package: a flat set of key/value
// pairs where repeated keys (e.g. multi-valued pkgdesc/url lines) are
// collected in declaration order.
type SRCINFO struct {
	Fields map[string][]string
}

// Registry is an AUR package registry.
type Registry interface {
	Info(ctx context.Context, pkg string) (*Info, error)
	SRCINFO(ctx context.Context, pkg string) (*SRCINFO, error)
	Artifact(ctx context.Context, urlPath string) (io.ReadCloser, error)
}

// HTTPRegistry is a Registry implementation that uses the AUR RPC and cgit
// endpoints.
type HTTPRegistry struct {
	Client httpx.BasicClient
}

// Info looks up a single package via the AUR RPC v5 info endpoint.
func (r HTTPRegistry) Info(ctx context.Context, pkg string) (*Info, error) {
	full, err := url.Parse(rpcURL)
	if err != nil {
		return nil, err
	}
	q := full.Query()
	q.Set("v", "5")
	q.Set("type", "info")
	q.Add("arg[]", pkg)
	full.RawQuery = q.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, full.String(), nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s", pkg)
	}
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("aur registry error: %v", resp.Status)
	}
	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, err
	}
	if len(rr.Results) == 0 {
		// The RPC endpoint returns 200 with an empty result set for an
		// unknown package rather than a 404.
		return nil, errors.Wrapf(errkind.NotFound, "%s", pkg)
	}
	return &rr.Results[0], nil
}

// SRCINFO fetches and parses the package's .SRCINFO.
func (r HTTPRegistry) SRCINFO(ctx context.Context, pkg string) (*SRCINFO, error) {
	srcURL := cgitBase + "/.SRCINFO?h=" + url.QueryEscape(pkg)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errkind.NotFound, "%s", pkg)
	}
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("aur registry error: %v", resp.Status)
	}
	return parseSRCINFO(resp.Body)
}

func parseSRCINFO(r io.Reader) (*SRCINFO, error) {
	s := &SRCINFO{Fields: map[string][]string{}}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "pkgbase") || strings.HasPrefix(line, "pkgname") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		s.Fields[key] = append(s.Fields[key], value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Artifact downloads the package's source snapshot from URLPath.
func (r HTTPRegistry) Artifact(ctx context.Context, urlPath string) (io.ReadCloser, error) {
	full := "https://aur.archlinux.org" + urlPath
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errors.Wrapf(errkind.NotFound, "%s", full)
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching artifact: %v", resp.Status)
	}
	return resp.Body, nil
}

var _ Registry = &HTTPRegistry{}
