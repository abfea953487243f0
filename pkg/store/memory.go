// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"

	"github.com/ossarchive/pkgloader/pkg/object"
)

// Memory is an in-memory Store, useful for tests and for small one-shot
// loads where persistence isn't required. All methods are safe for
// concurrent use.
type Memory struct {
	mu sync.Mutex

	contents   map[object.ID]object.Content
	directries map[object.ID]object.Directory
	releases   map[object.ID]object.Release
	snapshots  map[object.ID]object.Snapshot
	extids     map[string]object.ExtID // keyed by ExtIDKey string form

	origins  map[string]Origin
	visits   map[string][]OriginVisit
	statuses map[string][]OriginVisitStatusRecord
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		contents:   make(map[object.ID]object.Content),
		directries: make(map[object.ID]object.Directory),
		releases:   make(map[object.ID]object.Release),
		snapshots:  make(map[object.ID]object.Snapshot),
		extids:     make(map[string]object.ExtID),
		origins:    make(map[string]Origin),
		visits:     make(map[string][]OriginVisit),
		statuses:   make(map[string][]OriginVisitStatusRecord),
	}
}

func extIDMapKey(k object.ExtIDKey) string {
	return k.Type + "\x00" + k.ExtID
}

func (m *Memory) ContentAdd(ctx context.Context, batch []object.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range batch {
		m.contents[c.ID()] = c
	}
	return nil
}

func (m *Memory) DirectoryAdd(ctx context.Context, batch []object.Directory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range batch {
		id, err := d.ID()
		if err != nil {
			return err
		}
		m.directries[id] = d
	}
	return nil
}

func (m *Memory) ReleaseAdd(ctx context.Context, batch []object.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range batch {
		m.releases[r.ID()] = r
	}
	return nil
}

func (m *Memory) SnapshotAdd(ctx context.Context, snap object.Snapshot) (object.ID, error) {
	id, err := snap.ID()
	if err != nil {
		return object.ID{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = snap
	return id, nil
}

func (m *Memory) ExtIDAdd(ctx context.Context, batch []object.ExtID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range batch {
		key := extIDMapKey(e.Key())
		if _, exists := m.extids[key]; exists {
			continue // ExtIDs are additive: never rewritten (invariant 5)
		}
		m.extids[key] = e
	}
	return nil
}

func (m *Memory) OriginAdd(ctx context.Context, o Origin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.origins[o.URL]; !ok {
		m.origins[o.URL] = o
	}
	return nil
}

func (m *Memory) OriginVisitAdd(ctx context.Context, v OriginVisit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits[v.Origin.URL] = append(m.visits[v.Origin.URL], v)
	return nil
}

func (m *Memory) OriginVisitStatusAdd(ctx context.Context, s OriginVisitStatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[s.Origin.URL] = append(m.statuses[s.Origin.URL], s)
	return nil
}

func (m *Memory) SnapshotGetLatest(ctx context.Context, o Origin, allowed []VisitStatus) (object.Snapshot, object.ID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowedSet := make(map[VisitStatus]bool, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = true
	}
	statuses := m.statuses[o.URL]
	for i := len(statuses) - 1; i >= 0; i-- {
		s := statuses[i]
		if !allowedSet[s.Status] || s.SnapshotID == nil {
			continue
		}
		snap, ok := m.snapshots[*s.SnapshotID]
		if !ok {
			continue
		}
		return snap, *s.SnapshotID, true, nil
	}
	return object.Snapshot{}, object.ID{}, false, nil
}

// LatestStatusRecord returns the most recently recorded status transition
// for origin, regardless of status value. Not part of the Store interface:
// it exists for callers (and tests) that need to inspect a visit's
// Uneventful flag, which SnapshotGetLatest's snapshot-only view discards.
func (m *Memory) LatestStatusRecord(o Origin) (OriginVisitStatusRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	statuses := m.statuses[o.URL]
	if len(statuses) == 0 {
		return OriginVisitStatusRecord{}, false
	}
	return statuses[len(statuses)-1], true
}

func (m *Memory) ExtIDGetFromExtID(ctx context.Context, extIDType string, ids [][]byte) (map[string]object.ExtID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]object.ExtID)
	for _, id := range ids {
		key := extIDMapKey(object.ExtIDKey{Type: extIDType, ExtID: string(id)})
		if e, ok := m.extids[key]; ok {
			out[string(id)] = e
		}
	}
	return out, nil
}

var _ Store = &Memory{}
