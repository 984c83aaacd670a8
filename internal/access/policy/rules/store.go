// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package rules

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"

	"github.com/McManning/stakeholder/internal/access/policy/match"
)

// Reload outcome label values.
const (
	reloadOutcomeOK    = "ok"
	reloadOutcomeError = "error"
)

// reloadsTotal counts reload attempts by outcome.
var reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stakeholder_rules_reloads_total",
	Help: "Total number of rules reload attempts",
}, []string{"outcome"})

// LastReload is the default Prometheus gauge for tracking the last
// successful rules reload. Register with your Prometheus registry at startup.
var LastReload = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "stakeholder_rules_last_reload",
	Help: "Unix timestamp of the last successful rules reload",
})

// RegisterMetrics registers rules store metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LastReload)
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newSnapshotID generates a ULID identifying one loaded snapshot in logs.
func newSnapshotID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ruleEntry pairs a group with its compiled per-realm patterns.
type ruleEntry struct {
	group  string
	realms map[string][]match.Pattern
}

// Snapshot is an immutable, pattern-compiled view of one loaded rules
// document. It is safe for concurrent reads without locking.
type Snapshot struct {
	id      ulid.ULID
	modTime time.Time
	entries []ruleEntry
}

// NewSnapshot compiles rf into a Snapshot stamped with the source
// modification time it was built from.
func NewSnapshot(rf *RulesFile, modTime time.Time) *Snapshot {
	entries := make([]ruleEntry, 0, len(rf.Groups))
	for _, g := range rf.Groups {
		e := ruleEntry{group: g.Group}
		if len(g.Realms) > 0 {
			e.realms = make(map[string][]match.Pattern, len(g.Realms))
			for realm, patterns := range g.Realms {
				e.realms[realm] = match.CompileAll(patterns)
			}
		}
		entries = append(entries, e)
	}
	return &Snapshot{id: newSnapshotID(), modTime: modTime, entries: entries}
}

// ID returns the snapshot's ULID.
func (s *Snapshot) ID() ulid.ULID { return s.id }

// ModTime returns the source modification time this snapshot was built from.
func (s *Snapshot) ModTime() time.Time { return s.modTime }

// Len returns the number of group entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Groups returns the group names in declared order.
func (s *Snapshot) Groups() []string {
	groups := make([]string, len(s.entries))
	for i, e := range s.entries {
		groups[i] = e.group
	}
	return groups
}

// PatternsFor returns the patterns that the first entry whose group is in
// members declares for realm. Entries are scanned in declared order and the
// first membership wins outright; later groups are never consulted, even
// when the winning entry has no patterns for realm. No membership, or a
// winning entry without the realm, yields nil: "no restriction here", not
// "no access".
func (s *Snapshot) PatternsFor(members map[string]struct{}, realm string) []match.Pattern {
	for _, e := range s.entries {
		if _, ok := members[e.group]; ok {
			return e.realms[realm]
		}
	}
	return nil
}

// StoreOption configures Store behavior.
type StoreOption func(*storeConfig)

type storeConfig struct {
	lastReloadGauge prometheus.Gauge
}

// WithLastReloadGauge sets the Prometheus gauge to record the last
// successful reload timestamp.
func WithLastReloadGauge(g prometheus.Gauge) StoreOption {
	return func(c *storeConfig) {
		c.lastReloadGauge = g
	}
}

// Store serves the current rules Snapshot, reloading from its Source
// whenever the source's modification time changes. Load and compile happen
// outside the reader lock and the snapshot pointer is swapped atomically,
// so in-flight readers keep the snapshot they started with.
type Store struct {
	source Source
	cfg    storeConfig

	mu   sync.RWMutex
	snap *Snapshot

	// reloadMu serializes reload attempts so a burst of concurrent checks
	// against a changed file triggers one load, not many.
	reloadMu sync.Mutex

	// lastReload stores the Unix timestamp in nanoseconds of the last
	// successful load. Zero means no load has occurred.
	lastReload atomic.Int64
}

// NewStore creates a Store reading from source. The first Current call
// performs the initial load.
func NewStore(source Source, opts ...StoreOption) *Store {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{source: source, cfg: cfg}
}

// Current returns the snapshot matching the source's current modification
// time, reloading synchronously first when the source changed. Reload
// failure is a configuration error: it propagates to the caller and no
// stale snapshot is substituted.
func (s *Store) Current(ctx context.Context) (*Snapshot, error) {
	modTime, err := s.source.ModTime()
	if err != nil {
		return nil, oops.In("rules").
			Code("RULES_STAT_FAILED").
			With("source", s.source.String()).
			Wrap(err)
	}

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil && snap.ModTime().Equal(modTime) {
		return snap, nil
	}
	return s.reload(ctx, modTime)
}

// LastReload returns the time of the last successful load, or the zero time
// if none has occurred.
func (s *Store) LastReload() time.Time {
	ns := s.lastReload.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// reload loads, parses, and compiles the source, then swaps the snapshot.
func (s *Store) reload(ctx context.Context, modTime time.Time) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	// Another reload may have finished while this call waited on the lock.
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil && snap.ModTime().Equal(modTime) {
		return snap, nil
	}

	data, err := s.source.Load()
	if err != nil {
		reloadsTotal.WithLabelValues(reloadOutcomeError).Inc()
		return nil, oops.In("rules").
			Code("RULES_READ_FAILED").
			With("source", s.source.String()).
			Wrap(err)
	}

	rf, err := Parse(data)
	if err != nil {
		reloadsTotal.WithLabelValues(reloadOutcomeError).Inc()
		return nil, oops.In("rules").
			With("source", s.source.String()).
			Wrap(err)
	}

	next := NewSnapshot(rf, modTime)

	// Write lock held only for the pointer swap.
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	now := time.Now()
	s.lastReload.Store(now.UnixNano())
	if s.cfg.lastReloadGauge != nil {
		s.cfg.lastReloadGauge.Set(float64(now.Unix()))
	}
	reloadsTotal.WithLabelValues(reloadOutcomeOK).Inc()

	slog.InfoContext(ctx, "rules loaded",
		"source", s.source.String(),
		"snapshot", next.ID().String(),
		"groups", next.Len(),
	)
	return next, nil
}
