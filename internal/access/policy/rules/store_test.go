// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package rules

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/McManning/stakeholder/internal/access/policy/match"
)

// --- Mock Source ---

type fakeSource struct {
	mu      sync.Mutex
	modTime time.Time
	data    []byte
	statErr error
	loadErr error
	loads   atomic.Int64
}

func (f *fakeSource) ModTime() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modTime, f.statErr
}

func (f *fakeSource) Load() ([]byte, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.loadErr
}

func (f *fakeSource) String() string { return "fake" }

func (f *fakeSource) set(data []byte, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	f.modTime = modTime
}

// --- Test helpers ---

var (
	rulesV1 = []byte("groups:\n  - group: irb\n    realms:\n      wiki: Projects/Buck-IRB*\n")
	rulesV2 = []byte("groups:\n  - group: irb\n    realms:\n      wiki: Projects/Buck-IRB*\n  - group: contractors\n    realms:\n      wiki: Public*\n")
)

// newTestGauge returns a fresh gauge for test isolation.
func newTestGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_stakeholder_rules_last_reload",
		Help: "Test gauge",
	})
}

// --- Tests ---

func TestStore_InitialLoad(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	snap, err := store.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"irb"}, snap.Groups())
	assert.Equal(t, int64(1), src.loads.Load())
}

func TestStore_UnchangedSourceServesSameSnapshot(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	snap1, err := store.Current(context.Background())
	require.NoError(t, err)
	snap2, err := store.Current(context.Background())
	require.NoError(t, err)

	assert.Same(t, snap1, snap2, "unchanged source should not trigger a reload")
	assert.Equal(t, int64(1), src.loads.Load())
}

func TestStore_ReloadOnModTimeChange(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	snap1, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap1.Len())

	src.set(rulesV2, time.Unix(2000, 0))

	snap2, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap2.Len())
	assert.NotEqual(t, snap1.ID(), snap2.ID())
	assert.Equal(t, int64(2), src.loads.Load())
}

func TestStore_StatError(t *testing.T) {
	src := &fakeSource{statErr: os.ErrNotExist}
	store := NewStore(src)

	_, err := store.Current(context.Background())
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "RULES_STAT_FAILED", oopsErr.Code())
}

func TestStore_ReadError(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), loadErr: os.ErrPermission}
	store := NewStore(src)

	_, err := store.Current(context.Background())
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "RULES_READ_FAILED", oopsErr.Code())
}

func TestStore_ParseErrorNoStaleReuse(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	snap, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())

	// The file changes to something unparseable. The previous snapshot
	// must not paper over it.
	src.set([]byte("groups: [unclosed"), time.Unix(2000, 0))

	_, err = store.Current(context.Background())
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "RULES_PARSE_FAILED", oopsErr.Code())

	// Every subsequent check retries the load and fails again.
	_, err = store.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(3), src.loads.Load())
}

func TestStore_RecoversAfterParseError(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: []byte("groups: [unclosed")}
	store := NewStore(src)

	_, err := store.Current(context.Background())
	require.Error(t, err)

	src.set(rulesV1, time.Unix(2000, 0))

	snap, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"irb"}, snap.Groups())
}

func TestStore_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, rulesV1, 0o600))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	store := NewStore(NewFileSource(path))

	snap, err := store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"irb"}, snap.Groups())

	// Rewrite with a distinct mtime so the change is always observable.
	require.NoError(t, os.WriteFile(path, rulesV2, 0o600))
	require.NoError(t, os.Chtimes(path, past.Add(time.Minute), past.Add(time.Minute)))

	snap, err = store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"irb", "contractors"}, snap.Groups())
}

func TestStore_ConcurrentCurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	const goroutines = 50
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines + 1) // readers + 1 writer

	// Concurrent readers.
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				snap, err := store.Current(context.Background())
				require.NoError(t, err)
				require.NotNil(t, snap)
				// Snapshot should be consistent: either 1 or 2 groups.
				n := snap.Len()
				assert.True(t, n == 1 || n == 2,
					"snapshot should be atomic, got %d groups", n)
			}
		}()
	}

	// Concurrent source writer flipping between two valid documents.
	go func() {
		defer wg.Done()
		for i := range iterations {
			if i%2 == 0 {
				src.set(rulesV2, time.Unix(2000+int64(i), 0))
			} else {
				src.set(rulesV1, time.Unix(2000+int64(i), 0))
			}
		}
	}()

	wg.Wait()
}

func TestStore_LastReload(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	store := NewStore(src)

	assert.True(t, store.LastReload().IsZero(), "no reload has happened yet")

	before := time.Now()
	_, err := store.Current(context.Background())
	require.NoError(t, err)
	after := time.Now()

	got := store.LastReload()
	assert.False(t, got.Before(before), "LastReload should be >= reload start time")
	assert.False(t, got.After(after), "LastReload should be <= reload end time")
}

func TestStore_ReloadMetric(t *testing.T) {
	src := &fakeSource{modTime: time.Unix(1000, 0), data: rulesV1}
	gauge := newTestGauge()
	store := NewStore(src, WithLastReloadGauge(gauge))

	// Before reload, gauge should be 0.
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge))

	// After reload, gauge should be set to a recent Unix timestamp.
	before := time.Now().Unix()
	_, err := store.Current(context.Background())
	require.NoError(t, err)
	after := time.Now().Unix()

	val := testutil.ToFloat64(gauge)
	assert.GreaterOrEqual(t, val, float64(before), "gauge should be >= reload start time")
	assert.LessOrEqual(t, val, float64(after), "gauge should be <= reload end time")
}

func TestSnapshot_PatternsFor(t *testing.T) {
	rf, err := Parse([]byte(`
groups:
  - group: irb
    realms:
      wiki: Projects/Buck-IRB*
      milestone: Buck-IRB*
  - group: contractors
    realms:
      wiki: Public*
`))
	require.NoError(t, err)
	snap := NewSnapshot(rf, time.Unix(1000, 0))

	members := func(groups ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(groups))
		for _, g := range groups {
			m[g] = struct{}{}
		}
		return m
	}

	patterns := func(ps []match.Pattern) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.String()
		}
		return out
	}

	t.Run("single membership", func(t *testing.T) {
		got := snap.PatternsFor(members("contractors"), "wiki")
		assert.Equal(t, []string{"Public*"}, patterns(got))
	})

	t.Run("first declared group wins", func(t *testing.T) {
		got := snap.PatternsFor(members("irb", "contractors"), "wiki")
		assert.Equal(t, []string{"Projects/Buck-IRB*"}, patterns(got))
	})

	t.Run("winning group decides even without the realm", func(t *testing.T) {
		// contractors has milestone patterns in no entry; irb does. A user in
		// both gets irb's entry for every realm, but a user whose first
		// matching entry lacks the realm gets nothing from later entries.
		got := snap.PatternsFor(members("contractors", "irb"), "milestone")
		assert.Equal(t, []string{"Buck-IRB*"}, patterns(got),
			"irb is declared first, so its entry wins")

		rf2, err := Parse([]byte(`
groups:
  - group: contractors
    realms:
      wiki: Public*
  - group: irb
    realms:
      milestone: Buck-IRB*
`))
		require.NoError(t, err)
		snap2 := NewSnapshot(rf2, time.Unix(1000, 0))

		got = snap2.PatternsFor(members("contractors", "irb"), "milestone")
		assert.Empty(t, got,
			"contractors wins first and has no milestone patterns, so none apply")
	})

	t.Run("no membership", func(t *testing.T) {
		assert.Empty(t, snap.PatternsFor(members("visitors"), "wiki"))
		assert.Empty(t, snap.PatternsFor(nil, "wiki"))
	})
}

func TestSnapshot_Accessors(t *testing.T) {
	rf, err := Parse(rulesV2)
	require.NoError(t, err)

	modTime := time.Unix(1234, 0)
	snap := NewSnapshot(rf, modTime)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"irb", "contractors"}, snap.Groups())
	assert.Equal(t, modTime, snap.ModTime())
	assert.NotZero(t, snap.ID())
}

func TestNewSnapshot_DistinctIDs(t *testing.T) {
	rf := &RulesFile{}
	a := NewSnapshot(rf, time.Unix(1, 0))
	b := NewSnapshot(rf, time.Unix(1, 0))
	assert.NotEqual(t, a.ID(), b.ID())
}
