package history

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"kybernaut/metrics"
	"kybernaut/report"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *Ledger {
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func entry(i int) Entry {
	return Entry{
		ID:                 fmt.Sprintf("run-%d", i),
		Timestamp:          time.UnixMilli(1_700_000_000_000 + int64(i)*1000),
		Dim:                10 + i,
		Steps:              1000 * i,
		HomeReached:        i,
		InformationEntropy: 0.25,
		ThermalEntropy:     0.75,
		Coverage:           50,
		EnergyUsed:         1.5e-9,
		Epsilon:            0.15,
		Passed:             i%2 == 0,
	}
}

func TestLedger_RecordAndRecent(t *testing.T) {
	l := openLedger(t)
	for i := 1; i <= 5; i++ {
		require.NoError(t, l.Record(entry(i)))
	}

	recent, err := l.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Oldest first among the latest three.
	for k, got := range recent {
		want := entry(k + 3)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Dim, got.Dim)
		assert.Equal(t, want.Steps, got.Steps)
		assert.Equal(t, want.Passed, got.Passed)
		assert.InDelta(t, want.EnergyUsed, got.EnergyUsed, 1e-20)
		assert.WithinDuration(t, want.Timestamp, got.Timestamp, 2*time.Millisecond)
	}
}

func TestLedger_DuplicateID(t *testing.T) {
	l := openLedger(t)
	require.NoError(t, l.Record(entry(1)))
	require.Error(t, l.Record(entry(1)), "run ids are unique")

	all, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(entry(1)))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	all, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "run-1", all[0].ID)
}

func TestEntryOf(t *testing.T) {
	id := uuid.New()
	m := metrics.Metrics{InformationEntropy: 0.4, ThermalEntropy: 0.6, Coverage: 80, TotalEnergyUsed: 2e-9}
	s := &report.Summary{
		ID:           id,
		Dim:          12,
		Steps:        3000,
		BarReached:   2500,
		FinalEpsilon: 0.15,
		Metrics:      m,
		Checks:       report.Validate(&m),
	}

	e := EntryOf(s)
	require.Equal(t, id.String(), e.ID)
	require.Equal(t, 12, e.Dim)
	require.Equal(t, 2500, e.BarReached)
	require.Equal(t, 80.0, e.Coverage)
	require.True(t, e.Passed)
}

func TestWriteRecent(t *testing.T) {
	out := &bytes.Buffer{}
	WriteRecent(out, []Entry{entry(1), entry(2)})

	text := out.String()
	require.Contains(t, text, "RECENT RUNS (2)")
	assert.Contains(t, text, "FAIL")
	assert.Contains(t, text, "PASS")
	assert.Contains(t, text, "0.2500")
}
