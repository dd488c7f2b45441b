// Package history keeps a sqlite ledger of finished runs, one row per run.
package history

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"kybernaut/report"

	_ "modernc.org/sqlite"
)

// Entry is one ledger row.
type Entry struct {
	ID                 string
	Timestamp          time.Time
	Dim                int
	Steps              int
	HomeReached        int
	BarReached         int
	InformationEntropy float64
	ThermalEntropy     float64
	CoherenceEntropy   float64
	Coverage           float64
	EnergyUsed         float64 // J
	Epsilon            float64
	Passed             bool
}

// EntryOf converts a run summary into its ledger row.
func EntryOf(s *report.Summary) Entry {
	return Entry{
		ID:                 s.ID.String(),
		Timestamp:          s.Started,
		Dim:                s.Dim,
		Steps:              s.Steps,
		HomeReached:        s.HomeReached,
		BarReached:         s.BarReached,
		InformationEntropy: s.Metrics.InformationEntropy,
		ThermalEntropy:     s.Metrics.ThermalEntropy,
		CoherenceEntropy:   s.Metrics.CoherenceEntropy,
		Coverage:           s.Metrics.Coverage,
		EnergyUsed:         s.Metrics.TotalEnergyUsed,
		Epsilon:            s.FinalEpsilon,
		Passed:             s.Passed(),
	}
}

type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at @path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			ts REAL NOT NULL,
			dim INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			home_reached INTEGER NOT NULL,
			bar_reached INTEGER NOT NULL,
			s_info REAL NOT NULL,
			s_thermal REAL NOT NULL,
			s_coherence REAL NOT NULL,
			coverage REAL NOT NULL,
			energy REAL NOT NULL,
			epsilon REAL NOT NULL,
			passed INTEGER NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends @e to the ledger.
func (l *Ledger) Record(e Entry) error {
	passed := 0
	if e.Passed {
		passed = 1
	}
	_, err := l.db.Exec(`
		INSERT INTO runs(id, ts, dim, steps, home_reached, bar_reached,
			s_info, s_thermal, s_coherence, coverage, energy, epsilon, passed)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, float64(e.Timestamp.UnixMilli())/1000.0, e.Dim, e.Steps, e.HomeReached, e.BarReached,
		e.InformationEntropy, e.ThermalEntropy, e.CoherenceEntropy, e.Coverage, e.EnergyUsed, e.Epsilon, passed)
	if err != nil {
		return fmt.Errorf("record run %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to @n of the latest runs, oldest first.
func (l *Ledger) Recent(n int) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, ts, dim, steps, home_reached, bar_reached,
			s_info, s_thermal, s_coherence, coverage, energy, epsilon, passed
		FROM runs ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ts float64
		if err = rows.Scan(&e.ID, &ts, &e.Dim, &e.Steps, &e.HomeReached, &e.BarReached,
			&e.InformationEntropy, &e.ThermalEntropy, &e.CoherenceEntropy,
			&e.Coverage, &e.EnergyUsed, &e.Epsilon, &e.Passed); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(int64(ts * 1000.0))
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// WriteRecent prints @entries as a table, oldest first.
func WriteRecent(out io.Writer, entries []Entry) {
	fmt.Fprintf(out, "\nRECENT RUNS (%d):\n", len(entries))
	fmt.Fprintf(out, "  %-19s %5s %6s %6s %6s %7s %7s %7s %s\n",
		"started", "dim", "steps", "home", "bar", "S_info", "S_therm", "S_coh", "valid")
	for _, e := range entries {
		valid := "PASS"
		if !e.Passed {
			valid = "FAIL"
		}
		fmt.Fprintf(out, "  %-19s %5d %6d %6d %6d %7.4f %7.4f %7.4f %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Dim, e.Steps, e.HomeReached, e.BarReached,
			e.InformationEntropy, e.ThermalEntropy, e.CoherenceEntropy, valid)
	}
}
