// Package metrics computes the run's progress monitors from full scans of the
// World and Memory grids. Nothing here is maintained incrementally: every call
// recomputes from the current grid contents.
package metrics

import (
	"math"

	"kybernaut/grid_world"
	"kybernaut/memory"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// coherenceEpsilon is the magnitude below which an action-value counts as unlearned.
const coherenceEpsilon = 1e-6

// Totals are the agent's running sums needed by the derived aggregates.
type Totals struct {
	TotalInformation float64 // information credits gained
	TotalEnergyCost  float64 // movement cost, energy units
	TotalEnergyUsed  float64 // movement cost, J
}

// Metrics is a derived snapshot. Entropies are normalized and clamped to [0,1].
type Metrics struct {
	InformationEntropy float64
	ThermalEntropy     float64
	CoherenceEntropy   float64

	TotalEnergyUsed       float64 // J
	AverageTemperature    float64 // K
	InformationEfficiency float64 // information per J

	TotalCells   int
	VisitedCells int
	Coverage     float64 // percent

	LearningEfficiency float64 // ΔS per energy unit
}

// Clamp01 bounds @x to [0,1]. Applied to every entropy right after it is computed.
// NaN maps to 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

// InformationEntropy is the base-2 Shannon entropy of the visit distribution,
// normalized by log2(N²). Zero before any visit.
func InformationEntropy(w *grid_world.World) float64 {
	visits := make([]float64, 0, w.NumCells())
	w.VisitCells(func(c *grid_world.Cell) {
		visits = append(visits, float64(c.Visits))
	})

	total := floats.Sum(visits)
	if total == 0 {
		return 0
	}
	floats.Scale(1/total, visits)

	entropy := stat.Entropy(visits) / math.Ln2
	if maxEntropy := math.Log2(float64(w.NumCells())); maxEntropy > 0 {
		entropy /= maxEntropy
	}
	return Clamp01(entropy)
}

// ThermalEntropy is the natural-log Shannon entropy of the normalized temperature
// distribution, normalized by ln(N²). Zero when total heat is not positive.
func ThermalEntropy(w *grid_world.World) float64 {
	temps := make([]float64, 0, w.NumCells())
	w.VisitCells(func(c *grid_world.Cell) {
		temps = append(temps, c.Temperature)
	})

	total := floats.Sum(temps)
	if total <= 0 {
		return 0
	}
	floats.Scale(1/total, temps)

	// stat.Entropy skips zero entries; negative ones cannot come from a Kelvin grid.
	entropy := stat.Entropy(temps)
	if maxEntropy := math.Log(float64(len(temps))); maxEntropy > 0 {
		entropy /= maxEntropy
	}
	return Clamp01(entropy)
}

// Coherence measures the spread of one cell's learned values: 1 when all
// learned values agree, falling to 0 as (max-min)/|max| reaches 1.
// ok is false when the cell has no learned value.
func Coherence(values memory.Values) (coherence float64, ok bool) {
	maxQ, minQ := math.Inf(-1), math.Inf(1)
	for _, q := range values {
		if math.Abs(q) > coherenceEpsilon {
			ok = true
			maxQ = math.Max(maxQ, q)
			minQ = math.Min(minQ, q)
		}
	}
	if !ok {
		return 0, false
	}
	if math.Abs(maxQ) <= coherenceEpsilon {
		return 1, true
	}
	spread := (maxQ - minQ) / math.Abs(maxQ)
	return 1 - math.Min(spread, 1), true
}

// CoherenceEntropy is 1 minus the mean coherence over cells with at least one
// learned value. Cells without learned values are left out of the mean; with
// no qualifying cell the mean defaults to 1, so a fresh table yields 0.
func CoherenceEntropy(m *memory.Memory) float64 {
	total, qualifying := 0.0, 0
	m.VisitCells(func(_ grid_world.Position, c memory.Cell) {
		if coherence, ok := Coherence(c.ReadAll()); ok {
			total += coherence
			qualifying++
		}
	})

	avg := 1.0
	if qualifying > 0 {
		avg = total / float64(qualifying)
	}
	return Clamp01(1 - avg)
}

// Compute scans both grids and derives the full snapshot.
func Compute(w *grid_world.World, m *memory.Memory, totals Totals) Metrics {
	out := Metrics{
		InformationEntropy: InformationEntropy(w),
		ThermalEntropy:     ThermalEntropy(w),
		CoherenceEntropy:   CoherenceEntropy(m),
		TotalEnergyUsed:    totals.TotalEnergyUsed,
		TotalCells:         w.NumCells(),
	}

	totalTemp := 0.0
	w.VisitCells(func(c *grid_world.Cell) {
		totalTemp += c.Temperature
		if c.Visits > 0 {
			out.VisitedCells++
		}
	})
	out.AverageTemperature = totalTemp / float64(out.TotalCells)
	out.Coverage = Coverage(out.VisitedCells, out.TotalCells)

	if totals.TotalEnergyUsed > 0 {
		out.InformationEfficiency = totals.TotalInformation / totals.TotalEnergyUsed
	}
	if totals.TotalEnergyCost > 0 {
		out.LearningEfficiency = out.EntropyDelta() / totals.TotalEnergyCost
	}
	return out
}

// Coverage is the visited share of cells, in percent.
func Coverage(visited, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(visited) / float64(total) * 100.0
}

// EntropyDelta is S_thermal - S_info.
func (m *Metrics) EntropyDelta() float64 {
	return m.ThermalEntropy - m.InformationEntropy
}

// EntropyRatio is S_thermal / S_info, or 0 when S_info is 0.
func (m *Metrics) EntropyRatio() float64 {
	if m.InformationEntropy > 0 {
		return m.ThermalEntropy / m.InformationEntropy
	}
	return 0
}

// EntropiesInRange reports whether every entropy lies in [0,1].
func (m *Metrics) EntropiesInRange() bool {
	for _, s := range []float64{m.InformationEntropy, m.ThermalEntropy, m.CoherenceEntropy} {
		if s < 0 || s > 1 || math.IsNaN(s) {
			return false
		}
	}
	return true
}
