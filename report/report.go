// Package report formats a run for humans: the startup banner, the periodic
// trace, target banners, the final summary with its validation section, and
// the plain-text log artifact.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"kybernaut/grid_world"
	"kybernaut/metrics"
	"kybernaut/oracle"
	"kybernaut/reinforcement"

	"github.com/google/uuid"
)

const rule = "=============================================================="

// Summary is everything reported about a finished run.
type Summary struct {
	ID       uuid.UUID
	Started  time.Time
	Elapsed  time.Duration
	Dim      int
	Physics  grid_world.Physics
	Strategy string

	Steps            int
	DecisionsMade    int
	HomeReached      int
	BarReached       int
	FinalEpsilon     float64
	LearningEntropy  float64
	TotalEnergyCost  float64
	TotalInformation float64

	Metrics  metrics.Metrics
	Baseline *oracle.Baseline
	Checks   []Check
}

// Summarize collects the final state of @sim. @baseline may be nil.
func Summarize(
	id uuid.UUID,
	started time.Time,
	sim *reinforcement.Simulation,
	baseline *oracle.Baseline,
) *Summary {
	agent := sim.Agent
	return &Summary{
		ID:               id,
		Started:          started,
		Elapsed:          time.Since(started),
		Dim:              sim.World.Dim,
		Physics:          sim.World.Physics,
		Strategy:         string(sim.Memory.Strategy),
		Steps:            agent.Steps,
		DecisionsMade:    agent.DecisionsMade,
		HomeReached:      agent.HomeReached,
		BarReached:       agent.BarReached,
		FinalEpsilon:     agent.Epsilon,
		LearningEntropy:  agent.LearningEntropy,
		TotalEnergyCost:  agent.TotalEnergyCost,
		TotalInformation: agent.TotalInformation,
		Metrics:          sim.Metrics,
		Baseline:         baseline,
		Checks:           Validate(&sim.Metrics),
	}
}

// Passed reports whether every validation check passed.
func (s *Summary) Passed() bool {
	for _, c := range s.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Check is one line of the validation section.
type Check struct {
	Name   string
	Value  float64
	Passed bool
}

// Validate asserts every entropy lies within [0,1].
func Validate(m *metrics.Metrics) []Check {
	inRange := func(v float64) bool { return v >= 0 && v <= 1 }
	return []Check{
		{"S_info", m.InformationEntropy, inRange(m.InformationEntropy)},
		{"S_thermal", m.ThermalEntropy, inRange(m.ThermalEntropy)},
		{"S_coherence", m.CoherenceEntropy, inRange(m.CoherenceEntropy)},
	}
}

// Banner prints the run's physical projection before the first step.
func Banner(out io.Writer, sim *reinforcement.Simulation) {
	p := sim.World.Physics
	home := sim.World.TargetPosition(grid_world.TARGET_A)
	bar := sim.World.TargetPosition(grid_world.TARGET_B)
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Start: %v  Targets: A%v -> B%v\n", sim.World.Start(), home, bar)
	fmt.Fprintf(out, "  cell size:    %.1e m\n", p.CellSize)
	fmt.Fprintf(out, "  time step:    %.1e s\n", p.TimeStep)
	fmt.Fprintf(out, "  energy unit:  %.1e J\n", p.EnergyUnit)
	fmt.Fprintf(out, "  world:        %dx%d\n", sim.World.Dim, sim.World.Dim)
	fmt.Fprintf(out, "  max steps:    %d\n", sim.Settings.MaxSteps)
	fmt.Fprintf(out, "  memory:       %s\n", sim.Memory.Strategy)
	fmt.Fprintln(out, rule)
}

// Trace prints the periodic progress line of @sim.
func Trace(out io.Writer, sim *reinforcement.Simulation) {
	agent := sim.Agent
	cell := sim.World.At(agent.Position)
	m := &sim.Metrics
	fmt.Fprintf(out, "Step %5d: %v %s\n", agent.Steps, agent.Position, cell.Material().Name)
	fmt.Fprintf(out, "         temperature: %.1fK | visits: %d\n", cell.Temperature, cell.Visits)
	fmt.Fprintf(out, "         energy: %.1e J | eps: %.2f\n", agent.TotalEnergyUsed, agent.Epsilon)
	fmt.Fprintf(out, "         entropy: S_info=%.3f, S_therm=%.3f, S_coh=%.3f\n",
		m.InformationEntropy, m.ThermalEntropy, m.CoherenceEntropy)
}

// TargetReached prints the banner for a target reached at @step.
func TargetReached(out io.Writer, sim *reinforcement.Simulation, t grid_world.Target, step int) {
	name := "HOME"
	if t == grid_world.TARGET_B {
		name = "BAR"
	}
	fmt.Fprintf(out, "\n[%s REACHED] target %v at step %d, energy %.1e J\n",
		name, t, step, sim.Agent.TotalEnergyUsed)
	if sim.Agent.Finished() {
		fmt.Fprintln(out, "[MISSION COMPLETE] both targets reached")
	}
}

// WriteSummary prints the final results and the validation section.
func WriteSummary(out io.Writer, s *Summary) {
	m := &s.Metrics
	fmt.Fprintf(out, "\n%s\n  RESULTS  run %s\n%s\n\n", rule, s.ID, rule)

	fmt.Fprintln(out, "PHYSICAL METRICS:")
	fmt.Fprintf(out, "  steps:               %d\n", s.Steps)
	fmt.Fprintf(out, "  total energy:        %.3e J\n", m.TotalEnergyUsed)
	fmt.Fprintf(out, "  average temperature: %.1f K\n", m.AverageTemperature)
	fmt.Fprintf(out, "  wall time:           %.3f s\n", s.Elapsed.Seconds())

	fmt.Fprintln(out, "\nENTROPY ANALYSIS (normalized 0-1):")
	fmt.Fprintf(out, "  informational (S_info):    %.4f\n", m.InformationEntropy)
	fmt.Fprintf(out, "  thermal (S_thermal):       %.4f\n", m.ThermalEntropy)
	fmt.Fprintf(out, "  coherence (S_coherence):   %.4f\n", m.CoherenceEntropy)
	fmt.Fprintf(out, "  S_thermal - S_info:        %.4f\n", m.EntropyDelta())
	fmt.Fprintf(out, "  S_thermal / S_info:        %.3f\n", m.EntropyRatio())

	fmt.Fprintln(out, "\nINFORMATION METRICS:")
	fmt.Fprintf(out, "  coverage:               %d/%d cells (%.1f%%)\n", m.VisitedCells, m.TotalCells, m.Coverage)
	fmt.Fprintf(out, "  information efficiency: %.3e bit/J\n", m.InformationEfficiency)
	fmt.Fprintf(out, "  decisions:              %d\n", s.DecisionsMade)

	fmt.Fprintln(out, "\nLEARNING METRICS:")
	fmt.Fprintf(out, "  learning entropy:    %.3e J/K\n", s.LearningEntropy)
	fmt.Fprintf(out, "  learning efficiency: %.3e dS/unit\n", m.LearningEfficiency)
	fmt.Fprintf(out, "  final exploration:   %.2f\n", s.FinalEpsilon)
	if s.HomeReached > 0 {
		fmt.Fprintf(out, "  home reached at step: %d\n", s.HomeReached)
	}
	if s.BarReached > 0 {
		fmt.Fprintf(out, "  bar reached at step:  %d\n", s.BarReached)
	}

	if b := s.Baseline; b != nil {
		fmt.Fprintln(out, "\nBASELINE (cheapest start -> A -> B over the fresh world):")
		fmt.Fprintf(out, "  hops:   %d (%d + %d)\n", b.Hops(), b.ToHome.Hops(), b.ToBar.Hops())
		fmt.Fprintf(out, "  energy: %.3e J\n", b.Energy())
		if b.Energy() > 0 {
			fmt.Fprintf(out, "  agent/baseline energy: %.2fx\n", m.TotalEnergyUsed/b.Energy())
		}
	}

	WriteValidation(out, s)
}

// WriteValidation prints a pass/fail line per entropy.
func WriteValidation(out io.Writer, s *Summary) {
	fmt.Fprintf(out, "\n%s\n  VALIDATION\n%s\n", rule, rule)
	for _, c := range s.Checks {
		if c.Passed {
			fmt.Fprintf(out, "PASS %s in range 0-1: %.4f\n", c.Name, c.Value)
		} else {
			fmt.Fprintf(out, "FAIL %s out of range 0-1: %.4f\n", c.Name, c.Value)
		}
	}

	m := &s.Metrics
	if m.InformationEntropy > m.ThermalEntropy {
		fmt.Fprintf(out, "NOTE S_info > S_thermal: %.4f > %.4f\n", m.InformationEntropy, m.ThermalEntropy)
		fmt.Fprintln(out, "     (plausible for strongly structured exploration)")
	}

	if s.Passed() {
		fmt.Fprintln(out, "\nAll metrics within mathematical limits")
	} else {
		fmt.Fprintln(out, "\nSome metrics outside mathematical limits")
	}
}

// WriteLog writes the plain-text artifact of @s to @path, replacing any previous one.
func WriteLog(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	defer f.Close()

	if _, err = io.WriteString(f, FormatLog(s)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return f.Close()
}

// FormatLog renders the log artifact.
func FormatLog(s *Summary) string {
	m := &s.Metrics
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "KYBERNAUT run %s\n", s.ID)
	fmt.Fprintf(sb, "%s\n\n", strings.Repeat("=", 48))

	fmt.Fprintln(sb, "Physical parameters:")
	fmt.Fprintf(sb, "  world: %d x %d cells\n", s.Dim, s.Dim)
	fmt.Fprintf(sb, "  cell size: %.1e m\n", s.Physics.CellSize)
	fmt.Fprintf(sb, "  time step: %.1e s\n", s.Physics.TimeStep)
	fmt.Fprintf(sb, "  wall time: %.3f s\n\n", s.Elapsed.Seconds())

	fmt.Fprintln(sb, "Entropy metrics (0-1):")
	fmt.Fprintf(sb, "  S_info: %.4f\n", m.InformationEntropy)
	fmt.Fprintf(sb, "  S_thermal: %.4f\n", m.ThermalEntropy)
	fmt.Fprintf(sb, "  S_coherence: %.4f\n", m.CoherenceEntropy)
	fmt.Fprintf(sb, "  dS: %.4f\n", m.EntropyDelta())
	fmt.Fprintf(sb, "  ratio: %.3f\n\n", m.EntropyRatio())

	fmt.Fprintln(sb, "Physical metrics:")
	fmt.Fprintf(sb, "  total energy: %.3e J\n", m.TotalEnergyUsed)
	fmt.Fprintf(sb, "  average temperature: %.1f K\n", m.AverageTemperature)
	fmt.Fprintf(sb, "  coverage: %.1f%%\n", m.Coverage)

	fmt.Fprintln(sb, "\nValidation:")
	for _, c := range s.Checks {
		mark := "PASS"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(sb, "  %s %s %.4f\n", mark, c.Name, c.Value)
	}
	return sb.String()
}
