package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kybernaut/grid_world"
	"kybernaut/metrics"
	"kybernaut/oracle"
	"kybernaut/reinforcement"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func finishedRun(dim int) (*reinforcement.Simulation, *oracle.Baseline) {
	settings := reinforcement.DefaultSettings()
	settings.Seed = 21
	settings.MaxSteps = 2000
	sim, err := reinforcement.NewSimulation(dim, settings, settings.NewRand())
	if err != nil {
		panic(err)
	}
	baseline, err := oracle.Plan(sim.World, settings.OracleMaxDim)
	if err != nil {
		panic(err)
	}
	sim.Run(context.Background(), nil)
	return sim, baseline
}

func TestValidate(t *testing.T) {
	Convey("Validation checks each entropy's range", t, func() {
		m := &metrics.Metrics{InformationEntropy: 0.3, ThermalEntropy: 0.9, CoherenceEntropy: 0}
		checks := Validate(m)
		So(len(checks), ShouldEqual, 3)
		for _, c := range checks {
			So(c.Passed, ShouldBeTrue)
		}

		m.CoherenceEntropy = 1.5
		s := &Summary{Metrics: *m, Checks: Validate(m)}
		So(s.Passed(), ShouldBeFalse)

		out := &bytes.Buffer{}
		WriteValidation(out, s)
		So(out.String(), ShouldContainSubstring, "FAIL S_coherence out of range 0-1: 1.5000")
		So(out.String(), ShouldContainSubstring, "PASS S_info in range 0-1: 0.3000")
		So(out.String(), ShouldNotContainSubstring, "NOTE")
	})

	Convey("A note is added when S_info exceeds S_thermal", t, func() {
		m := &metrics.Metrics{InformationEntropy: 0.8, ThermalEntropy: 0.5}
		out := &bytes.Buffer{}
		WriteValidation(out, &Summary{Metrics: *m, Checks: Validate(m)})
		So(out.String(), ShouldContainSubstring, "NOTE S_info > S_thermal: 0.8000 > 0.5000")
		So(out.String(), ShouldContainSubstring, "All metrics within mathematical limits")
	})
}

func TestSummary(t *testing.T) {
	Convey("Given a finished run", t, func() {
		sim, baseline := finishedRun(6)
		id := uuid.New()
		s := Summarize(id, time.Now().Add(-time.Second), sim, baseline)

		Convey("The summary reflects the simulation", func() {
			So(s.ID, ShouldEqual, id)
			So(s.Steps, ShouldEqual, sim.Agent.Steps)
			So(s.Dim, ShouldEqual, 6)
			So(s.Elapsed, ShouldBeGreaterThanOrEqualTo, time.Second)
			So(s.Passed(), ShouldBeTrue)
		})

		Convey("The console summary carries every section", func() {
			out := &bytes.Buffer{}
			WriteSummary(out, s)
			text := out.String()
			So(text, ShouldContainSubstring, id.String())
			So(text, ShouldContainSubstring, "ENTROPY ANALYSIS")
			So(text, ShouldContainSubstring, "BASELINE")
			So(text, ShouldContainSubstring, "VALIDATION")
		})

		Convey("The log artifact is written to disk", func() {
			path := filepath.Join(t.TempDir(), reinforcement.DefaultLogFile)
			So(WriteLog(path, s), ShouldBeNil)
			contents, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(contents), ShouldEqual, FormatLog(s))
			So(string(contents), ShouldContainSubstring, "world: 6 x 6 cells")
			So(string(contents), ShouldContainSubstring, "coverage:")
		})

		Convey("Trace and banners print the agent's state", func() {
			out := &bytes.Buffer{}
			Banner(out, sim)
			Trace(out, sim)
			TargetReached(out, sim, grid_world.TARGET_B, 12)
			So(out.String(), ShouldContainSubstring, "energy unit:  1.0e-20 J")
			So(out.String(), ShouldContainSubstring, "Step ")
			So(out.String(), ShouldContainSubstring, "[BAR REACHED] target B at step 12")
		})
	})
}
