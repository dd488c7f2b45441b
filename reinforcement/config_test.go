package reinforcement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"kybernaut/memory"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `kind: navigator
def:
  hyperParams:
    - key: alpha
      val: 0.5
    - key: maxSteps
      val: 1200
    - key: seed
      val: 77
    - key: alpha
      val: 0.9
  physics:
    - key: energyUnit
      val: 1.0
  memory:
    strategy: atomic
  trainingDeadline:
    duration: 1m
  output:
    logFile: run.txt
    history: runs.db
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("When a config file is loaded", t, func() {
		cfg, err := LoadConfig(writeConfig(t, testConfig))
		So(err, ShouldBeNil)

		Convey("Hyper-parameters resolve with the first matching key", func() {
			So(cfg.GetHyperParamOrDefault("alpha", 0), ShouldEqual, 0.5)
			So(cfg.GetHyperParamOrDefault("gamma", 0.92), ShouldEqual, 0.92)
		})

		Convey("Settings combine the file with the defaults", func() {
			s, err := cfg.Settings()
			So(err, ShouldBeNil)
			So(s.Alpha, ShouldEqual, 0.5)
			So(s.Gamma, ShouldEqual, 0.92)
			So(s.MaxSteps, ShouldEqual, 1200)
			So(s.Seed, ShouldEqual, 77)
			So(s.Strategy, ShouldEqual, memory.ATOMIC)
			So(s.Physics.EnergyUnit, ShouldEqual, 1.0)
			So(s.Physics.CellSize, ShouldEqual, 1.0e-6)
		})

		Convey("Output names are read", func() {
			So(cfg.LogFile(), ShouldEqual, "run.txt")
			So(cfg.Output.History, ShouldEqual, "runs.db")
		})

		Convey("The training deadline bounds the context", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			_, hasDeadline := ctx.Deadline()
			So(hasDeadline, ShouldBeTrue)
		})
	})

	Convey("A missing config file yields the defaults", t, func() {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		So(err, ShouldBeNil)
		So(cfg.LogFile(), ShouldEqual, DefaultLogFile)

		s, err := cfg.Settings()
		So(err, ShouldBeNil)
		So(s, ShouldResemble, DefaultSettings())

		ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
		So(err, ShouldBeNil)
		defer cancel()
		_, hasDeadline := ctx.Deadline()
		So(hasDeadline, ShouldBeFalse)
	})

	Convey("Bad values are reported", t, func() {
		cfg := DefaultConfig()
		cfg.Memory = map[string]string{"strategy": "spinlock"}
		_, err := cfg.Settings()
		So(errors.Is(err, memory.ErrUnknownStrategy), ShouldBeTrue)

		cfg = DefaultConfig()
		cfg.HyperParams = []HyperParameter{{Key: "maxSteps", Val: 0}}
		_, err = cfg.Settings()
		So(errors.Is(err, ErrInvalidSettings), ShouldBeTrue)
	})

	Convey("Exploration rates outside their bounds are rejected", t, func() {
		for _, kvp := range []HyperParameter{
			{Key: "epsilon", Val: 0.95},
			{Key: "epsilon", Val: 0.01},
			{Key: "epsilonAfterTarget", Val: 0.8},
			{Key: "epsilonAfterTarget", Val: 0.0},
		} {
			cfg := DefaultConfig()
			cfg.HyperParams = []HyperParameter{kvp}
			_, err := cfg.Settings()
			So(errors.Is(err, ErrInvalidSettings), ShouldBeTrue)
		}

		cfg := DefaultConfig()
		cfg.HyperParams = []HyperParameter{{Key: "epsilon", Val: 0.05}, {Key: "epsilonAfterTarget", Val: 0.7}}
		_, err := cfg.Settings()
		So(err, ShouldBeNil)
	})

	Convey("Non-physical temperatures are rejected", t, func() {
		path := writeConfig(t, `kind: navigator
def:
  physics:
    - key: ambientTemperature
      val: -5
`)
		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)
		_, err = cfg.Settings()
		So(errors.Is(err, ErrInvalidSettings), ShouldBeTrue)

		cfg = DefaultConfig()
		cfg.Physics = []HyperParameter{{Key: "ambientTemperature", Val: 0}}
		_, err = cfg.Settings()
		So(errors.Is(err, ErrInvalidSettings), ShouldBeTrue)

		cfg = DefaultConfig()
		cfg.Physics = []HyperParameter{{Key: "visitHeating", Val: -0.1}}
		_, err = cfg.Settings()
		So(errors.Is(err, ErrInvalidSettings), ShouldBeTrue)
	})

	Convey("A bad deadline is reported", t, func() {
		cfg := DefaultConfig()
		cfg.TrainingDeadline = map[string]string{"duration": "soon"}
		_, _, err := cfg.WithTrainingDeadline(context.Background())
		So(err, ShouldNotBeNil)
	})
}
