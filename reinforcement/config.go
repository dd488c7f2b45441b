package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"time"

	"kybernaut/grid_world"
	"kybernaut/memory"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultLogFile is the summary artifact written at the end of a run.
const DefaultLogFile = "kybernaut_human_log.txt"

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes the agent's hyper-parameters and the world's physical
// constants outside of code. Viper folds map keys to lower case before the def
// block is re-marshalled, hence the lower-case tags.
type TrainingConfig struct {
	// HyperParams is a key-val list of learning parameters.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// Physics overrides the default physical constants, by key.
	Physics []HyperParameter `yaml:"physics"`
	// Memory selects the Q-table synchronization strategy.
	Memory map[string]string `yaml:"memory"`
	// TrainingDeadline is a duration after which the run stops early.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`
	// Output names the run's artifacts.
	Output OutputConfig `yaml:"output"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

type OutputConfig struct {
	LogFile string `yaml:"logfile"`
	History string `yaml:"history"`
}

// DefaultConfig is used when no config file exists.
func DefaultConfig() *TrainingConfig {
	return &TrainingConfig{
		Output: OutputConfig{LogFile: DefaultLogFile},
	}
}

func lookup(kvps []HyperParameter, key string, defaultVal float64) float64 {
	for _, kvp := range kvps {
		if kvp.Key == key {
			return kvp.Val
		}
	}
	return defaultVal
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	return lookup(cfg.HyperParams, param, defaultVal)
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if duration, err := time.ParseDuration(val); err != nil {
			return nil, nil, err
		} else {
			innerCtx, cancel := context.WithTimeout(ctx, duration)
			return innerCtx, cancel, nil
		}
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// LogFile is the configured summary artifact, or DefaultLogFile.
func (cfg *TrainingConfig) LogFile() string {
	if cfg.Output.LogFile == "" {
		return DefaultLogFile
	}
	return cfg.Output.LogFile
}

// Settings resolves the config against the built-in defaults.
func (cfg *TrainingConfig) Settings() (Settings, error) {
	strategy, err := memory.ParseStrategy(cfg.Memory["strategy"])
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	s.Strategy = strategy
	s.Alpha = cfg.GetHyperParamOrDefault("alpha", s.Alpha)
	s.Gamma = cfg.GetHyperParamOrDefault("gamma", s.Gamma)
	s.Epsilon = cfg.GetHyperParamOrDefault("epsilon", s.Epsilon)
	s.EpsilonMin = cfg.GetHyperParamOrDefault("epsilonMin", s.EpsilonMin)
	s.EpsilonMax = cfg.GetHyperParamOrDefault("epsilonMax", s.EpsilonMax)
	s.EpsilonAfterTarget = cfg.GetHyperParamOrDefault("epsilonAfterTarget", s.EpsilonAfterTarget)
	s.EpsilonUp = cfg.GetHyperParamOrDefault("epsilonUp", s.EpsilonUp)
	s.EpsilonDown = cfg.GetHyperParamOrDefault("epsilonDown", s.EpsilonDown)
	s.ArrivalBonus = cfg.GetHyperParamOrDefault("arrivalBonus", s.ArrivalBonus)
	s.NoveltyBonus = cfg.GetHyperParamOrDefault("noveltyBonus", s.NoveltyBonus)
	s.CostWeight = cfg.GetHyperParamOrDefault("costWeight", s.CostWeight)
	s.ComputationalCost = cfg.GetHyperParamOrDefault("computationalCost", s.ComputationalCost)
	s.MaxSteps = int(cfg.GetHyperParamOrDefault("maxSteps", float64(s.MaxSteps)))
	s.Seed = int64(cfg.GetHyperParamOrDefault("seed", float64(s.Seed)))
	s.AdaptInterval = int(cfg.GetHyperParamOrDefault("adaptInterval", float64(s.AdaptInterval)))
	s.TraceInterval = int(cfg.GetHyperParamOrDefault("traceInterval", float64(s.TraceInterval)))
	s.CoolingInterval = int(cfg.GetHyperParamOrDefault("coolingInterval", float64(s.CoolingInterval)))
	s.HistoryCapacity = int(cfg.GetHyperParamOrDefault("historyCapacity", float64(s.HistoryCapacity)))
	s.OracleMaxDim = int(cfg.GetHyperParamOrDefault("oracleMaxDim", float64(s.OracleMaxDim)))

	p := &s.Physics
	p.CellSize = lookup(cfg.Physics, "cellSize", p.CellSize)
	p.TimeStep = lookup(cfg.Physics, "timeStep", p.TimeStep)
	p.EnergyUnit = lookup(cfg.Physics, "energyUnit", p.EnergyUnit)
	p.Gravity = lookup(cfg.Physics, "gravity", p.Gravity)
	p.AmbientTemperature = lookup(cfg.Physics, "ambientTemperature", p.AmbientTemperature)
	p.VisitHeating = lookup(cfg.Physics, "visitHeating", p.VisitHeating)
	p.CoolingRate = lookup(cfg.Physics, "coolingRate", p.CoolingRate)
	p.CostFloor = lookup(cfg.Physics, "costFloor", p.CostFloor)
	p.InformationBonus = lookup(cfg.Physics, "informationBonus", p.InformationBonus)

	return s, s.validate()
}

// LoadConfig reads @path, falling back to DefaultConfig when the file does not exist.
func LoadConfig(path string) (*TrainingConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return FromYaml(path)
}

func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := DefaultConfig()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	return innerConfig, nil
}

// Settings are the resolved parameters of one run.
type Settings struct {
	Alpha              float64
	Gamma              float64
	Epsilon            float64
	EpsilonMin         float64
	EpsilonMax         float64
	EpsilonAfterTarget float64
	// EpsilonUp and EpsilonDown scale epsilon when step-efficiency degrades or holds.
	EpsilonUp   float64
	EpsilonDown float64

	// Reward terms, in energy units.
	ArrivalBonus float64
	NoveltyBonus float64
	CostWeight   float64

	// ComputationalCost is the energy (J) dissipated per decision.
	ComputationalCost float64

	MaxSteps        int
	Seed            int64 // zero seeds from the clock
	AdaptInterval   int
	TraceInterval   int
	CoolingInterval int
	HistoryCapacity int
	OracleMaxDim    int

	Strategy memory.Strategy
	Physics  grid_world.Physics
}

var ErrInvalidSettings = errors.New("invalid settings")

func DefaultSettings() Settings {
	return Settings{
		Alpha:              0.18,
		Gamma:              0.92,
		Epsilon:            0.35,
		EpsilonMin:         0.05,
		EpsilonMax:         0.7,
		EpsilonAfterTarget: 0.15,
		EpsilonUp:          1.2,
		EpsilonDown:        0.9,
		ArrivalBonus:       100.0,
		NoveltyBonus:       10.0,
		CostWeight:         0.1,
		ComputationalCost:  1.0e-18,
		MaxSteps:           30000,
		AdaptInterval:      200,
		TraceInterval:      1000,
		CoolingInterval:    100,
		HistoryCapacity:    100,
		OracleMaxDim:       64,
		Strategy:           memory.MUTEX,
		Physics:            grid_world.DefaultPhysics(),
	}
}

func (s *Settings) validate() error {
	switch {
	case s.MaxSteps <= 0:
		return fmt.Errorf("%w: maxSteps must be positive", ErrInvalidSettings)
	case s.AdaptInterval <= 0, s.TraceInterval <= 0, s.CoolingInterval <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidSettings)
	case s.HistoryCapacity <= 0:
		return fmt.Errorf("%w: historyCapacity must be positive", ErrInvalidSettings)
	case s.EpsilonMin > s.EpsilonMax:
		return fmt.Errorf("%w: epsilonMin exceeds epsilonMax", ErrInvalidSettings)
	case s.Epsilon < s.EpsilonMin, s.Epsilon > s.EpsilonMax:
		return fmt.Errorf("%w: epsilon %.3f outside [%.3f, %.3f]", ErrInvalidSettings, s.Epsilon, s.EpsilonMin, s.EpsilonMax)
	case s.EpsilonAfterTarget < s.EpsilonMin, s.EpsilonAfterTarget > s.EpsilonMax:
		return fmt.Errorf("%w: epsilonAfterTarget %.3f outside [%.3f, %.3f]",
			ErrInvalidSettings, s.EpsilonAfterTarget, s.EpsilonMin, s.EpsilonMax)
	case s.Physics.AmbientTemperature <= 0:
		return fmt.Errorf("%w: ambientTemperature must be positive", ErrInvalidSettings)
	case s.Physics.VisitHeating < 0:
		return fmt.Errorf("%w: visitHeating must not be negative", ErrInvalidSettings)
	case s.Physics.CellSize <= 0, s.Physics.EnergyUnit <= 0, s.Physics.TimeStep <= 0:
		return fmt.Errorf("%w: physical units must be positive", ErrInvalidSettings)
	}
	return nil
}

// NewRand returns the run's random source: seeded when Seed is set, else from the clock.
func (s *Settings) NewRand() *rand.Rand {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
