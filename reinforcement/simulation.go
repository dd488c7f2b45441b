package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"kybernaut/grid_world"
	"kybernaut/memory"
	"kybernaut/metrics"
)

// MAX_FOOTPRINT is the largest grid allocation, in bytes, a run may request.
const MAX_FOOTPRINT = uint64(1) << 36

var ErrAllocation = errors.New("cannot allocate grids")

// ProgressFunc is a callback by which the simulation lends progress details at each
// trace interval. It is synchronous and should complete quickly.
type ProgressFunc func(context.Context, int)

// TargetFunc is called when a target is reached for the first time.
type TargetFunc func(t grid_world.Target, step int)

// Footprint estimates the bytes needed by the World and Memory grids of a
// @dim x @dim run. ok is false if the estimate overflows.
func Footprint(dim int, strategy memory.Strategy) (bytes uint64, ok bool) {
	if dim <= 0 {
		return 0, true
	}
	perCell := grid_world.CellFootprint + memory.Footprint(strategy)
	cells := uint64(dim) * uint64(dim)
	if cells/uint64(dim) != uint64(dim) || cells > math.MaxUint64/perCell {
		return 0, false
	}
	return cells * perCell, true
}

// Simulation is the context of one run. It owns the World, the Memory, the
// Navigator and the latest Metrics, and is driven by a single goroutine.
type Simulation struct {
	Settings Settings
	World    *grid_world.World
	Memory   *memory.Memory
	Agent    *Navigator
	Metrics  metrics.Metrics

	// OnTargetReached, if set, is called after a target's flag is set.
	OnTargetReached TargetFunc

	rng       *rand.Rand
	progress  ProgressFunc
	lastTrace int
}

// NewSimulation builds the grids for a @dim x @dim run. Dimension errors are
// returned before anything is allocated.
func NewSimulation(dim int, settings Settings, rng *rand.Rand) (*Simulation, error) {
	if dim < grid_world.MIN_DIMENSION {
		return nil, fmt.Errorf("%w: got %d", grid_world.ErrDimensionTooSmall, dim)
	}
	if bytes, ok := Footprint(dim, settings.Strategy); !ok || bytes > MAX_FOOTPRINT {
		return nil, fmt.Errorf("%w: dimension %d", ErrAllocation, dim)
	}

	world, err := grid_world.NewWorld(dim, settings.Physics, rng)
	if err != nil {
		return nil, err
	}
	mem, err := memory.New(dim, settings.Strategy)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{
		Settings: settings,
		World:    world,
		Memory:   mem,
		Agent:    NewNavigator(world.Start(), &settings),
		rng:      rng,
	}
	sim.Metrics = metrics.Compute(world, mem, sim.totals())
	return sim, nil
}

func (sim *Simulation) totals() metrics.Totals {
	return metrics.Totals{
		TotalInformation: sim.Agent.TotalInformation,
		TotalEnergyCost:  sim.Agent.TotalEnergyCost,
		TotalEnergyUsed:  sim.Agent.TotalEnergyUsed,
	}
}

// Done reports whether the step budget is spent or both targets are reached.
func (sim *Simulation) Done() bool {
	return sim.Agent.Steps >= sim.Settings.MaxSteps || sim.Agent.Finished()
}

// Run steps the simulation until it is Done or @ctx is cancelled, then computes
// the final metrics. @progressFn may be nil.
func (sim *Simulation) Run(ctx context.Context, progressFn ProgressFunc) metrics.Metrics {
	sim.progress = progressFn
	defer func() { sim.progress = nil }()

	for !sim.Done() {
		select {
		case <-ctx.Done():
			return sim.Finish()
		default:
		}
		sim.Step(ctx)
	}
	return sim.Finish()
}

// Finish recomputes the metrics from a full scan of both grids.
func (sim *Simulation) Finish() metrics.Metrics {
	sim.Metrics = metrics.Compute(sim.World, sim.Memory, sim.totals())
	return sim.Metrics
}

// Step runs one iteration of the policy loop: periodic cooling, an
// epsilon-greedy choice and the resulting move. A step with no valid
// direction is consumed without movement.
func (sim *Simulation) Step(ctx context.Context) {
	if sim.Agent.Steps%sim.Settings.CoolingInterval == 0 {
		sim.World.Relax()
	}

	action, ok := sim.choose()
	if !ok {
		sim.Agent.Steps++
		return
	}
	sim.Move(ctx, action)
}

// choose selects an action from the agent's position: a uniform random valid
// action with probability epsilon, else the greedy one.
func (sim *Simulation) choose() (grid_world.Action, bool) {
	pos := sim.Agent.Position
	valid := sim.World.ValidActions(pos)

	if float64(sim.rng.Intn(100)) < sim.Agent.Epsilon*100.0 {
		if len(valid) == 0 {
			return 0, false
		}
		return valid[sim.rng.Intn(len(valid))], true
	}
	return memory.Greedy(sim.Memory.ReadAllQ(pos), valid)
}

// Move takes @action from the agent's position and does all of the step's
// bookkeeping. It returns false, consuming the step, if @action leaves the grid.
func (sim *Simulation) Move(ctx context.Context, action grid_world.Action) bool {
	agent := sim.Agent
	world := sim.World
	agent.DecisionsMade++

	src := agent.Position
	dest := action.Apply(src)
	if !world.InBounds(dest) {
		agent.Steps++
		return false
	}
	agent.Position = dest
	agent.Steps++

	first := world.Arrive(dest)

	cost := world.MovementCost(src, dest)
	agent.TotalEnergyCost += cost
	agent.TotalEnergyUsed += cost * world.Physics.EnergyUnit

	gain := 0.1
	if first {
		gain = 1.0
	}
	agent.TotalInformation += gain
	world.RecordInformation(dest, gain)

	reward := sim.reward(src, dest, cost, first)

	maxFutureQ := sim.Memory.MaxFutureQ(dest)
	sim.Memory.ApplyUpdate(src, action, memory.Update{
		Reward:     reward,
		MaxFutureQ: maxFutureQ,
		Alpha:      agent.Alpha,
		Gamma:      agent.Gamma,
		Step:       agent.Steps,
	})

	agent.LearningEntropy += sim.Settings.ComputationalCost / world.Physics.AmbientTemperature
	_ = agent.Path.Append(action)

	if agent.Steps%sim.Settings.AdaptInterval == 0 {
		sim.adapt()
	}

	if agent.Steps-sim.lastTrace >= sim.Settings.TraceInterval {
		sim.Metrics = metrics.Compute(world, sim.Memory, sim.totals())
		sim.lastTrace = agent.Steps
		if sim.progress != nil {
			sim.progress(ctx, agent.Steps)
		}
	}

	if t := world.At(dest).Target; t != grid_world.NO_TARGET && agent.markReached(t) {
		agent.Epsilon = sim.Settings.EpsilonAfterTarget
		if sim.OnTargetReached != nil {
			sim.OnTargetReached(t, agent.Steps)
		}
	}
	return true
}

// reward shapes the step's reward in joules: a one-time arrival bonus per
// target, a novelty bonus on a cell's first visit, a share of the movement
// cost, and the progress made toward the active target.
func (sim *Simulation) reward(src, dest grid_world.Position, cost float64, first bool) float64 {
	world := sim.World
	unit := world.Physics.EnergyUnit
	reward := 0.0

	if t := world.At(dest).Target; t != grid_world.NO_TARGET && !sim.Agent.Reached(t) {
		reward += sim.Settings.ArrivalBonus * unit
	}
	if first {
		reward += sim.Settings.NoveltyBonus * unit
	}
	reward -= cost * sim.Settings.CostWeight

	target := world.TargetPosition(sim.Agent.ActiveTarget)
	progress := world.Distance(src, target) - world.Distance(dest, target)
	reward += progress / world.Physics.CellSize * unit

	return reward
}

// adapt compares the current step-efficiency with the sample a full history lap
// earlier. Degradation beyond the threshold raises epsilon, anything else lowers it.
func (sim *Simulation) adapt() {
	agent := sim.Agent
	s := &sim.Settings

	current := 0.0
	if agent.TotalEnergyCost > 0 {
		current = float64(agent.Steps) / agent.TotalEnergyCost
	}

	if current < agent.Efficiency.Current()*0.9 {
		agent.Epsilon = math.Min(s.EpsilonMax, agent.Epsilon*s.EpsilonUp)
	} else {
		agent.Epsilon = math.Max(s.EpsilonMin, agent.Epsilon*s.EpsilonDown)
	}
	agent.Efficiency.Record(current)
}
