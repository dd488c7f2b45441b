package reinforcement

import (
	"kybernaut/grid_world"
	"kybernaut/memory"
	"kybernaut/metrics"
)

// Snapshot is a deep copy of the run's observable state. It shares nothing with
// the Simulation, so it may be handed to other goroutines.
type Snapshot struct {
	Dim     int
	Step    int
	Agent   grid_world.Position
	Epsilon float64
	Targets [2]grid_world.Position

	// Per-cell grids, indexed [x][y].
	Visits      [][]int
	Temperature [][]float64
	Materials   [][]int
	MaxQ        [][]float64
	Policy      [][]grid_world.Action

	Metrics metrics.Metrics
}

// Snapshot copies the current state. It must be called from the goroutine driving the run.
func (sim *Simulation) Snapshot() *Snapshot {
	dim := sim.World.Dim
	snap := &Snapshot{
		Dim:     dim,
		Step:    sim.Agent.Steps,
		Agent:   sim.Agent.Position,
		Epsilon: sim.Agent.Epsilon,
		Targets: [2]grid_world.Position{
			sim.World.TargetPosition(grid_world.TARGET_A),
			sim.World.TargetPosition(grid_world.TARGET_B),
		},
		Visits:      makeGrid[int](dim),
		Temperature: makeGrid[float64](dim),
		Materials:   makeGrid[int](dim),
		MaxQ:        makeGrid[float64](dim),
		Policy:      makeGrid[grid_world.Action](dim),
		Metrics:     sim.Metrics,
	}

	sim.World.VisitCells(func(c *grid_world.Cell) {
		snap.Visits[c.X][c.Y] = c.Visits
		snap.Temperature[c.X][c.Y] = c.Temperature
		snap.Materials[c.X][c.Y] = c.MaterialID
	})
	sim.Memory.VisitCells(func(p grid_world.Position, c memory.Cell) {
		values := c.ReadAll()
		best, _ := memory.Greedy(values, sim.World.ValidActions(p))
		snap.Policy[p.X][p.Y] = best
		snap.MaxQ[p.X][p.Y] = values[best]
	})
	return snap
}

func makeGrid[T any](dim int) [][]T {
	backing := make([]T, dim*dim)
	grid := make([][]T, dim)
	for x := range grid {
		grid[x] = backing[x*dim : (x+1)*dim]
	}
	return grid
}
