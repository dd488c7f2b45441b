// Package memory holds the agent's learned action-values, one small table per
// grid cell. Every cell is reached through a Cell accessor whose Strategy decides
// how reads and read-modify-writes are synchronized.
//
// A TD update reads the destination cell's values and then writes the source
// cell; the two cells are never held together. Under a single writer this is
// exact. Under concurrent writers the destination snapshot may be stale by the
// time the source is written, which callers accept by using this API.
package memory

import (
	"errors"
	"fmt"

	"kybernaut/grid_world"
)

// Values holds one action-value per action.
type Values [grid_world.NUM_ACTIONS]float64

// Stats is the bookkeeping kept alongside a cell's action-values.
type Stats struct {
	CumulativeReward float64
	Evaluations      int
	SuccessfulExits  int
	LastVisit        int // step of the last update, -1 if never updated
}

// Update carries the inputs of one TD update:
// newQ = oldQ + Alpha*(Reward + Gamma*MaxFutureQ - oldQ).
type Update struct {
	Reward     float64
	MaxFutureQ float64
	Alpha      float64
	Gamma      float64
	Step       int
}

func (u *Update) apply(oldQ float64) float64 {
	return oldQ + u.Alpha*(u.Reward+u.Gamma*u.MaxFutureQ-oldQ)
}

// Cell is the locked-cell accessor capability. Implementations guarantee that
// each method observes and leaves the cell in a consistent state with respect
// to their Strategy.
type Cell interface {
	// Read returns the value of a single action.
	Read(a grid_world.Action) float64
	// ReadAll returns a snapshot of all action-values.
	ReadAll() Values
	// MaxFuture returns the largest action-value, floored at zero.
	MaxFuture() float64
	// Apply performs the TD update for action @a and returns the stored value.
	Apply(a grid_world.Action, u Update) float64
	// Stats returns a snapshot of the cell's bookkeeping.
	Stats() Stats
}

// Strategy selects the synchronization of Cell accessors.
type Strategy string

const (
	// MUTEX guards each cell with its own mutex.
	MUTEX Strategy = "mutex"
	// ATOMIC updates each slot with compare-and-swap, never blocking.
	ATOMIC Strategy = "atomic"
	// NONE does no synchronization; only valid with a single goroutine.
	NONE Strategy = "none"
)

// ErrUnknownStrategy is returned for an unrecognized Strategy name.
var ErrUnknownStrategy = errors.New("unknown memory strategy")

// ParseStrategy maps a config string onto a Strategy. Empty selects MUTEX.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case "":
		return MUTEX, nil
	case MUTEX, ATOMIC, NONE:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Footprint is the approximate per-cell size of a Memory grid for @strategy.
func Footprint(strategy Strategy) uint64 {
	switch strategy {
	case ATOMIC:
		return atomicCellFootprint
	case NONE:
		return plainCellFootprint
	default:
		return mutexCellFootprint
	}
}

// Memory is the N x N grid of action-value tables, indexed [x][y].
type Memory struct {
	Dim      int
	Strategy Strategy
	cells    [][]Cell
}

// New allocates a zeroed Memory grid using @strategy.
func New(dim int, strategy Strategy) (*Memory, error) {
	if dim < grid_world.MIN_DIMENSION {
		return nil, fmt.Errorf("%w: got %d", grid_world.ErrDimensionTooSmall, dim)
	}

	var alloc func(i int) Cell
	switch strategy {
	case MUTEX:
		backing := make([]mutexCell, dim*dim)
		alloc = func(i int) Cell {
			backing[i].stats.LastVisit = -1
			return &backing[i]
		}
	case ATOMIC:
		backing := make([]atomicCell, dim*dim)
		alloc = func(i int) Cell {
			backing[i].lastVisit.Store(-1)
			return &backing[i]
		}
	case NONE:
		backing := make([]plainCell, dim*dim)
		alloc = func(i int) Cell {
			backing[i].stats.LastVisit = -1
			return &backing[i]
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	m := &Memory{
		Dim:      dim,
		Strategy: strategy,
		cells:    make([][]Cell, dim),
	}
	for x := range m.cells {
		m.cells[x] = make([]Cell, dim)
		for y := range m.cells[x] {
			m.cells[x][y] = alloc(x*dim + y)
		}
	}
	return m, nil
}

// At returns the accessor for the cell at @p.
func (m *Memory) At(p grid_world.Position) Cell {
	return m.cells[p.X][p.Y]
}

// ReadQ is a locked read of one action-value.
func (m *Memory) ReadQ(p grid_world.Position, a grid_world.Action) float64 {
	return m.At(p).Read(a)
}

// ReadAllQ is a locked snapshot of a cell's action-values.
func (m *Memory) ReadAllQ(p grid_world.Position) Values {
	return m.At(p).ReadAll()
}

// MaxFutureQ is the lookahead read of a TD update, taken from the destination
// cell before the source cell is locked.
func (m *Memory) MaxFutureQ(p grid_world.Position) float64 {
	return m.At(p).MaxFuture()
}

// ApplyUpdate runs a TD update on the source cell @p under that cell's
// synchronization only, using the supplied and possibly stale u.MaxFutureQ.
func (m *Memory) ApplyUpdate(p grid_world.Position, a grid_world.Action, u Update) float64 {
	return m.At(p).Apply(a, u)
}

// VisitCells calls fn with every cell accessor, x-major.
func (m *Memory) VisitCells(fn func(p grid_world.Position, c Cell)) {
	for x := range m.cells {
		for y := range m.cells[x] {
			fn(grid_world.Position{X: x, Y: y}, m.cells[x][y])
		}
	}
}

// Greedy returns the action with the largest value among @valid, first one winning ties.
// ok is false when @valid is empty.
func Greedy(values Values, valid []grid_world.Action) (best grid_world.Action, ok bool) {
	for _, a := range valid {
		if !ok || values[a] > values[best] {
			best, ok = a, true
		}
	}
	return
}

func maxFuture(values *Values) float64 {
	best := 0.0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}
