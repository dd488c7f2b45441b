package grid_world

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"unsafe"
)

// MIN_DIMENSION is the smallest supported grid edge length.
const MIN_DIMENSION = 5

// ErrDimensionTooSmall is returned when a world smaller than MIN_DIMENSION is requested.
var ErrDimensionTooSmall = errors.New("grid dimension must be at least 5")

// CellFootprint is the in-memory size of one World cell, for allocation estimates.
const CellFootprint = uint64(unsafe.Sizeof(Cell{}))

// Physics holds the constants projecting the grid onto physical units.
// One cell is CellSize meters across and one step lasts TimeStep seconds.
type Physics struct {
	CellSize           float64 // m
	TimeStep           float64 // s
	EnergyUnit         float64 // J
	Gravity            float64 // m/s²
	AmbientTemperature float64 // K
	VisitHeating       float64 // K added per visit
	CoolingRate        float64 // fraction of the gap to ambient removed per relaxation
	CostFloor          float64 // minimum movement cost, in energy units
	InformationBonus   float64 // energy units credited per unit of information gain
}

// DefaultPhysics returns the micrometer/picosecond projection used by default.
func DefaultPhysics() Physics {
	return Physics{
		CellSize:           1.0e-6,
		TimeStep:           1.0e-12,
		EnergyUnit:         1.0e-20,
		Gravity:            9.81,
		AmbientTemperature: 293.15,
		VisitHeating:       0.1,
		CoolingRate:        0.01,
		CostFloor:          0.1,
		InformationBonus:   10.0,
	}
}

// Position is an x/y grid coordinate. (0,0) is the bottom-left cell.
type Position struct {
	X, Y int
}

func (p Position) String() string {
	return fmt.Sprintf("[%3d,%3d]", p.X, p.Y)
}

// Target marks a designated goal cell.
type Target int

const (
	NO_TARGET Target = iota
	TARGET_A
	TARGET_B
)

func (t Target) String() string {
	switch t {
	case TARGET_A:
		return "A"
	case TARGET_B:
		return "B"
	default:
		return "-"
	}
}

// Cell is the physical state of one grid position. Cells are owned by the World
// and written only by the goroutine driving the simulation.
type Cell struct {
	Position
	MaterialID         int
	Visits             int
	Temperature        float64 // K
	Potential          float64
	Target             Target
	InformationDensity float64 // information per m²
	EffectiveMass      float64
	Mobility           float64
}

// Material returns the catalog entry of the cell's material.
func (c *Cell) Material() Material {
	return materials[c.MaterialID]
}

// World is an N x N grid of cells indexed [x][y].
type World struct {
	Dim     int
	Physics Physics
	cells   [][]Cell
}

// NewWorld builds a world of @dim x @dim cells, drawing temperatures and materials
// from @rng. Targets A and B occupy opposite corners with fixed materials.
func NewWorld(dim int, physics Physics, rng *rand.Rand) (*World, error) {
	if dim < MIN_DIMENSION {
		return nil, fmt.Errorf("%w: got %d", ErrDimensionTooSmall, dim)
	}

	w := &World{
		Dim:     dim,
		Physics: physics,
		cells:   make([][]Cell, dim),
	}
	for x := range w.cells {
		w.cells[x] = make([]Cell, dim)
	}

	// Row-major draw order keeps seeded worlds reproducible.
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			cell := &w.cells[x][y]
			cell.Position = Position{x, y}
			cell.Temperature = physics.AmbientTemperature + float64(rng.Intn(100))/100.0*10.0
			w.setMaterial(cell, drawMaterial(float64(rng.Intn(1000))/1000.0))
		}
	}

	home := &w.cells[0][0]
	home.Target = TARGET_A
	w.setMaterial(home, GLASS)

	bar := &w.cells[dim-1][dim-1]
	bar.Target = TARGET_B
	w.setMaterial(bar, WATER)

	return w, nil
}

func (w *World) setMaterial(cell *Cell, id int) {
	mat := materials[id]
	cell.MaterialID = id
	cell.Potential = mat.Density * w.Physics.Gravity * w.Physics.CellSize
	cell.EffectiveMass = mat.Density * w.Physics.CellSize * w.Physics.CellSize
	cell.Mobility = 1.0 / (mat.ElasticModulus * w.Physics.TimeStep)
}

// At returns the cell at @p. The caller must ensure @p is in bounds.
func (w *World) At(p Position) *Cell {
	return &w.cells[p.X][p.Y]
}

// InBounds reports whether @p lies within [0,Dim)².
func (w *World) InBounds(p Position) bool {
	return p.X >= 0 && p.X < w.Dim && p.Y >= 0 && p.Y < w.Dim
}

// TargetPosition returns the location of target @t.
func (w *World) TargetPosition(t Target) Position {
	if t == TARGET_B {
		return Position{w.Dim - 1, w.Dim - 1}
	}
	return Position{0, 0}
}

// Start returns the agent's starting cell, the grid center.
func (w *World) Start() Position {
	return Position{w.Dim / 2, w.Dim / 2}
}

// NumCells returns N².
func (w *World) NumCells() int {
	return w.Dim * w.Dim
}

// Distance is the Euclidean distance between two cells in meters.
func (w *World) Distance(p, q Position) float64 {
	dx := float64(q.X-p.X) * w.Physics.CellSize
	dy := float64(q.Y-p.Y) * w.Physics.CellSize
	return math.Sqrt(dx*dx + dy*dy)
}

// MovementCost is the energy, in energy units, of moving from @from into @to:
// the resistance of the destination material minus a bonus for rarely visited
// destinations. The result never drops below Physics.CostFloor.
func (w *World) MovementCost(from, to Position) float64 {
	dest := w.At(to)
	resistance := dest.Material().Density * w.Distance(from, to) * w.Physics.Gravity * w.Physics.CellSize
	informationGain := 1.0 / (float64(dest.Visits) + 1.0)

	cost := resistance/w.Physics.EnergyUnit - informationGain*w.Physics.InformationBonus
	return math.Max(cost, w.Physics.CostFloor)
}

// Arrive records a visit to @p, warming the cell. Returns true on the cell's first visit.
func (w *World) Arrive(p Position) (first bool) {
	cell := w.At(p)
	cell.Visits++
	cell.Temperature += w.Physics.VisitHeating
	return cell.Visits == 1
}

// RecordInformation credits @gain to the information density of @p.
func (w *World) RecordInformation(p Position, gain float64) {
	w.At(p).InformationDensity += gain / (w.Physics.CellSize * w.Physics.CellSize)
}

// Relax moves every cell's temperature a fixed fraction toward ambient.
func (w *World) Relax() {
	ambient := w.Physics.AmbientTemperature
	rate := w.Physics.CoolingRate
	w.VisitCells(func(c *Cell) {
		c.Temperature += (ambient - c.Temperature) * rate
	})
}

// VisitCells calls fn on every cell, x-major.
func (w *World) VisitCells(fn func(c *Cell)) {
	for x := range w.cells {
		for y := range w.cells[x] {
			fn(&w.cells[x][y])
		}
	}
}

// SetMaterial replaces the material of @p and recomputes its mass, mobility and
// potential.
func (w *World) SetMaterial(p Position, id int) {
	w.setMaterial(w.At(p), id)
}
