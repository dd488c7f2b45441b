// Package oracle computes an a-priori baseline for a run: the cheapest routes
// from the start to target A and on to target B over a fresh, unvisited world.
// The agent's own energy spend is reported relative to it.
package oracle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"kybernaut/grid_world"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dijkstra"
)

// WEIGHT_SCALE converts movement costs into the graph's integer weights.
const WEIGHT_SCALE = 10.0

var (
	ErrNoRoute      = errors.New("no route between cells")
	ErrGridTooLarge = errors.New("grid exceeds the oracle's dimension limit")
)

// Route is a cheapest path between two cells.
type Route struct {
	From, To grid_world.Position
	Path     []grid_world.Position // includes both endpoints
	Cost     float64               // energy units
	Energy   float64               // J
}

// Hops is the number of moves along the route.
func (r *Route) Hops() int {
	return len(r.Path) - 1
}

// Baseline is the cheapest start->A->B tour.
type Baseline struct {
	ToHome Route
	ToBar  Route
}

// Energy is the tour's total energy, J.
func (b *Baseline) Energy() float64 {
	return b.ToHome.Energy + b.ToBar.Energy
}

func (b *Baseline) Hops() int {
	return b.ToHome.Hops() + b.ToBar.Hops()
}

// Enabled reports whether the oracle runs for a @dim x @dim grid.
func Enabled(dim, maxDim int) bool {
	return dim <= maxDim
}

func vertexID(p grid_world.Position) string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

func parseVertexID(id string) (p grid_world.Position, err error) {
	xs, ys, ok := strings.Cut(id, ",")
	if !ok {
		return p, fmt.Errorf("bad vertex id %q", id)
	}
	if p.X, err = strconv.Atoi(xs); err != nil {
		return
	}
	p.Y, err = strconv.Atoi(ys)
	return
}

// weight is the integer edge weight of a movement cost; never below one.
func weight(cost float64) int64 {
	return int64(math.Max(1, math.Ceil(cost*WEIGHT_SCALE)))
}

// BuildGraph converts @w into a directed weighted graph with an edge for every
// valid move, weighted by the move's cost as seen by an agent that has visited nothing.
func BuildGraph(w *grid_world.World) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	for x := 0; x < w.Dim; x++ {
		for y := 0; y < w.Dim; y++ {
			from := grid_world.Position{X: x, Y: y}
			for _, a := range w.ValidActions(from) {
				to := a.Apply(from)
				if _, err := g.AddEdge(vertexID(from), vertexID(to), weight(w.MovementCost(from, to))); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// ShortestRoute runs Dijkstra over @g from @from and reconstructs the path to @to.
func ShortestRoute(w *grid_world.World, g *core.Graph, from, to grid_world.Position) (*Route, error) {
	route := &Route{From: from, To: to}
	if from == to {
		route.Path = []grid_world.Position{from}
		return route, nil
	}

	dist, prev, err := dijkstra.Dijkstra(g, dijkstra.Source(vertexID(from)), dijkstra.WithReturnPath())
	if err != nil {
		return nil, err
	}
	if d, ok := dist[vertexID(to)]; !ok || d == math.MaxInt64 {
		return nil, fmt.Errorf("%w: %v -> %v", ErrNoRoute, from, to)
	}

	// Walk the predecessor chain back from @to.
	path := []grid_world.Position{to}
	for id := vertexID(to); id != vertexID(from); {
		id = prev[id]
		if id == "" {
			return nil, fmt.Errorf("%w: %v -> %v", ErrNoRoute, from, to)
		}
		p, err := parseVertexID(id)
		if err != nil {
			return nil, err
		}
		path = append(path, p)
	}
	for _, i := range grid_world.Rev(len(path) / 2) {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	route.Path = path

	for i := 1; i < len(path); i++ {
		route.Cost += w.MovementCost(path[i-1], path[i])
	}
	route.Energy = route.Cost * w.Physics.EnergyUnit
	return route, nil
}

// Plan computes the baseline tour of @w. The world must not have been visited
// yet, since movement costs depend on visit counts.
func Plan(w *grid_world.World, maxDim int) (*Baseline, error) {
	if !Enabled(w.Dim, maxDim) {
		return nil, fmt.Errorf("%w: %d > %d", ErrGridTooLarge, w.Dim, maxDim)
	}

	g, err := BuildGraph(w)
	if err != nil {
		return nil, err
	}

	home := w.TargetPosition(grid_world.TARGET_A)
	bar := w.TargetPosition(grid_world.TARGET_B)

	toHome, err := ShortestRoute(w, g, w.Start(), home)
	if err != nil {
		return nil, err
	}
	toBar, err := ShortestRoute(w, g, home, bar)
	if err != nil {
		return nil, err
	}
	return &Baseline{ToHome: *toHome, ToBar: *toBar}, nil
}
