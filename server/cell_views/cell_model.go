// Package cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"fmt"

	"kybernaut/grid_world"
	"kybernaut/reinforcement"
)

// Cell flattens one grid cell of a Snapshot into values usable directly as view
// parameters. [][]Cell is indexed [x][row], where row 0 is the top of the svg,
// so that north renders upward.
type Cell struct {
	X, Y                int
	Max                 float64
	PolicyArrowRotation int
	PolicyArrowScale    int
	Visits              int
	Heat                float64 // visits relative to the most visited cell, 0-1
	Fill                string
	Marker              string
}

// Convert transforms a snapshot into Cells. The y indices are flipped per the
// svg y-axis orientation, where 0 is the top of the coordinate system.
func Convert(snap *reinforcement.Snapshot) (cells [][]Cell) {
	dim := snap.Dim
	maxVisits := 0
	for x := range snap.Visits {
		for _, v := range snap.Visits[x] {
			maxVisits = max(maxVisits, v)
		}
	}

	cells = make([][]Cell, dim)
	for x := 0; x < dim; x++ {
		cells[x] = make([]Cell, dim)
		for y := 0; y < dim; y++ {
			row := dim - y - 1
			visits := snap.Visits[x][y]
			cell := Cell{
				X:                   x,
				Y:                   row,
				Max:                 snap.MaxQ[x][y],
				PolicyArrowRotation: getDegrees(snap.Policy[x][y]),
				PolicyArrowScale:    getScale(snap.MaxQ[x][y]),
				Visits:              visits,
				Fill:                getFill(snap.Materials[x][y]),
				Marker:              getMarker(snap, grid_world.Position{X: x, Y: y}),
			}
			if maxVisits > 0 {
				cell.Heat = float64(visits) / float64(maxVisits)
			}
			cells[x][row] = cell
		}
	}
	return
}

// getDegrees returns the svg rotation of an upward arrow rune pointing along @action.
func getDegrees(action grid_world.Action) int {
	switch action {
	case grid_world.EAST:
		return 90
	case grid_world.SOUTH:
		return 180
	case grid_world.WEST:
		return 270
	default:
		return 0
	}
}

// Arrows are drawn wherever the cell has a learned value. Movement costs make
// most learned values negative.
func getScale(maxQ float64) int {
	if maxQ != 0 {
		return 1
	}
	return 0
}

func getFill(materialID int) (fill string) {
	switch materialID {
	case grid_world.AIR:
		fill = "white"
	case grid_world.WATER:
		fill = "lightblue"
	case grid_world.GLASS:
		fill = "lightcyan"
	case grid_world.DIAMOND:
		fill = "lavender"
	case grid_world.OBSTACLE:
		fill = "dimgray"
	}
	return
}

func getMarker(snap *reinforcement.Snapshot, p grid_world.Position) string {
	switch p {
	case snap.Agent:
		return "@"
	case snap.Targets[0]:
		return grid_world.TARGET_A.String()
	case snap.Targets[1]:
		return grid_world.TARGET_B.String()
	}
	return ""
}

func cellID(cell Cell, suffix string) string {
	return fmt.Sprintf("%d-%d-%s", cell.X, cell.Y, suffix)
}
