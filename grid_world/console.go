package grid_world

import (
	"fmt"
	"io"
)

// Returns reversed indices of a slice, e.g. for ranging over.
// Grids are printed top row first, while y grows upward from (0,0).
func Rev(length int) []int {
	indices := make([]int, length)
	for i := 0; i < length; i++ {
		indices[i] = length - i - 1
	}
	return indices
}

// ShowGrid prints the material map, with targets as A/B and the agent as @.
func ShowGrid(out io.Writer, w *World, agent Position) {
	for _, y := range Rev(w.Dim) {
		for x := 0; x < w.Dim; x++ {
			cell := w.At(Position{x, y})
			switch {
			case cell.Position == agent:
				fmt.Fprint(out, "@ ")
			case cell.Target != NO_TARGET:
				fmt.Fprintf(out, "%s ", cell.Target)
			default:
				fmt.Fprintf(out, "%c ", cell.Material().Symbol)
			}
		}
		fmt.Fprintln(out)
	}
}

// visitShades runs from unvisited to heavily visited.
var visitShades = []rune(" .:-=+*#%@")

// ShowVisits prints a visit-count heat map scaled to the busiest cell.
func ShowVisits(out io.Writer, w *World) {
	maxVisits := 0
	w.VisitCells(func(c *Cell) {
		if c.Visits > maxVisits {
			maxVisits = c.Visits
		}
	})

	for _, y := range Rev(w.Dim) {
		for x := 0; x < w.Dim; x++ {
			visits := w.At(Position{x, y}).Visits
			shade := 0
			if maxVisits > 0 && visits > 0 {
				// Any visit gets at least the first non-blank shade.
				shade = 1 + visits*(len(visitShades)-2)/maxVisits
			}
			fmt.Fprintf(out, "%c", visitShades[shade])
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Max visits: %d\n", maxVisits)
}
