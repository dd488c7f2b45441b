package cell_views

import (
	"fmt"
	"html/template"

	"kybernaut/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// VisitsGrid shows each cell's material, a heat overlay of its visit count,
// the greedy policy arrow, and the agent and target markers.
type VisitsGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewVisitsGrid(
	done <-chan struct{},
	cells <-chan [][]Cell,
) (vg *VisitsGrid) {
	vg = &VisitsGrid{id: "visitsgrid"}
	vg.updates = channerics.Convert(done, cells, vg.onUpdate)
	return
}

func (vg *VisitsGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

// Returns the set of view updates needed for the view to reflect the current cells.
func (vg *VisitsGrid) onUpdate(cells [][]Cell) (ops []fastview.EleUpdate) {
	for _, row := range cells {
		for _, cell := range row {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: cellID(cell, "heat"),
					Ops: []fastview.Op{
						{Key: "fill-opacity", Value: fmt.Sprintf("%.2f", cell.Heat)},
					},
				},
				fastview.EleUpdate{
					EleId: cellID(cell, "visits-text"),
					Ops: []fastview.Op{
						{Key: "textContent", Value: fmt.Sprintf("%d", cell.Visits)},
					},
				},
				fastview.EleUpdate{
					EleId: cellID(cell, "policy-arrow"),
					Ops: []fastview.Op{
						{Key: "transform", Value: fmt.Sprintf("rotate(%d)", cell.PolicyArrowRotation)},
						{Key: "stroke-width", Value: fmt.Sprintf("%d", cell.PolicyArrowScale)},
					},
				},
				fastview.EleUpdate{
					EleId: cellID(cell, "marker"),
					Ops: []fastview.Op{
						{Key: "textContent", Value: cell.Marker},
					},
				},
			)
		}
	}
	return
}

// Parse defines the grid's svg. Cells are small so that large worlds still fit.
func (vg *VisitsGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = vg.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="` + vg.id + `-container">
			{{ $x_cells := len . }}
			{{ $y_cells := len (index . 0) }}
			{{ $cell_width := 40 }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $x_cells }}
			{{ $height := mult $cell_height $y_cells }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg id="` + vg.id + `"
				width="{{ add $width 1 }}px"
				height="{{ add $height 1 }}px"
				style="shape-rendering: crispEdges; font-size: 10px;">
				{{ range $row := . }}
					{{ range $cell := $row }}
					<g>
						<rect
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="black"
							stroke-width="1"/>
						<rect id="{{$cell.X}}-{{$cell.Y}}-heat"
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="red"
							fill-opacity="{{ printf "%.2f" $cell.Heat }}"/>
						<text id="{{$cell.X}}-{{$cell.Y}}-visits-text"
							x="{{ add (mult $cell.X $cell_width) 3 }}"
							y="{{ add (mult $cell.Y $cell_height) 10 }}"
							fill="black"
							>{{ $cell.Visits }}</text>
						<text id="{{$cell.X}}-{{$cell.Y}}-marker"
							x="{{ sub (add (mult $cell.X $cell_width) $cell_width) 8 }}"
							y="{{ add (mult $cell.Y $cell_height) 10 }}"
							fill="darkgreen" font-weight="bold"
							>{{ $cell.Marker }}</text>
						<g transform="translate({{ add (mult $cell.X $cell_width) $half_width }}, {{ add (mult $cell.Y $cell_height) (add $half_height 5) }})">
							<text id="{{$cell.X}}-{{$cell.Y}}-policy-arrow"
							stroke="blue" stroke-width="{{ $cell.PolicyArrowScale }}"
							dominant-baseline="central" text-anchor="middle"
							transform="rotate({{ $cell.PolicyArrowRotation }})"
							>&uarr;</text>
						</g>
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
