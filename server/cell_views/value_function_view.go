package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"kybernaut/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Angle of the x and y axes in the isometric projection (30°).
const ang = math.Pi / 6

var sinAng, cosAng = math.Sin(ang), math.Cos(ang)

// ValueFunction plots the greedy action-value of every cell as an isometric
// 2d projection of the surface (x, y, maxQ).
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate

	width, height float64 // canvas size in pixels
	cellDim       float64 // cell size in pixels
	xyscale       float64 // pixels per x or y unit
	zscale        float64 // pixels per z unit
}

// NewValueFunction sizes the canvas for a @dim x @dim grid. Large grids use
// smaller cells so the surface stays on screen.
func NewValueFunction(
	done <-chan struct{},
	cells <-chan [][]Cell,
	dim int,
) (vf *ValueFunction) {
	cellDim := math.Max(4, math.Min(60, 600/float64(dim)))
	vf = &ValueFunction{
		id:      "valuefunction",
		cellDim: cellDim,
		width:   float64(dim) * cellDim,
		height:  float64(dim) * cellDim,
		xyscale: cellDim,
		zscale:  cellDim * 0.3,
	}
	vf.updates = channerics.Convert(done, cells, vf.onUpdate)
	return
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

// project applies the isometric projection. @z is normalized to [0,1] by the
// caller so the surface height does not depend on the reward scale.
func (vf *ValueFunction) project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * vf.xyscale
	sy := (x+y)*sinAng*vf.xyscale - z*vf.zscale*4
	return sx, sy
}

// makeFuncPolygon returns the polygon spanning four adjacent cells: A is
// bottom left, B top left, C top right and D bottom right.
func (vf *ValueFunction) makeFuncPolygon(
	id string,
	scale func(float64) float64,
	cellA, cellB, cellC, cellD Cell,
) (fp *funcPolygon) {
	fp = &funcPolygon{Id: id}
	fp.ax, fp.ay = vf.project(float64(cellA.X), float64(cellA.Y), scale(cellA.Max))
	fp.bx, fp.by = vf.project(float64(cellB.X), float64(cellB.Y), scale(cellB.Max))
	fp.cx, fp.cy = vf.project(float64(cellC.X), float64(cellC.Y), scale(cellC.Max))
	fp.dx, fp.dy = vf.project(float64(cellD.X), float64(cellD.Y), scale(cellD.Max))
	return
}

type funcPolygon struct {
	Id     string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// String returns the value of the svg polygon 'points' attribute.
func (fp *funcPolygon) String() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func minFour(f1, f2, f3, f4 float64) float64 {
	return math.Min(math.Min(f1, f2), math.Min(f3, f4))
}

func maxFour(f1, f2, f3, f4 float64) float64 {
	return math.Max(math.Max(f1, f2), math.Max(f3, f4))
}

func (fp *funcPolygon) MinX() float64 { return minFour(fp.ax, fp.bx, fp.cx, fp.dx) }
func (fp *funcPolygon) MinY() float64 { return minFour(fp.ay, fp.by, fp.cy, fp.dy) }
func (fp *funcPolygon) MaxX() float64 { return maxFour(fp.ax, fp.bx, fp.cx, fp.dx) }
func (fp *funcPolygon) MaxY() float64 { return maxFour(fp.ay, fp.by, fp.cy, fp.dy) }

func avg(f ...float64) float64 {
	n, sum := 0.0, 0.0
	for _, fn := range f {
		sum += fn
		n++
	}
	return sum / n
}

// valueRange returns the min and max of the cells' values, and a function
// mapping a value onto [0,1] within that range.
func valueRange(cells [][]Cell) (minVal, maxVal float64, scale func(float64) float64) {
	minVal, maxVal = math.MaxFloat64, -math.MaxFloat64
	for _, row := range cells {
		for _, cell := range row {
			minVal = math.Min(minVal, cell.Max)
			maxVal = math.Max(maxVal, cell.Max)
		}
	}
	span := maxVal - minVal
	scale = func(v float64) float64 {
		if span <= 0 {
			return 0
		}
		return (v - minVal) / span
	}
	return
}

// forEachPolygon visits the polygons in back to front drawing order.
func forEachPolygon(cells [][]Cell, fn func(a, b, c, d Cell)) {
	for ri := 0; ri < len(cells)-1; ri++ {
		row := cells[ri]
		for ci := len(row) - 2; ci >= 0; ci-- {
			fn(cells[ri+1][ci], cells[ri][ci], cells[ri][ci+1], cells[ri+1][ci+1])
		}
	}
}

// Returns the set of view updates needed for the view to reflect current values.
func (vf *ValueFunction) onUpdate(
	cells [][]Cell,
) (ops []fastview.EleUpdate) {
	_, _, scale := valueRange(cells)

	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	forEachPolygon(cells, func(cellA, cellB, cellC, cellD Cell) {
		polygon := vf.makeFuncPolygon(
			cellID(cellB, "value-polygon"),
			scale,
			cellA, cellB, cellC, cellD,
		)

		xmin = math.Min(xmin, polygon.MinX())
		xmax = math.Max(xmax, polygon.MaxX())
		ymin = math.Min(ymin, polygon.MinY())
		ymax = math.Max(ymax, polygon.MaxY())

		fill := getRGBFill(scale(avg(cellA.Max, cellB.Max, cellC.Max, cellD.Max)))
		ops = append(ops, fastview.EleUpdate{
			EleId: polygon.Id,
			Ops: []fastview.Op{
				{Key: "points", Value: polygon.String()},
				{Key: "fill", Value: fill},
			},
		})
	})
	if len(ops) == 0 {
		return
	}

	// Shift by the min x and y to center the surface, scaling down only when it does not fit.
	scaler := math.Min(
		math.Min(
			math.Abs(vf.width/(xmax-xmin)),
			math.Abs(vf.height/(ymax-ymin)),
		),
		1.0,
	)

	ops = append(ops, fastview.EleUpdate{
		EleId: vf.id + "-group",
		Ops: []fastview.Op{
			{
				Key:   "transform",
				Value: fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin)),
			},
		},
	})
	return
}

// getRGBFill shades from blue at the bottom of the value range to red at the top.
// @rel is the value's position within the range, in [0,1].
func getRGBFill(rel float64) string {
	redPct := int(100.0 * math.Max(0, math.Min(1, rel)))
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse defines an svg of polygons plotting the value surface. Polygon points
// start flat and are set by the first update.
func (vf *ValueFunction) Parse(
	t *template.Template,
) (name string, err error) {
	name = vf.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div style="padding:40px;">
			{{ $x_cells := len . }}
			{{ $y_cells := len (index . 0) }}
			{{ $num_x_polys := sub $x_cells 1 }}
			{{ $num_y_polys := sub $y_cells 1 }}
			<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
				width="` + fmt.Sprintf("%d", int(vf.width*2)) + `px"
				height="` + fmt.Sprintf("%d", int(vf.height*2)) + `px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 1;">
				<g id="` + vf.id + `-group" transform="translate(0 0)">
				{{ $cells := . }}
				{{ range $ri, $row := $cells }}
					{{ if lt $ri $num_x_polys }}
						{{ range $j, $unused := $row }}
							{{ $ci := sub (sub (len $row) $j) 1 }}
							{{ $cell := index $row $ci }}
							{{ if lt $ci $num_y_polys }}
								<polygon id="{{$cell.X}}-{{$cell.Y}}-value-polygon"
									fill="black" fill-opacity="1.0"
									points="0,0 0,0 0,0 0,0" />
							{{ end }}
						{{ end }}
					{{ end }}
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
