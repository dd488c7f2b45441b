package grid_world

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestWorld(dim int, seed int64) *World {
	w, err := NewWorld(dim, DefaultPhysics(), rand.New(rand.NewSource(seed)))
	if err != nil {
		panic(err)
	}
	return w
}

func TestNewWorld(t *testing.T) {
	Convey("When a world is built", t, func() {
		Convey("Dimensions below five are rejected", func() {
			_, err := NewWorld(4, DefaultPhysics(), rand.New(rand.NewSource(1)))
			So(errors.Is(err, ErrDimensionTooSmall), ShouldBeTrue)
		})

		Convey("Targets occupy opposite corners with fixed materials", func() {
			w := newTestWorld(7, 3)
			home := w.At(Position{0, 0})
			bar := w.At(Position{6, 6})
			So(home.Target, ShouldEqual, TARGET_A)
			So(home.MaterialID, ShouldEqual, GLASS)
			So(bar.Target, ShouldEqual, TARGET_B)
			So(bar.MaterialID, ShouldEqual, WATER)
			So(w.TargetPosition(TARGET_A), ShouldResemble, Position{0, 0})
			So(w.TargetPosition(TARGET_B), ShouldResemble, Position{6, 6})
			So(w.Start(), ShouldResemble, Position{3, 3})

			targets := 0
			w.VisitCells(func(c *Cell) {
				if c.Target != NO_TARGET {
					targets++
				}
			})
			So(targets, ShouldEqual, 2)
		})

		Convey("Cells start unvisited near ambient with derived physics", func() {
			w := newTestWorld(6, 5)
			phys := w.Physics
			w.VisitCells(func(c *Cell) {
				So(c.Visits, ShouldEqual, 0)
				So(c.Temperature, ShouldBeGreaterThanOrEqualTo, phys.AmbientTemperature)
				So(c.Temperature, ShouldBeLessThan, phys.AmbientTemperature+10.0)
				mat := c.Material()
				So(c.Potential, ShouldAlmostEqual, mat.Density*phys.Gravity*phys.CellSize)
				So(c.Mobility, ShouldAlmostEqual, 1.0/(mat.ElasticModulus*phys.TimeStep))
			})
		})

		Convey("Replacing a material recomputes the cell's physics", func() {
			w := newTestWorld(7, 3)
			p := Position{2, 4}
			w.SetMaterial(p, OBSTACLE)
			c := w.At(p)
			mat := MaterialOf(OBSTACLE)
			So(c.MaterialID, ShouldEqual, OBSTACLE)
			So(c.Potential, ShouldAlmostEqual, mat.Density*w.Physics.Gravity*w.Physics.CellSize)
			So(c.EffectiveMass, ShouldAlmostEqual, mat.Density*w.Physics.CellSize*w.Physics.CellSize)
			So(c.Mobility, ShouldAlmostEqual, 1.0/(mat.ElasticModulus*w.Physics.TimeStep))
		})

		Convey("Equal seeds build identical worlds", func() {
			a, b := newTestWorld(9, 42), newTestWorld(9, 42)
			a.VisitCells(func(c *Cell) {
				other := b.At(c.Position)
				So(other.MaterialID, ShouldEqual, c.MaterialID)
				So(other.Temperature, ShouldEqual, c.Temperature)
			})
		})
	})
}

func TestDrawMaterial(t *testing.T) {
	Convey("Material draws follow the cumulative thresholds", t, func() {
		So(drawMaterial(0.0), ShouldEqual, AIR)
		So(drawMaterial(0.399), ShouldEqual, AIR)
		So(drawMaterial(0.40), ShouldEqual, WATER)
		So(drawMaterial(0.699), ShouldEqual, WATER)
		So(drawMaterial(0.70), ShouldEqual, GLASS)
		So(drawMaterial(0.90), ShouldEqual, DIAMOND)
		So(drawMaterial(0.969), ShouldEqual, DIAMOND)
		So(drawMaterial(0.97), ShouldEqual, OBSTACLE)
		So(drawMaterial(0.999), ShouldEqual, OBSTACLE)
	})
}

func TestMovementCost(t *testing.T) {
	Convey("When computing movement cost", t, func() {
		Convey("Distance scales by the cell length", func() {
			w := newTestWorld(5, 1)
			So(w.Distance(Position{0, 0}, Position{3, 4}), ShouldAlmostEqual, 5*w.Physics.CellSize)
		})

		Convey("The default projection charges the destination's resistance", func() {
			w := newTestWorld(5, 1)
			from, to := Position{1, 1}, Position{1, 2}
			w.SetMaterial(to, AIR)
			phys := w.Physics
			resistance := MaterialOf(AIR).Density * phys.CellSize * phys.Gravity * phys.CellSize
			expected := resistance/phys.EnergyUnit - 1.0*phys.InformationBonus
			So(w.MovementCost(from, to), ShouldAlmostEqual, expected, 1e-3)
		})

		Convey("Adjacent cells of the same material still cost the floor when the bonus dominates", func() {
			phys := DefaultPhysics()
			phys.EnergyUnit = 1.0 // resistance rescales to ~1e-11, far below the bonus
			w, err := NewWorld(5, phys, rand.New(rand.NewSource(2)))
			So(err, ShouldBeNil)
			from, to := Position{2, 2}, Position{2, 3}
			w.SetMaterial(from, WATER)
			w.SetMaterial(to, WATER)
			So(w.MovementCost(from, to), ShouldEqual, phys.CostFloor)

			// Repeat visits shrink the bonus, never the floor.
			for i := 0; i < 50; i++ {
				w.Arrive(to)
			}
			So(w.MovementCost(from, to), ShouldEqual, phys.CostFloor)
		})

		Convey("The information bonus shrinks with visits", func() {
			w := newTestWorld(5, 1)
			from, to := Position{1, 1}, Position{2, 1}
			before := w.MovementCost(from, to)
			w.Arrive(to)
			So(w.MovementCost(from, to), ShouldBeGreaterThan, before)
		})
	})
}

func TestArriveAndRelax(t *testing.T) {
	Convey("When the agent arrives at a cell", t, func() {
		w := newTestWorld(5, 9)
		p := Position{2, 2}
		t0 := w.At(p).Temperature

		So(w.Arrive(p), ShouldBeTrue)
		So(w.Arrive(p), ShouldBeFalse)
		So(w.At(p).Visits, ShouldEqual, 2)
		So(w.At(p).Temperature, ShouldAlmostEqual, t0+2*w.Physics.VisitHeating)

		Convey("Information density accrues per square meter", func() {
			w.RecordInformation(p, 1.0)
			So(w.At(p).InformationDensity, ShouldAlmostEqual, 1.0/(w.Physics.CellSize*w.Physics.CellSize))
		})

		Convey("Relaxation moves every temperature toward ambient", func() {
			ambient := w.Physics.AmbientTemperature
			gaps := map[Position]float64{}
			w.VisitCells(func(c *Cell) { gaps[c.Position] = math.Abs(c.Temperature - ambient) })
			w.Relax()
			w.VisitCells(func(c *Cell) {
				gap := math.Abs(c.Temperature - ambient)
				So(gap, ShouldAlmostEqual, gaps[c.Position]*(1-w.Physics.CoolingRate), 1e-9)
			})
		})
	})
}

func TestConsole(t *testing.T) {
	Convey("Console maps mark targets and the agent", t, func() {
		w := newTestWorld(5, 4)
		var buf bytes.Buffer
		ShowGrid(&buf, w, w.Start())
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		So(len(lines), ShouldEqual, 5)
		So(strings.TrimSpace(lines[0]), ShouldEndWith, "B")
		So(lines[4], ShouldStartWith, "A")
		So(lines[2], ShouldContainSubstring, "@")

		buf.Reset()
		w.Arrive(Position{1, 1})
		ShowVisits(&buf, w)
		So(buf.String(), ShouldContainSubstring, "Max visits: 1")
		So(buf.String(), ShouldContainSubstring, "@")
	})

	Convey("Rev reverses indices", t, func() {
		So(Rev(3), ShouldResemble, []int{2, 1, 0})
	})
}
