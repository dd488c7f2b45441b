package memory

import (
	"errors"
	"sync"
	"testing"

	"kybernaut/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

var strategies = []Strategy{MUTEX, ATOMIC, NONE}

func TestNew(t *testing.T) {
	Convey("When a memory grid is allocated", t, func() {
		Convey("Unknown strategies and small grids are rejected", func() {
			_, err := New(5, Strategy("spinlock"))
			So(errors.Is(err, ErrUnknownStrategy), ShouldBeTrue)
			_, err = New(3, MUTEX)
			So(errors.Is(err, grid_world.ErrDimensionTooSmall), ShouldBeTrue)
		})

		for _, strategy := range strategies {
			strategy := strategy
			Convey("Every cell starts zeroed with strategy "+string(strategy), func() {
				m, err := New(5, strategy)
				So(err, ShouldBeNil)
				count := 0
				m.VisitCells(func(p grid_world.Position, c Cell) {
					count++
					So(c.ReadAll(), ShouldResemble, Values{})
					So(c.MaxFuture(), ShouldEqual, 0.0)
					So(c.Stats(), ShouldResemble, Stats{LastVisit: -1})
				})
				So(count, ShouldEqual, 25)
			})
		}
	})
}

func TestParseStrategy(t *testing.T) {
	Convey("Strategy names parse", t, func() {
		s, err := ParseStrategy("")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, MUTEX)
		s, err = ParseStrategy("atomic")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, ATOMIC)
		_, err = ParseStrategy("bogus")
		So(errors.Is(err, ErrUnknownStrategy), ShouldBeTrue)
		So(Footprint(MUTEX), ShouldBeGreaterThan, Footprint(NONE))
	})
}

func TestApplyUpdate(t *testing.T) {
	for _, strategy := range strategies {
		strategy := strategy
		Convey("When a TD update is applied with strategy "+string(strategy), t, func() {
			m, err := New(5, strategy)
			So(err, ShouldBeNil)
			src := grid_world.Position{X: 2, Y: 2}
			dest := grid_world.NORTH.Apply(src)

			u := Update{Reward: 2.0, MaxFutureQ: m.MaxFutureQ(dest), Alpha: 0.5, Gamma: 0.9, Step: 7}
			newQ := m.ApplyUpdate(src, grid_world.NORTH, u)

			So(newQ, ShouldEqual, 0.0+0.5*(2.0+0.9*0.0-0.0))
			So(m.ReadQ(src, grid_world.NORTH), ShouldEqual, newQ)
			So(m.ReadAllQ(src)[grid_world.SOUTH], ShouldEqual, 0.0)
			So(m.At(src).Stats(), ShouldResemble, Stats{
				CumulativeReward: 2.0,
				Evaluations:      1,
				SuccessfulExits:  1,
				LastVisit:        7,
			})

			Convey("A negative reward is not a successful exit", func() {
				m.ApplyUpdate(src, grid_world.EAST, Update{Reward: -1, Alpha: 0.5, Gamma: 0.9, Step: 8})
				stats := m.At(src).Stats()
				So(stats.Evaluations, ShouldEqual, 2)
				So(stats.SuccessfulExits, ShouldEqual, 1)
				So(stats.CumulativeReward, ShouldEqual, 1.0)
				So(m.ReadQ(src, grid_world.EAST), ShouldEqual, -0.5)
			})

			Convey("MaxFuture floors negative tables at zero", func() {
				m.ApplyUpdate(dest, grid_world.SOUTH, Update{Reward: -4, Alpha: 1, Step: 9})
				So(m.MaxFutureQ(dest), ShouldEqual, 0.0)
				m.ApplyUpdate(dest, grid_world.WEST, Update{Reward: 3, Alpha: 1, Step: 10})
				So(m.MaxFutureQ(dest), ShouldEqual, 3.0)
			})

			Convey("The lookahead snapshot is used even if the destination changes afterwards", func() {
				stale := m.MaxFutureQ(dest)
				m.ApplyUpdate(dest, grid_world.NORTH, Update{Reward: 100, Alpha: 1, Step: 11})
				got := m.ApplyUpdate(src, grid_world.WEST, Update{Reward: 0, MaxFutureQ: stale, Alpha: 1, Gamma: 1, Step: 12})
				So(got, ShouldEqual, 0.0)
			})
		})
	}
}

func TestConcurrentWriters(t *testing.T) {
	for _, strategy := range []Strategy{MUTEX, ATOMIC} {
		strategy := strategy
		Convey("When concurrent writers update one cell with strategy "+string(strategy), t, func() {
			m, err := New(5, strategy)
			So(err, ShouldBeNil)
			p := grid_world.Position{X: 1, Y: 1}
			numOps := 500
			numWriters := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			for i := 0; i < numWriters; i++ {
				go func() {
					defer wg.Done()
					<-start
					for j := 0; j < numOps; j++ {
						// Alpha of one with zero gamma makes each update an idempotent store of the reward.
						m.ApplyUpdate(p, grid_world.EAST, Update{Reward: 1, Alpha: 1, Step: j})
					}
				}()
			}
			close(start)
			wg.Wait()

			stats := m.At(p).Stats()
			So(stats.Evaluations, ShouldEqual, numOps*numWriters)
			So(stats.SuccessfulExits, ShouldEqual, numOps*numWriters)
			So(stats.CumulativeReward, ShouldEqual, float64(numOps*numWriters))
			So(m.ReadQ(p, grid_world.EAST), ShouldEqual, 1.0)
		})
	}
}

func TestGreedy(t *testing.T) {
	Convey("Greedy picks the largest valid value, first wins ties", t, func() {
		values := Values{1, 3, 3, 2}
		all := grid_world.Actions[:]
		best, ok := Greedy(values, all)
		So(ok, ShouldBeTrue)
		So(best, ShouldEqual, grid_world.SOUTH)

		best, _ = Greedy(Values{}, all)
		So(best, ShouldEqual, grid_world.NORTH)

		best, _ = Greedy(values, []grid_world.Action{grid_world.EAST, grid_world.WEST})
		So(best, ShouldEqual, grid_world.EAST)

		_, ok = Greedy(values, nil)
		So(ok, ShouldBeFalse)
	})
}
