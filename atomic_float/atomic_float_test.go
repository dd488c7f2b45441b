package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicAdd(t *testing.T) {
	Convey("When AtomicAdd is called", t, func() {
		Convey("When multiple writers add to the float value concurrently", func() {
			var af AtomicFloat64
			numOps := 3000
			numWriters := 200

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			adder := func() {
				<-start
				for i := 0; i < numOps; i++ {
					for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(1.0) {
					}
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go adder()
			}

			// Wait for goroutines to begin
			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(numOps*numWriters))
		})

		Convey("When a single add races with nobody it always lands", func() {
			var af AtomicFloat64
			_, ok := af.AtomicAdd(1.5)
			So(ok, ShouldBeTrue)
			newVal, ok := af.AtomicAdd(2.0)
			So(ok, ShouldBeTrue)
			So(newVal, ShouldEqual, 3.5)
			So(af.AtomicRead(), ShouldEqual, 3.5)
		})
	})
}

func TestAtomicUpdate(t *testing.T) {
	Convey("When AtomicUpdate is called", t, func() {
		Convey("When incrementers and decrementers race, no update is lost", func() {
			var af AtomicFloat64
			numOps := 2000
			numWriters := 100

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			worker := func(delta float64) {
				<-start
				for i := 0; i < numOps; i++ {
					af.AtomicUpdate(func(old float64) float64 { return old + delta })
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go worker(1.0)
				go worker(-1.0)
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, 0.0)
		})

		Convey("It returns the previous and stored values", func() {
			var af AtomicFloat64
			af.AtomicUpdate(func(float64) float64 { return 4.0 })
			old, newVal := af.AtomicUpdate(func(v float64) float64 { return v / 2 })
			So(old, ShouldEqual, 4.0)
			So(newVal, ShouldEqual, 2.0)
		})
	})
}

func TestZeroValue(t *testing.T) {
	Convey("The zero value holds 0.0", t, func() {
		var zero AtomicFloat64
		So(zero.AtomicRead(), ShouldEqual, 0.0)
		old, newVal := zero.AtomicUpdate(func(v float64) float64 { return v - 7.25 })
		So(old, ShouldEqual, 0.0)
		So(newVal, ShouldEqual, -7.25)
	})
}
