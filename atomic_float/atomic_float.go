package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations.
// The value is held as its IEEE-754 bit pattern in an atomic.Uint64, so no
// unsafe pointer arithmetic is needed. The zero value holds 0.0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// AtomicRead returns the current value, synchronized with all prior writes.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicAdd makes a single attempt to add @addend to the float.
// If the value changed between the read and the swap the add is rejected and
// succeeded is false; the caller decides whether to retry, recompute or drop.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// AtomicUpdate applies fn to the current value until the swap lands, returning
// the previous and stored values. fn may be called more than once under
// contention and so must be free of side effects.
func (af *AtomicFloat64) AtomicUpdate(fn func(old float64) float64) (old, newVal float64) {
	for {
		oldBits := af.bits.Load()
		old = math.Float64frombits(oldBits)
		newVal = fn(old)
		if af.bits.CompareAndSwap(oldBits, math.Float64bits(newVal)) {
			return
		}
	}
}
