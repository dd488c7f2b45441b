package memory

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"kybernaut/atomic_float"
	"kybernaut/grid_world"
)

var (
	mutexCellFootprint  = uint64(unsafe.Sizeof(mutexCell{})) + 2*uint64(unsafe.Sizeof(Cell(nil)))
	atomicCellFootprint = uint64(unsafe.Sizeof(atomicCell{})) + 2*uint64(unsafe.Sizeof(Cell(nil)))
	plainCellFootprint  = uint64(unsafe.Sizeof(plainCell{})) + 2*uint64(unsafe.Sizeof(Cell(nil)))
)

// plainCell is the unsynchronized single-threaded accessor.
type plainCell struct {
	values Values
	stats  Stats
}

func (c *plainCell) Read(a grid_world.Action) float64 {
	return c.values[a]
}

func (c *plainCell) ReadAll() Values {
	return c.values
}

func (c *plainCell) MaxFuture() float64 {
	return maxFuture(&c.values)
}

func (c *plainCell) Apply(a grid_world.Action, u Update) float64 {
	newQ := u.apply(c.values[a])
	c.values[a] = newQ
	c.stats.CumulativeReward += u.Reward
	c.stats.LastVisit = u.Step
	if u.Reward > 0 {
		c.stats.SuccessfulExits++
	}
	c.stats.Evaluations++
	return newQ
}

func (c *plainCell) Stats() Stats {
	return c.stats
}

// mutexCell guards a plainCell with its own lock. Every read and write of the
// action-values happens while holding mu.
type mutexCell struct {
	mu sync.Mutex
	plainCell
}

func (c *mutexCell) Read(a grid_world.Action) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plainCell.Read(a)
}

func (c *mutexCell) ReadAll() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plainCell.ReadAll()
}

func (c *mutexCell) MaxFuture() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plainCell.MaxFuture()
}

func (c *mutexCell) Apply(a grid_world.Action, u Update) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plainCell.Apply(a, u)
}

func (c *mutexCell) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plainCell.Stats()
}

// atomicCell never blocks: each action-value slot is updated by compare-and-swap
// and the statistics by atomic counters. A ReadAll may mix slots written by
// different updates; each slot on its own is always a value some update stored.
type atomicCell struct {
	values          [grid_world.NUM_ACTIONS]atomic_float.AtomicFloat64
	reward          atomic_float.AtomicFloat64
	evaluations     atomic.Int64
	successfulExits atomic.Int64
	lastVisit       atomic.Int64
}

func (c *atomicCell) Read(a grid_world.Action) float64 {
	return c.values[a].AtomicRead()
}

func (c *atomicCell) ReadAll() (values Values) {
	for a := range c.values {
		values[a] = c.values[a].AtomicRead()
	}
	return
}

func (c *atomicCell) MaxFuture() float64 {
	values := c.ReadAll()
	return maxFuture(&values)
}

func (c *atomicCell) Apply(a grid_world.Action, u Update) float64 {
	_, newQ := c.values[a].AtomicUpdate(u.apply)
	for _, added := c.reward.AtomicAdd(u.Reward); !added; _, added = c.reward.AtomicAdd(u.Reward) {
	}
	c.lastVisit.Store(int64(u.Step))
	if u.Reward > 0 {
		c.successfulExits.Add(1)
	}
	c.evaluations.Add(1)
	return newQ
}

func (c *atomicCell) Stats() Stats {
	return Stats{
		CumulativeReward: c.reward.AtomicRead(),
		Evaluations:      int(c.evaluations.Load()),
		SuccessfulExits:  int(c.successfulExits.Load()),
		LastVisit:        int(c.lastVisit.Load()),
	}
}
