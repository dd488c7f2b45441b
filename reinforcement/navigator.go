package reinforcement

import (
	"kybernaut/grid_world"
)

// PathHistory records the actions taken, up to a fixed capacity. Once full,
// further actions are dropped; nothing is overwritten.
type PathHistory struct {
	actions []grid_world.Action
}

func NewPathHistory(capacity int) *PathHistory {
	return &PathHistory{
		actions: make([]grid_world.Action, 0, capacity),
	}
}

// Append records @a, returning false if the history is full and @a was dropped.
func (ph *PathHistory) Append(a grid_world.Action) bool {
	if len(ph.actions) == cap(ph.actions) {
		return false
	}
	ph.actions = append(ph.actions, a)
	return true
}

func (ph *PathHistory) Len() int {
	return len(ph.actions)
}

func (ph *PathHistory) Cap() int {
	return cap(ph.actions)
}

// Actions returns a copy of the recorded actions, oldest first.
func (ph *PathHistory) Actions() []grid_world.Action {
	return append([]grid_world.Action(nil), ph.actions...)
}

// EfficiencyHistory is a ring of step-efficiency samples. Current is the slot the
// next Record overwrites, so it holds the sample recorded a full lap earlier.
type EfficiencyHistory struct {
	slots []float64
	index int
}

func NewEfficiencyHistory(capacity int) *EfficiencyHistory {
	return &EfficiencyHistory{
		slots: make([]float64, capacity),
	}
}

func (eh *EfficiencyHistory) Current() float64 {
	return eh.slots[eh.index%len(eh.slots)]
}

func (eh *EfficiencyHistory) Record(efficiency float64) {
	eh.slots[eh.index%len(eh.slots)] = efficiency
	eh.index++
}

// Len is the number of samples recorded so far, including overwritten ones.
func (eh *EfficiencyHistory) Len() int {
	return eh.index
}

// Navigator is the agent: its position, policy parameters and running totals.
type Navigator struct {
	Position     grid_world.Position
	ActiveTarget grid_world.Target
	Steps        int

	Alpha   float64
	Gamma   float64
	Epsilon float64

	TotalEnergyCost  float64 // energy units
	TotalEnergyUsed  float64 // J
	TotalInformation float64
	LearningEntropy  float64 // J/K
	DecisionsMade    int

	// HomeReached and BarReached are the steps at which targets A and B were
	// first reached, zero until then.
	HomeReached int
	BarReached  int

	Path       *PathHistory
	Efficiency *EfficiencyHistory
}

func NewNavigator(start grid_world.Position, settings *Settings) *Navigator {
	return &Navigator{
		Position:     start,
		ActiveTarget: grid_world.TARGET_A,
		Alpha:        settings.Alpha,
		Gamma:        settings.Gamma,
		Epsilon:      settings.Epsilon,
		Path:         NewPathHistory(settings.MaxSteps),
		Efficiency:   NewEfficiencyHistory(settings.HistoryCapacity),
	}
}

// Reached reports whether target @t has been reached.
func (nav *Navigator) Reached(t grid_world.Target) bool {
	switch t {
	case grid_world.TARGET_A:
		return nav.HomeReached > 0
	case grid_world.TARGET_B:
		return nav.BarReached > 0
	}
	return false
}

// markReached sets @t's flag at the current step. It returns false if @t was
// already reached; flags are only ever set once.
func (nav *Navigator) markReached(t grid_world.Target) bool {
	if nav.Reached(t) {
		return false
	}
	switch t {
	case grid_world.TARGET_A:
		nav.HomeReached = nav.Steps
		nav.ActiveTarget = grid_world.TARGET_B
	case grid_world.TARGET_B:
		nav.BarReached = nav.Steps
		nav.ActiveTarget = grid_world.TARGET_A
	default:
		return false
	}
	return true
}

// Finished reports whether both targets have been reached.
func (nav *Navigator) Finished() bool {
	return nav.Reached(grid_world.TARGET_A) && nav.Reached(grid_world.TARGET_B)
}
