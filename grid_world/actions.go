package grid_world

// Action is one of the four moves available from every cell. The declaration
// order is also the greedy policy's tie-break order.
type Action int

const (
	NORTH Action = iota
	SOUTH
	EAST
	WEST
	NUM_ACTIONS
)

// Actions lists every action in enumeration order.
var Actions = [NUM_ACTIONS]Action{NORTH, SOUTH, EAST, WEST}

func (a Action) String() string {
	switch a {
	case NORTH:
		return "N"
	case SOUTH:
		return "S"
	case EAST:
		return "E"
	case WEST:
		return "W"
	default:
		return "?"
	}
}

// Apply returns the position reached from @p by taking action @a. North is +y.
func (a Action) Apply(p Position) Position {
	switch a {
	case NORTH:
		p.Y++
	case SOUTH:
		p.Y--
	case EAST:
		p.X++
	case WEST:
		p.X--
	}
	return p
}

// ValidActions returns the actions from @p that stay on the grid, in enumeration order.
func (w *World) ValidActions(p Position) []Action {
	valid := make([]Action, 0, NUM_ACTIONS)
	for _, a := range Actions {
		if w.InBounds(a.Apply(p)) {
			valid = append(valid, a)
		}
	}
	return valid
}
