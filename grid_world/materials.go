package grid_world

// Material is an immutable catalog entry of physical constants. Cells refer to
// materials by id; the catalog is shared read-only.
type Material struct {
	RefractiveIndex float64
	Absorption      float64
	ThermalCapacity float64 // J/(m³·K)
	Density         float64 // kg/m³
	ElasticModulus  float64 // Pa
	Name            string
	Symbol          rune
}

// Material ids.
const (
	AIR = iota
	WATER
	GLASS
	DIAMOND
	OBSTACLE
	NUM_MATERIALS
)

var materials = [NUM_MATERIALS]Material{
	{1.00, 1.0e-3, 1.2e3, 1.2, 1.0e5, "air", '.'},
	{1.33, 1.0e-2, 4.2e6, 1000.0, 2.2e9, "water", '~'},
	{1.50, 5.0e-2, 2.0e6, 2500.0, 7.0e10, "glass", '#'},
	{2.42, 1.0e-1, 5.1e5, 3500.0, 1.2e12, "diamond", '*'},
	{10.0, 5.0e-1, 1.0e6, 5000.0, 2.0e11, "obstacle", 'X'},
}

// Cumulative draw thresholds for AIR..DIAMOND; anything above the last is OBSTACLE.
// Probabilities are 0.40/0.30/0.20/0.07/0.03.
var materialThresholds = [NUM_MATERIALS - 1]float64{0.40, 0.70, 0.90, 0.97}

// MaterialOf returns a copy of the catalog entry for @id.
// Unknown ids panic, as they can only come from a corrupted grid.
func MaterialOf(id int) Material {
	return materials[id]
}

// drawMaterial maps a uniform draw r in [0,1) onto a material id.
func drawMaterial(r float64) int {
	for id, threshold := range materialThresholds {
		if r < threshold {
			return id
		}
	}
	return OBSTACLE
}
