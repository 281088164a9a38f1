// Package params provides the fixed constants of the epidemic model.
// Nothing here is configurable at runtime: the config file only covers the
// server around the simulation, never the disease itself.
package params

import "time"

// Population and field geometry.
const (
	PeopleCount = 320  // Agents created per run
	FieldWidth  = 1000 // Field spans [0, FieldWidth] on x
	FieldHeight = 500  // Field spans [0, FieldHeight] on y

	// Each grid cell holds one house in its top-left corner; the rest is street.
	CellWidth  = 100
	CellHeight = 100

	HouseWidth       = 60
	HouseHeight      = 60
	MaxPeopleInHouse = 10
)

// Movement.
const (
	// MaxDistancePerTurn is the Manhattan length of every walking step.
	MaxDistancePerTurn = 30

	// GoingWalkProbability is the per-tick chance an agent at home leaves for a walk.
	GoingWalkProbability = 0.005

	// BoredAfterTicks marks an agent bored once it has stayed home longer than this.
	BoredAfterTicks = 4

	// MaxPlacementAttempts caps rejection sampling of a new position.
	// Hitting it means the geometry leaves no valid move.
	MaxPlacementAttempts = 1000
)

// Disease progression.
const (
	// SicknessProbability is the fraction of the population seeded sick at start.
	SicknessProbability = 0.03

	// MinDistanceToGetSick is the Euclidean infection radius between walkers.
	MinDistanceToGetSick = 7

	// InfectionProbability is the chance a healthy walker in range of a sick
	// walker catches the disease on a given tick.
	InfectionProbability = 0.5

	ProbToDie       = 0.000003 // Per-tick chance a sick agent starts dying
	StepsToRecovery = 35       // Sick ticks before recovery
	StepsToDie      = 10       // Dying ticks before death
)

// TickInterval is the minimum wall-clock time between two executed ticks.
const TickInterval = 1000 * time.Millisecond
