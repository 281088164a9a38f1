// Package agents provides the person model and its per-tick movement and
// health state machines.
package agents

import (
	"fmt"

	"github.com/talgya/outbreak/internal/params"
	"github.com/talgya/outbreak/internal/world"
)

// PersonID is a unique identifier for a person within one run.
type PersonID int

// Health is the disease progression of a person.
type Health uint8

const (
	Healthy Health = iota
	Sick
	Dying // Terminal progression; no movement
	Dead  // Removed from the population at the next tick
)

var healthNames = [...]string{"Healthy", "Sick", "Dying", "Dead"}

func (h Health) String() string {
	if int(h) < len(healthNames) {
		return healthNames[h]
	}
	return fmt.Sprintf("Health(%d)", uint8(h))
}

// MarshalText renders the health as its name for JSON consumers.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a health name.
func (h *Health) UnmarshalText(text []byte) error {
	for i, name := range healthNames {
		if name == string(text) {
			*h = Health(i)
			return nil
		}
	}
	return fmt.Errorf("unknown health %q", text)
}

// State is the behavioral state that selects the movement policy.
type State uint8

const (
	AtHome State = iota
	Walking
	GoingHome
)

var stateNames = [...]string{"AtHome", "Walking", "GoingHome"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MarshalText renders the state as its name for JSON consumers.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Person is one simulated agent. It holds no pointers, so a value copy is a
// full independent snapshot.
type Person struct {
	ID       PersonID  `json:"id"`
	HomeID   int       `json:"homeId"`
	Position world.Vec `json:"position"`
	Health   Health    `json:"personHealth"`
	State    State     `json:"state"`

	SickSteps  int `json:"sickSteps"`
	DyingSteps int `json:"dyingSteps"`

	// Boredom is tracked and reported but no behavior reads it.
	HomeStayingDuration int  `json:"homeStayingDuration"`
	IsBored             bool `json:"isBored"`
}

// IsWalking returns true while the person is out on a walk.
func (p *Person) IsWalking() bool {
	return p.State == Walking
}

// Rules carries the model constants the state machines read. Production
// code always uses DefaultRules; tests override single fields to force
// otherwise improbable transitions.
type Rules struct {
	MaxDistancePerTurn   int
	GoingWalkProbability float64
	ProbToDie            float64
	StepsToRecovery      int
	StepsToDie           int
	BoredAfterTicks      int
	MaxPlacementAttempts int
}

// DefaultRules returns the fixed model constants.
func DefaultRules() Rules {
	return Rules{
		MaxDistancePerTurn:   params.MaxDistancePerTurn,
		GoingWalkProbability: params.GoingWalkProbability,
		ProbToDie:            params.ProbToDie,
		StepsToRecovery:      params.StepsToRecovery,
		StepsToDie:           params.StepsToDie,
		BoredAfterTicks:      params.BoredAfterTicks,
		MaxPlacementAttempts: params.MaxPlacementAttempts,
	}
}
