// Movement state machine: AtHome → Walking → GoingHome → AtHome.
package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/world"
)

// ErrNoValidPosition means rejection sampling ran out of attempts. It points
// at degenerate geometry (a house or field smaller than a step), never at a
// transient condition.
var ErrNoValidPosition = errors.New("agents: no valid position found")

// Diagonal step directions; a step always moves on both axes.
var directions = [4]world.Vec{
	{X: -1, Y: -1},
	{X: -1, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
}

// GoHome sends a walking person home and takes the first homeward step
// right away; a person already within one step arrives at once. Any other
// state is left alone. Dying people turn around but do not move.
// Returns true if the state changed.
func (p *Person) GoHome(city *world.City, rules Rules) bool {
	if p.State != Walking {
		return false
	}
	p.State = GoingHome
	if p.Health != Dying && p.Health != Dead {
		p.stepGoingHome(city, rules)
	}
	return true
}

func (p *Person) move(city *world.City, rng entropy.Source, rules Rules) error {
	switch p.State {
	case AtHome:
		return p.stepAtHome(city, rng, rules)
	case Walking:
		return p.stepWalking(city, rng, rules)
	case GoingHome:
		p.stepGoingHome(city, rules)
	}
	return nil
}

func (p *Person) stepAtHome(city *world.City, rng entropy.Source, rules Rules) error {
	if rng.Float64() < rules.GoingWalkProbability {
		p.State = Walking
		return p.stepWalking(city, rng, rules)
	}
	return p.resample(rng, rules, func(v world.Vec) bool {
		return city.InHouse(v, p.HomeID)
	})
}

func (p *Person) stepWalking(city *world.City, rng entropy.Source, rules Rules) error {
	return p.resample(rng, rules, func(v world.Vec) bool {
		return city.InField(v) && !city.InOtherHouse(v, p.HomeID)
	})
}

// stepGoingHome heads for the home center. The x axis takes as much of the
// step budget as it still needs; y gets the rest.
func (p *Person) stepGoingHome(city *world.City, rules Rules) {
	target := city.HomeCenter(p.HomeID)
	if world.Manhattan(target, p.Position) <= rules.MaxDistancePerTurn {
		p.Position = target
		p.State = AtHome
		return
	}

	diff := target.Sub(p.Position)
	dir := world.Sign(diff)
	xLen := min(abs(diff.X), rules.MaxDistancePerTurn)
	yLen := rules.MaxDistancePerTurn - xLen

	next := world.Vec{
		X: p.Position.X + xLen*dir.X,
		Y: p.Position.Y + yLen*dir.Y,
	}
	p.Position = clampToField(city, next)
}

// resample draws candidate steps until valid accepts one.
func (p *Person) resample(rng entropy.Source, rules Rules, valid func(world.Vec) bool) error {
	for i := 0; i < rules.MaxPlacementAttempts; i++ {
		next := p.Position.Add(randomStep(rng, rules.MaxDistancePerTurn))
		if valid(next) {
			p.Position = next
			return nil
		}
	}
	return fmt.Errorf("%w: person %d %s at (%d, %d) after %d attempts",
		ErrNoValidPosition, p.ID, p.State, p.Position.X, p.Position.Y, rules.MaxPlacementAttempts)
}

// randomStep returns an offset whose |x| + |y| equals maxDistance.
func randomStep(rng entropy.Source, maxDistance int) world.Vec {
	xLen := rng.Intn(maxDistance)
	yLen := maxDistance - xLen
	dir := directions[rng.Intn(len(directions))]
	return world.Vec{X: xLen * dir.X, Y: yLen * dir.Y}
}

func clampToField(city *world.City, v world.Vec) world.Vec {
	v.X = max(0, min(v.X, city.Width))
	v.Y = max(0, min(v.Y, city.Height))
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
