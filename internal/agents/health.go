// Health state machine: Healthy → Sick → {Healthy | Dying} → Dead.
// Healthy → Sick is decided by the population, see Infect.
package agents

import (
	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/world"
)

// Change reports a health transition that happened during a step.
type Change uint8

const (
	ChangeNone Change = iota
	ChangeRecovered
	ChangeDying
	ChangeDied
)

// Step advances the person by one tick: movement first, then disease
// progression, then boredom bookkeeping. Dying and dead people do not move.
func (p *Person) Step(city *world.City, rng entropy.Source, rules Rules) (Change, error) {
	switch p.Health {
	case Dead:
		return ChangeNone, nil
	case Dying:
		p.DyingSteps++
		if p.DyingSteps >= rules.StepsToDie {
			p.Health = Dead
			return ChangeDied, nil
		}
		return ChangeNone, nil
	}

	if err := p.move(city, rng, rules); err != nil {
		return ChangeNone, err
	}

	change := ChangeNone
	if p.Health == Sick {
		change = p.progressSickness(rng, rules)
	}
	p.updateBoredom(rules)
	return change, nil
}

// Infect makes a healthy person sick. Returns false for anyone else.
func (p *Person) Infect() bool {
	if p.Health != Healthy {
		return false
	}
	p.Health = Sick
	p.SickSteps = 0
	return true
}

func (p *Person) progressSickness(rng entropy.Source, rules Rules) Change {
	if rng.Float64() <= rules.ProbToDie {
		p.Health = Dying
		p.DyingSteps = 0
		return ChangeDying
	}

	p.SickSteps++
	if p.SickSteps >= rules.StepsToRecovery {
		p.Health = Healthy
		p.SickSteps = 0
		p.DyingSteps = 0
		return ChangeRecovered
	}
	return ChangeNone
}

func (p *Person) updateBoredom(rules Rules) {
	switch p.State {
	case AtHome:
		p.HomeStayingDuration++
	case Walking:
		p.HomeStayingDuration = 0
		p.IsBored = false
	}
	if p.HomeStayingDuration > rules.BoredAfterTicks {
		p.IsBored = true
	}
}
