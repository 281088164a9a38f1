// Proximity-based transmission between walkers.
package engine

import (
	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/world"
)

// spreadInfection infects healthy walkers standing within the infection
// radius of a sick walker, each with an independent draw. Infectors are
// collected before anyone is infected, so a person infected this tick does
// not pass it on until the next one. Returns the newly infected.
func (s *Simulation) spreadInfection(people []*agents.Person) []*agents.Person {
	var infectors []*agents.Person
	for _, p := range people {
		if p.IsWalking() && p.Health == agents.Sick {
			infectors = append(infectors, p)
		}
	}
	if len(infectors) == 0 {
		return nil
	}

	var infected []*agents.Person
	for _, p := range people {
		if !p.IsWalking() || p.Health != agents.Healthy {
			continue
		}
		if !exposed(p, infectors, s.infectionRadius) {
			continue
		}
		if s.rng.Float64() < s.infectionProb && p.Infect() {
			infected = append(infected, p)
		}
	}
	return infected
}

func exposed(p *agents.Person, infectors []*agents.Person, radius float64) bool {
	for _, other := range infectors {
		if other.ID == p.ID {
			continue
		}
		if world.Distance(p.Position, other.Position) <= radius {
			return true
		}
	}
	return false
}
