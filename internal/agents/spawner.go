// Population spawning: homes and starting positions, plus the initial sick seed.
package agents

import (
	"fmt"

	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/params"
	"github.com/talgya/outbreak/internal/world"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	Count        int
	SickFraction float64 // People with index <= Count*SickFraction start sick
}

// DefaultSpawnConfig returns the production population.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Count:        params.PeopleCount,
		SickFraction: params.SicknessProbability,
	}
}

// Spawner creates people for a city.
type Spawner struct {
	rng entropy.Source
	cfg SpawnConfig
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng entropy.Source, cfg SpawnConfig) *Spawner {
	return &Spawner{rng: rng, cfg: cfg}
}

// Config returns the spawn configuration.
func (s *Spawner) Config() SpawnConfig {
	return s.cfg
}

// SpawnPopulation creates the whole population for a fresh city. IDs are the
// spawn index, starting at 0.
func (s *Spawner) SpawnPopulation(city *world.City) ([]*Person, error) {
	if free := city.Capacity() - city.Residents(); s.cfg.Count > free {
		return nil, fmt.Errorf("spawn %d people into %d free slots: %w", s.cfg.Count, free, world.ErrCityFull)
	}

	sickLimit := float64(s.cfg.Count) * s.cfg.SickFraction
	people := make([]*Person, 0, s.cfg.Count)
	for i := 0; i < s.cfg.Count; i++ {
		homeID, err := city.AssignHome(s.rng)
		if err != nil {
			return nil, fmt.Errorf("assign home for person %d: %w", i, err)
		}
		p := s.spawnOne(PersonID(i), city.Get(homeID))
		if float64(i) <= sickLimit && s.cfg.SickFraction > 0 {
			p.Health = Sick
		}
		people = append(people, p)
	}
	return people, nil
}

func (s *Spawner) spawnOne(id PersonID, home *world.House) *Person {
	lt := home.Coordinates.LeftTopCorner
	return &Person{
		ID:     id,
		HomeID: home.ID,
		Position: world.Vec{
			X: lt.X + s.rng.Intn(home.Coordinates.Width),
			Y: lt.Y + s.rng.Intn(home.Coordinates.Height),
		},
		Health: Healthy,
		State:  AtHome,
	}
}
