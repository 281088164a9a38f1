package engine

import (
	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/world"
)

// Snapshot is a read-only copy of the world handed to outside consumers.
// Field names follow the JSON the browser client renders.
type Snapshot struct {
	RunID  string          `json:"runId"`
	Tick   uint64          `json:"tick"`
	People []agents.Person `json:"people"`
	Map    MapView         `json:"map"`
	Stats  SimStats        `json:"stats"`
}

// MapView is the house layout part of a snapshot.
type MapView struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Houses []world.House `json:"houses"`
}

// snapshotLocked copies the current state. Caller holds s.mu.
func (s *Simulation) snapshotLocked() Snapshot {
	people := make([]agents.Person, len(s.People))
	for i, p := range s.People {
		people[i] = *p
	}
	houses := make([]world.House, len(s.City.Houses))
	for i, h := range s.City.Houses {
		houses[i] = *h
	}
	return Snapshot{
		RunID:  s.RunID.String(),
		Tick:   s.Tick,
		People: people,
		Map: MapView{
			Width:  s.City.Width,
			Height: s.City.Height,
			Houses: houses,
		},
		Stats: s.Stats,
	}
}
