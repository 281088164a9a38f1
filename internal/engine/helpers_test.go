package engine

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/params"
	"github.com/talgya/outbreak/internal/world"
)

type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// steppingClock moves one second forward on every read, so every
// AdvanceTick crosses the tick gate.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// scriptedRand replays queued draws, then falls back to a seeded generator.
type scriptedRand struct {
	floats   []float64
	ints     []int
	fallback *rand.Rand
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return s.fallback.Float64()
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return s.fallback.Intn(n)
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func newTestSim(t *testing.T, clock Clock, opts ...Option) *Simulation {
	t.Helper()
	opts = append([]Option{WithSeed(1), WithClock(clock)}, opts...)
	s, err := NewSimulation(opts...)
	if err != nil {
		t.Fatalf("NewSimulation returned error: %v", err)
	}
	return s
}

// tick crosses the tick gate and advances once.
func tick(t *testing.T, s *Simulation, clock *manualClock) Snapshot {
	t.Helper()
	clock.Advance(params.TickInterval)
	snap, err := s.AdvanceTick()
	if err != nil {
		t.Fatalf("AdvanceTick returned error: %v", err)
	}
	return snap
}

// placePeople replaces the population with hand-placed people.
func placePeople(s *Simulation, people ...*agents.Person) {
	s.People = people
	s.rebuildIndex()
	s.updateStats()
}

func walker(id int, health agents.Health, x, y int) *agents.Person {
	return &agents.Person{
		ID:       agents.PersonID(id),
		HomeID:   0,
		Position: world.Vec{X: x, Y: y},
		Health:   health,
		State:    agents.Walking,
	}
}
