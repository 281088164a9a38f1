package agents

import (
	"math/rand"
	"testing"

	"github.com/talgya/outbreak/internal/world"
)

// scriptedRand replays queued draws and falls back to a seeded generator
// once a queue runs dry.
type scriptedRand struct {
	floats   []float64
	ints     []int
	fallback *rand.Rand
}

func newScriptedRand(seed int64) *scriptedRand {
	return &scriptedRand{fallback: rand.New(rand.NewSource(seed))}
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

func newTestCity(t *testing.T, cfg world.GenConfig) *world.City {
	t.Helper()
	c, err := world.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	return c
}
