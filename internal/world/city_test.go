package world

import (
	"errors"
	"math/rand"
	"testing"
)

func TestAssignHomeFillsEveryHouseToCapacity(t *testing.T) {
	c, err := Generate(SmallTestConfig())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < c.Capacity(); i++ {
		id, err := c.AssignHome(rng)
		if err != nil {
			t.Fatalf("assignment %d: unexpected error %v", i, err)
		}
		if h := c.Get(id); h == nil || h.ResidentCount > c.MaxResidents {
			t.Fatalf("assignment %d: house %d over capacity", i, id)
		}
	}

	for _, h := range c.Houses {
		if h.ResidentCount != c.MaxResidents {
			t.Fatalf("house %d: got %d residents want %d", h.ID, h.ResidentCount, c.MaxResidents)
		}
	}
	if c.Residents() != c.Capacity() {
		t.Fatalf("residents: got %d want %d", c.Residents(), c.Capacity())
	}

	if _, err := c.AssignHome(rng); !errors.Is(err, ErrCityFull) {
		t.Fatalf("expected ErrCityFull once every house is full, got %v", err)
	}
}

func TestCityContainment(t *testing.T) {
	c, err := Generate(SmallTestConfig())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if !c.InField(Vec{X: 0, Y: 0}) || !c.InField(Vec{X: 200, Y: 200}) {
		t.Fatalf("field corners should be inside the field")
	}
	if c.InField(Vec{X: -1, Y: 5}) || c.InField(Vec{X: 5, Y: 201}) {
		t.Fatalf("points past the edge should be outside the field")
	}

	// House 1 is the top-right cell: [100, 160] × [0, 60].
	inside := Vec{X: 130, Y: 60}
	if !c.InHouse(inside, 1) {
		t.Fatalf("%v should be inside house 1", inside)
	}
	if !c.InOtherHouse(inside, 0) {
		t.Fatalf("%v should count as another house for a resident of house 0", inside)
	}
	if c.InOtherHouse(inside, 1) {
		t.Fatalf("%v should not count as another house for a resident of house 1", inside)
	}

	street := Vec{X: 80, Y: 80}
	if c.InOtherHouse(street, 0) {
		t.Fatalf("%v is street, not a house", street)
	}

	if got, want := c.HomeCenter(3), (Vec{X: 130, Y: 130}); got != want {
		t.Fatalf("home center: got %v want %v", got, want)
	}
}

func TestDistance(t *testing.T) {
	a := Vec{X: 1, Y: 2}
	b := Vec{X: 4, Y: 6}

	if got := Distance(a, b); got != 5 {
		t.Fatalf("Distance: got %f want 5", got)
	}
	if got := Distance(b, a); got != 5 {
		t.Fatalf("Distance is not symmetric: got %f", got)
	}
	if got := Manhattan(a, b); got != 7 {
		t.Fatalf("Manhattan: got %d want 7", got)
	}
	if got := Sign(Vec{X: -9, Y: 0}); got != (Vec{X: -1, Y: 0}) {
		t.Fatalf("Sign: got %v", got)
	}
}
