package world

import (
	"errors"
	"fmt"

	"github.com/talgya/outbreak/internal/entropy"
)

// ErrCityFull is returned by AssignHome when no house has a free slot.
var ErrCityFull = errors.New("world: every house is at capacity")

// City holds the field bounds and the fixed grid of houses.
type City struct {
	Houses       []*House `json:"houses"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	MaxResidents int      `json:"maxResidents"`

	residents int
}

// HouseAmount returns the number of houses on the grid.
func (c *City) HouseAmount() int {
	return len(c.Houses)
}

// Get returns the house with the given ID, or nil if there is none.
func (c *City) Get(id int) *House {
	if id < 0 || id >= len(c.Houses) {
		return nil
	}
	return c.Houses[id]
}

// InField returns true if v lies inside [0, Width] × [0, Height].
func (c *City) InField(v Vec) bool {
	return v.X >= 0 && v.Y >= 0 && v.X <= c.Width && v.Y <= c.Height
}

// InHouse returns true if v lies inside the house with the given ID.
func (c *City) InHouse(v Vec, id int) bool {
	h := c.Get(id)
	return h != nil && h.Coordinates.Contains(v)
}

// InOtherHouse returns true if v lies inside any house other than homeID.
func (c *City) InOtherHouse(v Vec, homeID int) bool {
	for _, h := range c.Houses {
		if h.ID != homeID && h.Coordinates.Contains(v) {
			return true
		}
	}
	return false
}

// HomeCenter returns the center of the house with the given ID.
func (c *City) HomeCenter(id int) Vec {
	return c.Houses[id].Coordinates.Center()
}

// Capacity returns the total number of residents the city can house.
func (c *City) Capacity() int {
	return len(c.Houses) * c.MaxResidents
}

// Residents returns how many homes have been handed out.
func (c *City) Residents() int {
	return c.residents
}

// AssignHome draws random houses until one has a free slot, claims the slot,
// and returns the house ID.
func (c *City) AssignHome(rng entropy.Source) (int, error) {
	if c.residents >= c.Capacity() {
		return 0, ErrCityFull
	}
	for {
		id := rng.Intn(len(c.Houses))
		h := c.Houses[id]
		if h.ResidentCount < c.MaxResidents {
			h.ResidentCount++
			c.residents++
			return id, nil
		}
	}
}

// String returns a summary of the city.
func (c *City) String() string {
	return fmt.Sprintf("City(%dx%d, houses=%d, residents=%d/%d)",
		c.Width, c.Height, c.HouseAmount(), c.residents, c.Capacity())
}
