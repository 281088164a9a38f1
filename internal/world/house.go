package world

// HouseCoordinates is the rectangle a house occupies. Bounds are inclusive:
// [X, X+Width] × [Y, Y+Height].
type HouseCoordinates struct {
	LeftTopCorner Vec `json:"leftTopCorner"`
	Width         int `json:"width"`
	Height        int `json:"height"`
}

// Contains reports whether v lies inside the rectangle, edges included.
func (c HouseCoordinates) Contains(v Vec) bool {
	lt := c.LeftTopCorner
	return v.X >= lt.X && v.X <= lt.X+c.Width &&
		v.Y >= lt.Y && v.Y <= lt.Y+c.Height
}

// Center returns the rectangle center, rounded toward the top-left.
func (c HouseCoordinates) Center() Vec {
	return Vec{
		X: c.LeftTopCorner.X + c.Width/2,
		Y: c.LeftTopCorner.Y + c.Height/2,
	}
}

// House is a home cell with bounded capacity.
type House struct {
	ID            int              `json:"id"`
	Coordinates   HouseCoordinates `json:"coordinates"`
	ResidentCount int              `json:"residentCount"` // Only grows; deaths do not free a slot
}
