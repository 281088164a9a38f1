// Package world provides the field geometry: points, house rectangles, and the
// grid of houses agents live in.
package world

import "math"

// Vec is an immutable point on the field in integer coordinates.
type Vec struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the point offset by d.
func (v Vec) Add(d Vec) Vec {
	return Vec{X: v.X + d.X, Y: v.Y + d.Y}
}

// Sub returns the offset from o to v.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Vec) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Manhattan returns |dx| + |dy| between two points.
func Manhattan(a, b Vec) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Sign returns -1, 0 or 1 per axis.
func Sign(v Vec) Vec {
	return Vec{X: sign(v.X), Y: sign(v.Y)}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
