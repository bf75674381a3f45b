package shared

import (
	"fmt"
	"math"
)

// closeTolerance bounds the relative error used by Point equality.
const closeTolerance = 1e-9

// Point is an immutable location on the delivery plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint creates a point from plane coordinates.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// DistanceTo calculates the Euclidean distance to another point.
func (p Point) DistanceTo(other Point) float64 {
	dx := other.X - p.X
	dy := other.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Equals reports whether both coordinates match within closeTolerance.
// Schedule continuity checks rely on this rather than exact float equality.
func (p Point) Equals(other Point) bool {
	return closeEnough(p.X, other.X) && closeEnough(p.Y, other.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g; %g)", p.X, p.Y)
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= closeTolerance*scale || diff <= closeTolerance
}
