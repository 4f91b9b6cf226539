package boxel

import (
	"context"
	"math"

	"github.com/ZanzyTHEbar/assert-lib"
)

// GridSize is the number of 'a' sized boxels along each axis of a sector.
const GridSize = 128

const (
	lettersBase = 26
	lettersSpan = lettersBase * lettersBase * lettersBase // 17576
	planeSize   = GridSize * GridSize                     // 16384
)

var assertHandler = assert.NewAssertHandler()

// assertThat fails loudly when a codec assumption does not hold. Reaching one
// of these means a bug in the codec or a caller skipping validation, never
// bad user input.
func assertThat(truth bool, msg string, data ...any) {
	assertHandler.Assert(context.Background(), truth, msg, data...)
}

// Coord is an integer position inside a sector, in units of the boxel's own
// mass code.
type Coord struct {
	X, Y, Z int
}

// Add returns c offset by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{c.X + d.X, c.Y + d.Y, c.Z + d.Z}
}

// Scale multiplies every axis by n.
func (c Coord) Scale(n int) Coord {
	return Coord{c.X * n, c.Y * n, c.Z * n}
}

// Half floor-divides every axis by two.
func (c Coord) Half() Coord {
	return Coord{floorHalf(c.X), floorHalf(c.Y), floorHalf(c.Z)}
}

// Within reports whether c lies inside the cube starting at origin with the
// given side length.
func (c Coord) Within(origin Coord, span int) bool {
	return c.X >= origin.X && c.X < origin.X+span &&
		c.Y >= origin.Y && c.Y < origin.Y+span &&
		c.Z >= origin.Z && c.Z < origin.Z+span
}

func floorHalf(v int) int {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}

// encodable reports whether c can be packed into the id letters.
func (c Coord) encodable() bool {
	return c.X >= 0 && c.X < GridSize && c.Y >= 0 && c.Y < GridSize && c.Z >= 0
}

// encodeID packs a coordinate into the three id letters and the n1 remainder.
func encodeID(c Coord) (string, int) {
	q := c.X + c.Y*GridSize + c.Z*planeSize

	a := q % lettersBase
	q /= lettersBase
	b := q % lettersBase
	q /= lettersBase
	d := q % lettersBase
	q /= lettersBase

	letters := []byte{byte('A' + a), byte('A' + b), '-', byte('A' + d)}
	return string(letters), q
}

// decodeID is the inverse of encodeID.
func decodeID(letters string, n1 int) Coord {
	q := int(letters[0]-'A') +
		int(letters[1]-'A')*lettersBase +
		int(letters[3]-'A')*lettersBase*lettersBase +
		n1*lettersSpan

	return Coord{
		X: q % GridSize,
		Y: (q % planeSize) / GridSize,
		Z: q / planeSize,
	}
}

// StarPos is a galactic position in light years.
type StarPos struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	Z float64 `json:"z" toml:"z"`
}

// IsKnown reports whether the position carries real data. The journal writes
// zeros when a position is unknown.
func (p StarPos) IsKnown() bool {
	return p.X != 0 && p.Y != 0 && p.Z != 0
}

// Distance is the euclidean distance between two positions.
func (p StarPos) Distance(o StarPos) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
