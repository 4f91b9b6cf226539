// Package boxel parses, formats and navigates hierarchically named boxels:
// the cube shaped subdivisions of a galactic sector that generated star
// system names are built from, eg: 'Thuechu YV-T d4-12'.
//
// See http://disc.thargoid.space/Sector_Naming for the naming scheme.
package boxel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidName     = errors.New("invalid boxel name")
	ErrInvalidMassCode = errors.New("invalid mass code")
)

var namePattern = regexp.MustCompile(`^(.+) ([A-Z]{2}-[A-Z]) ([a-z])(\d+)(?:(-)(\d*))?$`)

// childOffsets are the 8 unit offsets of a 2x2x2 block, 2 sets of 4 quadrants.
var childOffsets = [8]Coord{
	{0, 0, 0},
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 0},

	{0, 0, 1},
	{1, 0, 1},
	{0, 1, 1},
	{1, 1, 1},
}

// Boxel is an immutable region identifier. Two Boxels are equal exactly when
// their names are equal, so the struct is safe to compare with == and to use
// as a map key.
type Boxel struct {
	sector   string
	letters  string
	massCode MassCode
	n1       int
	n2       int
}

// Parse parses a boxel from a generated system name. It returns false if the
// name does not follow the generated naming pattern.
//
// A name without a dash group, such as "Thuechu LM-T c12", fills n2 and
// leaves n1 at 0, so Parse(b.Name()) returns b for every boxel. "X AB-C d4-"
// is the prefix form and parses with n1 4 and n2 0.
func Parse(name string) (Boxel, bool) {
	parts := namePattern.FindStringSubmatch(name)
	if parts == nil {
		return Boxel{}, false
	}

	mc := MassCode(parts[3][0])
	if !mc.Valid() {
		return Boxel{}, false
	}

	first, ok := parseNumber(parts[4])
	if !ok {
		return Boxel{}, false
	}

	b := Boxel{
		sector:   parts[1],
		letters:  parts[2],
		massCode: mc,
	}

	if parts[5] == "" {
		// 'Thuechu LM-T c12' has no n1 part
		b.n2 = first
		return b, true
	}

	b.n1 = first
	if parts[6] != "" {
		n2, ok := parseNumber(parts[6])
		if !ok {
			return Boxel{}, false
		}
		b.n2 = n2
	}

	return b, true
}

// MustParse is like Parse but panics if the name is not valid. It is meant for
// constants and tests.
func MustParse(name string) Boxel {
	b, ok := Parse(name)
	if !ok {
		panic(fmt.Sprintf("%v: %q", ErrInvalidName, name))
	}
	return b
}

func parseNumber(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// FromCoord creates the boxel at the given coordinate and mass code within a
// sector. The result always has n2 == 0.
func FromCoord(sector string, c Coord, mc MassCode) Boxel {
	assertThat(sector != "", "boxel sector must not be empty")
	assertThat(mc.Valid(), "invalid mass code", "massCode", int(mc))
	assertThat(c.encodable(), "coordinate outside the addressable space",
		"x", c.X, "y", c.Y, "z", c.Z, "massCode", mc.String())

	letters, n1 := encodeID(c)
	return Boxel{
		sector:   sector,
		letters:  letters,
		massCode: mc,
		n1:       n1,
	}
}

// Sector is the initial sector, eg: 'Thuechu' from 'Thuechu YV-T d4-12'
func (b Boxel) Sector() string { return b.sector }

// Letters is the letters of the id portion, eg: 'YV-T' from 'Thuechu YV-T d4-12'
func (b Boxel) Letters() string { return b.letters }

// MassCode is the mass code portion, eg: 'd' from 'Thuechu YV-T d4-12'
func (b Boxel) MassCode() MassCode { return b.massCode }

// N1 is the initial number portion, eg: '4' from 'Thuechu YV-T d4-12' or '0' from 'Thuechu LM-T c12'
func (b Boxel) N1() int { return b.n1 }

// N2 is the final number portion, eg: '12' from 'Thuechu YV-T d4-12' or 'Thuechu LM-T c12'
func (b Boxel) N2() int { return b.n2 }

// IsZero reports whether b is the zero value rather than a parsed boxel.
func (b Boxel) IsZero() bool { return b == Boxel{} }

// ID is the name without the sector or trailing n2, eg: 'YV-T d4' from 'Thuechu YV-T d4-12'
func (b Boxel) ID() string {
	if b.IsZero() {
		return ""
	}
	if b.n1 == 0 {
		return b.letters + " " + b.massCode.String()
	}
	return b.letters + " " + b.massCode.String() + strconv.Itoa(b.n1)
}

// Prefix is the name without the trailing system number. Every system inside
// the boxel has a name starting with it.
func (b Boxel) Prefix() string {
	if b.IsZero() {
		return ""
	}
	if b.n1 == 0 {
		return b.sector + " " + b.ID()
	}
	return b.sector + " " + b.ID() + "-"
}

// Name is the full system name.
func (b Boxel) Name() string {
	if b.IsZero() {
		return ""
	}
	return b.Prefix() + strconv.Itoa(b.n2)
}

func (b Boxel) String() string {
	return b.Name()
}

// Equal reports whether both boxels have the same name.
func (b Boxel) Equal(other Boxel) bool {
	return b.Name() == other.Name()
}

// Compare orders boxels by name.
func Compare(a, b Boxel) int {
	return strings.Compare(a.Name(), b.Name())
}

// HasMember parses name and reports whether it belongs directly to this boxel,
// meaning it shares the same prefix.
func (b Boxel) HasMember(name string) (Boxel, bool) {
	member, ok := Parse(name)
	if !ok || member.Prefix() != b.Prefix() {
		return Boxel{}, false
	}
	return member, true
}

// WithN2 returns a copy of this boxel using a different system number.
func (b Boxel) WithN2(n2 int) Boxel {
	assertThat(n2 >= 0, "system number must not be negative", "n2", n2)
	next := b
	next.n2 = n2
	return next
}

// Coord returns the position of the boxel within its sector, in units of its
// own mass code.
func (b Boxel) Coord() Coord {
	return decodeID(b.letters, b.n1)
}

// Addressable reports whether the boxel fits inside its sector's grid for its
// mass code. Names can be parsed that do not, and navigating from them would
// step outside the coordinate space.
func (b Boxel) Addressable() bool {
	if b.IsZero() {
		return false
	}
	c := b.Coord()
	extent := b.massCode.GridExtent()
	return c.X < extent && c.Y < extent && c.Z < extent
}

// Parent returns the boxel one mass code larger that contains this one.
func (b Boxel) Parent() Boxel {
	assertThat(b.massCode < MassCodeH, "mass code h has no parent", "boxel", b.Name())

	// make mass code one larger, and halve the co-ordinates
	return FromCoord(b.sector, b.Coord().Half(), b.massCode.Add(1))
}

// AncestorAt walks up the parents until the given mass code is reached. The
// result has n2 == 0 even when mc equals the boxel's own mass code.
func (b Boxel) AncestorAt(mc MassCode) Boxel {
	assertThat(mc >= b.massCode, "ancestor must not be smaller", "boxel", b.Name(), "massCode", mc.String())

	bx := b.WithN2(0)
	for bx.massCode < mc {
		bx = bx.Parent()
	}
	return bx
}

// Children returns the 8 boxels one mass code smaller that this one is made
// of, or nil for mass code a.
func (b Boxel) Children() []Boxel {
	if b.massCode <= MassCodeA {
		return nil
	}

	// make mass code one smaller + double the co-ordinates ...
	mc := b.massCode.Add(-1)
	origin := b.Coord().Scale(2)

	// ... then make 8 of them
	children := make([]Boxel, 0, len(childOffsets))
	for _, d := range childOffsets {
		children = append(children, FromCoord(b.sector, origin.Add(d), mc))
	}
	return children
}

// Contains reports whether other is this boxel or lies somewhere inside it.
func (b Boxel) Contains(other Boxel) bool {
	if b.IsZero() || other.IsZero() {
		return false
	}

	// is this the exact same boxel?
	if b.Prefix() == other.Prefix() {
		return true
	}

	// sibling or bigger cannot be contained by smaller
	if other.massCode >= b.massCode {
		return false
	}

	// names in another sector share no space with this one
	if other.sector != b.sector {
		return false
	}

	// calc and adjust our coords to the same scale as the other
	span := 1 << b.massCode.Sub(other.massCode)
	origin := b.Coord().Scale(span)

	return other.Coord().Within(origin, span)
}

// MarshalText writes the boxel as its name.
func (b Boxel) MarshalText() ([]byte, error) {
	return []byte(b.Name()), nil
}

// UnmarshalText parses a name written by MarshalText. An empty name yields the
// zero Boxel.
func (b *Boxel) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = Boxel{}
		return nil
	}
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidName, string(text))
	}
	*b = parsed
	return nil
}
