package boxel

import (
	"fmt"
)

// MassCode is the size class of a boxel, 'a' (smallest) through 'h' (largest).
// Each step up doubles the side length of the cube.
type MassCode byte

const (
	MassCodeA MassCode = 'a'
	MassCodeB MassCode = 'b'
	MassCodeC MassCode = 'c'
	MassCodeD MassCode = 'd'
	MassCodeE MassCode = 'e'
	MassCodeF MassCode = 'f'
	MassCodeG MassCode = 'g'
	MassCodeH MassCode = 'h'
)

// Valid reports whether m is within 'a'..'h'.
func (m MassCode) Valid() bool {
	return m >= MassCodeA && m <= MassCodeH
}

func (m MassCode) String() string {
	if m == 0 {
		return ""
	}
	return string(rune(m))
}

// Add returns the mass code n steps larger (or smaller when n is negative).
// Stepping outside 'a'..'h' is a logic error.
func (m MassCode) Add(n int) MassCode {
	next := MassCode(int(m) + n)
	assertThat(next.Valid(), "mass code step out of range", "from", m.String(), "step", n)
	return next
}

// Sub returns the number of steps between two mass codes.
func (m MassCode) Sub(other MassCode) int {
	return int(m) - int(other)
}

// GridExtent is the number of boxels along one axis of a sector at this mass code.
func (m MassCode) GridExtent() int {
	return GridSize >> m.Sub(MassCodeA)
}

// ParseMassCode parses a single letter mass code such as "d".
func ParseMassCode(s string) (MassCode, error) {
	if len(s) != 1 || !MassCode(s[0]).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMassCode, s)
	}
	return MassCode(s[0]), nil
}

// MarshalText implements encoding.TextMarshaler.
func (m MassCode) MarshalText() ([]byte, error) {
	if m == 0 {
		return []byte{}, nil
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MassCode) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = 0
		return nil
	}
	mc, err := ParseMassCode(string(text))
	if err != nil {
		return err
	}
	*m = mc
	return nil
}
