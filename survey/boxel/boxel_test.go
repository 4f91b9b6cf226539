package boxel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("full name", func(t *testing.T) {
		b, ok := Parse("Thuechu YV-T d4-12")
		require.True(t, ok)

		assert.Equal(t, "Thuechu", b.Sector())
		assert.Equal(t, "YV-T", b.Letters())
		assert.Equal(t, MassCodeD, b.MassCode())
		assert.Equal(t, 4, b.N1())
		assert.Equal(t, 12, b.N2())
		assert.Equal(t, "YV-T d4", b.ID())
		assert.Equal(t, "Thuechu YV-T d4-", b.Prefix())
		assert.Equal(t, "Thuechu YV-T d4-12", b.Name())
		assert.Equal(t, MassCodeE, b.Parent().MassCode())
	})

	t.Run("name without n1", func(t *testing.T) {
		b, ok := Parse("Thuechu LM-T c12")
		require.True(t, ok)

		assert.Equal(t, 0, b.N1())
		assert.Equal(t, 12, b.N2())
		assert.Equal(t, "LM-T c", b.ID())
		assert.Equal(t, "Thuechu LM-T c", b.Prefix())
		assert.Equal(t, "Thuechu LM-T c12", b.Name())
	})

	t.Run("bare prefix", func(t *testing.T) {
		b, ok := Parse("Thuechu YV-T d4-")
		require.True(t, ok)

		assert.Equal(t, 4, b.N1())
		assert.Equal(t, 0, b.N2())
		assert.Equal(t, "Thuechu YV-T d4-", b.Prefix())
	})

	t.Run("sector with spaces", func(t *testing.T) {
		b, ok := Parse("Col 285 Sector AB-C d1-2")
		require.True(t, ok)
		assert.Equal(t, "Col 285 Sector", b.Sector())
	})

	invalid := []string{
		"",
		"Sol",
		"Thuechu YV-T",
		"Thuechu YV-T d",
		"Thuechu YV-T i4-12",
		"Thuechu YV-T D4-12",
		"Thuechu yv-t d4-12",
		"Thuechu YVT d4-12",
		"Thuechu YV-T d4-12x",
		"YV-T d4-12",
		"Thuechu YV-T d99999999999-1",
	}
	for _, name := range invalid {
		t.Run("invalid "+name, func(t *testing.T) {
			b, ok := Parse(name)
			assert.False(t, ok)
			assert.True(t, b.IsZero())
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	names := []string{
		"Thuechu YV-T d4-12",
		"Thuechu LM-T c12",
		"Thuechu LM-T c0",
		"Col 285 Sector AB-C h0",
		"Eol Prou RS-T d3-94",
		"Pru Aescs AA-A a0",
		"Oochost ZZ-Z b119-9999",
	}
	for _, name := range names {
		b, ok := Parse(name)
		require.True(t, ok, name)
		assert.Equal(t, name, b.Name())

		again, ok := Parse(b.Name())
		require.True(t, ok)
		assert.Equal(t, b, again, "parse(b.name) should equal b")
	}
}

func TestEquality(t *testing.T) {
	a := MustParse("Thuechu YV-T d4-12")
	b := MustParse("Thuechu YV-T d4-12")
	c := MustParse("Thuechu YV-T d4-13")

	assert.True(t, a == b)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, 0, Compare(a, b))
	assert.Equal(t, -1, Compare(a, c))

	// value semantics: usable as a map key
	seen := map[Boxel]int{a: 1}
	seen[b]++
	assert.Equal(t, 2, seen[a])

	// a dashed zero n1 is the same system as the dashless form
	assert.Equal(t, MustParse("Thuechu LM-T c0-12"), MustParse("Thuechu LM-T c12"))
}

func TestCoordinates(t *testing.T) {
	b := MustParse("Thuechu YV-T d4-12")
	assert.Equal(t, Coord{6, 14, 5}, b.Coord())

	back := FromCoord(b.Sector(), b.Coord(), b.MassCode())
	assert.Equal(t, b.ID(), back.ID())
	assert.Equal(t, 0, back.N2())

	assert.Equal(t, "AA-A h", FromCoord("Thuechu", Coord{}, MassCodeH).ID())
	assert.Equal(t, "RH-I a119", FromCoord("Thuechu", Coord{127, 127, 127}, MassCodeA).ID())
}

func TestCoordinates_Invertible(t *testing.T) {
	for mc := MassCodeA; mc <= MassCodeH; mc++ {
		for x := 0; x < GridSize; x += 7 {
			for y := 0; y < GridSize; y += 11 {
				for _, z := range []int{0, 1, 5, 64, 127, 300} {
					c := Coord{x, y, z}
					b := FromCoord("Synuefe", c, mc)
					require.Equal(t, c, b.Coord(), "coordinate %v at mass code %s", c, mc)

					parsed, ok := Parse(b.Name())
					require.True(t, ok, b.Name())
					require.Equal(t, b, parsed)
				}
			}
		}
	}
}

func TestParent(t *testing.T) {
	b := MustParse("Thuechu YV-T d4-12")

	parent := b.Parent()
	assert.Equal(t, "Thuechu XU-X e1-0", parent.Name())
	assert.Equal(t, Coord{3, 7, 2}, parent.Coord())

	assert.Equal(t, "Thuechu YE-A g0", b.AncestorAt(MassCodeG).Name())
	assert.Equal(t, "Thuechu AA-A h0", b.AncestorAt(MassCodeH).Name())
	assert.Equal(t, "Thuechu YV-T d4-0", b.AncestorAt(MassCodeD).Name())
}

func TestChildren(t *testing.T) {
	t.Run("parent children contain the region", func(t *testing.T) {
		names := []string{
			"Thuechu YV-T d4-12",
			"Thuechu LM-T c12",
			"Pru Aescs AA-A a0",
			"Eol Prou RS-T g3",
		}
		for _, name := range names {
			b := MustParse(name)
			children := b.Parent().Children()
			require.Len(t, children, 8)
			assert.Contains(t, children, b.WithN2(0), name)
		}
	})

	t.Run("stable order", func(t *testing.T) {
		parent := MustParse("Thuechu XU-X e1-0")
		first := parent.Children()
		second := parent.Children()
		assert.Equal(t, first, second)

		names := make([]string, 0, len(first))
		for _, c := range first {
			assert.Equal(t, MassCodeD, c.MassCode())
			names = append(names, c.ID())
		}
		assert.Equal(t, []string{
			"UP-V d3", "VP-V d3", "SU-V d3", "TU-V d3",
			"YV-T d4", "ZV-T d4", "WA-U d4", "XA-U d4",
		}, names)
	})

	t.Run("mass code a has none", func(t *testing.T) {
		assert.Empty(t, MustParse("Pru Aescs AA-A a0").Children())
	})
}

func TestContains(t *testing.T) {
	d := MustParse("Thuechu YV-T d4-12")
	e := d.Parent()
	g := d.AncestorAt(MassCodeG)

	t.Run("self", func(t *testing.T) {
		assert.True(t, d.Contains(d))
		assert.True(t, d.Contains(d.WithN2(3)), "n2 is ignored")
	})

	t.Run("descendants", func(t *testing.T) {
		assert.True(t, e.Contains(d))
		assert.True(t, g.Contains(e))
		assert.True(t, g.Contains(d))
	})

	t.Run("same or larger never inside", func(t *testing.T) {
		assert.False(t, d.Contains(e))
		assert.False(t, d.Contains(g))

		for _, sibling := range e.Children() {
			if sibling.Prefix() == d.Prefix() {
				continue
			}
			assert.False(t, d.Contains(sibling), sibling.Name())
		}
	})

	t.Run("other sector", func(t *testing.T) {
		other := FromCoord("Synuefe", d.Coord(), d.MassCode())
		assert.False(t, e.Contains(other))
	})

	t.Run("transitive through the whole tree", func(t *testing.T) {
		top := MustParse("Eol Prou AA-A f0")
		for _, b := range top.Children() {
			require.True(t, top.Contains(b))
			for _, c := range b.Children() {
				require.True(t, b.Contains(c))
				assert.True(t, top.Contains(c), "%s should contain %s", top, c)
			}
		}
	})

	t.Run("zero values", func(t *testing.T) {
		assert.False(t, d.Contains(Boxel{}))
		assert.False(t, Boxel{}.Contains(d))
	})
}

func TestAddressable(t *testing.T) {
	assert.True(t, MustParse("Thuechu YV-T d4-12").Addressable())
	assert.True(t, MustParse("Thuechu AA-A h0").Addressable())
	assert.False(t, MustParse("Thuechu AB-A h0").Addressable())
	assert.False(t, MustParse("Thuechu ZZ-Z b9-0").Addressable())
	assert.False(t, Boxel{}.Addressable())
}

func TestMassCode(t *testing.T) {
	assert.Equal(t, MassCodeE, MassCodeD.Add(1))
	assert.Equal(t, MassCodeC, MassCodeD.Add(-1))
	assert.Equal(t, 3, MassCodeG.Sub(MassCodeD))
	assert.Equal(t, 128, MassCodeA.GridExtent())
	assert.Equal(t, 1, MassCodeH.GridExtent())

	mc, err := ParseMassCode("c")
	require.NoError(t, err)
	assert.Equal(t, MassCodeC, mc)

	_, err = ParseMassCode("i")
	assert.ErrorIs(t, err, ErrInvalidMassCode)
	_, err = ParseMassCode("cd")
	assert.ErrorIs(t, err, ErrInvalidMassCode)
}

func TestJSON(t *testing.T) {
	type doc struct {
		Region Boxel    `json:"region"`
		Low    MassCode `json:"low"`
	}

	in := doc{Region: MustParse("Thuechu YV-T d4-12"), Low: MassCodeC}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"region":"Thuechu YV-T d4-12","low":"c"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"region":"not a boxel"}`), &out)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStarPos(t *testing.T) {
	assert.False(t, StarPos{}.IsKnown())
	assert.False(t, StarPos{X: 1, Y: 0, Z: 2}.IsKnown())
	assert.True(t, StarPos{X: 1, Y: -2, Z: 3}.IsKnown())
	assert.InDelta(t, 5.0, StarPos{X: 3, Y: 4}.Distance(StarPos{}), 1e-9)
}
