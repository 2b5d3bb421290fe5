package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := Registry()
	assert.Equal(t, []string{"none", "glyph"}, r.Names())

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "none", def)
}

func TestParseGlyphOptions(t *testing.T) {
	opts, err := ParseGlyphOptions("")
	require.NoError(t, err)
	assert.Equal(t, GlyphOptions{Glyph: 150, Name: "watch", Fg: "white", Bg: "black"}, opts)

	opts, err = ParseGlyphOptions("name=Left_Ptr,fg=red,bg=#000000")
	require.NoError(t, err)
	assert.Equal(t, uint16(68), opts.Glyph)
	assert.Equal(t, "left_ptr", opts.Name)
	assert.Equal(t, "red", opts.Fg)
	assert.Equal(t, "#000000", opts.Bg)

	_, err = ParseGlyphOptions("name=gumby")
	assert.ErrorIs(t, err, ErrConfig)

	_, err = ParseGlyphOptions("size=3")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestGlyphNamesSortedWithEvenIndices(t *testing.T) {
	names := GlyphNames()
	assert.IsIncreasing(t, names)
	for _, name := range names {
		assert.Zero(t, glyphs[name]%2, "%s must be a shape glyph, not a mask", name)
	}
}
