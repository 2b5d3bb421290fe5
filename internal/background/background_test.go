package background

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := Registry()
	assert.Equal(t, []string{"blank", "none"}, r.Names())

	sel, err := r.Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "blank", sel.New().Name())

	sel, err = r.Lookup("no")
	require.NoError(t, err)
	assert.Equal(t, "none", sel.New().Name())
}

func TestBlankParseArgs(t *testing.T) {
	var b Blank
	require.NoError(t, b.ParseArgs(""))
	assert.Equal(t, DefaultColor, b.Color())

	require.NoError(t, b.ParseArgs("color=#203040"))
	assert.Equal(t, "#203040", b.Color())

	assert.ErrorIs(t, b.ParseArgs("color="), ErrConfig)

	err := b.ParseArgs("image=/tmp/x.png")
	assert.ErrorIs(t, err, ErrConfig)
	var unknown *UnknownOptionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "image", unknown.Option)
}
