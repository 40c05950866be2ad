package radix50_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caldwell/pdpfs/radix50"
)

func TestEncodeRejectsNonMultipleOf3(t *testing.T) {
	_, err := radix50.Encode("FOO")
	require.NoError(t, err)
	_, err = radix50.Encode("FOOX")
	require.Error(t, err)
}

func TestEncodeRejectsInvalidCharacter(t *testing.T) {
	_, err := radix50.Encode("foo")
	require.Error(t, err)
}

func TestEncodeDecodeFixed(t *testing.T) {
	words, err := radix50.Encode("FOOBAR")
	require.NoError(t, err)
	require.Len(t, words, 2)
	require.Equal(t, "FOOBAR", radix50.Decode(words))
}

func TestEncodeKnownWords(t *testing.T) {
	// "V3A" is the RT-11 system version string; its RAD50 word is well known.
	words, err := radix50.Encode("V3A")
	require.NoError(t, err)
	require.Equal(t, []uint16{0x8ea9}, words)
}

func TestEncodeDecodeSpacesAndPunctuation(t *testing.T) {
	words, err := radix50.Encode("A$.   ")
	require.NoError(t, err)
	require.Equal(t, "A$.   ", radix50.Decode(words))
}
