package pixcode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, msg := range []string{
		"a",
		"hello",
		"HELLO",
		"MixedCaseMessage",
		"ninechars",
		strings.Repeat("TheQuickBrownFox", 4),
	} {
		img, err := Encode(msg)
		require.NoError(t, err, msg)
		assert.Equal(t, Width, img.Bounds().Dx(), msg)
		assert.Equal(t, (len(msg)+Width-1)/Width, img.Bounds().Dy(), msg)

		decoded, err := Decode(img)
		require.NoError(t, err, msg)
		assert.Equal(t, msg, decoded)
	}
}

func TestEncodeWidthFixed(t *testing.T) {
	for _, n := range []int{1, 8, 9, 10, 26, 27, 100} {
		img, err := Encode(strings.Repeat("z", n))
		require.NoError(t, err)
		assert.Equal(t, Width, img.Bounds().Dx(), "length %d", n)
	}
}

func TestEncodeRejectsNonAlphabet(t *testing.T) {
	_, err := Encode("hello world")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	assert.ErrorContains(t, err, "position 5")

	_, err = Encode("abc1")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	assert.ErrorContains(t, err, "'1'")

	_, err = Encode("")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestEncodeDeterministic(t *testing.T) {
	first, err := Encode("determinism")
	require.NoError(t, err)
	second, err := Encode("determinism")
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)
}

func TestDecodeRejectsWrongWidth(t *testing.T) {
	_, err := Decode(image.NewNRGBA(image.Rect(0, 0, 8, 3)))
	assert.ErrorIs(t, err, ErrMalformedImage)

	_, err = Decode(image.NewNRGBA(image.Rect(0, 0, 10, 3)))
	assert.ErrorIs(t, err, ErrMalformedImage)
}

func TestDecodeRejectsUnknownPixel(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, Width, 1))
	for x := 0; x < Width; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 0xff})
	}
	_, err := Decode(img)
	assert.ErrorIs(t, err, ErrUnknownPixel)
	assert.ErrorContains(t, err, "(0,0)")
}

func TestDecodeRejectsInteriorPad(t *testing.T) {
	img, err := Encode("abc")
	require.NoError(t, err)
	// Blank out the first character, leaving real pixels after the pad.
	img.SetNRGBA(0, 0, color.NRGBA{A: 0xff})
	_, err = Decode(img)
	assert.ErrorIs(t, err, ErrMalformedImage)
}

func TestDecodeRejectsAllPad(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, Width, 2))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 0xff
		}
	}
	_, err := Decode(img)
	assert.ErrorIs(t, err, ErrMalformedImage)
}

func TestRoundTripThroughPNG(t *testing.T) {
	const msg = "SurvivesSerialization"
	img, err := Encode(msg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	reread, err := png.Decode(&buf)
	require.NoError(t, err)

	decoded, err := Decode(reread)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}
