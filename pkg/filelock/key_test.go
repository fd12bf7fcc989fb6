package filelock

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyGenerator(t *testing.T) {
	gen, err := NewKeyGenerator(SetShortDelayIterations())
	assert.NoError(t, err)
	assert.NotNil(t, gen)
	assert.Equal(t, DefaultInteractiveIterations, gen.iterations)
	assert.Equal(t, DefaultCpuCost, gen.cpuCost)
	assert.Equal(t, AES256KeySize, gen.aesKeySize)
	assert.Equal(t, DefaultRelBlockSize, gen.relativeBlockSize)
	assert.NoError(t, gen.validate())

	key, salt, err := gen.GenerateKey([]byte("a test password"))
	assert.NoError(t, err)
	assert.Len(t, key, int(gen.aesKeySize))
	assert.Len(t, salt, int(gen.aesKeySize))
}

func TestNewKeyGenerator_BadOptions(t *testing.T) {
	_, err := NewKeyGenerator(SetIterations(3))
	assert.Error(t, err)
	_, err = NewKeyGenerator(SetIterations(maxIterations * 2))
	assert.Error(t, err)
	_, err = NewKeyGenerator(SetCPUCost(0))
	assert.Error(t, err)
	_, err = NewKeyGenerator(SetRelativeBlockSize(4))
	assert.Error(t, err)
}

func TestGenerateKey_EmptyPassphrase(t *testing.T) {
	gen, err := NewKeyGenerator(SetShortDelayIterations())
	require.NoError(t, err)

	_, _, err = gen.GenerateKey(nil)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
	_, err = gen.DeriveKey(nil, make(Salt, AES256KeySize))
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	gen, err := NewKeyGenerator(SetIterations(1 << 10))
	require.NoError(t, err)

	key, salt, err := gen.GenerateKey([]byte("repeatable"))
	require.NoError(t, err)

	again, err := gen.DeriveKey([]byte("repeatable"), salt)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	other, otherSalt, err := gen.GenerateKey([]byte("repeatable"))
	require.NoError(t, err)
	assert.NotEqual(t, salt, otherSalt)
	assert.NotEqual(t, key, other)
}

func TestDeriveKey_SaltLength(t *testing.T) {
	gen, err := NewKeyGenerator(SetIterations(1 << 10))
	require.NoError(t, err)

	_, err = gen.DeriveKey([]byte("pass"), make(Salt, 7))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func testKeyImage(seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 9, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 9; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: seed + uint8(x),
				G: seed + uint8(y),
				B: seed ^ uint8(x*y),
				A: 0xff,
			})
		}
	}
	return img
}

func TestImageKey_Deterministic(t *testing.T) {
	gen, err := NewKeyGenerator()
	require.NoError(t, err)

	key := gen.ImageKey(testKeyImage(10))
	assert.Len(t, key, int(AES256KeySize))
	assert.Equal(t, key, gen.ImageKey(testKeyImage(10)))

	// One changed pixel changes the key.
	changed := testKeyImage(10)
	changed.SetNRGBA(3, 2, color.NRGBA{R: 0xaa, A: 0xff})
	assert.NotEqual(t, key, gen.ImageKey(changed))
}

func TestImageKey_SizeFollowsGenerator(t *testing.T) {
	gen, err := NewKeyGenerator(SetAES128KeySize())
	require.NoError(t, err)
	assert.Len(t, gen.ImageKey(testKeyImage(3)), int(AES128KeySize))
}

func TestPixelBytes_Canonical(t *testing.T) {
	buf := pixelBytes(testKeyImage(0))
	require.GreaterOrEqual(t, len(buf), 8)
	assert.Equal(t, uint32(9), binary.BigEndian.Uint32(buf[:4]))
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(buf[4:8]))
	assert.Len(t, buf, 8+3*9*4)
}

func TestKeyGenerator_mapper(t *testing.T) {
	var buf bytes.Buffer
	gen, err := NewKeyGenerator(SetShortDelayIterations())
	assert.NoError(t, err)
	assert.NotNil(t, gen)

	assert.NoError(t, gen.mapper().Write(&buf, binary.BigEndian))
	updated, err := NewKeyGenerator(
		SetIterations(1<<4),
		SetCPUCost(4),
		SetRelativeBlockSize(16),
		SetAES128KeySize(),
	)
	assert.NoError(t, err)
	assert.NoError(t, updated.mapper().Read(&buf, binary.BigEndian))
	assert.Equal(t, DefaultInteractiveIterations, updated.iterations)
	assert.Equal(t, DefaultCpuCost, updated.cpuCost)
	assert.Equal(t, DefaultRelBlockSize, updated.relativeBlockSize)
	assert.Equal(t, AES256KeySize, updated.aesKeySize)
}

func TestValidate_Bounds(t *testing.T) {
	good, err := NewKeyGenerator(SetShortDelayIterations())
	require.NoError(t, err)
	assert.NoError(t, good.validate())

	bad := *good
	bad.iterations = 3
	assert.ErrorIs(t, bad.validate(), ErrInvalidParams)

	bad = *good
	bad.cpuCost = maxCpuCost + 1
	assert.ErrorIs(t, bad.validate(), ErrInvalidParams)

	bad = *good
	bad.aesKeySize = 17
	assert.ErrorIs(t, bad.validate(), ErrInvalidParams)
}
