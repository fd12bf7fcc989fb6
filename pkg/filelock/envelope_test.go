package filelock

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope(t *testing.T, keyMode uint8) *Envelope {
	t.Helper()
	gen, err := NewKeyGenerator(SetIterations(1 << 10))
	require.NoError(t, err)
	e := &Envelope{
		version: FormatVersion,
		keyMode: keyMode,
		gen:     gen,
		payload: make([]byte, gcmTagSize+24),
	}
	if keyMode == KeyModePassword {
		e.salt = make(Salt, gen.aesKeySize)
	}
	_, err = rand.Read(e.payload)
	require.NoError(t, err)
	_, err = rand.Read(e.nonce[:])
	require.NoError(t, err)
	if keyMode == KeyModePassword {
		_, err = rand.Read(e.salt)
		require.NoError(t, err)
	}
	return e
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, mode := range []uint8{KeyModePassword, KeyModeImage} {
		e := testEnvelope(t, mode)
		data, err := e.MarshalBinary()
		require.NoError(t, err)

		var parsed Envelope
		require.NoError(t, parsed.UnmarshalBinary(data))
		assert.Equal(t, FormatVersion, parsed.Version())
		assert.Equal(t, mode, parsed.KeyMode())
		assert.Equal(t, e.salt, parsed.salt)
		assert.Equal(t, e.nonce, parsed.nonce)
		assert.Equal(t, e.payload, parsed.payload)
		assert.Equal(t, e.rawHeader, parsed.rawHeader)
		assert.Equal(t, e.gen.iterations, parsed.gen.iterations)
		assert.Equal(t, e.gen.aesKeySize, parsed.gen.aesKeySize)
	}
}

func TestEnvelopeRejectsGarbage(t *testing.T) {
	var e Envelope
	assert.ErrorIs(t, e.UnmarshalBinary(nil), ErrMalformedEnvelope)
	assert.ErrorIs(t, e.UnmarshalBinary([]byte{0x01}), ErrMalformedEnvelope)
	assert.ErrorIs(t, e.UnmarshalBinary([]byte("definitely not an envelope")), ErrMalformedEnvelope)
}

func TestEnvelopeRejectsBadHeader(t *testing.T) {
	data, err := testEnvelope(t, KeyModePassword).MarshalBinary()
	require.NoError(t, err)

	bad := append([]byte(nil), data...)
	bad[2] = FormatVersion + 9 // version
	assert.ErrorIs(t, new(Envelope).UnmarshalBinary(bad), ErrMalformedEnvelope)

	bad = append([]byte(nil), data...)
	bad[3] = 99 // key mode
	assert.ErrorIs(t, new(Envelope).UnmarshalBinary(bad), ErrMalformedEnvelope)

	bad = append([]byte(nil), data...)
	bad[4] = 0xff // iteration count out of bounds
	assert.ErrorIs(t, new(Envelope).UnmarshalBinary(bad), ErrMalformedEnvelope)
}

func TestEnvelopeRejectsTruncation(t *testing.T) {
	data, err := testEnvelope(t, KeyModePassword).MarshalBinary()
	require.NoError(t, err)

	payloadStart := len(data) - (gcmTagSize + 24)
	for _, n := range []int{3, 10, payloadStart - 5, payloadStart + gcmTagSize - 1} {
		err := new(Envelope).UnmarshalBinary(data[:n])
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "truncated to %d bytes", n)
	}
}
