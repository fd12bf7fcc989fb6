package filelock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	magicBytes        uint16 = 0x9c71
	magicBytesInverse uint16 = 0x719c

	// FormatVersion tags envelopes written by this package. Older versions
	// remain readable when the format evolves; newer ones are rejected.
	FormatVersion uint8 = 1

	nonceSize  = 12
	gcmTagSize = 16
)

// Key derivation modes recorded in an envelope header.
const (
	KeyModePassword uint8 = 1
	KeyModeImage    uint8 = 2
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the parsed on-disk container: a header identifying the format
// version, key derivation mode and parameters, the password salt when one
// applies, and the GCM nonce, followed by the sealed payload.
//
// The header is bound into the GCM seal as additional authenticated data, so
// no header field can be altered without failing authentication.
type Envelope struct {
	version uint8
	keyMode uint8
	gen     *KeyGenerator
	salt    Salt
	nonce   [nonceSize]byte
	payload []byte

	// rawHeader holds the exact header bytes this envelope was parsed from
	// or marshaled to, for use as authenticated data.
	rawHeader []byte
}

// Version reports the format version of a parsed envelope.
func (e *Envelope) Version() uint8 {
	return e.version
}

// KeyMode reports which kind of key material wrapped this envelope,
// KeyModePassword or KeyModeImage.
func (e *Envelope) KeyMode() uint8 {
	return e.keyMode
}

func keyModeName(mode uint8) string {
	switch mode {
	case KeyModePassword:
		return "password"
	case KeyModeImage:
		return "image"
	default:
		return fmt.Sprintf("unknown(%d)", mode)
	}
}

// headerBytes assembles the envelope header and caches it as rawHeader.
// Envelopes are always written big-endian; the inverse magic value is only
// honored on read.
func (e *Envelope) headerBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, magicBytes); err != nil {
		return nil, err
	}
	buf.WriteByte(e.version)
	buf.WriteByte(e.keyMode)
	if err := e.gen.mapper().Write(&buf, binary.BigEndian); err != nil {
		return nil, err
	}
	if e.keyMode == KeyModePassword {
		buf.Write(e.salt)
	}
	buf.Write(e.nonce[:])
	e.rawHeader = buf.Bytes()
	return e.rawHeader, nil
}

// MarshalBinary renders the envelope to its stable wire form.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	hdr, err := e.headerBytes()
	if err != nil {
		return nil, err
	}
	if len(e.payload) < gcmTagSize {
		return nil, fmt.Errorf("%w: payload shorter than an authentication tag", ErrMalformedEnvelope)
	}
	out := make([]byte, 0, len(hdr)+len(e.payload))
	out = append(out, hdr...)
	return append(out, e.payload...), nil
}

// UnmarshalBinary parses an envelope, validating the magic bytes, version,
// key mode, and derivation parameter bounds. Anything out of shape wraps
// ErrMalformedEnvelope.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var (
		magic  uint16
		endian binary.ByteOrder = binary.BigEndian
	)
	if err := binary.Read(r, endian, &magic); err != nil {
		return fmt.Errorf("%w: missing magic bytes", ErrMalformedEnvelope)
	}
	switch magic {
	case magicBytes:
	case magicBytesInverse:
		endian = binary.LittleEndian
	default:
		return fmt.Errorf("%w: unrecognized magic bytes %#04x", ErrMalformedEnvelope, magic)
	}

	var tag [2]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return fmt.Errorf("%w: truncated header", ErrMalformedEnvelope)
	}
	e.version, e.keyMode = tag[0], tag[1]
	if e.version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformedEnvelope, e.version)
	}

	gen := new(KeyGenerator)
	if err := gen.mapper().Read(r, endian); err != nil {
		return fmt.Errorf("%w: truncated derivation parameters", ErrMalformedEnvelope)
	}
	if err := gen.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	e.gen = gen

	switch e.keyMode {
	case KeyModePassword:
		e.salt = make(Salt, gen.aesKeySize)
		if _, err := io.ReadFull(r, e.salt); err != nil {
			return fmt.Errorf("%w: truncated salt", ErrMalformedEnvelope)
		}
	case KeyModeImage:
		e.salt = nil
	default:
		return fmt.Errorf("%w: unknown key mode %d", ErrMalformedEnvelope, e.keyMode)
	}

	if _, err := io.ReadFull(r, e.nonce[:]); err != nil {
		return fmt.Errorf("%w: truncated nonce", ErrMalformedEnvelope)
	}

	headerLen := len(data) - r.Len()
	e.rawHeader = data[:headerLen]
	e.payload = data[headerLen:]
	if len(e.payload) < gcmTagSize {
		return fmt.Errorf("%w: payload shorter than an authentication tag", ErrMalformedEnvelope)
	}
	return nil
}
