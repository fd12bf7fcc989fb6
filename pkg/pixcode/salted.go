package pixcode

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"time"
)

var ErrSaltMismatch = errors.New("salt does not decode this image")

// Salt perturbs the substitution table for one encode/decode pair.
// Salts are coarse by design, typically wall-clock seconds, so that encoding
// the same message at two different times yields two different images. A
// salted image carries no trace of its salt; the caller must keep it.
type Salt int64

// NowSalt samples a salt from the current wall-clock time.
func NowSalt() Salt {
	return Salt(time.Now().Unix())
}

// EncodeSalted encodes text like Encode, then screens every pixel, pad pixels
// included, with the keystream for salt.
func EncodeSalted(text string, salt Salt) (*image.NRGBA, error) {
	points, err := textPoints(text)
	if err != nil {
		return nil, err
	}
	ks := newKeystream(salt)
	return renderPoints(points, func(i, point int) [3]uint8 {
		t := pad
		if point != 0 {
			t = encodeTable[point]
		}
		return ks.screen(i, t)
	}), nil
}

// EncodeSaltedNow encodes text under a salt sampled from the current time, and
// returns the salt it used. Losing the salt makes the image undecodable.
func EncodeSaltedNow(text string) (*image.NRGBA, Salt, error) {
	salt := NowSalt()
	img, err := EncodeSalted(text, salt)
	if err != nil {
		return nil, 0, err
	}
	return img, salt, nil
}

// DecodeSalted reverses EncodeSalted under the same salt. A wrong salt leaves
// at least one pixel outside the substitution table and fails with
// ErrSaltMismatch; no partial message is returned.
func DecodeSalted(img image.Image, salt Salt) (string, error) {
	tuples, err := imageTuples(img)
	if err != nil {
		return "", err
	}
	ks := newKeystream(salt)
	for i := range tuples {
		tuples[i] = ks.screen(i, tuples[i])
	}
	return decodeTuples(tuples, func(i int, t [3]uint8) (int, error) {
		point, ok := decodeTable[t]
		if !ok {
			return 0, fmt.Errorf("%w: no table entry for pixel (%d,%d)", ErrSaltMismatch, i%Width, i/Width)
		}
		return point, nil
	})
}

// keystream produces salt-determined bytes, three per pixel, from
// HMAC-SHA256(salt, blockCounter). Blocks are generated lazily and cached so
// sequential pixel access recomputes nothing.
type keystream struct {
	seed  [8]byte
	block uint32
	buf   [sha256.Size]byte
	valid bool
}

func newKeystream(salt Salt) *keystream {
	ks := new(keystream)
	binary.BigEndian.PutUint64(ks.seed[:], uint64(salt))
	return ks
}

func (k *keystream) at(idx int) byte {
	block := uint32(idx / sha256.Size)
	if !k.valid || block != k.block {
		mac := hmac.New(sha256.New, k.seed[:])
		var counter [4]byte
		binary.BigEndian.PutUint32(counter[:], block)
		mac.Write(counter[:])
		mac.Sum(k.buf[:0])
		k.block = block
		k.valid = true
	}
	return k.buf[idx%sha256.Size]
}

func (k *keystream) screen(i int, t [3]uint8) [3]uint8 {
	return [3]uint8{
		t[0] ^ k.at(3*i),
		t[1] ^ k.at(3*i+1),
		t[2] ^ k.at(3*i+2),
	}
}
