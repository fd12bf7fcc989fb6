package filelock

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
)

var (
	ErrKeyDerivation  = errors.New("key derivation failed")
	ErrAuthentication = errors.New("envelope failed authentication")
)

// KeyMaterial is either a passphrase or a cipher-image, normalized into a
// symmetric key during wrap and unwrap. Construct one with Password or Image.
type KeyMaterial interface {
	keyMode() uint8
	// generate derives a key for a new envelope, along with the salt to
	// record in its header (nil for image material).
	generate(gen *KeyGenerator) (Key, Salt, error)
	// rederive derives the key for an existing envelope from its stored salt.
	rederive(gen *KeyGenerator, salt Salt) (Key, error)
}

type passwordMaterial struct {
	pass Passphrase
}

// Password makes passphrase-based KeyMaterial.
func Password(pass []byte) KeyMaterial {
	return passwordMaterial{pass: pass}
}

func (m passwordMaterial) keyMode() uint8 {
	return KeyModePassword
}

func (m passwordMaterial) generate(gen *KeyGenerator) (Key, Salt, error) {
	return gen.GenerateKey(m.pass)
}

func (m passwordMaterial) rederive(gen *KeyGenerator, salt Salt) (Key, error) {
	return gen.DeriveKey(m.pass, salt)
}

type imageMaterial struct {
	img image.Image
}

// Image makes cipher-image KeyMaterial. Any raster image works as key
// material; images produced by the pixcode package are just the conventional
// source.
func Image(img image.Image) KeyMaterial {
	return imageMaterial{img: img}
}

func (m imageMaterial) keyMode() uint8 {
	return KeyModeImage
}

func (m imageMaterial) generate(gen *KeyGenerator) (Key, Salt, error) {
	return gen.ImageKey(m.img), nil, nil
}

func (m imageMaterial) rederive(gen *KeyGenerator, salt Salt) (Key, error) {
	return gen.ImageKey(m.img), nil
}

// Locker wraps payloads into envelopes and unwraps them again. A Locker holds
// no per-call state and is safe for concurrent use.
type Locker struct {
	gen *KeyGenerator
}

// NewLocker creates a Locker. The default key generator uses interactive
// scrypt iterations and AES-256; opts may override any of that.
func NewLocker(opts ...GeneratorOpt) (*Locker, error) {
	gen, err := NewKeyGenerator(append([]GeneratorOpt{SetShortDelayIterations()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Locker{gen: gen}, nil
}

// Wrap derives a key from km, seals data under a fresh random nonce, and
// returns the marshaled envelope. Empty payloads are valid.
func (l *Locker) Wrap(data Plaintext, km KeyMaterial) (Encrypted, error) {
	key, salt, err := km.generate(l.gen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	e := &Envelope{
		version: FormatVersion,
		keyMode: km.keyMode(),
		gen:     l.gen,
		salt:    salt,
	}
	if _, err := rand.Read(e.nonce[:]); err != nil {
		return nil, err
	}
	hdr, err := e.headerBytes()
	if err != nil {
		return nil, err
	}
	e.payload = gcm.Seal(nil, e.nonce[:], data, hdr)
	return e.MarshalBinary()
}

// Unwrap parses the envelope, re-derives the key from km and the stored
// header fields, and opens the payload. Wrong key material and tampering of
// any kind fail with ErrAuthentication; nothing is returned in that case.
func (l *Locker) Unwrap(data Encrypted, km KeyMaterial) (Plaintext, error) {
	var e Envelope
	if err := e.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if e.keyMode != km.keyMode() {
		return nil, fmt.Errorf("%w: envelope was wrapped with %s key material", ErrKeyDerivation, keyModeName(e.keyMode))
	}
	key, err := km.rederive(e.gen, e.salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, e.nonce[:], e.payload, e.rawHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong key material or corrupted data", ErrAuthentication)
	}
	return plain, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
