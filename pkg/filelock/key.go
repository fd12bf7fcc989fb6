package filelock

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	bin "github.com/saylorsolutions/binmap"
	"golang.org/x/crypto/scrypt"
)

const (
	DefaultLargeIterations       uint64 = 1 << 20
	DefaultInteractiveIterations uint64 = 1 << 17
	DefaultRelBlockSize          uint8  = 8
	DefaultCpuCost               uint8  = 1
	AES256KeySize                uint8  = 256 / 8
	AES128KeySize                uint8  = 128 / 8

	// Upper bounds accepted when reading parameters back out of an envelope
	// header, so corrupt or hostile headers can't demand an absurd derivation.
	maxIterations   uint64 = 1 << 30
	maxRelBlockSize uint8  = 64
	maxCpuCost      uint8  = 32
)

var (
	ErrEmptyPassphrase = errors.New("cannot use an empty passphrase")
	ErrInvalidParams   = errors.New("invalid key derivation parameters")
)

// Key is an AES key used to seal or open an envelope payload.
type Key []byte

// Salt is a slice of secure random bytes used with scrypt to stretch a
// Passphrase into a Key.
type Salt []byte

// Passphrase is a human-readable secret used to generate a Key.
type Passphrase []byte

// Plaintext is an unwrapped payload.
type Plaintext []byte

// Encrypted is a wrapped envelope.
type Encrypted []byte

// KeyGenerator derives fixed-length AES keys from passphrases or
// cipher-images. Passphrase keys use scrypt; image keys hash the pixel buffer.
type KeyGenerator struct {
	iterations        uint64
	relativeBlockSize uint8
	cpuCost           uint8
	aesKeySize        uint8
}

func (g *KeyGenerator) mapper() bin.Mapper {
	return bin.MapSequence(
		bin.Int(&g.iterations),
		bin.Byte(&g.relativeBlockSize),
		bin.Byte(&g.cpuCost),
		bin.Byte(&g.aesKeySize),
	)
}

// validate reports whether the generator's parameters are inside the bounds
// this package is willing to run. Used on parameters read from envelopes as
// well as locally constructed generators.
func (g *KeyGenerator) validate() error {
	if g.iterations < 2 || g.iterations&(g.iterations-1) != 0 {
		return fmt.Errorf("%w: iterations must be a power of 2 greater than 1", ErrInvalidParams)
	}
	if g.iterations > maxIterations {
		return fmt.Errorf("%w: iterations above %d", ErrInvalidParams, maxIterations)
	}
	if g.relativeBlockSize < DefaultRelBlockSize || g.relativeBlockSize > maxRelBlockSize {
		return fmt.Errorf("%w: relative block size outside [%d,%d]", ErrInvalidParams, DefaultRelBlockSize, maxRelBlockSize)
	}
	if g.cpuCost < DefaultCpuCost || g.cpuCost > maxCpuCost {
		return fmt.Errorf("%w: cpu cost outside [%d,%d]", ErrInvalidParams, DefaultCpuCost, maxCpuCost)
	}
	switch g.aesKeySize {
	case AES128KeySize, AES256KeySize:
		return nil
	default:
		return fmt.Errorf("%w: unsupported key size %d", ErrInvalidParams, g.aesKeySize)
	}
}

type GeneratorOpt = func(*KeyGenerator) error

func SetAES256KeySize() GeneratorOpt {
	return func(gen *KeyGenerator) error {
		gen.aesKeySize = AES256KeySize
		return nil
	}
}

func SetAES128KeySize() GeneratorOpt {
	return func(gen *KeyGenerator) error {
		gen.aesKeySize = AES128KeySize
		return nil
	}
}

// SetLongDelayIterations sets a higher iteration count, for envelopes that are
// unwrapped rarely and should resist offline cracking harder. More resistant,
// noticeably slower.
func SetLongDelayIterations() GeneratorOpt {
	return func(gen *KeyGenerator) error {
		gen.iterations = DefaultLargeIterations
		return nil
	}
}

// SetShortDelayIterations sets a lower iteration count, appropriate for
// interactive use where the delay of key derivation is user-visible.
// This is the Locker default.
func SetShortDelayIterations() GeneratorOpt {
	return func(gen *KeyGenerator) error {
		gen.iterations = DefaultInteractiveIterations
		return nil
	}
}

// SetIterations allows the caller to customize the iteration count.
// Only use this option if you know what you're doing.
func SetIterations(iterations uint64) GeneratorOpt {
	return func(gen *KeyGenerator) error {
		if iterations < 2 || iterations&(iterations-1) != 0 {
			return errors.New("iterations must be a power of 2 greater than 1")
		}
		if iterations > maxIterations {
			return fmt.Errorf("iterations cannot exceed %d", maxIterations)
		}
		gen.iterations = iterations
		return nil
	}
}

// SetCPUCost sets the parallelism factor for key generation from the default of 1.
// Only use this option if you know what you're doing.
func SetCPUCost(cost uint8) GeneratorOpt {
	return func(gen *KeyGenerator) error {
		if cost < DefaultCpuCost || cost > maxCpuCost {
			return fmt.Errorf("cpu cost must be between %d and %d", DefaultCpuCost, maxCpuCost)
		}
		gen.cpuCost = cost
		return nil
	}
}

// SetRelativeBlockSize sets the relative block size.
// Only use this option if you know what you're doing.
func SetRelativeBlockSize(size uint8) GeneratorOpt {
	return func(gen *KeyGenerator) error {
		if size < DefaultRelBlockSize || size > maxRelBlockSize {
			return fmt.Errorf("relative block size must be between %d and %d", DefaultRelBlockSize, maxRelBlockSize)
		}
		gen.relativeBlockSize = size
		return nil
	}
}

// NewKeyGenerator creates a new KeyGenerator using the options provided as zero or more GeneratorOpt.
// By default, the generator generates a key for AES256KeySize using DefaultLargeIterations.
func NewKeyGenerator(opts ...GeneratorOpt) (*KeyGenerator, error) {
	gen := &KeyGenerator{
		iterations:        DefaultLargeIterations,
		relativeBlockSize: DefaultRelBlockSize,
		cpuCost:           DefaultCpuCost,
		aesKeySize:        AES256KeySize,
	}

	for _, opt := range opts {
		if err := opt(gen); err != nil {
			return nil, err
		}
	}
	return gen, nil
}

// GenerateKey stretches pass into a fresh key under a newly generated salt.
// The salt must be retained, normally in an envelope header, to derive the
// same key again later.
func (g *KeyGenerator) GenerateKey(pass Passphrase) (Key, Salt, error) {
	if len(pass) == 0 {
		return nil, nil, ErrEmptyPassphrase
	}
	salt := make(Salt, g.aesKeySize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}
	key, err := g.DeriveKey(pass, salt)
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}

// DeriveKey recovers the key for pass under a previously generated salt.
// This doesn't ensure that pass is the *correct* passphrase for whatever the
// key protects; verification happens at unwrap time.
func (g *KeyGenerator) DeriveKey(pass Passphrase, salt Salt) (Key, error) {
	if len(pass) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) != int(g.aesKeySize) {
		return nil, fmt.Errorf("%w: salt length %d does not match key size %d", ErrInvalidParams, len(salt), g.aesKeySize)
	}
	key, err := scrypt.Key(pass, salt, int(g.iterations), int(g.relativeBlockSize), int(g.cpuCost), int(g.aesKeySize))
	if err != nil {
		return nil, err
	}
	return key, nil
}

// ImageKey hashes the canonical pixel buffer of img into a key. No salt is
// involved: identical pixels always produce the identical key, and the image
// itself is the secret its holder must safeguard.
func (g *KeyGenerator) ImageKey(img image.Image) Key {
	sum := sha256.Sum256(pixelBytes(img))
	return Key(sum[:g.aesKeySize])
}

// pixelBytes flattens an image to its canonical buffer: 4-byte big-endian
// width, 4-byte big-endian height, then row-major R,G,B channel bytes.
func pixelBytes(img image.Image) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf := make([]byte, 0, 8+3*w*h)
	buf = binary.BigEndian.AppendUint32(buf, uint32(w))
	buf = binary.BigEndian.AppendUint32(buf, uint32(h))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf = append(buf, c.R, c.G, c.B)
		}
	}
	return buf
}
