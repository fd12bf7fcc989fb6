package pixcode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

var (
	ErrInvalidCharacter = errors.New("character outside the cipher alphabet")
	ErrMalformedImage   = errors.New("malformed cipher image")
	ErrUnknownPixel     = errors.New("pixel color has no substitution table entry")
)

// Encode maps text onto a 9-pixel-wide image, one pixel per character.
// Every character must be an ASCII letter, and text must not be empty.
func Encode(text string) (*image.NRGBA, error) {
	points, err := textPoints(text)
	if err != nil {
		return nil, err
	}
	return renderPoints(points, func(_, point int) [3]uint8 {
		if point == 0 {
			return pad
		}
		return encodeTable[point]
	}), nil
}

// Decode recovers the message encoded in img.
// The image must be exactly Width pixels wide, and every non-pad pixel must be
// a substitution table entry. Pad pixels may only trail the message.
func Decode(img image.Image) (string, error) {
	tuples, err := imageTuples(img)
	if err != nil {
		return "", err
	}
	return decodeTuples(tuples, func(i int, t [3]uint8) (int, error) {
		point, ok := decodeTable[t]
		if !ok {
			return 0, fmt.Errorf("%w: #%02x%02x%02x at (%d,%d)", ErrUnknownPixel, t[0], t[1], t[2], i%Width, i/Width)
		}
		return point, nil
	})
}

func textPoints(text string) ([]int, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidCharacter)
	}
	points := make([]int, 0, len(text))
	for i, r := range text {
		p := pointOf(r)
		if p == 0 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, r, i)
		}
		points = append(points, p)
	}
	return points, nil
}

// renderPoints lays code points out row-major on a Width-wide image, asking
// colorAt for each pixel. Indexes past the message are passed as point 0.
func renderPoints(points []int, colorAt func(i, point int) [3]uint8) *image.NRGBA {
	height := (len(points) + Width - 1) / Width
	img := image.NewNRGBA(image.Rect(0, 0, Width, height))
	for i := 0; i < Width*height; i++ {
		point := 0
		if i < len(points) {
			point = points[i]
		}
		t := colorAt(i, point)
		img.SetNRGBA(i%Width, i/Width, color.NRGBA{R: t[0], G: t[1], B: t[2], A: 0xff})
	}
	return img
}

// imageTuples validates the image geometry and flattens it to row-major
// (R,G,B) tuples.
func imageTuples(img image.Image) ([][3]uint8, error) {
	bounds := img.Bounds()
	if bounds.Dx() != Width {
		return nil, fmt.Errorf("%w: width must be %d pixels, got %d", ErrMalformedImage, Width, bounds.Dx())
	}
	if bounds.Dy() < 1 {
		return nil, fmt.Errorf("%w: image has no rows", ErrMalformedImage)
	}
	tuples := make([][3]uint8, 0, Width*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			tuples = append(tuples, [3]uint8{c.R, c.G, c.B})
		}
	}
	return tuples, nil
}

func decodeTuples(tuples [][3]uint8, lookup func(i int, t [3]uint8) (int, error)) (string, error) {
	var sb strings.Builder
	for i, t := range tuples {
		if t == pad {
			for j := i; j < len(tuples); j++ {
				if tuples[j] != pad {
					return "", fmt.Errorf("%w: pad pixel at (%d,%d) precedes message pixels", ErrMalformedImage, i%Width, i/Width)
				}
			}
			break
		}
		point, err := lookup(i, t)
		if err != nil {
			return "", err
		}
		sb.WriteRune(runeOf(point))
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: image holds no characters", ErrMalformedImage)
	}
	return sb.String(), nil
}
