package pixcode

const (
	// Width is the fixed pixel width of every cipher image.
	Width = 9

	alphabetSize = 52
)

// pad is the reserved color for slack pixels after the last character.
// No substitution table entry collides with it.
var pad = [3]uint8{0, 0, 0}

// pointOf returns the 1-based code point for r, or 0 when r is outside the
// alphabet. Lowercase letters take 1-26, uppercase 27-52.
func pointOf(r rune) int {
	switch {
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 1
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 27
	default:
		return 0
	}
}

func runeOf(point int) rune {
	if point <= 26 {
		return rune('a' + point - 1)
	}
	return rune('A' + point - 27)
}

// tupleOf generates the pixel color for a code point n as
// ((40+7n) mod 256, 255-4n, 37n mod 256). The red channel is injective over
// 1..52 and never lands on the pad color, so the table inverts cleanly.
func tupleOf(point int) [3]uint8 {
	return [3]uint8{
		uint8(40 + 7*point),
		uint8(255 - 4*point),
		uint8(37 * point),
	}
}

var (
	encodeTable [alphabetSize + 1][3]uint8
	decodeTable = make(map[[3]uint8]int, alphabetSize)
)

func init() {
	for n := 1; n <= alphabetSize; n++ {
		t := tupleOf(n)
		encodeTable[n] = t
		decodeTable[t] = n
	}
}
