package mp

import (
	"fmt"
	"math/big"
)

// BitsRadix is the documented MP_BITS_RADIX: the base used to pack a
// bits value as digits into a row of machine words (spec.md §4.6:
// "Bits packing").
const BitsRadix = 1 << 16

// ErrBitsOverflow is raised when a packed value does not fit the
// mode's declared bit width (spec.md §7 "Out of bounds").
type ErrBitsOverflow struct{ Width int }

func (e *ErrBitsOverflow) Error() string {
	return fmt.Sprintf("bits value does not fit declared width %d", e.Width)
}

// PackBits packs v (an unsigned big.Int) into words of BitsRadix
// digits sized to exactly cover width bits, erroring if v does not
// fit.
func PackBits(v *big.Int, width int) ([]uint32, error) {
	if v.Sign() < 0 {
		return nil, fmt.Errorf("bits value must be non-negative")
	}
	maxVal := new(big.Int).Lsh(big.NewInt(1), uint(width))
	if v.Cmp(maxVal) >= 0 {
		return nil, &ErrBitsOverflow{Width: width}
	}
	words := BitsWords(width)
	out := make([]uint32, words)
	tmp := new(big.Int).Set(v)
	radix := big.NewInt(BitsRadix)
	for i := 0; i < words; i++ {
		mod := new(big.Int)
		tmp.DivMod(tmp, radix, mod)
		out[i] = uint32(mod.Int64())
	}
	return out, nil
}

// UnpackBits is PackBits's inverse: reassemble a big.Int from packed
// radix-BitsRadix words.
func UnpackBits(words []uint32) *big.Int {
	v := new(big.Int)
	radix := big.NewInt(BitsRadix)
	for i := len(words) - 1; i >= 0; i-- {
		v.Mul(v, radix)
		v.Add(v, big.NewInt(int64(words[i])))
	}
	return v
}

// BitsWidth and BitsWords mirror algol68g's MP_BITS_WIDTH/MP_BITS_WORDS
// macros (original_source/source/genie.h): the number of machine words
// needed to hold width bits at BitsRadix digits each.
func BitsWords(width int) int {
	bitsPerWord := 16
	return (width + bitsPerWord - 1) / bitsPerWord
}

func BitsWidth(words int) int { return words * 16 }
