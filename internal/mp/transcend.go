package mp

import "math/big"

// Sqrt is spec.md's sqrt: Newton iteration x <- (x+a/x)/2, doubling
// working precision from double accuracy up to full precision (each
// Newton step roughly doubles correct digits, so starting from a
// double-precision seed and doubling the working precision each step
// avoids wasted high-precision divisions early on). The argument is
// not rescaled first: the seed is the square root of a's float64
// value.
func Sqrt(a *Number) *Number {
	if a.Sign() <= 0 {
		zero := NewFromInt64(0, a.Prec)
		if a.Sign() == 0 {
			return zero
		}
		return zero // NaN-on-negative checked_ops handled by caller (out-of-bounds)
	}
	bits := a.Prec.workingBits()
	seed, _ := a.val.Float64()
	x := new(big.Float).SetPrec(64).SetFloat64(sqrtFloat64(seed))
	target := bits
	for p := uint(64); p < target; p *= 2 {
		cur := p * 2
		if cur > target {
			cur = target
		}
		av := new(big.Float).SetPrec(cur).Set(a.val)
		xv := new(big.Float).SetPrec(cur).Set(x)
		aOverX := new(big.Float).SetPrec(cur).Quo(av, xv)
		sum := new(big.Float).SetPrec(cur).Add(xv, aOverX)
		half := new(big.Float).SetPrec(cur).SetFloat64(0.5)
		x = new(big.Float).SetPrec(cur).Mul(sum, half)
	}
	return &Number{Prec: a.Prec, val: round(x, a.Prec)}
}

func sqrtFloat64(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z = 0.5 * (z + x/z)
	}
	return z
}

// Curt is spec.md's curt (cube root): Newton x <- (2x + a/x^2)/3.
func Curt(a *Number) *Number {
	bits := a.Prec.workingBits()
	seed, _ := a.val.Float64()
	x0 := cbrtFloat64(seed)
	x := new(big.Float).SetPrec(64).SetFloat64(x0)
	target := bits
	for p := uint(64); p < target; p *= 2 {
		cur := p * 2
		if cur > target {
			cur = target
		}
		av := new(big.Float).SetPrec(cur).Set(a.val)
		xv := new(big.Float).SetPrec(cur).Set(x)
		x2 := new(big.Float).SetPrec(cur).Mul(xv, xv)
		aOverX2 := new(big.Float).SetPrec(cur).Quo(av, x2)
		twoX := new(big.Float).SetPrec(cur).Mul(xv, big.NewFloat(2))
		sum := new(big.Float).SetPrec(cur).Add(twoX, aOverX2)
		third := new(big.Float).SetPrec(cur).Quo(sum, big.NewFloat(3))
		x = third
	}
	return &Number{Prec: a.Prec, val: round(x, a.Prec)}
}

func cbrtFloat64(x float64) float64 {
	if x == 0 {
		return 0
	}
	neg := x < 0
	if neg {
		x = -x
	}
	z := x
	if z == 0 {
		z = 1
	}
	for i := 0; i < 60; i++ {
		z = (2*z + x/(z*z)) / 3
	}
	if neg {
		z = -z
	}
	return z
}

// Exp is spec.md's exp(x): reduce by repeated halving until |x|<=1e-2,
// Taylor-sum 1+x+x^2/2!+... until the next term is <= ulp of the
// running sum, then square back.
func Exp(x *Number) *Number {
	bits := x.Prec.workingBits()
	v := new(big.Float).SetPrec(bits).Set(x.val)

	threshold := new(big.Float).SetPrec(bits).SetFloat64(1e-2)
	absV := new(big.Float).SetPrec(bits).Abs(v)
	halvings := 0
	for absV.Cmp(threshold) > 0 {
		v.Quo(v, big.NewFloat(2))
		absV.Quo(absV, big.NewFloat(2))
		halvings++
	}

	sum := new(big.Float).SetPrec(bits).SetInt64(1)
	term := new(big.Float).SetPrec(bits).SetInt64(1)
	for k := int64(1); k < 10000; k++ {
		term.Mul(term, v)
		term.Quo(term, new(big.Float).SetPrec(bits).SetInt64(k))
		next := new(big.Float).SetPrec(bits).Add(sum, term)
		if ulpNegligible(next, term, bits) {
			sum = next
			break
		}
		sum = next
	}
	for i := 0; i < halvings; i++ {
		sum.Mul(sum, sum)
	}
	return &Number{Prec: x.Prec, val: round(sum, x.Prec)}
}

// ulpNegligible reports whether term is too small relative to sum to
// still move the running total at the working precision.
func ulpNegligible(sum, term *big.Float, bits uint) bool {
	if term.Sign() == 0 {
		return true
	}
	ratio := new(big.Float).SetPrec(bits).Quo(new(big.Float).SetPrec(bits).Abs(term), new(big.Float).SetPrec(bits).Abs(sum))
	limit := new(big.Float).SetPrec(bits).SetMantExp(big.NewFloat(1), -int(bits)+8)
	return ratio.Cmp(limit) < 0
}

// mpLnScale is the monotonically-grown cache spec.md
// names ("a cached mp_ln_scale"): ln(Radix) at the widest precision
// computed so far, reused (and extended) by Ln.
var (
	mpLnScaleBits uint
	mpLnScale     *big.Float
)

func lnRadixAt(bits uint) *big.Float {
	if mpLnScale != nil && mpLnScaleBits >= bits {
		v := new(big.Float).SetPrec(bits).Set(mpLnScale)
		return v
	}
	// ln(Radix) via the series for ln(1+u) with u = Radix/e^k - 1 is
	// overkill; instead compute via the Ln series directly on Radix
	// using repeated sqrt reduction, same technique as lnSeries below.
	radixNum := &Number{Prec: Precision{Digits: int(bits/24) + 2, Guard: 2}, val: new(big.Float).SetPrec(bits).SetInt64(Radix)}
	v := lnSeries(radixNum, bits)
	mpLnScale = v
	mpLnScaleBits = bits
	return new(big.Float).SetPrec(bits).Set(v)
}

// Ln is spec.md's ln(x): decompose x into a radix-digit mantissa in
// [1,Radix) times Radix^exponent, take ln of the mantissa by repeated-
// sqrt reduction plus the (v-1) series, then add
// exponent*ln(RADIX) using the cached mp_ln_scale value (growing the
// cache's own precision on demand) — this is cheaper than reducing an
// arbitrarily large-magnitude x directly, and is the documented
// "exponent scaling adds expo * ln(RADIX) from a cached mp_ln_scale".
func Ln(x *Number) (*Number, error) {
	if x.Sign() <= 0 {
		return nil, ErrDivideByZero{}
	}
	bits := x.Prec.workingBits()
	_, exponent, _ := x.Digits()

	radixPow := new(big.Float).SetPrec(bits).SetInt64(1)
	radixF := new(big.Float).SetPrec(bits).SetInt64(Radix)
	for i := 0; i < abs(exponent); i++ {
		radixPow.Mul(radixPow, radixF)
	}
	mantVal := new(big.Float).SetPrec(bits)
	if exponent >= 0 {
		mantVal.Quo(x.val, radixPow)
	} else {
		mantVal.Mul(x.val, radixPow)
	}
	mant := &Number{Prec: x.Prec, val: mantVal}
	lnMant := lnSeries(mant, bits)

	lnRadix := lnRadixAt(bits)
	scaled := new(big.Float).SetPrec(bits).Mul(lnRadix, new(big.Float).SetPrec(bits).SetInt64(int64(exponent)))
	result := new(big.Float).SetPrec(bits).Add(lnMant, scaled)
	return &Number{Prec: x.Prec, val: round(result, x.Prec)}, nil
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// lnSeries reduces x into [0.5,2) by repeated sqrt (tracking how many
// square roots were taken so the result can be scaled back by
// doubling), then sums the (v-1) series, which converges quickly once
// v is that close to 1.
func lnSeries(x *Number, bits uint) *big.Float {
	v := new(big.Float).SetPrec(bits).Set(x.val)
	reductions := 0
	one := big.NewFloat(1)
	two := big.NewFloat(2)
	half := big.NewFloat(0.5)
	for v.Cmp(two) >= 0 || v.Cmp(half) < 0 {
		xv := &Number{Prec: Precision{Digits: x.Prec.Digits, Guard: x.Prec.Guard}, val: v}
		v = Sqrt(xv).val
		reductions++
		if reductions > 200 {
			break
		}
	}
	u := new(big.Float).SetPrec(bits).Sub(v, one)
	sum := new(big.Float).SetPrec(bits)
	term := new(big.Float).SetPrec(bits).Set(u)
	sign := 1.0
	for k := int64(1); k < 20000; k++ {
		contribution := new(big.Float).SetPrec(bits).Quo(term, new(big.Float).SetPrec(bits).SetInt64(k))
		if sign < 0 {
			sum.Sub(sum, contribution)
		} else {
			sum.Add(sum, contribution)
		}
		if ulpNegligible(sum, contribution, bits) && k > 1 {
			break
		}
		term.Mul(term, u)
		sign = -sign
	}
	// ln(x) = 2^reductions * ln(v), since v = x^(1/2^reductions).
	scale := new(big.Float).SetPrec(bits).SetInt64(1)
	for i := 0; i < reductions; i++ {
		scale.Mul(scale, two)
	}
	result := new(big.Float).SetPrec(bits).Mul(sum, scale)
	return result
}
