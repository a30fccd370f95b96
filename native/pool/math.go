package pool

import "math/big"

// Unit is the fixed-point scale used for prices and rescale ratios.
var Unit = big.NewInt(1_000_000_000_000_000_000)

// quoteOut returns the constant-product output for amountIn, truncating.
func quoteOut(reserveIn, reserveOut, amountIn *big.Int) *big.Int {
	if amountIn.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(reserveIn, reserveOut)
	nextIn := new(big.Int).Add(reserveIn, amountIn)
	nextOut := new(big.Int).Quo(product, nextIn)
	return nextOut.Sub(reserveOut, nextOut)
}

// spot returns Unit*numerator/denominator.
func spot(numerator, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(numerator, Unit)
	return out.Quo(out, denominator)
}

// rescaled returns (r + r*ratio/Unit)/2.
func rescaled(reserve, ratio *big.Int) *big.Int {
	scaled := new(big.Int).Mul(reserve, ratio)
	scaled.Quo(scaled, Unit)
	scaled.Add(scaled, reserve)
	return scaled.Rsh(scaled, 1)
}
