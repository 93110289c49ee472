package calculator

import (
	"errors"
	"math/big"
)

// ErrOverflow is returned when a result would not fit in 256 unsigned bits.
var ErrOverflow = errors.New("arithmetic overflow")

// ErrDivisionByZero is returned by MulDiv and Div for a zero divisor.
var ErrDivisionByZero = errors.New("division by zero")

// MaxUint256 is the largest representable amount or value.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// maxPow10 is the largest exponent e with 10^e <= MaxUint256.
const maxPow10 = 77

func inRange(x *big.Int) bool {
	return x.Sign() >= 0 && x.Cmp(MaxUint256) <= 0
}

// Pow10 returns 10^exp.
func Pow10(exp uint) (*big.Int, error) {
	if exp > maxPow10 {
		return nil, ErrOverflow
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil), nil
}

// CheckedAdd returns a+b, failing if either operand or the sum leaves the uint256 range.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if !inRange(a) || !inRange(b) {
		return nil, ErrOverflow
	}
	sum := new(big.Int).Add(a, b)
	if !inRange(sum) {
		return nil, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b, failing on underflow.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if !inRange(a) || !inRange(b) {
		return nil, ErrOverflow
	}
	if a.Cmp(b) < 0 {
		return nil, ErrOverflow
	}
	return new(big.Int).Sub(a, b), nil
}

// CheckedMul returns a*b, failing if the product leaves the uint256 range.
func CheckedMul(a, b *big.Int) (*big.Int, error) {
	if !inRange(a) || !inRange(b) {
		return nil, ErrOverflow
	}
	p := new(big.Int).Mul(a, b)
	if !inRange(p) {
		return nil, ErrOverflow
	}
	return p, nil
}

// Div returns the truncated quotient a/d.
func Div(a, d *big.Int) (*big.Int, error) {
	if d.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	if !inRange(a) || !inRange(d) {
		return nil, ErrOverflow
	}
	return new(big.Int).Quo(a, d), nil
}

// MulDiv computes x*y/d with the product bounded to uint256. Multiplication
// happens first so no precision is lost before the single truncating division.
func MulDiv(x, y, d *big.Int) (*big.Int, error) {
	p, err := CheckedMul(x, y)
	if err != nil {
		return nil, err
	}
	return Div(p, d)
}

// Rescale converts amount (assetDecimals) priced at price (feedDecimals) into a
// value carrying commonDecimals:
//
//	value = amount * price / 10^(assetDecimals + feedDecimals - commonDecimals)
//
// A negative exponent scales up instead of down.
func Rescale(amount, price *big.Int, assetDecimals, feedDecimals, commonDecimals uint8) (*big.Int, error) {
	exp := int(assetDecimals) + int(feedDecimals) - int(commonDecimals)
	if exp >= 0 {
		scale, err := Pow10(uint(exp))
		if err != nil {
			return nil, err
		}
		return MulDiv(amount, price, scale)
	}
	scale, err := Pow10(uint(-exp))
	if err != nil {
		return nil, err
	}
	p, err := CheckedMul(amount, price)
	if err != nil {
		return nil, err
	}
	return CheckedMul(p, scale)
}
