package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

// NewNumericCode draws a uniformly random integer in [lo, hi] from crypto/rand
// and returns its decimal form.
func NewNumericCode(lo, hi int64) (string, error) {
	if lo < 0 || hi < lo {
		return "", errors.New("invalid code range")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(lo+n.Int64(), 10), nil
}

// CodeRange returns the inclusive bounds for a code of the given digit count
// that never starts with zero.
func CodeRange(digits int) (int64, int64, error) {
	if digits < 4 || digits > 10 {
		return 0, 0, errors.New("invalid code digits")
	}
	lo := int64(1)
	for i := 1; i < digits; i++ {
		lo *= 10
	}
	return lo, lo*10 - 1, nil
}
