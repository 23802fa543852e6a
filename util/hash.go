package util

import (
	"crypto/md5"
	"math/big"
)

// MaxHashKey is 2^128-1, the top of the partition key hash space.
var MaxHashKey = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// HashKey maps a partition key to its 128-bit hash key, the MD5 digest
// read as an unsigned big-endian integer.
func HashKey(key string) *big.Int {
	sum := md5.Sum([]byte(key))
	return new(big.Int).SetBytes(sum[:])
}

// SplitHashKeys divides [0, MaxHashKey] into n contiguous ranges and
// returns their inclusive bounds. The last range absorbs the remainder.
func SplitHashKeys(n int) (starts, ends []*big.Int) {
	if n < 1 {
		return nil, nil
	}
	step := new(big.Int).Div(MaxHashKey, big.NewInt(int64(n)))
	for i := 0; i < n; i++ {
		start := new(big.Int).Mul(step, big.NewInt(int64(i)))
		end := new(big.Int).Sub(new(big.Int).Add(start, step), big.NewInt(1))
		if i == n-1 {
			end = new(big.Int).Set(MaxHashKey)
		}
		starts = append(starts, start)
		ends = append(ends, end)
	}
	return starts, ends
}
