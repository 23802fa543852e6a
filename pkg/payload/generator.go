package payload

import "math/rand"

const lowercase = "abcdefghijklmnopqrstuvwxyz"

// DefaultSizes are the payload lengths of one default batch, in order.
var DefaultSizes = []int{100, 1000, 500, 5000, 10, 750, 10, 2000, 500}

// RandomString returns n bytes drawn uniformly from a-z.
func RandomString(rng *rand.Rand, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = lowercase[rng.Intn(len(lowercase))]
	}
	return b
}

// DefaultBatch builds one payload per entry of DefaultSizes.
// A nil rng uses a freshly seeded source.
func DefaultBatch(rng *rand.Rand) [][]byte {
	if rng == nil {
		rng = NewRand()
	}
	batch := make([][]byte, 0, len(DefaultSizes))
	for _, size := range DefaultSizes {
		batch = append(batch, RandomString(rng, size))
	}
	return batch
}

// BatchBytes is the sum of payload lengths.
func BatchBytes(batch [][]byte) int {
	total := 0
	for _, p := range batch {
		total += len(p)
	}
	return total
}
