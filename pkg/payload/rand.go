package payload

import (
	"math/rand"
	"sync/atomic"
	"time"
)

var seedCounter atomic.Int64

// NewRand returns a source that differs between posters created in the same
// nanosecond.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano() + seedCounter.Add(1)))
}
