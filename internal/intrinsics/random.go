package intrinsics

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mathrand "math/rand"
	"sync"
)

var (
	randOnce sync.Once
	randSrc  *mathrand.Rand
	randMu   sync.Mutex
)

// mathRandomSource backs Math.random(): a process-wide PRNG seeded from
// crypto/rand once, then reused (plain math/rand is not reseeded per call,
// matching how a real JS engine's Math.random draws from one generator for
// the life of the isolate).
func mathRandomSource() float64 {
	randOnce.Do(func() {
		var seed [8]byte
		if _, err := rand.Read(seed[:]); err != nil {
			randSrc = mathrand.New(mathrand.NewSource(1))
			return
		}
		randSrc = mathrand.New(mathrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
	})
	randMu.Lock()
	defer randMu.Unlock()
	f := randSrc.Float64()
	if f >= 1 {
		return math.Nextafter(1, 0)
	}
	return f
}
