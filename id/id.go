// Package id mints the ULIDs used for challenges, trades and audit events,
// so rows sort by creation time in every store.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ULIDs from one monotonic entropy source. Ids stamped
// with the same millisecond still increase.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator returns a generator seeded with seed. Tests pass a fixed
// seed to get reproducible ids.
func NewGenerator(seed int64) *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		// entropy overflow within one millisecond, or t before 1970
		panic(err)
	}
	return v.String()
}

var std = NewGenerator(randomSeed())

func randomSeed() int64 {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}

func New() string { return std.At(time.Now().UTC()) }

func NewAt(t time.Time) string { return std.At(t) }

// Time returns the creation time encoded in an id.
func Time(s string) (time.Time, error) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ulid.Time(v.Time()).UTC(), nil
}
