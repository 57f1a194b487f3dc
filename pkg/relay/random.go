// Copyright (c) The ClusterLink Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relay

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

const (
	lcgMultiplier = 0x5DEECE66D
	lcgAddend     = 0xB
	lcgMask       = (1 << 48) - 1
)

// Random is a reproducible pseudo-random generator.
// It is a 48-bit linear congruential generator producing the same sequence as java.util.Random,
// so that NewRandom(s).NextInt(n) selects the same index as the reference implementation.
// Random is not safe for concurrent use.
type Random struct {
	seed int64
}

// NewRandom returns a generator initialized with the given seed.
func NewRandom(seed int64) *Random {
	return &Random{seed: (seed ^ lcgMultiplier) & lcgMask}
}

func (r *Random) next(bits uint) int32 {
	r.seed = (r.seed*lcgMultiplier + lcgAddend) & lcgMask
	return int32(uint64(r.seed) >> (48 - bits))
}

// NextInt returns a uniformly distributed value in [0, bound).
// It panics if bound is not positive.
func (r *Random) NextInt(bound int) int {
	if bound <= 0 {
		panic("relay: bound must be positive")
	}

	n := int32(bound)
	value := r.next(31)
	m := n - 1

	// power of two
	if n&m == 0 {
		return int(int32((int64(n) * int64(value)) >> 31))
	}

	// reject values from the incomplete last range, detected by int32 overflow
	for u := value; ; u = r.next(31) {
		value = u % n
		if u-value+m >= 0 {
			return int(value)
		}
	}
}

// SeedFor derives a matchmaking seed from a request identifier and the request time.
// Distinct requests get uncorrelated seeds while a single request remains reproducible.
func SeedFor(requestID uuid.UUID, now time.Time) int64 {
	hi := int64(binary.BigEndian.Uint64(requestID[:8]))
	lo := int64(binary.BigEndian.Uint64(requestID[8:]))
	return hi ^ lo ^ now.UnixMilli()
}
