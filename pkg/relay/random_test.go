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

package relay_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clusterlink-net/arrowhead/pkg/relay"
)

func TestRandomMatchesReferenceSequence(t *testing.T) {
	random := relay.NewRandom(0)
	var values []int
	for i := 0; i < 5; i++ {
		values = append(values, random.NextInt(100))
	}
	require.Equal(t, []int{60, 48, 29, 47, 15}, values)

	random = relay.NewRandom(1)
	values = nil
	for i := 0; i < 5; i++ {
		values = append(values, random.NextInt(100))
	}
	require.Equal(t, []int{85, 88, 47, 13, 54}, values)

	require.Equal(t, 0, relay.NewRandom(42).NextInt(10))
	require.Equal(t, 2, relay.NewRandom(42).NextInt(3))
	require.Equal(t, 2, relay.NewRandom(-7).NextInt(5))
	require.Equal(t, 5, relay.NewRandom(1700000000000).NextInt(10))

	// power of two bounds
	require.Equal(t, 2, relay.NewRandom(1).NextInt(4))
	require.Equal(t, 1, relay.NewRandom(12345).NextInt(4))
	require.Equal(t, 1, relay.NewRandom(0).NextInt(2))
}

func TestRandomPanicsOnNonPositiveBound(t *testing.T) {
	require.Panics(t, func() { relay.NewRandom(1).NextInt(0) })
}

func TestSeedFor(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	require.Equal(t, relay.SeedFor(id, now), relay.SeedFor(id, now))
	require.NotEqual(t, relay.SeedFor(id, now), relay.SeedFor(uuid.New(), now))
}
