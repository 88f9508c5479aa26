package radix

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomInput(rng *rand.Rand, n int, keyFn func() uint64) ([]uint64, []uint32) {
	keys := make([]uint64, n)
	vals := make([]uint32, n)
	for i := range keys {
		keys[i] = keyFn()
		vals[i] = uint32(i)
	}
	return keys, vals
}

func checkSorted(t *testing.T, orig, keys []uint64, vals []uint32) {
	t.Helper()
	require.Len(t, keys, len(orig))
	seen := make([]bool, len(orig))
	for i := range keys {
		if i > 0 {
			require.LessOrEqual(t, keys[i-1], keys[i], "keys out of order at %d", i)
		}
		v := vals[i]
		require.Less(t, int(v), len(orig))
		require.False(t, seen[v], "value %d emitted twice", v)
		seen[v] = true
		require.Equal(t, orig[v], keys[i], "value %d lost its key", v)
	}
}

func TestSortRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var s Sorter
	for _, n := range []int{2, 3, 63, 64, 65, 1000, 50000} {
		keys, vals := randomInput(rng, n, rng.Uint64)
		orig := append([]uint64(nil), keys...)
		s.Sort(keys, vals)
		checkSorted(t, orig, keys, vals)
	}
}

func TestSortMatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	// Few distinct keys spread over both halves forces many duplicates.
	keyFn := func() uint64 {
		return uint64(rng.Intn(8))<<32 | uint64(rng.Intn(4))<<8
	}
	for _, n := range []int{40, 5000} {
		keys, vals := randomInput(rng, n, keyFn)

		type pair struct {
			k uint64
			v uint32
		}
		want := make([]pair, n)
		for i := range keys {
			want[i] = pair{keys[i], vals[i]}
		}
		sort.SliceStable(want, func(i, j int) bool { return want[i].k < want[j].k })

		Sort(keys, vals)
		for i := range want {
			require.Equal(t, want[i].k, keys[i], "n=%d i=%d", n, i)
			require.Equal(t, want[i].v, vals[i], "n=%d i=%d: equal keys must keep input order", n, i)
		}
	}
}

func TestSortOddPassCount(t *testing.T) {
	// Only the lowest byte varies, so exactly one scatter pass runs and the
	// result has to be copied back out of scratch.
	rng := rand.New(rand.NewSource(9))
	keys, vals := randomInput(rng, 500, func() uint64 {
		return 0xABCD_0000_0000_0000 | uint64(rng.Intn(256))
	})
	orig := append([]uint64(nil), keys...)
	Sort(keys, vals)
	checkSorted(t, orig, keys, vals)
}

func TestSortTrivialInputs(t *testing.T) {
	var s Sorter
	s.Sort(nil, nil)

	keys := []uint64{7}
	vals := []uint32{3}
	s.Sort(keys, vals)
	assert.Equal(t, []uint64{7}, keys)
	assert.Equal(t, []uint32{3}, vals)

	// All-equal keys skip every pass and leave values untouched.
	keys = make([]uint64, 200)
	vals = make([]uint32, 200)
	for i := range vals {
		keys[i] = 0x1234
		vals[i] = uint32(i)
	}
	s.Sort(keys, vals)
	for i := range vals {
		assert.Equal(t, uint32(i), vals[i])
	}
	assert.Zero(t, s.Cap(), "no scratch needed when every pass is skipped")
}

func TestSortValsLongerThanKeys(t *testing.T) {
	keys := []uint64{3, 1, 2}
	vals := []uint32{0, 1, 2, 99}
	Sort(keys, vals)
	assert.Equal(t, []uint64{1, 2, 3}, keys)
	assert.Equal(t, []uint32{1, 2, 0, 99}, vals)
}

func TestSortPanicsOnShortVals(t *testing.T) {
	assert.Panics(t, func() {
		Sort([]uint64{1, 2}, []uint32{0})
	})
}

func TestScratchGrowsAndIsReused(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var s Sorter

	keys, vals := randomInput(rng, 100, rng.Uint64)
	s.Sort(keys, vals)
	assert.Equal(t, 100, s.Cap())

	keys, vals = randomInput(rng, 150, rng.Uint64)
	s.Sort(keys, vals)
	assert.Equal(t, 200, s.Cap(), "grows to double the old capacity")

	keys, vals = randomInput(rng, 500, rng.Uint64)
	s.Sort(keys, vals)
	assert.Equal(t, 500, s.Cap(), "grows to the required size when doubling is not enough")

	keys, vals = randomInput(rng, 80, rng.Uint64)
	s.Sort(keys, vals)
	assert.Equal(t, 500, s.Cap(), "never shrinks")
}
