// Package radix sorts 64-bit keys with a parallel uint32 payload using a
// stable least-significant-digit radix sort (8 passes of 8 bits).
package radix

const (
	digitBits = 8
	buckets   = 1 << digitBits
	passes    = 64 / digitBits

	// Below this length insertion sort wins over eight counting passes.
	smallSort = 64
)

// Sorter keeps its scratch buffers between calls. Scratch grows to
// max(n, 2*cap) when too small and is never shrunk. A Sorter is not safe
// for concurrent use.
type Sorter struct {
	keys []uint64
	vals []uint32
}

// Cap reports how many elements can be sorted without reallocating scratch.
func (s *Sorter) Cap() int {
	return len(s.keys)
}

func (s *Sorter) grow(n int) {
	if n <= len(s.keys) {
		return
	}
	size := max(n, 2*len(s.keys))
	s.keys = make([]uint64, size)
	s.vals = make([]uint32, size)
}

// Sort orders keys ascending, moving vals[i] along with keys[i]. Equal keys
// keep their input order. It panics if vals is shorter than keys.
func (s *Sorter) Sort(keys []uint64, vals []uint32) {
	n := len(keys)
	if len(vals) < n {
		panic("radix: vals shorter than keys")
	}
	vals = vals[:n]
	if n <= 1 {
		return
	}
	if n <= smallSort {
		insertionSort(keys, vals)
		return
	}

	// One read of the input builds the histograms for every pass.
	var counts [passes][buckets]int
	for _, k := range keys {
		for p := 0; p < passes; p++ {
			counts[p][(k>>(p*digitBits))&(buckets-1)]++
		}
	}

	srcK, srcV := keys, vals
	var dstK []uint64
	var dstV []uint32

	for p := 0; p < passes; p++ {
		c := &counts[p]
		shift := uint(p * digitBits)

		// Every key shares this digit; the pass would be the identity.
		if c[(srcK[0]>>shift)&(buckets-1)] == n {
			continue
		}

		if dstK == nil {
			s.grow(n)
			dstK, dstV = s.keys[:n], s.vals[:n]
		}

		total := 0
		for i := range c {
			count := c[i]
			c[i] = total
			total += count
		}

		for i, k := range srcK {
			b := (k >> shift) & (buckets - 1)
			dstK[c[b]] = k
			dstV[c[b]] = srcV[i]
			c[b]++
		}

		srcK, dstK = dstK, srcK
		srcV, dstV = dstV, srcV
	}

	// An odd number of scatter passes leaves the result in scratch.
	if &srcK[0] != &keys[0] {
		copy(keys, srcK)
		copy(vals, srcV)
	}
}

func insertionSort(keys []uint64, vals []uint32) {
	for i := 1; i < len(keys); i++ {
		k, v := keys[i], vals[i]
		j := i - 1
		for j >= 0 && keys[j] > k {
			keys[j+1] = keys[j]
			vals[j+1] = vals[j]
			j--
		}
		keys[j+1] = k
		vals[j+1] = v
	}
}

// Sort is a one-shot convenience around a fresh Sorter.
func Sort(keys []uint64, vals []uint32) {
	var s Sorter
	s.Sort(keys, vals)
}
