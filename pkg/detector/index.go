package detector

import (
	"github.com/panbanda/cpd/pkg/corpus"
	"github.com/panbanda/cpd/pkg/token"
)

// rollBase is the multiplier of the polynomial window hash (mod 2^64).
const rollBase uint64 = 1099511628211

// windowIndex maps the hash of every window of size tokens to the ascending
// positions where such a window starts. Windows that would include a
// sentinel are not indexed and buckets with a single position are dropped.
type windowIndex struct {
	size    int
	hashes  []uint64
	rank    []int32 // position within its bucket, -1 when not indexed
	buckets map[uint64][]int
}

func buildIndex(c *corpus.Corpus, size int) *windowIndex {
	n := c.Len()
	idx := &windowIndex{
		size:    size,
		hashes:  make([]uint64, n),
		rank:    make([]int32, n),
		buckets: make(map[uint64][]int),
	}
	for i := range idx.rank {
		idx.rank[i] = -1
	}
	if size <= 0 || n < size {
		return idx
	}

	pow := uint64(1)
	for i := 1; i < size; i++ {
		pow *= rollBase
	}

	var h uint64
	run := 0
	for i, tok := range c.Tokens {
		if tok.Kind == token.Sentinel {
			h, run = 0, 0
			continue
		}
		if run == size {
			h -= c.Tokens[i-size].Hash * pow
			run--
		}
		h = h*rollBase + tok.Hash
		run++
		if run == size {
			start := i - size + 1
			idx.hashes[start] = h
			idx.buckets[h] = append(idx.buckets[h], start)
		}
	}

	for h, positions := range idx.buckets {
		if len(positions) < 2 {
			delete(idx.buckets, h)
			continue
		}
		for r, p := range positions {
			idx.rank[p] = int32(r)
		}
	}
	return idx
}

// later returns the indexed positions after p that share its window hash.
func (idx *windowIndex) later(p int) []int {
	r := idx.rank[p]
	if r < 0 {
		return nil
	}
	return idx.buckets[idx.hashes[p]][r+1:]
}
