package detector

import (
	"context"
	"slices"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/cpd/pkg/corpus"
)

// Match is a maximal pair of equal token runs [A, A+Length) and
// [B, B+Length) with A < B.
type Match struct {
	A      int
	B      int
	Length int
	LinesA int
	LinesB int
}

// cancelCheckInterval is how many positions a worker scans between context
// checks.
const cancelCheckInterval = 4096

// FindMatches returns every maximal pairwise match that satisfies th, sorted
// by (A, B). Pairs are sharded across workers by their distance, so each
// worker owns the dedup state for its distances.
func FindMatches(ctx context.Context, c *corpus.Corpus, th Thresholds, workers int) ([]Match, error) {
	idx := buildIndex(c, th.MinTokens)
	if len(idx.buckets) == 0 {
		return nil, nil
	}
	workers = max(workers, 1)

	p := pool.NewWithResults[[]Match]().WithContext(ctx).WithMaxGoroutines(workers)
	for shard := range workers {
		p.Go(func(ctx context.Context) ([]Match, error) {
			return extendShard(ctx, c, idx, th, shard, workers)
		})
	}
	shards, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, s := range shards {
		matches = append(matches, s...)
	}
	slices.SortFunc(matches, func(x, y Match) int {
		if x.A != y.A {
			return x.A - y.A
		}
		return x.B - y.B
	})
	return matches, nil
}

// extendShard handles the pairs whose distance is congruent to shard modulo
// workers. Positions are visited in ascending order, so a seed inside a run
// already extended for the same distance is skipped without re-extension.
func extendShard(ctx context.Context, c *corpus.Corpus, idx *windowIndex, th Thresholds, shard, workers int) ([]Match, error) {
	var out []Match
	coveredUntil := make(map[int]int)

	for a := range c.Len() {
		if a%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, b := range idx.later(a) {
			delta := b - a
			if delta%workers != shard || a < coveredUntil[delta] {
				continue
			}
			if !windowEqual(c, a, b, th.MinTokens) {
				continue
			}

			start, length := extend(c, a, b)
			coveredUntil[delta] = start + length

			m, ok := qualify(c, start, start+delta, length, th)
			if ok {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// windowEqual resolves hash collisions by comparing tokens.
func windowEqual(c *corpus.Corpus, a, b, size int) bool {
	for k := range size {
		if !c.Equal(a+k, b+k) {
			return false
		}
	}
	return true
}

// extend grows a seed pair backward then forward while tokens match.
// Sentinels never match, so extension stops at file boundaries.
func extend(c *corpus.Corpus, a, b int) (start, length int) {
	back := 0
	for a-back > 0 && c.Equal(a-back-1, b-back-1) {
		back++
	}
	fwd := 0
	for b+fwd < c.Len() && c.Equal(a+fwd, b+fwd) {
		fwd++
	}
	return a - back, back + fwd
}

// qualify applies the self-overlap and line thresholds to an extended match.
// A match that overlaps itself is a run repeated back to back; it is cut to
// its first period when that period reaches minTokens, and dropped otherwise.
func qualify(c *corpus.Corpus, a, b, length int, th Thresholds) (Match, bool) {
	if c.File(a) == c.File(b) && a+length > b {
		if b-a < th.MinTokens {
			return Match{}, false
		}
		length = b - a
	}
	m := Match{
		A:      a,
		B:      b,
		Length: length,
		LinesA: c.Line(a+length-1) - c.Line(a) + 1,
		LinesB: c.Line(b+length-1) - c.Line(b) + 1,
	}
	if min(m.LinesA, m.LinesB) < th.MinLines {
		return Match{}, false
	}
	return m, true
}
