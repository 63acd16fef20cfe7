package detector

import (
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/zeebo/blake3"

	"github.com/panbanda/cpd/pkg/corpus"
	"github.com/panbanda/cpd/pkg/stats"
)

// maxHotspots caps the number of files listed as hotspots.
const maxHotspots = 10

// occKey identifies an occurrence node: a token run of a given length.
type occKey struct {
	start  int
	length int
}

// Aggregate merges pairwise matches into clones and computes run statistics.
// Matches that share an occurrence of the same length join one clone, so a
// block repeated in three places yields a single clone with three
// occurrences.
func Aggregate(c *corpus.Corpus, matches []Match) *CloneMap {
	groups := groupMatches(matches)

	clones := make([]Clone, 0, len(groups))
	for _, g := range groups {
		if cl, ok := buildClone(c, g); ok {
			clones = append(clones, cl)
		}
	}
	clones = dropSubsumed(clones)
	clones = mergeSameSpans(clones)

	slices.SortFunc(clones, func(x, y Clone) int {
		if d := compareOccurrence(x.Occurrences[0], y.Occurrences[0]); d != 0 {
			return d
		}
		return cmp.Compare(y.Tokens, x.Tokens)
	})
	for i := range clones {
		clones[i].ID = i + 1
	}

	m := &CloneMap{
		Clones:       clones,
		FilesScanned: len(c.Files),
		TotalLines:   c.TotalLines(),
	}
	summarize(m)
	return m
}

// groupMatches unions occurrence nodes with a union-find and returns the
// members of every component, each sorted by start position.
func groupMatches(matches []Match) [][]occKey {
	ids := make(map[occKey]int)
	var keys []occKey
	node := func(k occKey) int {
		if id, ok := ids[k]; ok {
			return id
		}
		ids[k] = len(keys)
		keys = append(keys, k)
		return ids[k]
	}

	parent := make([]int, 0, 2*len(matches))
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(x, y int) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for _, m := range matches {
		a := node(occKey{m.A, m.Length})
		b := node(occKey{m.B, m.Length})
		for len(parent) < len(keys) {
			parent = append(parent, len(parent))
		}
		union(a, b)
	}

	byRoot := make(map[int][]occKey)
	var roots []int
	for i, k := range keys {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], k)
	}

	groups := make([][]occKey, 0, len(roots))
	for _, r := range roots {
		g := byRoot[r]
		slices.SortFunc(g, func(x, y occKey) int { return cmp.Compare(x.start, y.start) })
		groups = append(groups, g)
	}
	return groups
}

// buildClone resolves a component to a clone. Occurrences that cover the
// same lines of the same file collapse to the one with the lowest start.
func buildClone(c *corpus.Corpus, group []occKey) (Clone, bool) {
	seen := make(map[lineSpan]bool)

	length := group[0].length
	var occs []Occurrence
	for _, k := range group {
		f := c.File(k.start)
		o := Occurrence{
			FileID:     f.ID,
			File:       f.Name,
			StartLine:  c.Line(k.start),
			EndLine:    c.Line(k.start + length - 1),
			StartToken: k.start,
		}
		o.Lines = o.EndLine - o.StartLine + 1
		span := spanOf(o)
		if seen[span] {
			continue
		}
		seen[span] = true
		occs = append(occs, o)
	}
	if len(occs) < 2 {
		return Clone{}, false
	}

	slices.SortFunc(occs, compareOccurrence)
	lines := occs[0].Lines
	for _, o := range occs[1:] {
		lines = min(lines, o.Lines)
	}

	return Clone{
		Fingerprint: fingerprint(c, occs[0].StartToken, length),
		Lines:       lines,
		Tokens:      length,
		Occurrences: occs,
	}, true
}

func compareOccurrence(x, y Occurrence) int {
	if d := cmp.Compare(x.FileID, y.FileID); d != 0 {
		return d
	}
	if d := cmp.Compare(x.StartLine, y.StartLine); d != 0 {
		return d
	}
	return cmp.Compare(x.StartToken, y.StartToken)
}

// fingerprint digests the token hashes of a run. Equal runs always share a
// fingerprint, whatever their location.
func fingerprint(c *corpus.Corpus, start, length int) string {
	h := blake3.New()
	var buf [8]byte
	for _, tok := range c.Tokens[start : start+length] {
		binary.LittleEndian.PutUint64(buf[:], tok.Hash)
		_, _ = h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// dropSubsumed removes clones whose every occurrence lies inside a distinct
// occurrence of a longer clone.
func dropSubsumed(clones []Clone) []Clone {
	if len(clones) < 2 {
		return clones
	}

	type cover struct {
		start, end int // token range [start, end)
		clone      int
	}
	byFile := make(map[int][]cover)
	for ci, cl := range clones {
		for _, o := range cl.Occurrences {
			byFile[o.FileID] = append(byFile[o.FileID], cover{o.StartToken, o.StartToken + cl.Tokens, ci})
		}
	}

	contains := func(cv cover, o Occurrence, length int) bool {
		return cv.start <= o.StartToken && o.StartToken+length <= cv.end
	}

	// within reports whether every occurrence of x sits in a different
	// occurrence of y.
	within := func(x, y Clone) bool {
		used := make([]bool, len(y.Occurrences))
		for _, o := range x.Occurrences {
			found := false
			for yi, yo := range y.Occurrences {
				if used[yi] || yo.FileID != o.FileID {
					continue
				}
				if contains(cover{start: yo.StartToken, end: yo.StartToken + y.Tokens}, o, x.Tokens) {
					used[yi] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	kept := make([]Clone, 0, len(clones))
	for ci, cl := range clones {
		first := cl.Occurrences[0]
		subsumed := false
		for _, cv := range byFile[first.FileID] {
			if cv.clone == ci || clones[cv.clone].Tokens <= cl.Tokens || !contains(cv, first, cl.Tokens) {
				continue
			}
			if within(cl, clones[cv.clone]) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, cl)
		}
	}
	return kept
}

// lineSpan is the line range an occurrence covers in one file.
type lineSpan struct{ file, start, end int }

func spanOf(o Occurrence) lineSpan {
	return lineSpan{o.FileID, o.StartLine, o.EndLine}
}

// mergeSameSpans folds a clone into another one that already reports all of
// its line spans. The clone with more occurrences wins; between equal
// multiplicities the longer token run does. Runs that differ only by a few
// tokens of context on shared lines thus report as one clone.
func mergeSameSpans(clones []Clone) []Clone {
	if len(clones) < 2 {
		return clones
	}

	owners := make(map[lineSpan][]int)
	spans := make([]map[lineSpan]bool, len(clones))
	for ci, cl := range clones {
		spans[ci] = make(map[lineSpan]bool, len(cl.Occurrences))
		for _, o := range cl.Occurrences {
			sp := spanOf(o)
			spans[ci][sp] = true
			owners[sp] = append(owners[sp], ci)
		}
	}

	// absorbs reports whether clone y takes the place of clone x.
	absorbs := func(y, x int) bool {
		cy, cx := clones[y], clones[x]
		switch {
		case cy.Multiplicity() != cx.Multiplicity():
			if cy.Multiplicity() < cx.Multiplicity() {
				return false
			}
		case cy.Tokens != cx.Tokens:
			if cy.Tokens < cx.Tokens {
				return false
			}
		case y > x:
			return false
		}
		for sp := range spans[x] {
			if !spans[y][sp] {
				return false
			}
		}
		return true
	}

	dropped := make([]bool, len(clones))
	for ci, cl := range clones {
		for _, other := range owners[spanOf(cl.Occurrences[0])] {
			if other != ci && !dropped[other] && absorbs(other, ci) {
				dropped[ci] = true
				break
			}
		}
	}

	kept := clones[:0]
	for ci, cl := range clones {
		if !dropped[ci] {
			kept = append(kept, cl)
		}
	}
	return kept
}

// summarize fills the run-level statistics. A line covered by several
// clones is counted once.
func summarize(m *CloneMap) {
	lines := make(map[int]*roaring.Bitmap)
	names := make(map[int]string)
	clonesPerFile := make(map[int]int)
	sizes := make([]float64, 0, len(m.Clones))

	for _, cl := range m.Clones {
		sizes = append(sizes, float64(cl.Lines))
		counted := make(map[int]bool)
		for _, o := range cl.Occurrences {
			bm, ok := lines[o.FileID]
			if !ok {
				bm = roaring.New()
				lines[o.FileID] = bm
				names[o.FileID] = o.File
			}
			bm.AddRange(uint64(o.StartLine), uint64(o.EndLine)+1)
			if !counted[o.FileID] {
				counted[o.FileID] = true
				clonesPerFile[o.FileID]++
			}
		}
	}

	m.FilesWithClones = len(lines)
	m.Sizes = stats.Summarize(sizes)

	hotspots := make([]Hotspot, 0, len(lines))
	for id, bm := range lines {
		n := int(bm.GetCardinality())
		m.DuplicatedLines += n
		hotspots = append(hotspots, Hotspot{File: names[id], DuplicatedLines: n, Clones: clonesPerFile[id]})
	}
	slices.SortFunc(hotspots, func(x, y Hotspot) int {
		if d := cmp.Compare(y.DuplicatedLines, x.DuplicatedLines); d != 0 {
			return d
		}
		return cmp.Compare(x.File, y.File)
	})
	if len(hotspots) > maxHotspots {
		hotspots = hotspots[:maxHotspots]
	}
	if len(hotspots) > 0 {
		m.Hotspots = hotspots
	}

	if m.TotalLines > 0 {
		m.Percentage = min(float64(m.DuplicatedLines)/float64(m.TotalLines)*100, 100)
	}
}
