package detector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/cpd/pkg/config"
	"github.com/panbanda/cpd/pkg/corpus"
	"github.com/panbanda/cpd/pkg/source"
	"github.com/panbanda/cpd/pkg/testutil"
	"github.com/panbanda/cpd/pkg/token"
)

func detect(t *testing.T, files map[string]string, order []string, opts ...Option) *Result {
	t.Helper()
	res, err := New(opts...).Detect(context.Background(), order, source.NewMemory(files))
	require.NoError(t, err)
	return res
}

func TestDetect_TenLineFunctionBody(t *testing.T) {
	block := testutil.CodeBlock("dup", 10)
	files := map[string]string{
		"a.go": testutil.Surround("alpha", block),
		"b.go": testutil.Surround("beta", block),
	}
	order := []string{"a.go", "b.go"}

	res := detect(t, files, order, WithMinLines(5), WithMinTokens(70))
	require.Equal(t, 1, res.Len())

	clone := res.Clones[0]
	assert.Equal(t, 1, clone.ID)
	assert.Equal(t, 10, clone.Lines)
	assert.Equal(t, 80, clone.Tokens)
	assert.Equal(t, 2, clone.Multiplicity())
	assert.Equal(t, 20, clone.DuplicatedLines())
	assert.Len(t, clone.Fingerprint, 16)
	assert.Equal(t, []Occurrence{
		{FileID: 0, File: "a.go", StartLine: 2, EndLine: 11, Lines: 10, StartToken: 1},
		{FileID: 1, File: "b.go", StartLine: 2, EndLine: 11, Lines: 10, StartToken: 84},
	}, clone.Occurrences)

	res = detect(t, files, order, WithMinLines(5), WithMinTokens(90))
	assert.True(t, res.Empty())
}

func TestDetect_ThresholdBoundary(t *testing.T) {
	block := testutil.CodeBlock("edge", 5) // 5 lines, 40 tokens
	files := map[string]string{
		"a.php": testutil.Surround("one", block),
		"b.php": testutil.Surround("two", block),
	}
	order := []string{"a.php", "b.php"}

	t.Run("exactly at both thresholds", func(t *testing.T) {
		res := detect(t, files, order, WithThresholds(Thresholds{MinLines: 5, MinTokens: 40}))
		require.Equal(t, 1, res.Len())
		assert.Equal(t, 5, res.Clones[0].Lines)
		assert.Equal(t, 40, res.Clones[0].Tokens)
	})

	t.Run("one line short", func(t *testing.T) {
		res := detect(t, files, order, WithThresholds(Thresholds{MinLines: 6, MinTokens: 40}))
		assert.True(t, res.Empty())
	})

	t.Run("one token short", func(t *testing.T) {
		res := detect(t, files, order, WithThresholds(Thresholds{MinLines: 5, MinTokens: 41}))
		assert.True(t, res.Empty())
	})
}

func TestDetect_Maximality(t *testing.T) {
	block := testutil.CodeBlock("long", 30)
	files := map[string]string{
		"a.rs": testutil.Surround("a", block),
		"b.rs": testutil.Surround("b", block),
	}
	order := []string{"a.rs", "b.rs"}

	for _, minTokens := range []int{10, 40, 70, 200} {
		res := detect(t, files, order, WithThresholds(Thresholds{MinLines: 2, MinTokens: minTokens}))
		require.Equal(t, 1, res.Len(), "minTokens=%d", minTokens)
		assert.Equal(t, 240, res.Clones[0].Tokens, "minTokens=%d", minTokens)
		assert.Equal(t, 30, res.Clones[0].Lines, "minTokens=%d", minTokens)
	}
}

func TestDetect_MultiplicityMerge(t *testing.T) {
	block := testutil.CodeBlock("shared", 12)
	files := map[string]string{
		"a.js": testutil.Surround("a", block),
		"b.js": testutil.Surround("b", block),
		"c.js": testutil.Surround("c", block),
	}

	res := detect(t, files, []string{"a.js", "b.js", "c.js"})
	require.Equal(t, 1, res.Len())
	clone := res.Clones[0]
	assert.Equal(t, 3, clone.Multiplicity())
	assert.Equal(t, []string{"a.js", "b.js", "c.js"}, occurrenceFiles(clone))
	assert.Equal(t, 36, clone.DuplicatedLines())
}

func TestDetect_Symmetry(t *testing.T) {
	first := testutil.CodeBlock("first", 10)
	second := testutil.CodeBlock("second", 9)
	files := map[string]string{
		"a.py": testutil.Surround("a", first) + testutil.Surround("a2", second),
		"b.py": testutil.Surround("b", second),
		"c.py": testutil.Surround("c", first),
	}

	forward := detect(t, files, []string{"a.py", "b.py", "c.py"})
	backward := detect(t, files, []string{"c.py", "b.py", "a.py"})

	require.Equal(t, 2, forward.Len())
	require.Equal(t, forward.Len(), backward.Len())

	summarizeClones := func(m *CloneMap) map[string][]string {
		out := make(map[string][]string)
		for _, c := range m.Clones {
			files := occurrenceFiles(c)
			out[c.Fingerprint] = files
		}
		return out
	}
	fw, bw := summarizeClones(forward.CloneMap), summarizeClones(backward.CloneMap)
	for fp, files := range fw {
		require.Contains(t, bw, fp)
		assert.ElementsMatch(t, files, bw[fp])
	}

	// occurrences follow input order in each run
	for _, c := range backward.Clones {
		for i := 1; i < len(c.Occurrences); i++ {
			assert.Less(t, c.Occurrences[i-1].FileID, c.Occurrences[i].FileID)
		}
	}
}

func TestDetect_NoCrossFileBleed(t *testing.T) {
	block := testutil.CodeBlock("seam", 10)
	lines := strings.SplitAfter(block, "\n")
	head := strings.Join(lines[:5], "")
	tail := strings.Join(lines[5:], "")

	files := map[string]string{
		"a.c": "a_head\n" + head,
		"b.c": tail + "b_tail\n",
		"c.c": testutil.Surround("c", block),
	}
	order := []string{"a.c", "b.c", "c.c"}

	res := detect(t, files, order, WithThresholds(Thresholds{MinLines: 5, MinTokens: 70}))
	assert.True(t, res.Empty(), "a clone crossed a file boundary: %+v", res.Clones)

	// each half still matches on its own
	res = detect(t, files, order, WithThresholds(Thresholds{MinLines: 5, MinTokens: 40}))
	require.Equal(t, 2, res.Len())
	for _, c := range res.Clones {
		assert.Equal(t, 40, c.Tokens)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	files := map[string]string{
		"a.go": testutil.Surround("a", testutil.CodeBlock("x", 10)+testutil.CodeBlock("y", 8)),
		"b.go": testutil.Surround("b", testutil.CodeBlock("y", 8)),
		"c.go": testutil.Surround("c", testutil.CodeBlock("x", 10)),
	}
	order := []string{"a.go", "b.go", "c.go"}

	first := detect(t, files, order, WithWorkers(4))
	second := detect(t, files, order, WithWorkers(1))
	assert.Equal(t, first.CloneMap, second.CloneMap)
}

func TestDetect_SameFile(t *testing.T) {
	block := testutil.CodeBlock("twice", 10)
	files := map[string]string{
		"a.go": testutil.Surround("one", block) + testutil.Surround("two", block),
	}

	res := detect(t, files, []string{"a.go"})
	require.Equal(t, 1, res.Len())
	occs := res.Clones[0].Occurrences
	require.Len(t, occs, 2)
	assert.Equal(t, 2, occs[0].StartLine)
	assert.Equal(t, 14, occs[1].StartLine)
}

func TestDetect_SelfOverlapDiscarded(t *testing.T) {
	// A run that only repeats by overlapping itself is not a clone.
	files := map[string]string{
		"a.go": strings.Repeat("x = 1 ;\n", 10),
	}

	res := detect(t, files, []string{"a.go"}, WithThresholds(Thresholds{MinLines: 5, MinTokens: 24}))
	assert.True(t, res.Empty(), "%+v", res.Clones)
}

func TestDetect_BackToBackCopies(t *testing.T) {
	block := testutil.CodeBlock("rep", 10)
	files := map[string]string{
		"a.go": "head\n" + block + block + block + "tail\n",
	}

	res := detect(t, files, []string{"a.go"})
	require.Equal(t, 1, res.Len(), "%+v", res.Clones)
	clone := res.Clones[0]
	assert.Equal(t, 80, clone.Tokens)
	require.Len(t, clone.Occurrences, 3)
	for i, want := range []int{2, 12, 22} {
		assert.Equal(t, want, clone.Occurrences[i].StartLine)
		assert.Equal(t, want+9, clone.Occurrences[i].EndLine)
	}
	assert.Equal(t, 30, res.DuplicatedLines)
	assert.Equal(t, 32, res.TotalLines)
}

func TestDetect_SharedContextMergesIntoOneClone(t *testing.T) {
	// a.go and b.go also share the leading "x = 1" so their pair runs three
	// tokens longer than the run common to all three files, on the same lines
	block := testutil.CodeBlock("ctx", 12)
	files := map[string]string{
		"a.go": "x = 1 ;\n" + block,
		"b.go": "x = 1 ;\n" + block,
		"c.go": "y = 2 ;\n" + block,
	}

	res := detect(t, files, []string{"a.go", "b.go", "c.go"})
	require.Equal(t, 1, res.Len(), "%+v", res.Clones)
	clone := res.Clones[0]
	assert.Equal(t, 97, clone.Tokens)
	assert.Equal(t, 13, clone.Lines)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, occurrenceFiles(clone))
	for _, o := range clone.Occurrences {
		assert.Equal(t, 1, o.StartLine)
		assert.Equal(t, 13, o.EndLine)
	}
	assert.Equal(t, 39, res.DuplicatedLines)
}

func TestDetect_NormalizationPolicy(t *testing.T) {
	files := map[string]string{
		"a.go": testutil.Surround("a", testutil.CodeBlock("price", 10)),
		"b.go": testutil.Surround("b", testutil.CodeBlock("cost", 10)),
	}
	order := []string{"a.go", "b.go"}

	res := detect(t, files, order)
	assert.True(t, res.Empty(), "exact lexemes are compared by default")

	loose := token.NewLexer(token.Policy{NormalizeIdentifiers: true})
	res = detect(t, files, order, WithTokenizer(loose))
	require.Equal(t, 1, res.Len())
	assert.GreaterOrEqual(t, res.Clones[0].Tokens, 80)
}

func TestDetect_Statistics(t *testing.T) {
	block := testutil.CodeBlock("stat", 10)
	files := map[string]string{
		"a.go": testutil.Surround("a", block),
		"b.go": testutil.Surround("b", block),
		"c.go": testutil.CodeBlock("other", 6),
	}

	res := detect(t, files, []string{"a.go", "b.go", "c.go"})
	assert.Equal(t, 3, res.FilesScanned)
	assert.Equal(t, 2, res.FilesWithClones)
	assert.Equal(t, 30, res.TotalLines)
	assert.Equal(t, 20, res.DuplicatedLines)
	assert.InDelta(t, 66.666, res.Percentage, 0.01)
	assert.Equal(t, 10.0, res.Sizes.Mean)
	require.Len(t, res.Hotspots, 2)
	assert.Equal(t, Hotspot{File: "a.go", DuplicatedLines: 10, Clones: 1}, res.Hotspots[0])
	assert.Equal(t, "window", res.Strategy)
	assert.Equal(t, DefaultThresholds(), res.Thresholds)
}

func TestDetect_SkippedFiles(t *testing.T) {
	block := testutil.CodeBlock("ok", 10)
	files := map[string]string{
		"a.go":      testutil.Surround("a", block),
		"b.go":      testutil.Surround("b", block),
		"bin.go":    "abc\x00def",
		"latin1.go": "caf\xe9",
		"big.go":    testutil.Surround("big", testutil.CodeBlock("huge", 200)),
	}
	order := []string{"a.go", "bin.go", "missing.go", "latin1.go", "big.go", "b.go"}

	res := detect(t, files, order, WithMaxFileSize(1024))
	require.Equal(t, 1, res.Len())
	assert.Equal(t, 2, res.FilesScanned)

	require.Len(t, res.Skipped, 4)
	want := map[string]error{
		"bin.go":    ErrBinary,
		"latin1.go": ErrEncoding,
		"big.go":    ErrTooLarge,
	}
	for _, s := range res.Skipped {
		var fe *FileError
		require.ErrorAs(t, s.Err, &fe)
		assert.Equal(t, s.Path, fe.Path)
		if cause, ok := want[s.Path]; ok {
			assert.ErrorIs(t, s.Err, cause, s.Path)
		} else {
			assert.Equal(t, "missing.go", s.Path)
		}
		assert.NotEmpty(t, s.Reason)
	}

	// file ids stay tied to input positions even when files are skipped
	assert.Equal(t, 5, res.Clones[0].Occurrences[1].FileID)
}

func TestDetect_ByteOrderMark(t *testing.T) {
	block := testutil.CodeBlock("bom", 10)
	files := map[string]string{
		"a.go": "\xEF\xBB\xBF" + block,
		"b.go": block,
	}

	res := detect(t, files, []string{"a.go", "b.go"})
	require.Equal(t, 1, res.Len())
	assert.Equal(t, 1, res.Clones[0].Occurrences[0].StartLine)
}

func TestDetect_Errors(t *testing.T) {
	ctx := context.Background()
	src := source.NewMemory(nil)

	_, err := New().Detect(ctx, nil, src)
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = New(WithMinLines(0)).Detect(ctx, []string{"a.go"}, src)
	var te *ThresholdError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "min-lines", te.Name)
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = New(WithMinTokens(-3)).Detect(ctx, []string{"a.go"}, src)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, -3, te.Value)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = New().Detect(cancelled, []string{"a.go"}, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect_WithConfig(t *testing.T) {
	block := testutil.CodeBlock("cfg", 6)
	files := map[string]string{
		"a.py": testutil.Surround("a", block),
		"b.py": testutil.Surround("b", block),
	}

	cfg := config.DefaultConfig().Detection
	cfg.MinLines = 6
	cfg.MinTokens = 48
	cfg.Tokenizer = config.TokenizerSyntax

	d := New(WithConfig(cfg))
	assert.Equal(t, Thresholds{MinLines: 6, MinTokens: 48}, d.Thresholds())

	res, err := d.Detect(context.Background(), []string{"a.py", "b.py"}, source.NewMemory(files))
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Equal(t, 6, res.Clones[0].Lines)
	assert.Equal(t, 48, res.Clones[0].Tokens)
}

func TestDetect_Progress(t *testing.T) {
	files := map[string]string{"a.go": "a", "b.go": "b"}
	calls := make(chan struct{}, 2)

	detect(t, files, []string{"a.go", "b.go"}, WithProgress(func() { calls <- struct{}{} }))
	assert.Len(t, calls, 2)
}

type fixedStrategy struct{ m *CloneMap }

func (s fixedStrategy) Name() string { return "fixed" }

func (s fixedStrategy) Detect(context.Context, *corpus.Corpus, Thresholds) (*CloneMap, error) {
	return s.m, nil
}

func TestDetect_CustomStrategy(t *testing.T) {
	want := &CloneMap{FilesScanned: 42}
	res := detect(t, map[string]string{"a.go": "x"}, []string{"a.go"}, WithStrategy(fixedStrategy{want}))

	assert.Equal(t, "fixed", res.Strategy)
	assert.Same(t, want, res.CloneMap)
}

func TestThresholdError(t *testing.T) {
	err := error(&ThresholdError{Name: "min-tokens", Value: 0})
	assert.Equal(t, "min-tokens must be positive, got 0", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidThreshold))
	assert.NoError(t, DefaultThresholds().Validate())
}

func occurrenceFiles(c Clone) []string {
	files := make([]string, len(c.Occurrences))
	for i, o := range c.Occurrences {
		files[i] = o.File
	}
	return files
}
