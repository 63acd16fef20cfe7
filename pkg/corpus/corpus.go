// Package corpus concatenates per-file token sequences into one global stream
// in which clone positions are plain integer offsets.
package corpus

import (
	"github.com/panbanda/cpd/pkg/token"
)

// File describes one input file's slice of the corpus. Tokens occupy
// [Start, End); the sentinel sits at End.
type File struct {
	ID    int
	Name  string
	Start int
	End   int
	Lines int
}

// Corpus is the read-only global token stream. Every file is followed by a
// sentinel token whose hash is the file's ordinal, so no window spans files.
type Corpus struct {
	Tokens []token.Token
	Files  []File

	// fileAt maps a token position to its index in Files.
	fileAt []int32
}

// Builder accumulates files in caller order.
type Builder struct {
	tokens []token.Token
	files  []File
	fileAt []int32
}

// NewBuilder creates a builder. sizeHint is the expected total token count.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{
		tokens: make([]token.Token, 0, sizeHint),
		fileAt: make([]int32, 0, sizeHint),
	}
}

// Add appends one file's tokens followed by its sentinel.
func (b *Builder) Add(id int, name string, lines int, toks []token.Token) {
	ordinal := len(b.files)
	start := len(b.tokens)

	b.tokens = append(b.tokens, toks...)
	end := len(b.tokens)
	b.tokens = append(b.tokens, token.Token{
		FileID: id,
		Line:   lines + 1,
		Kind:   token.Sentinel,
		Hash:   uint64(ordinal),
	})
	for range end - start + 1 {
		b.fileAt = append(b.fileAt, int32(ordinal))
	}

	b.files = append(b.files, File{
		ID:    id,
		Name:  name,
		Start: start,
		End:   end,
		Lines: lines,
	})
}

// Build returns the corpus. The builder must not be used afterwards.
func (b *Builder) Build() *Corpus {
	c := &Corpus{Tokens: b.tokens, Files: b.files, fileAt: b.fileAt}
	b.tokens, b.files, b.fileAt = nil, nil, nil
	return c
}

// Len returns the number of positions, sentinels included.
func (c *Corpus) Len() int {
	return len(c.Tokens)
}

// Equal reports whether positions i and j hold matching tokens.
func (c *Corpus) Equal(i, j int) bool {
	return c.Tokens[i].Equal(c.Tokens[j])
}

// File returns the file containing position i.
func (c *Corpus) File(i int) *File {
	return &c.Files[c.fileAt[i]]
}

// Line returns the source line of position i.
func (c *Corpus) Line(i int) int {
	return c.Tokens[i].Line
}

// Pos resolves position i to its file and source line.
func (c *Corpus) Pos(i int) (*File, int) {
	return c.File(i), c.Tokens[i].Line
}

// TotalLines sums the line counts of all files.
func (c *Corpus) TotalLines() int {
	n := 0
	for _, f := range c.Files {
		n += f.Lines
	}
	return n
}
