package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/cpd/pkg/token"
)

func tokenize(t *testing.T, id int, src string) []token.Token {
	t.Helper()
	return token.NewLexer(token.DefaultPolicy()).Tokenize(id, "f.go", []byte(src))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(16)
	b.Add(0, "a.go", 2, tokenize(t, 0, "a b\nc"))
	b.Add(1, "b.go", 1, tokenize(t, 1, "a b"))
	c := b.Build()

	require.Equal(t, 7, c.Len())
	require.Len(t, c.Files, 2)

	assert.Equal(t, File{ID: 0, Name: "a.go", Start: 0, End: 3, Lines: 2}, c.Files[0])
	assert.Equal(t, File{ID: 1, Name: "b.go", Start: 4, End: 6, Lines: 1}, c.Files[1])

	assert.Equal(t, token.Sentinel, c.Tokens[3].Kind)
	assert.Equal(t, token.Sentinel, c.Tokens[6].Kind)
	assert.Equal(t, "a.go", c.File(3).Name)
	assert.Equal(t, "b.go", c.File(4).Name)

	f, line := c.Pos(2)
	assert.Equal(t, "a.go", f.Name)
	assert.Equal(t, 2, line)
	assert.Equal(t, 3, c.TotalLines())
}

func TestEqual(t *testing.T) {
	b := NewBuilder(0)
	b.Add(0, "a.go", 1, tokenize(t, 0, "x y"))
	b.Add(1, "b.go", 1, tokenize(t, 1, "x y"))
	b.Add(2, "c.go", 0, nil)
	c := b.Build()

	assert.True(t, c.Equal(0, 3))
	assert.True(t, c.Equal(1, 4))
	assert.False(t, c.Equal(0, 1))

	// sentinels never match, not even each other or themselves
	assert.False(t, c.Equal(2, 5))
	assert.False(t, c.Equal(2, 2))
	assert.False(t, c.Equal(5, 6))
}

func TestEmptyFile(t *testing.T) {
	b := NewBuilder(0)
	b.Add(7, "empty.go", 0, nil)
	c := b.Build()

	require.Equal(t, 1, c.Len())
	assert.Equal(t, File{ID: 7, Name: "empty.go", Start: 0, End: 0, Lines: 0}, c.Files[0])
	assert.Equal(t, 0, c.TotalLines())
}
