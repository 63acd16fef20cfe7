// Package token converts source text into the normalized symbol stream used
// for clone detection.
package token

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// Kind classifies a token.
type Kind uint8

const (
	Other Kind = iota
	Identifier
	Keyword
	Variable
	Number
	String
	Operator
	Punctuation
	// Sentinel marks a file boundary in a corpus. It never equals any token.
	Sentinel
)

var kindNames = [...]string{
	Other:       "other",
	Identifier:  "identifier",
	Keyword:     "keyword",
	Variable:    "variable",
	Number:      "number",
	String:      "string",
	Operator:    "operator",
	Punctuation: "punctuation",
	Sentinel:    "sentinel",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token is one lexical unit of a file. Hash digests the kind together with
// the lexeme after the normalization policy has been applied.
type Token struct {
	FileID int
	Line   int
	Kind   Kind
	Hash   uint64
}

// Equal reports whether two tokens match for clone detection.
func (t Token) Equal(o Token) bool {
	if t.Kind == Sentinel || o.Kind == Sentinel {
		return false
	}
	return t.Kind == o.Kind && t.Hash == o.Hash
}

// Policy controls which lexeme categories are abstracted away before hashing.
type Policy struct {
	// NormalizeIdentifiers hashes identifiers and variables by kind only.
	NormalizeIdentifiers bool
	// NormalizeLiterals hashes numbers and strings by kind only.
	NormalizeLiterals bool
}

// DefaultPolicy compares exact lexemes.
func DefaultPolicy() Policy {
	return Policy{}
}

// Hash returns the digest of a lexeme of the given kind under p.
func (p Policy) Hash(kind Kind, lexeme string) uint64 {
	switch kind {
	case Identifier, Variable:
		if p.NormalizeIdentifiers {
			lexeme = ""
		}
	case Number, String:
		if p.NormalizeLiterals {
			lexeme = ""
		}
	}

	var d xxhash.Digest
	d.Reset()
	_, _ = d.Write([]byte{byte(kind)})
	_, _ = d.WriteString(lexeme)
	return d.Sum64()
}

// Tokenizer turns the contents of one file into tokens tagged with fileID.
// Implementations must be deterministic, total and safe for concurrent use.
type Tokenizer interface {
	Tokenize(fileID int, path string, src []byte) []Token
}

// CountLines returns the number of lines in src. A trailing line terminator
// does not start a new line; "\r\n" and a lone "\r" each end one line.
func CountLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte("\n"))
	for i, c := range src {
		if c == '\r' && (i+1 == len(src) || src[i+1] != '\n') {
			n++
		}
	}
	if last := src[len(src)-1]; last != '\n' && last != '\r' {
		n++
	}
	return n
}
