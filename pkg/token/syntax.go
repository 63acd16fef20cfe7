package token

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/cpd/pkg/parser"
)

// Syntax tokenizes files from the leaves of a tree-sitter parse tree. Files
// without a grammar, or that fail to parse, are handed to the lexer.
type Syntax struct {
	Policy   Policy
	fallback *Lexer
}

// NewSyntax creates a tree-sitter tokenizer with the given policy.
func NewSyntax(policy Policy) *Syntax {
	return &Syntax{Policy: policy, fallback: NewLexer(policy)}
}

// Tokenize implements Tokenizer. A parser is created per call since
// tree-sitter parsers cannot be shared across goroutines.
func (s *Syntax) Tokenize(fileID int, path string, src []byte) []Token {
	lang := parser.DetectLanguage(path)
	if !parser.HasGrammar(lang) {
		return s.fallback.TokenizeLanguage(fileID, lang, src)
	}

	psr := parser.New()
	defer psr.Close()

	result, err := psr.Parse(src, lang, path)
	if err != nil || result.Tree == nil {
		return s.fallback.TokenizeLanguage(fileID, lang, src)
	}
	defer result.Close()

	var tokens []Token
	parser.WalkLeaves(result.Tree.RootNode(), isAtomicNode, func(node *sitter.Node, nodeType string) {
		if strings.Contains(nodeType, "comment") || node.StartByte() == node.EndByte() {
			return
		}
		text := parser.GetNodeText(node, src)
		if strings.TrimSpace(text) == "" {
			return
		}
		kind := classifyLeaf(node, nodeType, text)
		tokens = append(tokens, Token{
			FileID: fileID,
			Line:   int(node.StartPoint().Row) + 1,
			Kind:   kind,
			Hash:   s.Policy.Hash(kind, text),
		})
	})
	return tokens
}

// isAtomicNode keeps string literals and sigil variables whole.
func isAtomicNode(nodeType string) bool {
	switch nodeType {
	case "char_literal", "character_literal", "rune_literal", "heredoc", "variable_name":
		return true
	}
	return strings.Contains(nodeType, "string") && !strings.Contains(nodeType, "content")
}

func classifyLeaf(node *sitter.Node, nodeType, text string) Kind {
	switch {
	case nodeType == "variable_name":
		return Variable
	case isAtomicNode(nodeType):
		return String
	case strings.Contains(nodeType, "identifier"), nodeType == "name", nodeType == "constant":
		return Identifier
	case isNumericNode(nodeType):
		return Number
	}

	r, _ := utf8.DecodeRuneInString(text)
	word := r == '_' || unicode.IsLetter(r)
	switch {
	case word:
		// Anonymous keywords, plus named leaves such as nil or primitive types.
		return Keyword
	case utf8.RuneCountInString(text) == 1 && isPunctuation(r):
		return Punctuation
	case !node.IsNamed():
		return Operator
	}
	return Other
}

func isNumericNode(nodeType string) bool {
	for _, part := range []string{"number", "integer", "float", "int_literal", "imaginary", "decimal"} {
		if strings.Contains(nodeType, part) {
			return true
		}
	}
	return false
}
