package token

import (
	"unicode"

	"github.com/panbanda/cpd/pkg/parser"
)

// Lexer is a language-aware hand scanner. The comment syntax, keyword table
// and variable sigils are chosen from the file extension.
type Lexer struct {
	Policy Policy
}

// NewLexer creates a lexer with the given normalization policy.
func NewLexer(policy Policy) *Lexer {
	return &Lexer{Policy: policy}
}

// Tokenize implements Tokenizer.
func (l *Lexer) Tokenize(fileID int, path string, src []byte) []Token {
	return l.TokenizeLanguage(fileID, parser.DetectLanguage(path), src)
}

// TokenizeLanguage scans src using the rules for lang.
func (l *Lexer) TokenizeLanguage(fileID int, lang parser.Language, src []byte) []Token {
	s := &scanner{
		src:    []rune(string(src)),
		line:   1,
		rules:  rulesFor(lang),
		fileID: fileID,
		policy: l.Policy,
	}
	s.run()
	return s.tokens
}

// rules describes the lexical conventions of a language family.
type rules struct {
	lineComments []string
	blockOpen    string
	blockClose   string
	nestedBlocks bool
	dollarVars   bool
	tripleQuotes bool
	lifetimes    bool
	keywords     map[string]struct{}
}

var (
	cFamily = rules{
		lineComments: []string{"//"},
		blockOpen:    "/*",
		blockClose:   "*/",
	}
	hashFamily = rules{
		lineComments: []string{"#"},
	}
	dashFamily = rules{
		lineComments: []string{"--"},
		blockOpen:    "/*",
		blockClose:   "*/",
	}
)

var languageRules = func() map[parser.Language]*rules {
	m := make(map[parser.Language]*rules)
	with := func(base rules, lang parser.Language, words []string, edit func(*rules)) {
		r := base
		r.keywords = keywordSet(words)
		if edit != nil {
			edit(&r)
		}
		m[lang] = &r
	}

	with(cFamily, parser.LangGo, goKeywords, nil)
	with(cFamily, parser.LangRust, rustKeywords, func(r *rules) {
		r.nestedBlocks = true
		r.lifetimes = true
	})
	with(cFamily, parser.LangJava, javaKeywords, nil)
	with(cFamily, parser.LangC, cKeywords, nil)
	with(cFamily, parser.LangCPP, cKeywords, nil)
	with(cFamily, parser.LangCSharp, javaKeywords, nil)
	with(cFamily, parser.LangJavaScript, jsKeywords, nil)
	with(cFamily, parser.LangTypeScript, jsKeywords, nil)
	with(cFamily, parser.LangTSX, jsKeywords, nil)
	with(cFamily, parser.LangKotlin, javaKeywords, func(r *rules) { r.nestedBlocks = true })
	with(cFamily, parser.LangScala, javaKeywords, func(r *rules) { r.nestedBlocks = true })
	with(cFamily, parser.LangSwift, javaKeywords, func(r *rules) { r.nestedBlocks = true })
	with(cFamily, parser.LangPHP, phpKeywords, func(r *rules) {
		r.lineComments = []string{"//", "#"}
		r.dollarVars = true
	})
	with(hashFamily, parser.LangPython, pythonKeywords, func(r *rules) { r.tripleQuotes = true })
	with(hashFamily, parser.LangRuby, rubyKeywords, nil)
	with(hashFamily, parser.LangBash, shellKeywords, func(r *rules) { r.dollarVars = true })
	with(dashFamily, parser.LangSQL, sqlKeywords, nil)
	with(dashFamily, parser.LangLua, luaKeywords, func(r *rules) {
		r.blockOpen = "--[["
		r.blockClose = "]]"
	})
	with(cFamily, parser.LangUnknown, commonKeywords, func(r *rules) {
		r.lineComments = []string{"//", "#"}
	})
	return m
}()

func rulesFor(lang parser.Language) *rules {
	if r, ok := languageRules[lang]; ok {
		return r
	}
	return languageRules[parser.LangUnknown]
}

// threeCharOps and twoCharOps are matched longest first.
var threeCharOps = map[string]struct{}{
	"<<=": {}, ">>=": {}, "...": {}, "===": {}, "!==": {}, "**=": {},
	"//=": {}, "??=": {}, "<=>": {}, "&&=": {}, "||=": {}, "..=": {},
}

var twoCharOps = map[string]struct{}{
	"==": {}, "!=": {}, "<=": {}, ">=": {}, "&&": {}, "||": {}, "<<": {}, ">>": {},
	"+=": {}, "-=": {}, "*=": {}, "/=": {}, "%=": {}, "&=": {}, "|=": {}, "^=": {},
	"++": {}, "--": {}, "->": {}, "=>": {}, "::": {}, "..": {}, "??": {}, ":=": {},
	"**": {}, "//": {}, "?.": {}, "|>": {}, "<-": {}, "&^": {}, "!!": {},
}

func isPunctuation(c rune) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', ',', ';', '.', ':':
		return true
	}
	return false
}

func isOperatorChar(c rune) bool {
	switch c {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '&', '|', '^', '~', '?', '@', '#', '\\', '$':
		return true
	}
	return false
}

type scanner struct {
	src    []rune
	pos    int
	line   int
	rules  *rules
	fileID int
	policy Policy
	tokens []Token
}

func (s *scanner) peek(off int) rune {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

func (s *scanner) hasPrefix(p string) bool {
	if p == "" {
		return false
	}
	for k := 0; k < len(p); k++ {
		if s.peek(k) != rune(p[k]) {
			return false
		}
	}
	return true
}

// next consumes one rune. "\r\n" counts as a single line break.
func (s *scanner) next() rune {
	c := s.src[s.pos]
	s.pos++
	switch c {
	case '\n':
		s.line++
	case '\r':
		if s.peek(0) != '\n' {
			s.line++
		}
	}
	return c
}

func (s *scanner) skip(n int) {
	for ; n > 0 && s.pos < len(s.src); n-- {
		s.next()
	}
}

func (s *scanner) emit(kind Kind, start, line int) {
	lexeme := string(s.src[start:s.pos])
	s.tokens = append(s.tokens, Token{
		FileID: s.fileID,
		Line:   line,
		Kind:   kind,
		Hash:   s.policy.Hash(kind, lexeme),
	})
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		start, line := s.pos, s.line

		switch {
		case unicode.IsSpace(c):
			s.next()
		case s.skipComment():
		case s.rules.tripleQuotes && (s.hasPrefix(`"""`) || s.hasPrefix(`'''`)):
			s.scanTripleQuoted()
			s.emit(String, start, line)
		case c == '\'' && s.rules.lifetimes && s.isLifetime():
			s.next()
			s.scanWord()
			s.emit(Identifier, start, line)
		case c == '"' || c == '\'' || c == '`':
			s.scanQuoted(c)
			s.emit(String, start, line)
		case c == '$' && s.rules.dollarVars && isIdentStart(s.peek(1)):
			s.next()
			s.scanWord()
			s.emit(Variable, start, line)
		case isDigit(c):
			s.scanNumber()
			s.emit(Number, start, line)
		case isIdentStart(c) || (c == '$' && !s.rules.dollarVars):
			s.scanWord()
			kind := Identifier
			if _, ok := s.rules.keywords[string(s.src[start:s.pos])]; ok {
				kind = Keyword
			}
			s.emit(kind, start, line)
		case s.scanOperator():
			s.emit(Operator, start, line)
		case isPunctuation(c):
			s.next()
			s.emit(Punctuation, start, line)
		case isOperatorChar(c):
			s.next()
			s.emit(Operator, start, line)
		default:
			s.next()
			s.emit(Other, start, line)
		}
	}
}

// skipComment consumes a comment at the current position, if any.
// Unterminated block comments run to the end of input.
func (s *scanner) skipComment() bool {
	r := s.rules
	if s.hasPrefix(r.blockOpen) {
		s.skip(len(r.blockOpen))
		depth := 1
		for s.pos < len(s.src) {
			switch {
			case s.hasPrefix(r.blockClose):
				s.skip(len(r.blockClose))
				depth--
				if depth == 0 || !r.nestedBlocks {
					return true
				}
			case r.nestedBlocks && s.hasPrefix(r.blockOpen):
				s.skip(len(r.blockOpen))
				depth++
			default:
				s.next()
			}
		}
		return true
	}

	for _, prefix := range r.lineComments {
		if s.hasPrefix(prefix) {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
				s.pos++
			}
			return true
		}
	}
	return false
}

// scanQuoted consumes a quoted string with backslash escapes. An unterminated
// string runs to the end of input.
func (s *scanner) scanQuoted(quote rune) {
	s.next()
	for s.pos < len(s.src) {
		c := s.next()
		if c == '\\' && s.pos < len(s.src) {
			s.next()
			continue
		}
		if c == quote {
			return
		}
	}
}

func (s *scanner) scanTripleQuoted() {
	delim := string(s.src[s.pos : s.pos+3])
	s.skip(3)
	for s.pos < len(s.src) {
		if s.hasPrefix(delim) {
			s.skip(3)
			return
		}
		if s.next() == '\\' && s.pos < len(s.src) {
			s.next()
		}
	}
}

// isLifetime distinguishes 'a (lifetime or label) from 'a' (char literal).
func (s *scanner) isLifetime() bool {
	return isIdentStart(s.peek(1)) && s.peek(2) != '\''
}

func (s *scanner) scanWord() {
	for s.pos < len(s.src) && (isIdentChar(s.src[s.pos]) || (s.src[s.pos] == '$' && !s.rules.dollarVars)) {
		s.pos++
	}
}

// scanNumber consumes integer, float, hex, octal and binary literals with
// digit separators, exponents and type suffixes. A ".." range operator is not
// part of the number.
func (s *scanner) scanNumber() {
	if s.peek(0) == '0' {
		switch s.peek(1) {
		case 'x', 'X', 'b', 'B', 'o', 'O':
			s.pos += 2
			for s.pos < len(s.src) && (isHexDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
				s.pos++
			}
			s.scanSuffix()
			return
		}
	}

	s.scanDigits()
	if s.peek(0) == '.' && isDigit(s.peek(1)) {
		s.pos++
		s.scanDigits()
	}
	if e := s.peek(0); e == 'e' || e == 'E' {
		off := 1
		if sign := s.peek(1); sign == '+' || sign == '-' {
			off = 2
		}
		if isDigit(s.peek(off)) {
			s.pos += off
			s.scanDigits()
		}
	}
	s.scanSuffix()
}

func (s *scanner) scanDigits() {
	for s.pos < len(s.src) && (isDigit(s.src[s.pos]) || s.src[s.pos] == '_') {
		s.pos++
	}
}

func (s *scanner) scanSuffix() {
	for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) scanOperator() bool {
	if s.pos+2 < len(s.src) {
		if _, ok := threeCharOps[string(s.src[s.pos:s.pos+3])]; ok {
			s.pos += 3
			return true
		}
	}
	if s.pos+1 < len(s.src) {
		if _, ok := twoCharOps[string(s.src[s.pos:s.pos+2])]; ok {
			s.pos += 2
			return true
		}
	}
	return false
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentChar(c rune) bool {
	return isIdentStart(c) || unicode.IsDigit(c)
}
