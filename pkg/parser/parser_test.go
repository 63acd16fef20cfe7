package parser

import (
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

func TestNew(t *testing.T) {
	p := New()
	if p == nil {
		t.Fatal("New() returned nil")
	}
	if p.parser == nil {
		t.Error("parser field is nil")
	}
	p.Close()
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"pkg/parser/parser.go", LangGo},
		{"main.rs", LangRust},
		{"script.py", LangPython},
		{"module.pyw", LangPython},
		{"app.ts", LangTypeScript},
		{"component.tsx", LangTSX},
		{"script.js", LangJavaScript},
		{"module.mjs", LangJavaScript},
		{"component.jsx", LangTSX}, // JSX uses TSX parser
		{"Main.java", LangJava},
		{"main.c", LangC},
		{"header.h", LangC},
		{"main.cpp", LangCPP},
		{"header.hpp", LangCPP},
		{"Program.cs", LangCSharp},
		{"script.rb", LangRuby},
		{"index.php", LangPHP},
		{"layout.phtml", LangPHP},
		{"script.sh", LangBash},
		{"Dockerfile", LangBash},
		{"Main.kt", LangKotlin},
		{"App.scala", LangScala},
		{"View.swift", LangSwift},
		{"schema.sql", LangSQL},
		{"init.lua", LangLua},

		{"file.txt", LangUnknown},
		{"file.md", LangUnknown},
		{"file", LangUnknown},

		{"Main.GO", LangGo},
		{"SCRIPT.PY", LangPython},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := DetectLanguage(tt.path)
			if got != tt.want {
				t.Errorf("DetectLanguage(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetTreeSitterLanguage(t *testing.T) {
	langs := []Language{
		LangGo, LangRust, LangPython, LangTypeScript, LangTSX,
		LangJavaScript, LangJava, LangC, LangCPP, LangCSharp,
		LangRuby, LangPHP, LangBash,
	}

	for _, lang := range langs {
		t.Run(string(lang), func(t *testing.T) {
			tsLang, err := GetTreeSitterLanguage(lang)
			if err != nil {
				t.Errorf("GetTreeSitterLanguage(%v) returned error: %v", lang, err)
			}
			if tsLang == nil {
				t.Errorf("GetTreeSitterLanguage(%v) returned nil", lang)
			}
			if !HasGrammar(lang) {
				t.Errorf("HasGrammar(%v) = false", lang)
			}
		})
	}

	for _, lang := range []Language{LangUnknown, LangKotlin, LangSQL, LangLua} {
		t.Run("no grammar "+string(lang), func(t *testing.T) {
			if _, err := GetTreeSitterLanguage(lang); err == nil {
				t.Errorf("GetTreeSitterLanguage(%v) should return error", lang)
			}
			if HasGrammar(lang) {
				t.Errorf("HasGrammar(%v) = true", lang)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		source string
		lang   Language
	}{
		{
			name:   "go function",
			source: "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n",
			lang:   LangGo,
		},
		{
			name:   "python function",
			source: "def hello():\n    print('hello')\n",
			lang:   LangPython,
		},
		{
			name:   "php function",
			source: "<?php\nfunction hello($name) {\n  echo 'hello ' . $name;\n}\n",
			lang:   LangPHP,
		},
	}

	p := New()
	defer p.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Parse([]byte(tt.source), tt.lang, "test.file")
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			defer result.Close()

			if result.Language != tt.lang {
				t.Errorf("result.Language = %v, want %v", result.Language, tt.lang)
			}
			if result.Path != "test.file" {
				t.Errorf("result.Path = %v, want test.file", result.Path)
			}
			root := result.Tree.RootNode()
			if root == nil || root.ChildCount() == 0 {
				t.Error("root node has no children")
			}
		})
	}
}

func TestParseUnsupportedLanguage(t *testing.T) {
	p := New()
	defer p.Close()

	if _, err := p.Parse([]byte("SELECT 1;"), LangSQL, "q.sql"); err == nil {
		t.Error("Parse() should fail for a language without grammar")
	}
}

func TestWalkLeaves(t *testing.T) {
	source := []byte("package main\n\nvar greeting = \"hi there\"\n")

	p := New()
	defer p.Close()

	result, err := p.Parse(source, LangGo, "main.go")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	defer result.Close()

	var texts []string
	atomic := func(nodeType string) bool { return nodeType == "interpreted_string_literal" }
	WalkLeaves(result.Tree.RootNode(), atomic, func(node *sitter.Node, nodeType string) {
		texts = append(texts, GetNodeText(node, source))
	})

	want := []string{"package", "main", "var", "greeting", "=", "\"hi there\""}
	var got []string
	for _, s := range texts {
		if strings.TrimSpace(s) != "" {
			got = append(got, s)
		}
	}
	if len(got) < 6 {
		t.Fatalf("WalkLeaves collected %v", got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("leaf[%d] = %q, want %q", i, got[i], w)
		}
	}
}

func TestGetNodeText(t *testing.T) {
	if got := GetNodeText(nil, []byte("x")); got != "" {
		t.Errorf("GetNodeText(nil) = %q, want empty", got)
	}
}
