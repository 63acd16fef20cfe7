package token

func keywordSet(groups ...[]string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, g := range groups {
		for _, w := range g {
			m[w] = struct{}{}
		}
	}
	return m
}

var commonKeywords = []string{
	"if", "else", "for", "while", "do", "switch", "case", "default", "break",
	"continue", "return", "true", "false", "null", "new", "class", "try",
	"catch", "finally", "throw", "import", "static", "const",
}

var goKeywords = []string{
	"func", "return", "if", "else", "for", "range", "switch", "case", "default",
	"break", "continue", "goto", "fallthrough", "defer", "go", "select", "chan",
	"map", "struct", "interface", "type", "var", "const", "package", "import",
	"nil", "true", "false",
}

var rustKeywords = []string{
	"fn", "let", "mut", "match", "loop", "while", "for", "if", "else", "impl",
	"trait", "mod", "use", "pub", "crate", "self", "Self", "super", "where",
	"async", "await", "static", "extern", "unsafe", "enum", "struct", "type",
	"move", "ref", "as", "in", "return", "break", "continue", "const", "dyn",
	"true", "false",
}

var cKeywords = []string{
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if", "int",
	"long", "register", "return", "short", "signed", "sizeof", "static",
	"struct", "switch", "typedef", "union", "unsigned", "void", "volatile",
	"while", "class", "namespace", "template", "typename", "public", "private",
	"protected", "virtual", "new", "delete", "this", "nullptr", "true", "false",
	"try", "catch", "throw", "using", "operator", "bool",
}

var javaKeywords = []string{
	"abstract", "boolean", "break", "byte", "case", "catch", "char", "class",
	"continue", "default", "do", "double", "else", "enum", "extends", "final",
	"finally", "float", "for", "if", "implements", "import", "instanceof", "int",
	"interface", "long", "new", "package", "private", "protected", "public",
	"return", "short", "static", "super", "switch", "this", "throw", "throws",
	"try", "void", "while", "null", "true", "false", "var", "val", "fun",
	"object", "namespace", "using", "override", "internal", "let", "func",
	"struct", "def",
}

var jsKeywords = []string{
	"function", "return", "if", "else", "for", "while", "do", "switch", "case",
	"default", "break", "continue", "var", "let", "const", "new", "this",
	"super", "class", "extends", "implements", "export", "import", "from",
	"throw", "try", "catch", "finally", "instanceof", "typeof", "void",
	"delete", "debugger", "async", "await", "yield", "in", "of", "null",
	"undefined", "true", "false", "interface", "type", "enum",
}

var pythonKeywords = []string{
	"def", "class", "if", "elif", "else", "for", "while", "try", "except",
	"finally", "with", "lambda", "yield", "assert", "raise", "pass", "del",
	"global", "nonlocal", "and", "or", "not", "is", "in", "from", "import",
	"as", "return", "break", "continue", "async", "await", "None", "True",
	"False",
}

var rubyKeywords = []string{
	"def", "class", "module", "if", "elsif", "else", "unless", "while", "until",
	"for", "in", "do", "end", "begin", "rescue", "ensure", "raise", "yield",
	"return", "break", "next", "self", "nil", "true", "false", "and", "or",
	"not", "then", "case", "when",
}

var phpKeywords = []string{
	"function", "return", "if", "else", "elseif", "for", "foreach", "while",
	"do", "switch", "case", "default", "break", "continue", "class",
	"interface", "trait", "extends", "implements", "new", "public", "private",
	"protected", "static", "abstract", "final", "const", "namespace", "use",
	"as", "echo", "print", "array", "null", "true", "false", "try", "catch",
	"finally", "throw", "instanceof", "require", "require_once", "include",
	"include_once", "fn", "match",
}

var shellKeywords = []string{
	"if", "then", "else", "elif", "fi", "for", "while", "until", "do", "done",
	"case", "esac", "in", "function", "return", "local", "export",
}

var sqlKeywords = []string{
	"select", "from", "where", "insert", "into", "values", "update", "set",
	"delete", "create", "table", "alter", "drop", "join", "left", "right",
	"inner", "outer", "on", "and", "or", "not", "null", "group", "by", "order",
	"having", "as", "SELECT", "FROM", "WHERE", "INSERT", "INTO", "VALUES",
	"UPDATE", "SET", "DELETE", "CREATE", "TABLE", "JOIN", "ON", "AND", "OR",
	"NOT", "NULL", "GROUP", "BY", "ORDER", "AS",
}

var luaKeywords = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for", "function",
	"goto", "if", "in", "local", "nil", "not", "or", "repeat", "return", "then",
	"true", "until", "while",
}
