package lang

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var goBuiltins = setOf(
	"append", "cap", "clear", "close", "complex", "copy", "delete", "imag",
	"len", "make", "max", "min", "new", "panic", "print", "println", "real",
	"recover",
	// conversions
	"any", "bool", "byte", "complex64", "complex128", "error", "float32",
	"float64", "int", "int8", "int16", "int32", "int64", "rune", "string",
	"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
)

var goKeywords = setOf(
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
	"map", "package", "range", "return", "select", "struct", "switch", "type",
	"var",
)

var pythonBuiltins = setOf(
	"print", "len", "str", "int", "float", "list", "dict", "set", "tuple",
	"open", "range", "enumerate", "zip", "map", "filter", "sorted",
	"reversed", "sum", "min", "max", "abs", "round", "pow", "divmod",
	"isinstance", "issubclass", "hasattr", "getattr", "setattr", "delattr",
	"callable", "type",
	"super", "iter", "next", "repr", "hash", "id", "format", "bool", "bytes",
	"object", "any", "all", "frozenset", "vars", "dir", "input",
)

var pythonKeywords = setOf(
	"and", "as", "assert", "async", "await", "class", "def", "del", "elif",
	"else", "except", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
)

var javaBuiltins = setOf(
	"println", "print", "printf", "getClass", "hashCode", "equals",
	"toString", "clone", "notify", "notifyAll", "wait", "finalize",
)

// javaLibraryPrefixes mark imports that never resolve into the project.
var javaLibraryPrefixes = []string{"java.", "javax.", "com.sun.", "sun.", "jdk."}
