package symbols

// builtinNames is the builtin namespace visible from every module.
var builtinNames = []string{
	// types
	"bool", "int", "float", "complex", "str", "bytes", "bytearray",
	"list", "dict", "set", "frozenset", "tuple", "object", "type", "range",
	"slice", "memoryview",
	// functions
	"abs", "all", "any", "ascii", "bin", "callable", "chr", "classmethod",
	"compile", "delattr", "dir", "divmod", "enumerate", "eval", "exec",
	"filter", "format", "getattr", "globals", "hasattr", "hash", "help",
	"hex", "id", "input", "isinstance", "issubclass", "iter", "len",
	"locals", "map", "max", "min", "next", "oct", "open", "ord", "pow",
	"print", "property", "repr", "reversed", "round", "setattr", "sorted",
	"staticmethod", "sum", "super", "vars", "zip", "__import__",
	// exceptions
	"BaseException", "Exception", "ArithmeticError", "AssertionError",
	"AttributeError", "EOFError", "FileNotFoundError", "ImportError",
	"IndexError", "KeyError", "KeyboardInterrupt", "LookupError",
	"MemoryError", "NameError", "NotImplementedError", "OSError", "IOError",
	"OverflowError", "RecursionError", "RuntimeError", "StopIteration",
	"SystemExit", "TypeError", "ValueError", "ZeroDivisionError",
	"UnicodeError", "Warning", "DeprecationWarning", "UserWarning",
	// constants and module attributes
	"NotImplemented", "Ellipsis", "__name__", "__file__", "__doc__",
	"__package__", "__spec__", "__builtins__", "__debug__",
}
