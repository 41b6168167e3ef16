package sema

import (
	"codescope/internal/types"
)

// builtinTypes gives the value types of the builtin names the checker knows
// about. Every other builtin reads as Unknown.
func builtinTypes(in *types.Interner) map[string]types.TypeID {
	bi := in.Builtins()
	u := bi.Unknown
	opt := func(name string, t types.TypeID) types.Param {
		return types.Param{Name: name, Type: t, HasDefault: true}
	}
	req := func(name string, t types.TypeID) types.Param {
		return types.Param{Name: name, Type: t}
	}
	fn := func(result types.TypeID, params ...types.Param) types.TypeID {
		return in.Fn(types.FnInfo{Params: params, Result: result})
	}
	variadic := func(result types.TypeID) types.TypeID {
		return in.Fn(types.FnInfo{Result: result, Variadic: true, KwVariadic: true})
	}

	return map[string]types.TypeID{
		// конструкторы
		"int":   in.Fn(types.FnInfo{Params: []types.Param{opt("x", u), opt("base", bi.Int)}, Result: bi.Int}),
		"float": fn(bi.Float, opt("x", u)),
		"str":   fn(bi.Str, opt("object", u)),
		"bool":  fn(bi.Bool, opt("x", u)),
		"list":  fn(in.List(u), opt("iterable", u)),
		"set":   fn(in.Set(u), opt("iterable", u)),
		"dict":  variadic(in.Dict(u, u)),
		"tuple": fn(u, opt("iterable", u)),
		"range": fn(in.List(bi.Int), req("start", bi.Int), opt("stop", bi.Int), opt("step", bi.Int)),

		"len":        fn(bi.Int, req("obj", u)),
		"print":      variadic(bi.None),
		"input":      fn(bi.Str, opt("prompt", u)),
		"repr":       fn(bi.Str, req("obj", u)),
		"ascii":      fn(bi.Str, req("obj", u)),
		"chr":        fn(bi.Str, req("i", bi.Int)),
		"ord":        fn(bi.Int, req("c", bi.Str)),
		"hex":        fn(bi.Str, req("x", bi.Int)),
		"oct":        fn(bi.Str, req("x", bi.Int)),
		"bin":        fn(bi.Str, req("x", bi.Int)),
		"id":         fn(bi.Int, req("obj", u)),
		"hash":       fn(bi.Int, req("obj", u)),
		"callable":   fn(bi.Bool, req("obj", u)),
		"isinstance": fn(bi.Bool, req("obj", u), req("classinfo", u)),
		"issubclass": fn(bi.Bool, req("cls", u), req("classinfo", u)),
		"hasattr":    fn(bi.Bool, req("obj", u), req("name", bi.Str)),
		"getattr":    fn(u, req("obj", u), req("name", bi.Str), opt("default", u)),
		"setattr":    fn(bi.None, req("obj", u), req("name", bi.Str), req("value", u)),
		"delattr":    fn(bi.None, req("obj", u), req("name", bi.Str)),
		"all":        fn(bi.Bool, req("iterable", u)),
		"any":        fn(bi.Bool, req("iterable", u)),
		"abs":        fn(u, req("x", u)),
		"round":      fn(u, req("number", u), opt("ndigits", bi.Int)),
		"divmod":     fn(u, req("a", u), req("b", u)),
		"pow":        fn(u, req("base", u), req("exp", u), opt("mod", u)),
		"format":     fn(bi.Str, req("value", u), opt("format_spec", bi.Str)),
		"sorted":     variadic(in.List(u)),
		"reversed":   fn(u, req("seq", u)),
		"min":        variadic(u),
		"max":        variadic(u),
		"sum":        variadic(u),
		"zip":        variadic(u),
		"map":        variadic(u),
		"filter":     fn(u, req("function", u), req("iterable", u)),
		"enumerate":  fn(u, req("iterable", u), opt("start", bi.Int)),
		"iter":       fn(u, req("obj", u), opt("sentinel", u)),
		"next":       fn(u, req("iterator", u), opt("default", u)),
		"open":       variadic(u),
		"vars":       fn(in.Dict(bi.Str, u), opt("obj", u)),
		"dir":        fn(in.List(bi.Str), opt("obj", u)),

		"__name__":    bi.Str,
		"__file__":    bi.Str,
		"__doc__":     u,
		"__package__": u,
		"__debug__":   bi.Bool,
	}
}

// builtinType returns the type of a builtin name, Unknown when the checker
// does not model it (exceptions, object, type and friends).
func (e *env) builtinType(name string) types.TypeID {
	if t, ok := e.builtins[name]; ok {
		return t
	}
	return e.types.Builtins().Unknown
}
