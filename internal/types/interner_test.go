package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unknown == NoTypeID || b.Int == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	if got := in.Kind(b.Str); got != KindStr {
		t.Fatalf("expected str kind, got %v", got)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	str := in.Builtins().Str
	if in.List(str) != in.List(str) {
		t.Fatalf("list types should be deduplicated")
	}
	if in.Dict(str, in.Builtins().Int) == in.Dict(in.Builtins().Int, str) {
		t.Fatalf("dict key and value must not commute")
	}
	a := in.Tuple([]TypeID{str, in.Builtins().Int})
	b := in.Tuple([]TypeID{str, in.Builtins().Int})
	if a != b {
		t.Fatalf("tuple types should be deduplicated")
	}
	fn := FnInfo{Params: []Param{{Name: "x", Type: str}}, Result: str}
	if in.Fn(fn) != in.Fn(fn) {
		t.Fatalf("function types should be deduplicated")
	}
	if in.Module("pkg.util") != in.Module("pkg.util") {
		t.Fatalf("module types should be deduplicated")
	}
}

func TestClassesAreNominal(t *testing.T) {
	in := NewInterner()
	a := in.NewClass("A", 1)
	b := in.NewClass("A", 2)
	if a == b {
		t.Fatalf("distinct declarations must get distinct class types")
	}
}

func TestSubtyping(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	base := in.NewClass("Base", 1)
	derived := in.NewClass("Derived", 2)
	in.SetClass(derived, []TypeID{base}, map[string]TypeID{"x": bi.Int})

	cases := []struct {
		name       string
		sub, super TypeID
		want       bool
	}{
		{"bool<:int", bi.Bool, bi.Int, true},
		{"int<:float", bi.Int, bi.Float, true},
		{"bool<:float", bi.Bool, bi.Float, true},
		{"float</:int", bi.Float, bi.Int, false},
		{"str</:int", bi.Str, bi.Int, false},
		{"unknown<:int", bi.Unknown, bi.Int, true},
		{"int<:unknown", bi.Int, bi.Unknown, true},
		{"list invariant", in.List(bi.Int), in.List(bi.Float), false},
		{"list unknown elem", in.List(bi.Unknown), in.List(bi.Str), true},
		{"tuple covariant", in.Tuple([]TypeID{bi.Bool}), in.Tuple([]TypeID{bi.Int}), true},
		{"tuple arity", in.Tuple([]TypeID{bi.Int}), in.Tuple([]TypeID{bi.Int, bi.Int}), false},
		{"derived<:base", in.Instance(derived), in.Instance(base), true},
		{"base</:derived", in.Instance(base), in.Instance(derived), false},
		{"none</:int", bi.None, bi.Int, false},
	}
	for _, tc := range cases {
		if got := in.IsSubtype(tc.sub, tc.super); got != tc.want {
			t.Errorf("%s: IsSubtype(%s, %s) = %v", tc.name, in.String(tc.sub), in.String(tc.super), got)
		}
	}

	if m, ok := in.Member(derived, "x"); !ok || m != bi.Int {
		t.Fatalf("member lookup failed")
	}
	if _, ok := in.Member(base, "x"); ok {
		t.Fatalf("base does not declare x")
	}
}

func TestWider(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	if w, ok := in.Wider(bi.Bool, bi.Bool); !ok || w != bi.Int {
		t.Fatalf("bool + bool should be int")
	}
	if w, ok := in.Wider(bi.Int, bi.Float); !ok || w != bi.Float {
		t.Fatalf("int + float should be float")
	}
	if _, ok := in.Wider(bi.Str, bi.Int); ok {
		t.Fatalf("str is not numeric")
	}
}

func TestString(t *testing.T) {
	in := NewInterner()
	bi := in.Builtins()
	cls := in.NewClass("Point", 1)
	cases := map[TypeID]string{
		in.Dict(bi.Str, in.List(bi.Int)):                          "dict[str, list[int]]",
		in.Tuple([]TypeID{bi.Int, bi.None}):                       "tuple[int, None]",
		in.Fn(FnInfo{Params: []Param{{Type: bi.Int}}, Result: bi.Bool}): "(int) -> bool",
		in.Instance(cls):                                          "Point",
		cls:                                                       "type[Point]",
		in.Module("os"):                                           "module os",
		in.Var(3):                                                 "'t3",
		bi.Unknown:                                                "Unknown",
	}
	for id, want := range cases {
		if got := in.String(id); got != want {
			t.Errorf("String = %q, want %q", got, want)
		}
	}
}
