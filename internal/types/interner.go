package types

import (
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Invalid TypeID
	Unknown TypeID
	None    TypeID
	Bool    TypeID
	Int     TypeID
	Float   TypeID
	Str     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Functions are checked in parallel, so every method takes the lock.
type Interner struct {
	mu       sync.RWMutex
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	tuples   []TupleInfo
	fns      []FnInfo
	classes  []ClassInfo
	modules  []string
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:   make(map[Type]TypeID, 64),
		tuples:  []TupleInfo{{}}, // slot 0 reserved
		fns:     []FnInfo{{}},
		classes: []ClassInfo{{}},
		modules: []string{""},
	}
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unknown = in.Intern(Type{Kind: KindUnknown})
	in.builtins.None = in.Intern(Type{Kind: KindNone})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Str = in.Intern(Type{Kind: KindStr})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Kind is a shortcut for Lookup(id).Kind; KindInvalid for unknown IDs.
func (in *Interner) Kind(id TypeID) Kind {
	t, _ := in.Lookup(id)
	return t.Kind
}

// Len reports the number of interned types including the invalid sentinel.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

func (in *Interner) List(elem TypeID) TypeID       { return in.Intern(MakeList(elem)) }
func (in *Interner) Set(elem TypeID) TypeID        { return in.Intern(MakeSet(elem)) }
func (in *Interner) Dict(key, value TypeID) TypeID { return in.Intern(MakeDict(key, value)) }
func (in *Interner) Instance(cls TypeID) TypeID    { return in.Intern(MakeInstance(cls)) }
func (in *Interner) Var(index uint32) TypeID       { return in.Intern(MakeVar(index)) }

func slot(n int, what string) uint32 {
	s, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s info overflow: %w", what, err))
	}
	return s
}

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// Tuple creates or finds the tuple type with the given elements.
func (in *Interner) Tuple(elems []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := 1; i < len(in.tuples); i++ {
		if slices.Equal(in.tuples[i].Elems, elems) {
			return in.internLocked(Type{Kind: KindTuple, Payload: slot(i, "tuple")})
		}
	}
	in.tuples = append(in.tuples, TupleInfo{Elems: slices.Clone(elems)})
	return in.internLocked(Type{Kind: KindTuple, Payload: slot(len(in.tuples)-1, "tuple")})
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (TupleInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTuple {
		return TupleInfo{}, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.tuples[t.Payload], true
}

// Param is one parameter of a function type.
type Param struct {
	Name       string
	Type       TypeID
	HasDefault bool
}

// FnInfo stores metadata for function types. Variadic and KwVariadic are
// set when the function takes *args or **kwargs.
type FnInfo struct {
	Params     []Param
	Result     TypeID
	Variadic   bool
	KwVariadic bool
}

func (f FnInfo) equal(o FnInfo) bool {
	return f.Result == o.Result && f.Variadic == o.Variadic && f.KwVariadic == o.KwVariadic &&
		slices.Equal(f.Params, o.Params)
}

// Required counts parameters without defaults.
func (f FnInfo) Required() int {
	n := 0
	for _, p := range f.Params {
		if !p.HasDefault {
			n++
		}
	}
	return n
}

// Fn creates or finds a function type.
func (in *Interner) Fn(info FnInfo) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := 1; i < len(in.fns); i++ {
		if in.fns[i].equal(info) {
			return in.internLocked(Type{Kind: KindFn, Payload: slot(i, "fn")})
		}
	}
	info.Params = slices.Clone(info.Params)
	in.fns = append(in.fns, info)
	return in.internLocked(Type{Kind: KindFn, Payload: slot(len(in.fns)-1, "fn")})
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (FnInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindFn {
		return FnInfo{}, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.fns[t.Payload], true
}

// Bind drops the first parameter, turning a method into a bound method.
func (in *Interner) Bind(fn TypeID) TypeID {
	info, ok := in.FnInfo(fn)
	if !ok || len(info.Params) == 0 {
		return fn
	}
	info.Params = info.Params[1:]
	return in.Fn(info)
}

// ClassInfo describes a class declared in the program. Classes are nominal:
// every declaration gets its own type even when names collide.
type ClassInfo struct {
	Name    string
	Decl    uint32 // declaring symbol
	Bases   []TypeID
	Members map[string]TypeID
}

// NewClass registers a class declaration and returns its class-object type.
func (in *Interner) NewClass(name string, decl uint32) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.classes = append(in.classes, ClassInfo{Name: name, Decl: decl, Members: make(map[string]TypeID)})
	return in.internRaw(Type{Kind: KindClass, Payload: slot(len(in.classes)-1, "class")})
}

// SetClass replaces bases and members of a class. It is called while
// signatures are collected, before any parallel work starts.
func (in *Interner) SetClass(cls TypeID, bases []TypeID, members map[string]TypeID) {
	t, ok := in.Lookup(cls)
	if !ok || t.Kind != KindClass {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.classes[t.Payload].Bases = slices.Clone(bases)
	in.classes[t.Payload].Members = members
}

// ClassInfo returns the metadata of a class or instance type.
func (in *Interner) ClassInfo(id TypeID) (ClassInfo, bool) {
	t, ok := in.Lookup(id)
	if ok && t.Kind == KindInstance {
		t, ok = in.Lookup(t.Elem)
	}
	if !ok || t.Kind != KindClass {
		return ClassInfo{}, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.classes[t.Payload], true
}

// Member looks a name up on a class and its bases, depth first in base
// order.
func (in *Interner) Member(cls TypeID, name string) (TypeID, bool) {
	t, _, ok := in.MemberOf(cls, name)
	return t, ok
}

// MemberOf is Member that also returns the class declaring the name.
func (in *Interner) MemberOf(cls TypeID, name string) (member, owner TypeID, ok bool) {
	seen := map[TypeID]bool{}
	stack := []TypeID{cls}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		info, ok := in.ClassInfo(cur)
		if !ok {
			continue
		}
		if t, ok := info.Members[name]; ok {
			return t, cur, true
		}
		for i := len(info.Bases) - 1; i >= 0; i-- {
			stack = append(stack, info.Bases[i])
		}
	}
	return NoTypeID, NoTypeID, false
}

// IsOpen reports whether some ancestor of cls is not a known class, so
// members may exist that the interner does not see.
func (in *Interner) IsOpen(cls TypeID) bool {
	seen := map[TypeID]bool{}
	stack := []TypeID{cls}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		info, ok := in.ClassInfo(cur)
		if !ok {
			return true
		}
		stack = append(stack, info.Bases...)
	}
	return false
}

// Module returns the module type for a module key.
func (in *Interner) Module(key string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	i := slices.Index(in.modules[1:], key) + 1
	if i == 0 {
		in.modules = append(in.modules, key)
		i = len(in.modules) - 1
	}
	return in.internLocked(Type{Kind: KindModule, Payload: slot(i, "module")})
}

// ModuleKey returns the key of a module type.
func (in *Interner) ModuleKey(id TypeID) (string, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindModule {
		return "", false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.modules[t.Payload], true
}
