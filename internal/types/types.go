package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnknown
	KindNone
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindDict
	KindSet
	KindTuple
	KindFn
	KindClass    // the class object itself
	KindInstance // an instance of a class
	KindModule
	KindVar // type variable, only inside a solver
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnknown:
		return "Unknown"
	case KindNone:
		return "None"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindTuple:
		return "tuple"
	case KindFn:
		return "function"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindModule:
		return "module"
	case KindVar:
		return "var"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // list/set element, dict value, instance class
	Key     TypeID // dict key
	Payload uint32 // tuple/fn/class/module info slot, variable index
}

// IsPrimitive reports the scalar kinds.
func (k Kind) IsPrimitive() bool {
	return k >= KindNone && k <= KindStr
}

// IsNumeric reports bool, int and float.
func (k Kind) IsNumeric() bool {
	return k == KindBool || k == KindInt || k == KindFloat
}

// MakeList describes list[elem].
func MakeList(elem TypeID) Type {
	return Type{Kind: KindList, Elem: elem}
}

// MakeSet describes set[elem].
func MakeSet(elem TypeID) Type {
	return Type{Kind: KindSet, Elem: elem}
}

// MakeDict describes dict[key, value].
func MakeDict(key, value TypeID) Type {
	return Type{Kind: KindDict, Key: key, Elem: value}
}

// MakeInstance describes an instance of the class type cls.
func MakeInstance(cls TypeID) Type {
	return Type{Kind: KindInstance, Elem: cls}
}

// MakeVar describes the type variable with the given solver index.
func MakeVar(index uint32) Type {
	return Type{Kind: KindVar, Payload: index}
}
