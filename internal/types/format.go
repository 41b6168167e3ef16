package types

import (
	"fmt"
	"strings"
)

// String renders a type the way annotations are written: int,
// list[str], dict[str, int], (int, str) -> bool.
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.write(&sb, id, 0)
	return sb.String()
}

func (in *Interner) write(sb *strings.Builder, id TypeID, depth int) {
	if depth > 16 {
		sb.WriteString("...")
		return
	}
	t, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	switch t.Kind {
	case KindList, KindSet:
		sb.WriteString(t.Kind.String())
		sb.WriteByte('[')
		in.write(sb, t.Elem, depth+1)
		sb.WriteByte(']')
	case KindDict:
		sb.WriteString("dict[")
		in.write(sb, t.Key, depth+1)
		sb.WriteString(", ")
		in.write(sb, t.Elem, depth+1)
		sb.WriteByte(']')
	case KindTuple:
		info, _ := in.TupleInfo(id)
		sb.WriteString("tuple[")
		for i, e := range info.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.write(sb, e, depth+1)
		}
		sb.WriteByte(']')
	case KindFn:
		info, _ := in.FnInfo(id)
		sb.WriteByte('(')
		for i, p := range info.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.write(sb, p.Type, depth+1)
		}
		if info.Variadic {
			if len(info.Params) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("*args")
		}
		sb.WriteString(") -> ")
		in.write(sb, info.Result, depth+1)
	case KindClass:
		info, _ := in.ClassInfo(id)
		fmt.Fprintf(sb, "type[%s]", info.Name)
	case KindInstance:
		info, _ := in.ClassInfo(id)
		sb.WriteString(info.Name)
	case KindModule:
		key, _ := in.ModuleKey(id)
		fmt.Fprintf(sb, "module %s", key)
	case KindVar:
		fmt.Fprintf(sb, "'t%d", t.Payload)
	default:
		sb.WriteString(t.Kind.String())
	}
}
