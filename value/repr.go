package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zond/monty/limits"
)

// Repr renders v the way the reference language's repr() would, bounded
// by the same per-task recursion counter as Eq/Hash (spec.md §4.A).
// Object addresses embedded in reprs of non-literal types need only be
// some stable nonzero hex value (spec.md §1 Non-goals), derived here
// from the object's pointer identity.
func Repr(v Value, tr *limits.Tracker) (string, error) {
	switch v.kind {
	case KindNone:
		return "None", nil
	case KindEllipsis:
		return "Ellipsis", nil
	case KindBool:
		if v.b {
			return "True", nil
		}
		return "False", nil
	case KindInt:
		return v.AsBigInt().String(), nil
	case KindFloat:
		return reprFloat(v.f64), nil
	case KindStr:
		s := v.obj.(*strObj).s
		q := strconv.Quote(s)
		if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
			return q, nil
		}
		body := strings.ReplaceAll(q[1:len(q)-1], `\"`, `"`)
		return "'" + strings.ReplaceAll(body, "'", `\'`) + "'", nil
	case KindBytes:
		return reprBytes(v.obj.(*bytesObj).b), nil
	case KindRange:
		r := v.obj.(*rangeObj)
		if r.step == 1 {
			return fmt.Sprintf("range(%d, %d)", r.start, r.stop), nil
		}
		return fmt.Sprintf("range(%d, %d, %d)", r.start, r.stop, r.step), nil
	case KindSlice:
		s := v.obj.(*sliceObj)
		a, err := reprOrNone(s.start, tr)
		if err != nil {
			return "", err
		}
		b, err := reprOrNone(s.stop, tr)
		if err != nil {
			return "", err
		}
		c, err := reprOrNone(s.step, tr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("slice(%s, %s, %s)", a, b, c), nil
	case KindTuple:
		return reprSeq(v.obj.(*tupleObj).items, "(", ")", len(v.obj.(*tupleObj).items) == 1, tr)
	case KindList:
		return reprSeq(v.obj.(*listObj).items, "[", "]", false, tr)
	case KindDict:
		return reprDict(v.obj.(*dictObj), tr)
	case KindSet:
		return reprSet(v.obj.(*setObj), "{", "}", tr)
	case KindFrozenSet:
		inner, err := reprSet(v.obj.(*setObj), "{", "}", tr)
		if err != nil {
			return "", err
		}
		return "frozenset(" + inner + ")", nil
	case KindFunction:
		return fmt.Sprintf("<function %s at 0x%x>", v.obj.(*functionObj).qualName, uintptrOf(v.obj)), nil
	case KindBuiltinFunction:
		return fmt.Sprintf("<built-in function %s>", v.obj.(*builtinFunctionObj).name), nil
	case KindBoundMethod:
		return fmt.Sprintf("<bound method at 0x%x>", uintptrOf(v.obj)), nil
	case KindType:
		return fmt.Sprintf("<class '%s'>", v.obj.(*typeObj).name), nil
	case KindException:
		return reprException(v.obj.(*exceptionObj), tr)
	case KindDataclass:
		return reprDataclass(v.obj.(*dataclassObj), tr)
	case KindCoroutine:
		return fmt.Sprintf("<coroutine object at 0x%x>", uintptrOf(v.obj)), nil
	case KindFuture:
		return fmt.Sprintf("<Future at 0x%x>", uintptrOf(v.obj)), nil
	case KindTask:
		return fmt.Sprintf("<Task at 0x%x>", uintptrOf(v.obj)), nil
	case KindIterator:
		return fmt.Sprintf("<iterator object at 0x%x>", uintptrOf(v.obj)), nil
	case KindModule:
		return fmt.Sprintf("<module '%s'>", v.obj.(*moduleObj).name), nil
	default:
		return "<?>", nil
	}
}

func reprOrNone(v Value, tr *limits.Tracker) (string, error) {
	if v.IsNone() {
		return "None", nil
	}
	return Repr(v, tr)
}

func reprFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "inf") && !strings.Contains(s, "nan") {
		s += ".0"
	}
	return s
}

func reprBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteString("b'")
	for _, c := range b {
		switch c {
		case '\\', '\'':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, `\x%02x`, c)
			}
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func reprSeq(items []Value, open, close string, forceTrailingComma bool, tr *limits.Tracker) (string, error) {
	var out string
	err := withDepthE(tr, func() error {
		parts := make([]string, len(items))
		for i, it := range items {
			s, err := Repr(it, tr)
			if err != nil {
				return err
			}
			parts[i] = s
		}
		body := strings.Join(parts, ", ")
		if forceTrailingComma {
			body += ","
		}
		out = open + body + close
		return nil
	})
	return out, err
}

func reprDict(d *dictObj, tr *limits.Tracker) (string, error) {
	var out string
	err := withDepthE(tr, func() error {
		var parts []string
		for _, e := range d.entries {
			if e.deleted {
				continue
			}
			k, err := Repr(e.key, tr)
			if err != nil {
				return err
			}
			v, err := Repr(e.val, tr)
			if err != nil {
				return err
			}
			parts = append(parts, k+": "+v)
		}
		out = "{" + strings.Join(parts, ", ") + "}"
		return nil
	})
	return out, err
}

func reprSet(s *setObj, open, close string, tr *limits.Tracker) (string, error) {
	if s.liveCount() == 0 {
		if open == "{" {
			return "set()", nil
		}
	}
	var out string
	err := withDepthE(tr, func() error {
		var parts []string
		for _, e := range s.entries {
			if e.deleted {
				continue
			}
			v, err := Repr(e.val, tr)
			if err != nil {
				return err
			}
			parts = append(parts, v)
		}
		out = open + strings.Join(parts, ", ") + close
		return nil
	})
	return out, err
}

func reprException(e *exceptionObj, tr *limits.Tracker) (string, error) {
	argsRepr, err := reprSeq(e.args.obj.(*tupleObj).items, "(", ")", false, tr)
	if err != nil {
		return "", err
	}
	return e.class.name + argsRepr, nil
}

func reprDataclass(d *dataclassObj, tr *limits.Tracker) (string, error) {
	var out string
	err := withDepthE(tr, func() error {
		parts := make([]string, 0, len(d.typ.fields))
		for _, name := range d.typ.fields {
			v, err := Repr(d.fields[name], tr)
			if err != nil {
				return err
			}
			parts = append(parts, name+"="+v)
		}
		out = d.typ.name + "(" + strings.Join(parts, ", ") + ")"
		return nil
	})
	return out, err
}
