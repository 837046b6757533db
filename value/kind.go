package value

// Kind tags a Value's variant (spec.md §3).
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindEllipsis
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindTuple
	KindList
	KindDict
	KindSet
	KindFrozenSet
	KindRange
	KindSlice
	KindFunction
	KindBuiltinFunction
	KindBoundMethod
	KindType
	KindException
	KindCoroutine
	KindFuture
	KindTask
	KindDataclass
	KindIterator
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindEllipsis:
		return "ellipsis"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindFrozenSet:
		return "frozenset"
	case KindRange:
		return "range"
	case KindSlice:
		return "slice"
	case KindFunction:
		return "function"
	case KindBuiltinFunction:
		return "builtin_function_or_method"
	case KindBoundMethod:
		return "method"
	case KindType:
		return "type"
	case KindException:
		return "Exception"
	case KindCoroutine:
		return "coroutine"
	case KindFuture:
		return "Future"
	case KindTask:
		return "Task"
	case KindDataclass:
		return "object"
	case KindIterator:
		return "iterator"
	case KindModule:
		return "module"
	default:
		return "unknown"
	}
}
