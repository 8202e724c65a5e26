package trace

import (
	"fmt"
	"strconv"
)

// Kind identifies a script operation.
type Kind uint8

const (
	KindMalloc Kind = iota
	KindCalloc
	KindRealloc
	KindFree
	KindFill
	KindCheck
	KindVerify
)

func (k Kind) String() string {
	switch k {
	case KindMalloc:
		return KeywordMalloc
	case KindCalloc:
		return KeywordCalloc
	case KindRealloc:
		return KeywordRealloc
	case KindFree:
		return KeywordFree
	case KindFill:
		return KeywordFill
	case KindCheck:
		return KeywordCheck
	case KindVerify:
		return KeywordVerify
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Op is one parsed script line.
//
// Field use by kind:
//
//	malloc   Dst, N
//	calloc   Dst, N (count), M (size)
//	realloc  Dst, Src, N
//	free     Src
//	fill     Src, Byte
//	check    Src, Byte, N
//
// An empty Src means nil.
type Op struct {
	Line int
	Kind Kind
	Dst  string
	Src  string
	N    int
	M    int
	Byte byte
}

func (op Op) String() string {
	src := op.Src
	if src == "" {
		src = KeywordNil
	}
	switch op.Kind {
	case KindMalloc:
		return fmt.Sprintf("%s = %s %d", op.Dst, op.Kind, op.N)
	case KindCalloc:
		return fmt.Sprintf("%s = %s %d %d", op.Dst, op.Kind, op.N, op.M)
	case KindRealloc:
		return fmt.Sprintf("%s = %s %s %d", op.Dst, op.Kind, src, op.N)
	case KindFree:
		return fmt.Sprintf("%s %s", op.Kind, src)
	case KindFill:
		return fmt.Sprintf("%s %s %#x", op.Kind, src, op.Byte)
	case KindCheck:
		return fmt.Sprintf("%s %s %#x %d", op.Kind, src, op.Byte, op.N)
	default:
		return op.Kind.String()
	}
}
