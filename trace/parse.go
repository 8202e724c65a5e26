package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parse reads a whole script. UTF-8 is assumed unless the input starts with
// a UTF-8 or UTF-16 byte order mark.
func Parse(r io.Reader) ([]Op, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(dec)

	var ops []Op
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		op, err := parseLine(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrSyntax, lineNo, err)
		}
		op.Line = lineNo
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// ParseString parses a script held in a string.
func ParseString(s string) ([]Op, error) {
	return Parse(strings.NewReader(s))
}

func parseLine(f []string) (Op, error) {
	if len(f) >= 3 && f[1] == Assign {
		return parseAssign(f[0], f[2], f[3:])
	}

	switch f[0] {
	case KeywordFree:
		if len(f) != 2 {
			return Op{}, fmt.Errorf("want %q NAME", KeywordFree)
		}
		src, err := parseOperand(f[1])
		return Op{Kind: KindFree, Src: src}, err

	case KeywordFill:
		if len(f) != 3 {
			return Op{}, fmt.Errorf("want %q NAME BYTE", KeywordFill)
		}
		src, err := parseName(f[1])
		if err != nil {
			return Op{}, err
		}
		b, err := parseByte(f[2])
		return Op{Kind: KindFill, Src: src, Byte: b}, err

	case KeywordCheck:
		if len(f) != 4 {
			return Op{}, fmt.Errorf("want %q NAME BYTE N", KeywordCheck)
		}
		src, err := parseName(f[1])
		if err != nil {
			return Op{}, err
		}
		b, err := parseByte(f[2])
		if err != nil {
			return Op{}, err
		}
		n, err := parseInt(f[3])
		if err != nil {
			return Op{}, err
		}
		if n < 0 {
			return Op{}, fmt.Errorf("negative check length %d", n)
		}
		return Op{Kind: KindCheck, Src: src, Byte: b, N: n}, nil

	case KeywordVerify:
		if len(f) != 1 {
			return Op{}, fmt.Errorf("%q takes no arguments", KeywordVerify)
		}
		return Op{Kind: KindVerify}, nil
	}
	return Op{}, fmt.Errorf("unknown statement %q", strings.Join(f, " "))
}

func parseAssign(dst, verb string, args []string) (Op, error) {
	dst, err := parseName(dst)
	if err != nil {
		return Op{}, err
	}
	op := Op{Dst: dst}

	switch verb {
	case KeywordMalloc:
		if len(args) != 1 {
			return Op{}, fmt.Errorf("want NAME = %s N", verb)
		}
		op.Kind = KindMalloc
		op.N, err = parseInt(args[0])

	case KeywordCalloc:
		if len(args) != 2 {
			return Op{}, fmt.Errorf("want NAME = %s COUNT SIZE", verb)
		}
		op.Kind = KindCalloc
		if op.N, err = parseInt(args[0]); err == nil {
			op.M, err = parseInt(args[1])
		}

	case KeywordRealloc:
		if len(args) != 2 {
			return Op{}, fmt.Errorf("want NAME = %s NAME N", verb)
		}
		op.Kind = KindRealloc
		if op.Src, err = parseOperand(args[0]); err == nil {
			op.N, err = parseInt(args[1])
		}

	default:
		return Op{}, fmt.Errorf("unknown allocation %q", verb)
	}
	return op, err
}

// parseOperand accepts a name or nil, which maps to "".
func parseOperand(s string) (string, error) {
	if s == KeywordNil {
		return "", nil
	}
	return parseName(s)
}

func parseName(s string) (string, error) {
	if s == KeywordNil || isKeyword(s) {
		return "", fmt.Errorf("%q is reserved", s)
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !letter && (i == 0 || !digit) {
			return "", fmt.Errorf("invalid name %q", s)
		}
	}
	return s, nil
}

func isKeyword(s string) bool {
	switch s {
	case KeywordMalloc, KeywordCalloc, KeywordRealloc, KeywordFree,
		KeywordFill, KeywordCheck, KeywordVerify:
		return true
	}
	return false
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(n), nil
}

func parseByte(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(n), nil
}
