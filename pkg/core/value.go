package core

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindTable
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindRef:
		return "ref"
	}
	return "kind?"
}

// Value is a dynamically typed runtime value. Only the field matching kind
// is meaningful; the zero Value is int 0.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    *Table
	r    any
}

func FromInt(i int64) Value     { return Value{kind: KindInt, i: i} }
func FromFloat(f float64) Value { return Value{kind: KindFloat, f: f} }
func FromString(s string) Value { return Value{kind: KindString, s: s} }
func FromTable(t *Table) Value  { return Value{kind: KindTable, t: t} }
func FromRef(r any) Value       { return Value{kind: KindRef, r: r} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsManaged() bool { return v.kind == KindString || v.kind == KindTable }

// ToInt converts v to an int. Floats truncate, strings parse like Val.
func (v Value) ToInt() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return truncate(v.f)
	case KindString:
		return Val(v.s)
	case KindTable, KindRef:
		return 0
	}
	return 0
}

// ToFloat converts v to a float. Strings parse like ValF.
func (v Value) ToFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindString:
		return ValF(v.s)
	case KindTable, KindRef:
		return 0
	}
	return 0
}

// ToString renders v. Tables render in their JSON-like debug form.
func (v Value) ToString() string {
	switch v.kind {
	case KindInt:
		return Str(v.i)
	case KindFloat:
		return StrF(v.f)
	case KindString:
		return v.s
	case KindTable:
		return v.t.ToString()
	case KindRef:
		return ""
	}
	return ""
}

// ToTable returns the table held by v, or nil for every other kind.
func (v Value) ToTable() *Table {
	switch v.kind {
	case KindTable:
		return v.t
	case KindRef:
		if t, ok := v.r.(*Table); ok {
			return t
		}
	case KindInt, KindFloat, KindString:
	}
	return nil
}

// ToRef returns v as an opaque reference. Numbers have no reference form.
func (v Value) ToRef() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindTable:
		if v.t == nil {
			return nil
		}
		return v.t
	case KindRef:
		return v.r
	case KindInt, KindFloat:
	}
	return nil
}

func truncate(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	return int64(math.Trunc(f))
}

// Str formats an int.
func Str(i int64) string { return strconv.FormatInt(i, 10) }

// StrF formats a float in its shortest form, keeping a ".0" on integral
// values so they read back as floats.
func StrF(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Val parses the leading integer of s, after optional blanks and sign. Hex
// with a 0x prefix is accepted. Anything unparsable yields 0.
func Val(s string) int64 {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < base {
		end++
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

func digitValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return 99
}

// ValF parses the longest float prefix of s. Anything unparsable yields 0.
func ValF(s string) float64 {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '-' || s[exp] == '+') {
			exp++
		}
		if exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
			for exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
				exp++
			}
			end = exp
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}
