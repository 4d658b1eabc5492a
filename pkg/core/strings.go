package core

import "strings"

// String built-ins. Offsets and counts are clamped to the string, so no
// argument combination fails.

func clamp(n, lo, hi int64) int64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func Len(s string) int64 { return int64(len(s)) }

func Left(s string, count int64) string {
	return s[:clamp(count, 0, int64(len(s)))]
}

func Right(s string, count int64) string {
	n := int64(len(s))
	return s[n-clamp(count, 0, n):]
}

func Mid(s string, offset, count int64) string {
	n := int64(len(s))
	start := clamp(offset, 0, n)
	return s[start:clamp(start+clamp(count, 0, n), start, n)]
}

func Lower(s string) string { return strings.ToLower(s) }

func Upper(s string) string { return strings.ToUpper(s) }

// Find returns the index of search in s at or after offset, or -1.
func Find(s, search string, offset int64) int64 {
	start := clamp(offset, 0, int64(len(s)))
	i := strings.Index(s[start:], search)
	if i < 0 {
		return -1
	}
	return start + int64(i)
}

// Replace substitutes every occurrence of search. An empty search leaves s
// unchanged.
func Replace(s, search, with string) string {
	if search == "" {
		return s
	}
	return strings.ReplaceAll(s, search, with)
}

func Trim(s string) string { return strings.TrimSpace(s) }

// Asc returns the byte at index, or 0 when out of range.
func Asc(s string, index int64) int64 {
	if index < 0 || index >= int64(len(s)) {
		return 0
	}
	return int64(s[index])
}

func Chr(c int64) string { return string([]byte{byte(c)}) }

// Join concatenates the string form of every value in t, in key order.
func Join(t *Table, sep string) string {
	parts := make([]string, 0, t.Size())
	for _, k := range t.Keys() {
		parts = append(parts, t.String(k))
	}
	return strings.Join(parts, sep)
}

// Split returns a new autoreleased list of the pieces of s. An empty
// separator splits into single characters.
func (rt *Runtime) Split(s, sep string) *Table {
	t := rt.NewTable()
	var parts []string
	if sep == "" {
		parts = strings.Split(s, "")
	} else {
		parts = strings.Split(s, sep)
	}
	for _, p := range parts {
		t.Append(FromString(p))
	}
	return t
}

// KeysOf returns a new autoreleased list of the keys of t.
func (rt *Runtime) KeysOf(t *Table) *Table {
	keys := rt.NewTable()
	for _, k := range t.Keys() {
		keys.Append(FromString(k))
	}
	return keys
}

// StringList returns a new autoreleased list holding items.
func (rt *Runtime) StringList(items []string) *Table {
	t := rt.NewTable()
	for _, s := range items {
		t.Append(FromString(s))
	}
	return t
}
