package core

import (
	"strconv"
	"strings"
)

// Handle identifies a table inside its Runtime. Zero is the null handle.
type Handle uint32

// Table is the unified container: an insertion-ordered map from string keys
// to Values. Integer indices use their decimal form as the key. While every
// key is an index 0..n-1 the table behaves as a list: setting an index past
// the end fills the gap with int 0.
//
// Every method is safe on a nil *Table, which reads as an empty table and
// ignores writes.
type Table struct {
	rt    *Runtime
	id    Handle
	refs  int
	keys  []string
	slots map[string]Value
	dense int // keys "0".."dense-1" are all present
	dead  bool
}

func (t *Table) Handle() Handle {
	if t == nil {
		return 0
	}
	return t.id
}

// Refs returns the current reference count.
func (t *Table) Refs() int {
	if t == nil {
		return 0
	}
	return t.refs
}

func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

func (t *Table) Contains(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.slots[key]
	return ok
}

// Keys returns a copy of the keys in insertion order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Get returns the value stored at key.
func (t *Table) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.slots[key]
	return v, ok
}

// Int, Float, String, Table and Ref read a slot converted to the requested
// type. A missing key reads as that type's zero value.
func (t *Table) Int(key string) int64 {
	v, _ := t.Get(key)
	return v.ToInt()
}

func (t *Table) Float(key string) float64 {
	v, _ := t.Get(key)
	return v.ToFloat()
}

func (t *Table) String(key string) string {
	v, ok := t.Get(key)
	if !ok {
		return ""
	}
	return v.ToString()
}

func (t *Table) Table(key string) *Table {
	v, _ := t.Get(key)
	return v.ToTable()
}

func (t *Table) Ref(key string) any {
	v, _ := t.Get(key)
	return v.ToRef()
}

// IndexKey returns the key used for integer index i.
func IndexKey(i int64) string { return strconv.FormatInt(i, 10) }

// parseIndex reports whether key is the canonical decimal form of a
// non-negative index.
func parseIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (t *Table) isList() bool { return t.dense == len(t.keys) }

// Set stores v at key, retaining v before releasing any value it replaces.
// It returns t so that literal construction can chain calls.
func (t *Table) Set(key string, v Value) *Table {
	if t == nil || t.dead {
		return t
	}
	v = t.rt.retain(v)
	if old, ok := t.slots[key]; ok {
		t.slots[key] = v
		t.rt.release(old)
		return t
	}
	if n, ok := parseIndex(key); ok && t.isList() {
		for i := t.dense; i < n; i++ {
			t.insert(strconv.Itoa(i), FromInt(0))
		}
	}
	t.insert(key, v)
	return t
}

func (t *Table) insert(key string, v Value) {
	t.keys = append(t.keys, key)
	t.slots[key] = v
	for t.Contains(strconv.Itoa(t.dense)) {
		t.dense++
	}
	t.reindex()
}

// reindex restores index order once the table is list-shaped again, after a
// hole was refilled or the last keyed slot removed. Lists iterate 0..n-1.
func (t *Table) reindex() {
	if !t.isList() {
		return
	}
	for i, k := range t.keys {
		if k != strconv.Itoa(i) {
			for j := range t.keys {
				t.keys[j] = strconv.Itoa(j)
			}
			return
		}
	}
}

func (t *Table) SetInt(key string, i int64) *Table     { return t.Set(key, FromInt(i)) }
func (t *Table) SetFloat(key string, f float64) *Table { return t.Set(key, FromFloat(f)) }
func (t *Table) SetString(key string, s string) *Table { return t.Set(key, FromString(s)) }
func (t *Table) SetTable(key string, c *Table) *Table  { return t.Set(key, FromTable(c)) }
func (t *Table) SetRef(key string, r any) *Table       { return t.Set(key, FromRef(r)) }

// Append stores v at the next index of a list-shaped table.
func (t *Table) Append(v Value) *Table {
	if t == nil {
		return t
	}
	return t.Set(strconv.Itoa(t.dense), v)
}

// Remove deletes key, releasing its value. Remaining indices are not
// shifted.
func (t *Table) Remove(key string) {
	if t == nil {
		return
	}
	old, ok := t.slots[key]
	if !ok {
		return
	}
	delete(t.slots, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	if n, ok := parseIndex(key); ok && n < t.dense {
		t.dense = n
	}
	t.reindex()
	t.rt.release(old)
}

// Clear removes every slot, releasing the values.
func (t *Table) Clear() {
	if t == nil {
		return
	}
	old := t.slots
	keys := t.keys
	t.slots = make(map[string]Value)
	t.keys = nil
	t.dense = 0
	for _, k := range keys {
		t.rt.release(old[k])
	}
}

// ToString renders the table as "[v, ...]" when it is list-shaped and as
// {"k": v, ...} otherwise. Strings are quoted; a table reached again while
// rendering itself prints as "...".
func (t *Table) ToString() string {
	var sb strings.Builder
	t.render(&sb, make(map[*Table]bool))
	return sb.String()
}

func (t *Table) render(sb *strings.Builder, seen map[*Table]bool) {
	if t == nil {
		sb.WriteString("null")
		return
	}
	if seen[t] {
		sb.WriteString("...")
		return
	}
	seen[t] = true
	defer delete(seen, t)

	list := t.isList()
	if list {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('{')
	}
	for i, k := range t.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		if !list {
			sb.WriteString(`"` + k + `": `)
		}
		v := t.slots[k]
		switch v.kind {
		case KindString:
			sb.WriteString(`"` + v.s + `"`)
		case KindTable:
			v.t.render(sb, seen)
		case KindRef:
			if v.r == nil {
				sb.WriteString("null")
			} else {
				sb.WriteString("<ref>")
			}
		case KindInt, KindFloat:
			sb.WriteString(v.ToString())
		}
	}
	if list {
		sb.WriteByte(']')
	} else {
		sb.WriteByte('}')
	}
}
