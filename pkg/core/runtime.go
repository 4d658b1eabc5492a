// Package core is the managed-value runtime that generated programs run
// against: tagged Values, reference-counted tables addressed by handles,
// interned strings and an autorelease pool with nested scopes.
//
// A Runtime is single threaded. Counts and the pool are plain fields.
package core

import (
	"github.com/sirupsen/logrus"
)

// Runtime owns every live table and memory block, the string interner, the
// autorelease pool and the program's name and arguments.
type Runtime struct {
	appName string
	args    []string

	tables map[Handle]*Table
	blocks map[Handle]*Block
	nextID Handle
	pool   []*Table
	intern map[string]*internedString

	log logrus.FieldLogger
}

type internedString struct {
	s    string
	refs int
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithLogger(log logrus.FieldLogger) Option {
	return func(rt *Runtime) { rt.log = log }
}

// WithArgs sets the values returned by AppName and AppArgs.
func WithArgs(name string, args []string) Option {
	return func(rt *Runtime) {
		rt.appName = name
		rt.args = append([]string(nil), args...)
	}
}

func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		tables: make(map[Handle]*Table),
		blocks: make(map[Handle]*Block),
		intern: make(map[string]*internedString),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.log = rt.log.WithField("component", "core")
	return rt
}

func (rt *Runtime) AppName() string { return rt.appName }

// AppArgs returns a new autoreleased list of the program arguments.
func (rt *Runtime) AppArgs() *Table {
	return rt.StringList(rt.args)
}

// NewTable creates an empty table with one reference, owned by the
// autorelease pool.
func (rt *Runtime) NewTable() *Table {
	rt.nextID++
	t := &Table{rt: rt, id: rt.nextID, refs: 1, slots: make(map[string]Value)}
	rt.tables[t.id] = t
	rt.pool = append(rt.pool, t)
	return t
}

// Lookup resolves a handle to a live table, or nil.
func (rt *Runtime) Lookup(h Handle) *Table {
	return rt.tables[h]
}

// LiveTables returns the number of tables not yet destroyed.
func (rt *Runtime) LiveTables() int { return len(rt.tables) }

// IncRef adds a reference to t and returns it.
func (rt *Runtime) IncRef(t *Table) *Table {
	if t == nil || t.dead {
		return t
	}
	t.refs++
	return t
}

// DecRef drops a reference to t. At zero the table releases every value it
// holds and is destroyed; nested tables are released, not destroyed, so
// they survive while other owners remain.
func (rt *Runtime) DecRef(t *Table) {
	if t == nil || t.dead {
		return
	}
	t.refs--
	if t.refs > 0 {
		return
	}
	t.dead = true
	delete(rt.tables, t.id)
	slots, keys := t.slots, t.keys
	t.slots, t.keys, t.dense = make(map[string]Value), nil, 0
	for _, k := range keys {
		rt.release(slots[k])
	}
	rt.log.WithField("handle", t.id).Debug("table destroyed")
}

// AutoDec schedules one release of t for the next pool flush and returns t.
func (rt *Runtime) AutoDec(t *Table) *Table {
	if t == nil || t.dead {
		return t
	}
	rt.pool = append(rt.pool, t)
	return t
}

// DoAutoDec performs every pending release and empties the pool.
func (rt *Runtime) DoAutoDec() { rt.ReleaseTo(0) }

// Mark returns the current pool depth, to be passed to ReleaseTo when the
// scope that took it ends.
func (rt *Runtime) Mark() int { return len(rt.pool) }

// ReleaseTo performs the releases scheduled since mark.
func (rt *Runtime) ReleaseTo(mark int) {
	if mark < 0 || mark >= len(rt.pool) {
		return
	}
	pending := append([]*Table(nil), rt.pool[mark:]...)
	rt.pool = rt.pool[:mark]
	for _, t := range pending {
		rt.DecRef(t)
	}
	rt.log.WithField("released", len(pending)).Debug("pool flushed")
}

// Pending returns the number of scheduled releases.
func (rt *Runtime) Pending() int { return len(rt.pool) }

// Scope is a pool scope: Close releases everything autoreleased since the
// scope was opened.
type Scope struct {
	rt   *Runtime
	mark int
}

func (rt *Runtime) Scope() *Scope { return &Scope{rt: rt, mark: rt.Mark()} }

func (s *Scope) Close() { s.rt.ReleaseTo(s.mark) }

// Intern returns the canonical copy of s and counts a reference to it.
func (rt *Runtime) Intern(s string) string {
	e, ok := rt.intern[s]
	if !ok {
		e = &internedString{s: s}
		rt.intern[s] = e
	}
	e.refs++
	return e.s
}

// Interned returns the number of references held on s.
func (rt *Runtime) Interned(s string) int {
	if e, ok := rt.intern[s]; ok {
		return e.refs
	}
	return 0
}

func (rt *Runtime) releaseString(s string) {
	e, ok := rt.intern[s]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(rt.intern, s)
	}
}

// retain takes a reference on a managed value before it is stored.
func (rt *Runtime) retain(v Value) Value {
	switch v.kind {
	case KindString:
		v.s = rt.Intern(v.s)
	case KindTable:
		rt.IncRef(v.t)
	case KindRef:
		switch r := v.r.(type) {
		case *Table:
			rt.IncRef(r)
		case *Block:
			rt.IncRefBlock(r)
		}
	case KindInt, KindFloat:
	}
	return v
}

// release drops the reference a stored managed value held.
func (rt *Runtime) release(v Value) {
	switch v.kind {
	case KindString:
		rt.releaseString(v.s)
	case KindTable:
		rt.DecRef(v.t)
	case KindRef:
		switch r := v.r.(type) {
		case *Table:
			rt.DecRef(r)
		case *Block:
			rt.DecRefBlock(r)
		}
	case KindInt, KindFloat:
	}
}
