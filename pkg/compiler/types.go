package compiler

// Type is the static type of a variable, expression or function result.
type Type int

const (
	Void Type = iota
	Int
	Float
	String
	Table
	Ref
)

var typeNames = [...]string{
	Void:   "void",
	Int:    "int",
	Float:  "float",
	String: "string",
	Table:  "table",
	Ref:    "ref",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type?"
}

// Suffix returns the one-character suffix spelling of t, empty for Void.
func (t Type) Suffix() string {
	switch t {
	case Int:
		return "%"
	case Float:
		return "#"
	case String:
		return "$"
	case Table:
		return "&"
	case Ref:
		return "@"
	}
	return ""
}

// IsNumeric reports whether t is Int or Float.
func (t Type) IsNumeric() bool { return t == Int || t == Float }

// IsManaged reports whether values of t are reference counted at run time.
func (t Type) IsManaged() bool { return t == String || t == Table }

// TypeFromSuffix maps a type-suffix token to its Type.
func TypeFromSuffix(tt TokenType) (Type, bool) {
	switch tt {
	case TYPE_INT:
		return Int, true
	case TYPE_FLOAT:
		return Float, true
	case TYPE_STRING:
		return String, true
	case TYPE_TABLE:
		return Table, true
	case TYPE_REF:
		return Ref, true
	}
	return Void, false
}

// AreCompatible reports whether a value of type b may be used where a is
// expected: the types match, or both are numeric. Void is compatible with
// nothing.
func AreCompatible(a, b Type) bool {
	if a == Void || b == Void {
		return false
	}
	return a == b || (a.IsNumeric() && b.IsNumeric())
}

// BalanceTypes returns the result type of a binary numeric operation: Float
// when either side is Float. Operands must already be compatible.
func BalanceTypes(a, b Type) Type {
	if a == Float || b == Float {
		return Float
	}
	return a
}
