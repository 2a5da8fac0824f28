package fluent

import (
	"errors"
	"fmt"
	"time"
)

// ErrTypeMismatch is returned by ValueOf when the requested type T does not
// match the value's actual Kind.
var ErrTypeMismatch = errors.New("fluent: value type mismatch")

// Kind identifies which of the seven value variants a Value holds. The set
// is closed: textual, integer, long-integer, floating-point, boolean,
// 2-D point and wall-clock instant.
type Kind int

const (
	KindTextual Kind = iota
	KindInteger
	KindLongInt
	KindFloatPt
	KindBoolean
	KindPlanePt
	KindInstant
)

func (k Kind) String() string {
	switch k {
	case KindTextual:
		return "textual"
	case KindInteger:
		return "integer"
	case KindLongInt:
		return "long_int"
	case KindFloatPt:
		return "float_pt"
	case KindBoolean:
		return "boolean"
	case KindPlanePt:
		return "plane_pt"
	case KindInstant:
		return "instant"
	default:
		return "unknown"
	}
}

// PlanePt is a point in a two-dimensional plane, e.g. a (longitude,
// latitude) pair.
type PlanePt struct {
	X float64
	Y float64
}

// ValueType is the set of Go types a Value can carry. It mirrors the
// original implementation's ValueType trait, which was implemented for
// String, i32, i64, f64, bool, (f64,f64) and Instant.
type ValueType interface {
	string | int32 | int64 | float64 | bool | PlanePt | time.Time
}

// Value is a closed tagged union over the seven fluent value variants. Its
// zero value is not meaningful; use the New* constructors.
type Value struct {
	kind    Kind
	textual string
	integer int32
	longInt int64
	floatPt float64
	boolean bool
	planePt PlanePt
	instant time.Time
}

// NewTextual constructs a Textual value.
func NewTextual(v string) Value { return Value{kind: KindTextual, textual: v} }

// NewInteger constructs an Integer value.
func NewInteger(v int32) Value { return Value{kind: KindInteger, integer: v} }

// NewLongInt constructs a LongInt value.
func NewLongInt(v int64) Value { return Value{kind: KindLongInt, longInt: v} }

// NewFloatPt constructs a FloatPt value.
func NewFloatPt(v float64) Value { return Value{kind: KindFloatPt, floatPt: v} }

// NewBoolean constructs a Boolean value.
func NewBoolean(v bool) Value { return Value{kind: KindBoolean, boolean: v} }

// NewPlanePt constructs a PlanePt value.
func NewPlanePt(v PlanePt) Value { return Value{kind: KindPlanePt, planePt: v} }

// NewInstant constructs an Instant value.
func NewInstant(v time.Time) Value { return Value{kind: KindInstant, instant: v} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Boxed returns the value unwrapped to its dynamic Go type, for callers
// that need to cross a boundary not parameterised over ValueType (logging,
// sink serialization).
func (v Value) Boxed() any {
	switch v.kind {
	case KindTextual:
		return v.textual
	case KindInteger:
		return v.integer
	case KindLongInt:
		return v.longInt
	case KindFloatPt:
		return v.floatPt
	case KindBoolean:
		return v.boolean
	case KindPlanePt:
		return v.planePt
	case KindInstant:
		return v.instant
	default:
		return nil
	}
}

// ValueOf extracts the typed payload of v. It returns ErrTypeMismatch if T
// does not correspond to v's Kind.
//
// The original implementation treats a downcast failure as a programming
// error and panics. This port prefers an explicit error: every call site in
// this codebase is expected to check it. MustValue below recovers the
// literal panic-on-mismatch behavior for callers that prefer it.
func ValueOf[T ValueType](v Value) (T, error) {
	var zero T
	boxed := v.Boxed()
	typed, ok := boxed.(T)
	if !ok {
		return zero, fmt.Errorf("%w: requested %T, fluent holds %s", ErrTypeMismatch, zero, v.kind)
	}
	return typed, nil
}

// MustValue is ValueOf, panicking on type mismatch instead of returning an
// error.
func MustValue[T ValueType](v Value) T {
	typed, err := ValueOf[T](v)
	if err != nil {
		panic(err)
	}
	return typed
}

// equalValue reports whether two values are equal by kind and payload, used
// by Fluent.Update to detect a genuine value change.
func equalValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindTextual:
		return a.textual == b.textual
	case KindInteger:
		return a.integer == b.integer
	case KindLongInt:
		return a.longInt == b.longInt
	case KindFloatPt:
		return a.floatPt == b.floatPt
	case KindBoolean:
		return a.boolean == b.boolean
	case KindPlanePt:
		return a.planePt == b.planePt
	case KindInstant:
		return a.instant.Equal(b.instant)
	default:
		return false
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.kind, v.Boxed())
}
