package fluent

import (
	"errors"
	"testing"
	"time"
)

func TestValueOfMatchingKind(t *testing.T) {
	t.Run("textual", func(t *testing.T) {
		v := NewTextual("hello")
		got, err := ValueOf[string](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Errorf("ValueOf = %q, want %q", got, "hello")
		}
	})
	t.Run("integer", func(t *testing.T) {
		v := NewInteger(7)
		got, err := ValueOf[int32](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 {
			t.Errorf("ValueOf = %d, want 7", got)
		}
	})
	t.Run("long_int", func(t *testing.T) {
		v := NewLongInt(9876543210)
		got, err := ValueOf[int64](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 9876543210 {
			t.Errorf("ValueOf = %d, want 9876543210", got)
		}
	})
	t.Run("float_pt", func(t *testing.T) {
		v := NewFloatPt(3.14)
		got, err := ValueOf[float64](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 3.14 {
			t.Errorf("ValueOf = %v, want 3.14", got)
		}
	})
	t.Run("boolean", func(t *testing.T) {
		v := NewBoolean(true)
		got, err := ValueOf[bool](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got {
			t.Errorf("ValueOf = %v, want true", got)
		}
	})
	t.Run("plane_pt", func(t *testing.T) {
		pt := PlanePt{X: 1.5, Y: -2.5}
		v := NewPlanePt(pt)
		got, err := ValueOf[PlanePt](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != pt {
			t.Errorf("ValueOf = %v, want %v", got, pt)
		}
	})
	t.Run("instant", func(t *testing.T) {
		ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
		v := NewInstant(ts)
		got, err := ValueOf[time.Time](v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(ts) {
			t.Errorf("ValueOf = %v, want %v", got, ts)
		}
	})
}

func TestValueOfMismatch(t *testing.T) {
	v := NewTextual("hello")
	_, err := ValueOf[int32](v)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestMustValuePanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on type mismatch")
		}
	}()
	MustValue[bool](NewInteger(1))
}

func TestEqualValue(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same textual", NewTextual("a"), NewTextual("a"), true},
		{"different textual", NewTextual("a"), NewTextual("b"), false},
		{"different kind", NewInteger(1), NewLongInt(1), false},
		{"same plane_pt", NewPlanePt(PlanePt{1, 2}), NewPlanePt(PlanePt{1, 2}), true},
		{"different plane_pt", NewPlanePt(PlanePt{1, 2}), NewPlanePt(PlanePt{1, 3}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := equalValue(tt.a, tt.b); got != tt.want {
				t.Errorf("equalValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindTextual, "textual"},
		{KindInteger, "integer"},
		{KindLongInt, "long_int"},
		{KindFloatPt, "float_pt"},
		{KindBoolean, "boolean"},
		{KindPlanePt, "plane_pt"},
		{KindInstant, "instant"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
