package obslog

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfoOnInvalidLevel(t *testing.T) {
	l := New("not-a-level", false)
	if l.zl.GetLevel() != zerolog.InfoLevel {
		t.Errorf("GetLevel() = %v, want InfoLevel", l.zl.GetLevel())
	}
}

func TestNewHonorsConfiguredLevel(t *testing.T) {
	l := New("debug", false)
	if l.zl.GetLevel() != zerolog.DebugLevel {
		t.Errorf("GetLevel() = %v, want DebugLevel", l.zl.GetLevel())
	}
}

func TestWithPreservesLevel(t *testing.T) {
	l := New("warn", false)
	withFields := l.With(F("handler", "high_speed"))
	if withFields.zl.GetLevel() != zerolog.WarnLevel {
		t.Errorf("GetLevel() = %v, want WarnLevel", withFields.zl.GetLevel())
	}
}

func TestErrorAcceptsNilError(t *testing.T) {
	l := New("info", false)
	// must not panic with a nil error.
	l.Error("evaluation failed", nil, F("handler", "distance"))
}

func TestErrorAcceptsNonNilError(t *testing.T) {
	l := New("info", false)
	l.Error("query failed", errors.New("timeout"), F("handler", "is_tug_or_pilot"))
}
