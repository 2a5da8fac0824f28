package handler

import (
	"testing"
	"time"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

func ts(seconds int) time.Time {
	return time.Date(2026, 7, 31, 0, 0, seconds, 0, time.UTC)
}

func keys(ks ...int64) fluent.Keys {
	out := make(fluent.Keys, len(ks))
	for i, k := range ks {
		out[i] = fluent.Key(k)
	}
	return out
}

func TestMergeIfOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   fluent.Keys
		want   fluent.Keys
		wantOK bool
	}{
		{"subset", keys(42), keys(23, 42), keys(23, 42), true},
		{"identical", keys(23, 42), keys(23, 42), keys(23, 42), true},
		{"unordered rhs", keys(42), keys(42, 23), keys(23, 42), true},
		{"single identical", keys(42), keys(42), keys(42), true},
		{"disjoint", keys(42), keys(23), nil, false},
		{"empty lhs", keys(), keys(23, 42), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mergeIfOverlap(tt.a, tt.b)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("merged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyMatches(t *testing.T) {
	t.Run("single match", func(t *testing.T) {
		keySets := []fluent.Keys{keys(23), keys(42), keys(72), keys(94)}
		got := keyMatches(keySets, keys(72))
		want := []fluent.Keys{keys(72)}
		assertKeysSliceEqual(t, got, want)
	})

	t.Run("pairs with another key set", func(t *testing.T) {
		keySets := []fluent.Keys{
			keys(23), keys(42), keys(23, 42), keys(72), keys(94), keys(42, 72),
		}
		got := keyMatches(keySets, keys(23))
		want := []fluent.Keys{keys(23, 42)}
		assertKeysSliceEqual(t, got, want)
	})

	t.Run("multiple max-length matches", func(t *testing.T) {
		keySets := []fluent.Keys{
			keys(23), keys(42), keys(23, 42), keys(72), keys(94), keys(42, 72),
		}
		got := keyMatches(keySets, keys(42))
		want := []fluent.Keys{keys(23, 42), keys(42, 72)}
		assertKeysSliceEqual(t, got, want)
	})

	t.Run("no overlap returns empty", func(t *testing.T) {
		keySets := []fluent.Keys{
			keys(23), keys(42), keys(23, 42), keys(72), keys(94), keys(42, 72),
		}
		got := keyMatches(keySets, keys(1337))
		if len(got) != 0 {
			t.Errorf("expected no matches, got %v", got)
		}
	})

	t.Run("three way merge picks longest", func(t *testing.T) {
		keySets := []fluent.Keys{keys(23), keys(23, 42, 72), keys(94), keys(42, 72)}
		got := keyMatches(keySets, keys(23, 42))
		want := []fluent.Keys{keys(23, 42, 72)}
		assertKeysSliceEqual(t, got, want)
	})
}

func assertKeysSliceEqual(t *testing.T, got, want []fluent.Keys) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNamesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"same order", []string{"speed", "location"}, []string{"speed", "location"}, true},
		{"different order", []string{"speed", "location"}, []string{"location", "speed"}, true},
		{"different length", []string{"speed"}, []string{"speed", "location"}, false},
		{"disjoint", []string{"speed"}, []string{"location"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := namesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("namesEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortByGivenOrder(t *testing.T) {
	fs := []fluent.Fluent{
		fluent.New("lat", keys(1), ts(0), fluent.NewFloatPt(1)),
		fluent.New("lon", keys(1), ts(0), fluent.NewFloatPt(2)),
	}
	sortByGivenOrder(fs, []string{"lon", "lat"})
	if fs[0].Name() != "lon" || fs[1].Name() != "lat" {
		t.Errorf("unexpected order: %s, %s", fs[0].Name(), fs[1].Name())
	}
}
