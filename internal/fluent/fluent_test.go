package fluent

import (
	"errors"
	"testing"
	"time"
)

func ts(seconds int) time.Time {
	return time.Date(2026, 7, 31, 0, 0, seconds, 0, time.UTC)
}

func TestNewSetsLastChangeToTimestamp(t *testing.T) {
	f := New("speed", Keys{42}, ts(0), NewFloatPt(5.0))
	if !f.LastChange().Equal(f.Timestamp()) {
		t.Errorf("LastChange = %v, want %v", f.LastChange(), f.Timestamp())
	}
}

func TestNewSortsKeys(t *testing.T) {
	f := New("rendez_vous", Keys{42, 7}, ts(0), NewBoolean(true))
	want := Keys{7, 42}
	if !f.Keys().Equal(want) {
		t.Errorf("Keys() = %v, want %v", f.Keys(), want)
	}
}

func TestUpdateAdvancesTimestamp(t *testing.T) {
	f := New("speed", Keys{1}, ts(0), NewFloatPt(5.0))
	next, err := f.Update(ts(1), NewFloatPt(6.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Timestamp().Equal(ts(1)) {
		t.Errorf("Timestamp() = %v, want %v", next.Timestamp(), ts(1))
	}
	got, _ := ValueOf[float64](next.ValueOf())
	if got != 6.0 {
		t.Errorf("value = %v, want 6.0", got)
	}
}

func TestUpdateRejectsEqualTimestamp(t *testing.T) {
	f := New("speed", Keys{1}, ts(5), NewFloatPt(5.0))
	_, err := f.Update(ts(5), NewFloatPt(6.0))
	if !errors.Is(err, ErrNonMonotonicUpdate) {
		t.Fatalf("expected ErrNonMonotonicUpdate, got %v", err)
	}
}

func TestUpdateRejectsEarlierTimestamp(t *testing.T) {
	f := New("speed", Keys{1}, ts(5), NewFloatPt(5.0))
	_, err := f.Update(ts(4), NewFloatPt(6.0))
	if !errors.Is(err, ErrNonMonotonicUpdate) {
		t.Fatalf("expected ErrNonMonotonicUpdate, got %v", err)
	}
}

func TestUpdateLastChangeOnlyAdvancesWhenValueChanges(t *testing.T) {
	f := New("near_coast", Keys{1}, ts(0), NewBoolean(true))

	// same value re-asserted: LastChange stays at the original timestamp.
	reasserted, err := f.Update(ts(1), NewBoolean(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reasserted.LastChange().Equal(ts(0)) {
		t.Errorf("LastChange() = %v, want %v (unchanged)", reasserted.LastChange(), ts(0))
	}

	// value flips: LastChange advances to the new timestamp.
	changed, err := reasserted.Update(ts(2), NewBoolean(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed.LastChange().Equal(ts(2)) {
		t.Errorf("LastChange() = %v, want %v", changed.LastChange(), ts(2))
	}
}

func TestUpdateDoesNotMutateReceiver(t *testing.T) {
	f := New("speed", Keys{1}, ts(0), NewFloatPt(5.0))
	_, err := f.Update(ts(1), NewFloatPt(6.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Timestamp().Equal(ts(0)) {
		t.Errorf("receiver mutated: Timestamp() = %v, want %v", f.Timestamp(), ts(0))
	}
	got, _ := ValueOf[float64](f.ValueOf())
	if got != 5.0 {
		t.Errorf("receiver mutated: value = %v, want 5.0", got)
	}
}
