package fluent

import (
	"errors"
	"fmt"
	"time"
)

// ErrNonMonotonicUpdate is returned by Update when the supplied timestamp
// does not strictly follow the fluent's current timestamp (spec invariant
// I2: fluent timestamps are strictly increasing per name+keys).
var ErrNonMonotonicUpdate = errors.New("fluent: cannot update with non-increasing timestamp")

// Fluent is one observation of a named, keyed quantity at a point in time.
// A Fluent's identity is the pair (Name, Keys); within that identity,
// successive observations are ordered strictly by Timestamp.
type Fluent struct {
	name       string
	keys       Keys
	timestamp  time.Time
	value      Value
	lastChange time.Time
}

// New constructs a Fluent observed at timestamp ts. LastChange is
// initialised to ts, matching the original implementation's constructor.
func New(name string, keys Keys, ts time.Time, value Value) Fluent {
	return Fluent{
		name:       name,
		keys:       keys.Sorted(),
		timestamp:  ts,
		value:      value,
		lastChange: ts,
	}
}

// Name returns the fluent's name.
func (f Fluent) Name() string { return f.name }

// Keys returns the fluent's keys, sorted ascending.
func (f Fluent) Keys() Keys { return f.keys }

// Timestamp returns the observation time of the current value.
func (f Fluent) Timestamp() time.Time { return f.timestamp }

// LastChange returns the timestamp at which the value last actually
// changed, which may be older than Timestamp if recent updates reasserted
// the same value.
func (f Fluent) LastChange() time.Time { return f.lastChange }

// ValueOf returns the fluent's current value.
func (f Fluent) ValueOf() Value { return f.value }

// Update advances f to a new observation. It returns ErrNonMonotonicUpdate
// if ts does not strictly follow f's current timestamp. LastChange is
// updated only if the new value differs from the current one; otherwise it
// is carried forward unchanged.
func (f Fluent) Update(ts time.Time, value Value) (Fluent, error) {
	if !ts.After(f.timestamp) {
		return f, fmt.Errorf("%w: name=%s keys=%s current=%s new=%s",
			ErrNonMonotonicUpdate, f.name, f.keys, f.timestamp, ts)
	}
	lastChange := f.lastChange
	if !equalValue(f.value, value) {
		lastChange = ts
	}
	return Fluent{
		name:       f.name,
		keys:       f.keys,
		timestamp:  ts,
		value:      value,
		lastChange: lastChange,
	}, nil
}

func (f Fluent) String() string {
	return fmt.Sprintf("%s%s@%s=%s", f.name, f.keys, f.timestamp.Format(time.RFC3339Nano), f.value)
}
