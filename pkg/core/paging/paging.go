/*
Package paging converts offset/limit/order listing parameters into store
iteration bounds and walks the store within them.
*/
package paging

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nspcc-dev/aioracle/pkg/core/storage"
)

const (
	// DefaultLimit is used when no limit is requested.
	DefaultLimit = 20
	// MaxLimit is the maximum number of items returned by one call.
	MaxLimit = 50
)

// Order is the iteration direction.
type Order byte

// Supported orders, any value other than Descending is treated as Ascending.
const (
	Ascending  Order = 1
	Descending Order = 2
)

// Params are the listing parameters as they are received from the caller.
type Params struct {
	// Offset is an exclusive bound in the iterated key space, nil means
	// there is no bound.
	Offset []byte
	// Limit is the requested number of items, non-positive values mean
	// DefaultLimit and anything above MaxLimit is clamped.
	Limit int
	Order Order
}

// Bound is one side of an iteration range.
type Bound struct {
	Key       []byte
	Inclusive bool
}

// Range is a normalized iteration range.
type Range struct {
	Limit     int
	Min       *Bound
	Max       *Bound
	Backwards bool
}

// NormalizeLimit applies the default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// IsDescending tells whether the order selects descending iteration.
func (o Order) IsDescending() bool {
	return o == Descending
}

// String implements the fmt.Stringer interface.
func (o Order) String() string {
	if o.IsDescending() {
		return "descending"
	}
	return "ascending"
}

// ParseOrder converts the textual order representation into Order, empty
// string means Ascending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending", "1":
		return Ascending, nil
	case "desc", "descending", "2":
		return Descending, nil
	default:
		return 0, fmt.Errorf("unknown order %q", s)
	}
}

// NewRange converts Params to Range. The offset becomes an exclusive lower
// bound for ascending iteration and an exclusive upper bound for descending.
func NewRange(p Params) Range {
	r := Range{
		Limit:     NormalizeLimit(p.Limit),
		Backwards: p.Order.IsDescending(),
	}
	if p.Offset != nil {
		b := &Bound{Key: p.Offset}
		if r.Backwards {
			r.Max = b
		} else {
			r.Min = b
		}
	}
	return r
}

// Bounded returns a Range for an explicit [start, end) window. For
// descending iteration the window is (end, start], that is start is the
// greatest included key. Nil start or end means no bound on that side.
func Bounded(start, end []byte, order Order, limit int) Range {
	r := Range{
		Limit:     NormalizeLimit(limit),
		Backwards: order.IsDescending(),
	}
	if !r.Backwards {
		if start != nil {
			r.Min = &Bound{Key: start, Inclusive: true}
		}
		if end != nil {
			r.Max = &Bound{Key: end}
		}
	} else {
		if start != nil {
			r.Max = &Bound{Key: start, Inclusive: true}
		}
		if end != nil {
			r.Min = &Bound{Key: end}
		}
	}
	return r
}

// above tells whether the key satisfies b as a lower bound, nil bound is
// satisfied by any key.
func (b *Bound) above(key []byte) bool {
	if b == nil {
		return true
	}
	c := bytes.Compare(key, b.Key)
	return c > 0 || c == 0 && b.Inclusive
}

// below tells whether the key satisfies b as an upper bound.
func (b *Bound) below(key []byte) bool {
	if b == nil {
		return true
	}
	c := bytes.Compare(key, b.Key)
	return c < 0 || c == 0 && b.Inclusive
}

// Contains checks whether the key lies within the range bounds.
func (r Range) Contains(key []byte) bool {
	return r.Min.above(key) && r.Max.below(key)
}

// Seek iterates over the keys under prefix within the range passing the
// key suffix (without prefix) and the value to f until f returns false or
// the limit is reached.
func (r Range) Seek(s storage.Store, prefix []byte, f func(k, v []byte) bool) {
	if r.Limit <= 0 {
		return
	}
	rng := storage.SeekRange{
		Prefix:    prefix,
		Backwards: r.Backwards,
	}
	// Iteration starts from the near bound and stops at the far one.
	nearOK, farOK := r.Min.above, r.Max.below
	near := r.Min
	if r.Backwards {
		nearOK, farOK = r.Max.below, r.Min.above
		near = r.Max
	}
	if near != nil {
		rng.Start = near.Key
	}
	var count int
	s.Seek(rng, func(k, v []byte) bool {
		suffix := k[len(prefix):]
		if !nearOK(suffix) {
			return true
		}
		if !farOK(suffix) {
			return false
		}
		count++
		return f(suffix, v) && count < r.Limit
	})
}
