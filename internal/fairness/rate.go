package fairness

import (
	"encoding/json"
	"errors"
)

// ErrUndefinedRate signals a rate whose denominator is zero: there was no
// data in the conditioning set, which is different from a measured rate of
// zero. Callers must be able to tell the two apart, so rates never default
// to 0.0 silently.
var ErrUndefinedRate = errors.New("rate undefined: no records in conditioning set")

// Rate is a proportion in [0, 1] that may be undefined. The zero value is
// the undefined rate.
type Rate struct {
	value   float64
	defined bool
}

// DefinedRate wraps a known proportion.
func DefinedRate(v float64) Rate { return Rate{value: v, defined: true} }

// UndefinedRate is the rate of an empty conditioning set.
func UndefinedRate() Rate { return Rate{} }

// ratio divides num by den, undefined when den is zero.
func ratio(num, den int) Rate {
	if den == 0 {
		return UndefinedRate()
	}
	return DefinedRate(float64(num) / float64(den))
}

// Defined reports whether the rate carries a value.
func (r Rate) Defined() bool { return r.defined }

// Value returns the proportion, or ErrUndefinedRate when the denominator
// was zero.
func (r Rate) Value() (float64, error) {
	if !r.defined {
		return 0, ErrUndefinedRate
	}
	return r.value, nil
}

// MarshalJSON encodes a defined rate as a number and an undefined rate as
// null, preserving the zero-versus-undefined distinction on the wire.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts a number or null.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*r = UndefinedRate()
		return nil
	}
	*r = DefinedRate(*v)
	return nil
}
