/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package match implements comparator evaluation for feature-demands
// and the rule sets that providers use to admit demands.
//
// A feature-demand says how a provided value p must relate to what's
// demanded: EQ, GE, GT, LE, and LT compare p against a single value d
// (in that order: "GE" means p >= d), while IN_RANGE and OUT_RANGE
// compare p against inclusive (minimum, maximum) bounds.
//
// Values must be mutually orderable.  Numbers of any Go type are
// compared as float64s.  Strings are ordered lexically.  Booleans only
// support EQ.  Comparing values of incompatible types is not an
// error.  It's just not a match.
package match

import (
	"github.com/Comcast/pcom/contract"
)

// fudge is a hack to cast numbers to float64s.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float64:
		return vv
	case float32:
		return float64(vv)
	case int64:
		return float64(vv)
	case int32:
		return float64(vv)
	case int:
		return float64(vv)
	case uint64:
		return float64(vv)
	case uint32:
		return float64(vv)
	case uint:
		return float64(vv)
	default:
		return x
	}
}

// order compares a and b.  The second result is false if the values
// can't be ordered with respect to each other.
func order(a, b interface{}) (int, bool) {
	a, b = fudge(a), fudge(b)
	switch x := a.(type) {
	case float64:
		y, is := b.(float64)
		if !is {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		case x == y:
			return 0, true
		}
		// NaN
		return 0, false
	case string:
		y, is := b.(string)
		if !is {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Compare tests provided value p against demanded value d using a
// point comparator.
//
// Range comparators never match here.  Use CompareRange.
func Compare(cmp contract.Comparator, p, d interface{}) bool {
	if cmp == contract.EQ {
		if x, is := p.(bool); is {
			y, is := d.(bool)
			return is && x == y
		}
	}

	o, ok := order(p, d)
	if !ok {
		return false
	}

	switch cmp {
	case contract.EQ:
		return o == 0
	case contract.GE:
		return o >= 0
	case contract.GT:
		return o > 0
	case contract.LE:
		return o <= 0
	case contract.LT:
		return o < 0
	}
	return false
}

// CompareRange tests provided value p against the inclusive bounds
// [min,max] using IN_RANGE or OUT_RANGE.
func CompareRange(cmp contract.Comparator, p, min, max interface{}) bool {
	lo, ok := order(p, min)
	if !ok {
		return false
	}
	hi, ok := order(p, max)
	if !ok {
		return false
	}

	switch cmp {
	case contract.InRange:
		return 0 <= lo && hi <= 0
	case contract.OutRange:
		return lo < 0 || 0 < hi
	}
	return false
}

// Satisfies reports whether the provided value p satisfies the given
// feature-demand.
//
// Panics (via the Contract's getters) if the contract isn't a
// feature-demand.
func Satisfies(feature *contract.Contract, p interface{}) bool {
	cmp := feature.Comparator()
	if cmp.Ranged() {
		min, max, ok := feature.Bounds()
		if !ok {
			return false
		}
		return CompareRange(cmp, p, min, max)
	}
	d, ok := feature.Value()
	if !ok {
		return false
	}
	return Compare(cmp, p, d)
}
