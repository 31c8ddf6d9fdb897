/* Copyright 2026 Comcast Cable Communications Management, LLC
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

package contract

import (
	"reflect"
)

// Contract is a node in a typed demand or provision tree.
//
// A Contract has a kind, a name that's unique among siblings of the
// same kind, a few attributes that depend on the kind, and ordered
// children.  Other than AddContract and RemoveContract, a Contract
// doesn't change.  To change a subtree, replace it.
//
// Not thread-safe.  Views (package view) add the locking.
type Contract struct {
	kind Kind
	name string

	comparator Comparator

	value    interface{}
	hasValue bool

	min, max interface{}
	hasRange bool

	dynamic  bool
	estimate []int64

	children []*Contract
	index    map[Slot]int
}

// New makes an attribute-less Contract.
//
// Panics with UnknownKind if the kind isn't known.
func New(kind Kind, name string) *Contract {
	if !kind.Valid() {
		panic(&UnknownKind{kind})
	}
	return &Contract{
		kind: kind,
		name: name,
	}
}

// NewPointFeature makes a feature-demand with a point comparator
// (EQ, GE, GT, LE, or LT).
func NewPointFeature(name string, cmp Comparator, value interface{}) (*Contract, error) {
	c := New(FeatureDemand, name)
	c.comparator = cmp
	v, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	c.value, c.hasValue = v, true
	return c, c.check()
}

// NewRangeFeature makes a feature-demand with a range comparator
// (IN_RANGE or OUT_RANGE).
func NewRangeFeature(name string, cmp Comparator, min, max interface{}) (*Contract, error) {
	c := New(FeatureDemand, name)
	c.comparator = cmp
	var err error
	if c.min, err = Normalize(min); err != nil {
		return nil, err
	}
	if c.max, err = Normalize(max); err != nil {
		return nil, err
	}
	c.hasRange = true
	return c, c.check()
}

// NewFeatureProvision makes a feature-provision with a static value.
func NewFeatureProvision(name string, value interface{}) (*Contract, error) {
	c := New(FeatureProvision, name)
	v, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	c.value, c.hasValue = v, true
	return c, nil
}

// NewDynamicFeature makes a feature-provision whose value is computed
// by its owner when asked.
func NewDynamicFeature(name string) *Contract {
	c := New(FeatureProvision, name)
	c.dynamic = true
	return c
}

// NewResourceTemplate makes a resource-template with the given
// estimate, one component per resource dimension of the provider.
func NewResourceTemplate(name string, estimate ...int64) (*Contract, error) {
	c := New(ResourceTemplate, name)
	c.estimate = append([]int64{}, estimate...)
	return c, c.check()
}

// check verifies that the attributes fit the kind.
func (c *Contract) check() error {
	bad := func(reason string) error {
		return &BadAttributes{Slot: c.Slot(), Reason: reason}
	}
	switch c.kind {
	case FeatureDemand:
		if !c.comparator.Valid() {
			return bad(`unknown comparator "` + string(c.comparator) + `"`)
		}
		if c.hasValue && c.hasRange {
			return bad("both value and range given")
		}
		if c.comparator.Ranged() && !c.hasRange {
			return bad("range comparator without minimum and maximum")
		}
		if !c.comparator.Ranged() && !c.hasValue {
			return bad("point comparator without value")
		}
	case FeatureProvision:
		if c.hasValue == c.dynamic {
			return bad("need exactly one of value or dynamic")
		}
		if c.comparator != "" || c.hasRange {
			return bad("provision with comparator or range")
		}
	case ResourceTemplate:
		for _, n := range c.estimate {
			if n < 0 {
				return bad("negative estimate")
			}
		}
	default:
		if c.comparator != "" || c.hasValue || c.hasRange || c.dynamic || c.estimate != nil {
			return bad("kind takes no attributes")
		}
	}
	if c.kind != ResourceTemplate && c.estimate != nil {
		return bad("estimate on a non-template")
	}
	return nil
}

func (c *Contract) Kind() Kind {
	return c.kind
}

func (c *Contract) Name() string {
	return c.name
}

// Slot returns the (kind, name) key of this Contract within its
// parent.
func (c *Contract) Slot() Slot {
	return Slot{Kind: c.kind, Name: c.name}
}

func (c *Contract) wrong(attr string) {
	panic(&WrongKind{Kind: c.kind, Attribute: attr})
}

// Comparator returns the comparator of a feature-demand.
func (c *Contract) Comparator() Comparator {
	if c.kind != FeatureDemand {
		c.wrong("comparator")
	}
	return c.comparator
}

// Value returns the point value of a feature-demand or the static
// value of a feature-provision.  The second result is false for range
// demands and dynamic provisions.
func (c *Contract) Value() (interface{}, bool) {
	if c.kind != FeatureDemand && c.kind != FeatureProvision {
		c.wrong("value")
	}
	return c.value, c.hasValue
}

// Bounds returns the (minimum, maximum) of a range feature-demand.
func (c *Contract) Bounds() (interface{}, interface{}, bool) {
	if c.kind != FeatureDemand {
		c.wrong("bounds")
	}
	return c.min, c.max, c.hasRange
}

// Dynamic reports whether a feature-provision's value is computed by
// its owner.
func (c *Contract) Dynamic() bool {
	if c.kind != FeatureProvision {
		c.wrong("dynamic")
	}
	return c.dynamic
}

// Estimate returns a copy of a resource-template's estimate.
func (c *Contract) Estimate() []int64 {
	if c.kind != ResourceTemplate {
		c.wrong("estimate")
	}
	return append([]int64{}, c.estimate...)
}

// AddContract puts the child in its (kind, name) slot.  A child
// already in that slot is replaced (keeping its position) and
// returned.
func (c *Contract) AddContract(child *Contract) *Contract {
	if child == nil {
		panic("nil contract")
	}
	if c.index == nil {
		c.index = make(map[Slot]int, 4)
	}
	slot := child.Slot()
	if i, have := c.index[slot]; have {
		old := c.children[i]
		c.children[i] = child
		return old
	}
	c.index[slot] = len(c.children)
	c.children = append(c.children, child)
	return nil
}

// RemoveContract removes and returns the child in the given slot (if
// any).
func (c *Contract) RemoveContract(kind Kind, name string) *Contract {
	i, have := c.index[Slot{Kind: kind, Name: name}]
	if !have {
		return nil
	}
	old := c.children[i]
	c.children = append(c.children[:i:i], c.children[i+1:]...)
	c.reindex()
	return old
}

func (c *Contract) reindex() {
	c.index = make(map[Slot]int, len(c.children))
	for i, child := range c.children {
		c.index[child.Slot()] = i
	}
}

// GetContract returns the child in the given slot or nil.
func (c *Contract) GetContract(kind Kind, name string) *Contract {
	i, have := c.index[Slot{Kind: kind, Name: name}]
	if !have {
		return nil
	}
	return c.children[i]
}

// GetContracts returns the children of the given kind in order.
func (c *Contract) GetContracts(kind Kind) []*Contract {
	var acc []*Contract
	for _, child := range c.children {
		if child.kind == kind {
			acc = append(acc, child)
		}
	}
	return acc
}

// Contracts returns all children in order.
func (c *Contract) Contracts() []*Contract {
	return append([]*Contract{}, c.children...)
}

// Len returns the number of children.
func (c *Contract) Len() int {
	return len(c.children)
}

// Copy makes a deep copy.
func (c *Contract) Copy() *Contract {
	if c == nil {
		return nil
	}
	acc := *c
	acc.estimate = nil
	if c.estimate != nil {
		acc.estimate = append([]int64{}, c.estimate...)
	}
	acc.children = nil
	acc.index = nil
	for _, child := range c.children {
		acc.AddContract(child.Copy())
	}
	return &acc
}

// Equal reports structural equality, including child order.
func (c *Contract) Equal(o *Contract) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.kind != o.kind || c.name != o.name || c.comparator != o.comparator ||
		c.hasValue != o.hasValue || c.hasRange != o.hasRange || c.dynamic != o.dynamic {
		return false
	}
	if !reflect.DeepEqual(c.value, o.value) || !reflect.DeepEqual(c.min, o.min) || !reflect.DeepEqual(c.max, o.max) {
		return false
	}
	if len(c.estimate) != len(o.estimate) {
		return false
	}
	for i, n := range c.estimate {
		if o.estimate[i] != n {
			return false
		}
	}
	if len(c.children) != len(o.children) {
		return false
	}
	for i, child := range c.children {
		if !child.Equal(o.children[i]) {
			return false
		}
	}
	return true
}

func (c *Contract) String() string {
	js, err := c.MarshalJSON()
	if err != nil {
		return c.Slot().String()
	}
	return string(js)
}

// Normalize coerces numbers to float64 so that values compare and
// round-trip through JSON and CBOR identically.
func Normalize(x interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case float64, string, bool:
		return vv, nil
	case float32:
		return float64(vv), nil
	case int:
		return float64(vv), nil
	case int8:
		return float64(vv), nil
	case int16:
		return float64(vv), nil
	case int32:
		return float64(vv), nil
	case int64:
		return float64(vv), nil
	case uint:
		return float64(vv), nil
	case uint8:
		return float64(vv), nil
	case uint16:
		return float64(vv), nil
	case uint32:
		return float64(vv), nil
	case uint64:
		return float64(vv), nil
	default:
		return nil, BadValue
	}
}
