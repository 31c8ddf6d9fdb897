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

// Package view provides cached, role-specific facades over Contract
// trees.
//
// Components read their demands and the container writes provisions
// without walking raw tree structure.  There's one View type,
// parameterized by a Role: Read views panic on writes, Write views
// don't.  Child views are made on first use and cached by slot.
package view

import (
	"context"
	"errors"
	"sync"

	"github.com/Comcast/pcom/contract"
)

// Role says whether a View may change its Contract.
type Role interface {
	writable() bool
}

// Read is the read-only role.
type Read struct{}

func (Read) writable() bool { return false }

// Write is the read-write role.
type Write struct{}

func (Write) writable() bool { return true }

type (
	DemandReader    = View[Read]
	DemandWriter    = View[Write]
	ProvisionReader = View[Read]
	ProvisionWriter = View[Write]
)

// Resolver computes the value of a dynamic feature-provision.
type Resolver interface {
	Resolve(ctx context.Context, dimension, feature string) (interface{}, error)
}

// ReadOnly is the panic value when a write is attempted through a
// read view.
type ReadOnly struct {
	Op string
}

func (e *ReadOnly) Error() string {
	return e.Op + " through a read-only view"
}

var (
	NoValue    = errors.New("no value")
	NoResolver = errors.New("dynamic feature without a resolver")
)

// View is a facade over one Contract node.
type View[R Role] struct {
	sync.Mutex

	// Resolver, if not nil, computes dynamic feature values.
	// Child views inherit it.
	Resolver Resolver

	c     *contract.Contract
	cache map[contract.Slot]*View[R]
}

// Of makes a View of the given Contract.
func Of[R Role](c *contract.Contract) *View[R] {
	if c == nil {
		panic("nil contract")
	}
	return &View[R]{
		c: c,
	}
}

// NewDemandReader makes a read view of a demand.
func NewDemandReader(c *contract.Contract) *DemandReader {
	mustSide(c, true)
	return Of[Read](c)
}

// NewDemandWriter makes a write view of a demand.
func NewDemandWriter(c *contract.Contract) *DemandWriter {
	mustSide(c, true)
	return Of[Write](c)
}

// NewProvisionReader makes a read view of a provision.
func NewProvisionReader(c *contract.Contract, r Resolver) *ProvisionReader {
	mustSide(c, false)
	v := Of[Read](c)
	v.Resolver = r
	return v
}

// NewProvisionWriter makes a write view of a provision.
func NewProvisionWriter(c *contract.Contract, r Resolver) *ProvisionWriter {
	mustSide(c, false)
	v := Of[Write](c)
	v.Resolver = r
	return v
}

func mustSide(c *contract.Contract, demand bool) {
	if c == nil {
		panic("nil contract")
	}
	if c.Kind().IsDemand() != demand {
		panic(&contract.WrongKind{Kind: c.Kind(), Attribute: "view side"})
	}
}

func (v *View[R]) mustWrite(op string) {
	var r R
	if !r.writable() {
		panic(&ReadOnly{Op: op})
	}
}

// Writable reports the view's role.
func (v *View[R]) Writable() bool {
	var r R
	return r.writable()
}

// Contract returns the underlying Contract.  A read view returns a
// copy.
func (v *View[R]) Contract() *contract.Contract {
	if v.Writable() {
		return v.c
	}
	return v.c.Copy()
}

func (v *View[R]) Name() string {
	return v.c.Name()
}

func (v *View[R]) Kind() contract.Kind {
	return v.c.Kind()
}

func (v *View[R]) demand() bool {
	return v.c.Kind().IsDemand()
}

// kind picks the demand or provision flavor of a kind for this view's
// side.
func (v *View[R]) kind(demand, provision contract.Kind) contract.Kind {
	if v.demand() {
		return demand
	}
	return provision
}

// Child returns the (cached) view of the child in the given slot or
// nil.
func (v *View[R]) Child(kind contract.Kind, name string) *View[R] {
	v.Lock()
	defer v.Unlock()

	slot := contract.Slot{Kind: kind, Name: name}
	if cv, have := v.cache[slot]; have {
		return cv
	}
	c := v.c.GetContract(kind, name)
	if c == nil {
		return nil
	}
	if v.cache == nil {
		v.cache = make(map[contract.Slot]*View[R], 8)
	}
	cv := &View[R]{
		Resolver: v.Resolver,
		c:        c,
	}
	v.cache[slot] = cv
	return cv
}

// Children returns views of the children of the given kind in order.
func (v *View[R]) Children(kind contract.Kind) []*View[R] {
	cs := v.c.GetContracts(kind)
	acc := make([]*View[R], 0, len(cs))
	for _, c := range cs {
		acc = append(acc, v.Child(kind, c.Name()))
	}
	return acc
}

// Types returns the interface and event type children.
func (v *View[R]) Types() []*View[R] {
	return v.Children(v.kind(contract.TypeDemand, contract.TypeProvision))
}

// Instances returns the instance children.
func (v *View[R]) Instances() []*View[R] {
	return v.Children(v.kind(contract.InstanceDemand, contract.InstanceProvision))
}

// Resources returns the resource children.  On the provision side,
// these are resource-provisions.  Resource-templates are available
// via Children.
func (v *View[R]) Resources() []*View[R] {
	return v.Children(v.kind(contract.ResourceDemand, contract.ResourceProvision))
}

// Dimensions returns the dimension children.
func (v *View[R]) Dimensions() []*View[R] {
	return v.Children(v.kind(contract.DimensionDemand, contract.DimensionProvision))
}

// Features returns the features of the named dimension.
func (v *View[R]) Features(dimension string) []*View[R] {
	d := v.Child(v.kind(contract.DimensionDemand, contract.DimensionProvision), dimension)
	if d == nil {
		return nil
	}
	return d.Children(v.kind(contract.FeatureDemand, contract.FeatureProvision))
}

// Feature returns the named feature of the named dimension or nil.
func (v *View[R]) Feature(dimension, feature string) *View[R] {
	d := v.Child(v.kind(contract.DimensionDemand, contract.DimensionProvision), dimension)
	if d == nil {
		return nil
	}
	return d.Child(v.kind(contract.FeatureDemand, contract.FeatureProvision), feature)
}

// Value returns the named feature's value.  A dynamic
// feature-provision is computed with the view's Resolver.
func (v *View[R]) Value(ctx context.Context, dimension, feature string) (interface{}, error) {
	f := v.Feature(dimension, feature)
	if f == nil {
		return nil, NoValue
	}
	if f.Kind() == contract.FeatureProvision && f.c.Dynamic() {
		if v.Resolver == nil {
			return nil, NoResolver
		}
		x, err := v.Resolver.Resolve(ctx, dimension, feature)
		if err != nil {
			return nil, err
		}
		return contract.Normalize(x)
	}
	x, ok := f.c.Value()
	if !ok {
		return nil, NoValue
	}
	return x, nil
}

// Add adds (or replaces) a child and returns what it replaced.
func (v *View[R]) Add(c *contract.Contract) *contract.Contract {
	v.mustWrite("Add")
	v.Lock()
	defer v.Unlock()

	old := v.c.AddContract(c)
	delete(v.cache, c.Slot())
	return old
}

// Remove removes a child and returns it.
func (v *View[R]) Remove(kind contract.Kind, name string) *contract.Contract {
	v.mustWrite("Remove")
	v.Lock()
	defer v.Unlock()

	delete(v.cache, contract.Slot{Kind: kind, Name: name})
	return v.c.RemoveContract(kind, name)
}

// SetFeature puts a feature in the named dimension, making the
// dimension if needed.  Returns the replaced feature (if any).
func (v *View[R]) SetFeature(dimension string, f *contract.Contract) *contract.Contract {
	v.mustWrite("SetFeature")
	dk := v.kind(contract.DimensionDemand, contract.DimensionProvision)
	d := v.Child(dk, dimension)
	if d == nil {
		v.Add(contract.New(dk, dimension))
		d = v.Child(dk, dimension)
	}
	return d.Add(f)
}
