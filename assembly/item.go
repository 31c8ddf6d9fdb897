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

package assembly

import (
	"context"

	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/device"
)

// ItemId names an item within its Application.  Zero is never used,
// so a zero parent means "no parent".
type ItemId uint64

// Kind is the closed set of item variants.
type Kind int

const (
	InstanceElement Kind = iota + 1
	ResourceElement
	InstanceBinding
	ResourceBinding
)

func (k Kind) String() string {
	switch k {
	case InstanceElement:
		return "instance-element"
	case ResourceElement:
		return "resource-element"
	case InstanceBinding:
		return "instance-binding"
	case ResourceBinding:
		return "resource-binding"
	}
	return "unknown"
}

func (k Kind) IsBinding() bool {
	return k == InstanceBinding || k == ResourceBinding
}

// ItemState is where an item is in its configuration life.
type ItemState int

const (
	Unconfigured ItemState = iota
	Configuring
	Configured
	Exhausted
	Released
)

func (s ItemState) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configuring:
		return "configuring"
	case Configured:
		return "configured"
	case Exhausted:
		return "exhausted"
	case Released:
		return "released"
	}
	return "unknown"
}

// item is one node of the in-progress configuration tree.
//
// Items don't point at each other.  Parents and children are ItemIds
// resolved through the Application's table, which owns every item.
type item struct {
	id     ItemId
	parent ItemId
	kind   Kind

	pointer Pointer

	// demand is what a binding has to satisfy.
	demand *contract.Contract

	templates []Candidate
	cursor    int

	configured bool
	busy       bool
	released   bool
	queued     bool

	// discovered is set once a binding has asked for its
	// templates.
	discovered bool

	// hold is the Device reservation a resource element holds for
	// templates[cursor].
	hold *device.Reservation

	children []ItemId
}

func (it *item) state() ItemState {
	switch {
	case it.released:
		return Released
	case it.busy:
		return Configuring
	case it.configured:
		return Configured
	case it.cursor >= len(it.templates) && (!it.kind.IsBinding() || it.discovered):
		return Exhausted
	}
	return Unconfigured
}

// chosen returns the current template, if any.
func (it *item) chosen() (Candidate, bool) {
	if it.cursor < len(it.templates) {
		return it.templates[it.cursor], true
	}
	return Candidate{}, false
}

// configure is the greedy step.  The caller holds the Application's
// lock.
//
// If ctx ends during discovery, the binding stays undiscovered and
// queued, nothing backtracks, and the context's error is returned.
func (a *Application) configure(ctx context.Context, it *item) error {
	if it.configured || it.released {
		return nil
	}
	it.busy = true
	defer func() { it.busy = false }()

	a.releaseChildren(it)

	if it.kind.IsBinding() && !it.discovered {
		cs := a.discover(ctx, it)
		if err := ctx.Err(); err != nil {
			a.logf("%s discovery interrupted: %v", it.pointer, err)
			a.requeue(it)
			return err
		}
		it.templates = cs
		it.discovered = true
	}

	for it.cursor < len(it.templates) {
		c := it.templates[it.cursor]
		switch it.kind {
		case InstanceElement, ResourceElement:
			a.spawnBindings(it, c.Template)
			it.configured = true
		case InstanceBinding:
			a.spawn(it, InstanceElement, it.pointer, nil, []Candidate{c}, nil)
			it.configured = true
		case ResourceBinding:
			var hold *device.Reservation
			ok := false
			if a.Devices != nil {
				hold, ok = a.Devices.Reserve(c.SystemId, c.ProviderId, c.Template)
			}
			if !ok {
				a.logf("%s no room on %s/%s", it.pointer, c.SystemId, c.ProviderId)
				it.cursor++
				continue
			}
			a.spawn(it, ResourceElement, it.pointer, nil, []Candidate{c}, hold)
			it.configured = true
		}
		if it.configured {
			a.logf("%s %s configured with %s/%s (%d of %d)",
				it.kind, it.pointer, c.SystemId, c.ProviderId, it.cursor+1, len(it.templates))
			return nil
		}
	}

	a.logf("%s %s exhausted after %d templates", it.kind, it.pointer, len(it.templates))
	if parent, have := a.items[it.parent]; have {
		a.notifyFailure(parent)
		return nil
	}
	if it.id == a.anchor {
		a.logf("anchor exhausted")
	}
	return nil
}

// spawnBindings makes one binding for every instance-demand and
// resource-demand in the template.
func (a *Application) spawnBindings(parent *item, template *contract.Contract) {
	if template == nil {
		return
	}
	for _, c := range template.Contracts() {
		switch c.Kind() {
		case contract.InstanceDemand:
			a.spawn(parent, InstanceBinding, parent.pointer.Child(true, c.Name()), c, nil, nil)
		case contract.ResourceDemand:
			a.spawn(parent, ResourceBinding, parent.pointer.Child(false, c.Name()), c, nil, nil)
		}
	}
}

func (a *Application) spawn(parent *item, kind Kind, p Pointer, demand *contract.Contract, templates []Candidate, hold *device.Reservation) *item {
	a.nextId++
	it := &item{
		id:        a.nextId,
		kind:      kind,
		pointer:   p,
		demand:    demand,
		templates: templates,
		hold:      hold,
	}
	if parent != nil {
		it.parent = parent.id
		parent.children = append(parent.children, it.id)
	}
	a.items[it.id] = it
	a.enqueue(it)
	return it
}

// discover gets a binding's candidates and moves the one chosen in
// the prior round (if any) to the front.
func (a *Application) discover(ctx context.Context, it *item) []Candidate {
	if a.Discoverer == nil {
		a.logf("%s no discoverer", it.pointer)
		return nil
	}
	cs, err := a.Discoverer.Discover(ctx, it.demand, a.scope())
	if err != nil {
		a.logf("%s discovery error %v", it.pointer, err)
		return nil
	}
	if prior, have := a.prior[it.pointer.String()]; have && prior != nil {
		cs = preferPrior(cs, prior)
	}
	return cs
}

// preferPrior returns the candidates with those matching the prior
// State first.  Otherwise the order is unchanged.
func preferPrior(cs []Candidate, prior *State) []Candidate {
	acc := make([]Candidate, 0, len(cs))
	rest := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		if c.SystemId == prior.SystemId && c.ProviderId == prior.ProviderId &&
			(prior.Template == nil || c.Template.Equal(prior.Template)) {
			acc = append(acc, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(acc, rest...)
}

// notifyFailure is the backtracking step.  The cursor only moves
// forward, so an item never retries a template it gave up on.
func (a *Application) notifyFailure(it *item) {
	if !it.configured || it.released {
		return
	}
	it.configured = false
	it.cursor++
	a.enqueue(it)
}

func (a *Application) enqueue(it *item) {
	if it.queued {
		return
	}
	it.queued = true
	a.pending = append(a.pending, it.id)
}

// requeue puts the item back at the front of the pending work.
func (a *Application) requeue(it *item) {
	if it.queued {
		return
	}
	it.queued = true
	a.pending = append([]ItemId{it.id}, a.pending...)
}

func (a *Application) releaseChildren(it *item) {
	children := it.children
	it.children = nil
	for _, id := range children {
		if child, have := a.items[id]; have {
			a.release(child)
		}
	}
}

// release tears down an item's subtree bottom-up.
func (a *Application) release(it *item) {
	a.releaseChildren(it)
	if it.hold != nil {
		if a.Devices != nil {
			a.Devices.Release(it.hold)
		}
		it.hold = nil
	}
	it.released = true
	it.configured = false
	delete(a.items, it.id)
	if it.id == a.anchor {
		a.anchor = 0
	}

	if a.OnRemove != nil {
		e := Event{
			ApplicationId: a.Id,
			Pointer:       it.pointer,
			Kind:          it.kind.String(),
		}
		if c, ok := it.chosen(); ok && !it.kind.IsBinding() {
			e.SystemId, e.ProviderId = c.SystemId, c.ProviderId
		}
		a.OnRemove(e)
	}
}

// externalize builds the Assembly for an element.
func (a *Application) externalize(it *item) *Assembly {
	c, ok := it.chosen()
	if !it.configured || !ok {
		panic(&NotConfigured{Pointer: it.pointer})
	}
	x := &Assembly{
		Pointer:    it.pointer,
		Kind:       it.kind.String(),
		SystemId:   c.SystemId,
		ProviderId: c.ProviderId,
		Template:   c.Template,
	}
	for _, id := range it.children {
		b := a.items[id]
		if b == nil || !b.configured || len(b.children) != 1 {
			p := it.pointer
			if b != nil {
				p = b.pointer
			}
			panic(&NotConfigured{Pointer: p})
		}
		e := a.items[b.children[0]]
		if e == nil {
			panic(&NotConfigured{Pointer: b.pointer})
		}
		x.Children = append(x.Children, a.externalize(e))
	}
	return x
}
