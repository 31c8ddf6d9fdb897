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
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/device"
)

// Application is one configuration session: the item tree for one
// requesting application.
//
// All methods lock the Application.  Sessions are independent, so
// different Applications can be configured concurrently.  They only
// share Devices, which have their own locks.
type Application struct {
	sync.Mutex

	Id string

	// Lease is the handle of the lease that keeps this session
	// alive.  The Application doesn't use it.
	Lease string

	// Scope is the set of devices given to discovery.  Nil means
	// every device in Devices.
	Scope []string

	Discoverer Discoverer
	Devices    *device.Pool

	// OnRemove, if not nil, is called (with the lock held) for
	// each item that leaves the tree.
	OnRemove func(Event)

	Verbose bool

	items   map[ItemId]*item
	nextId  ItemId
	pending []ItemId
	anchor  ItemId

	// prior maps Pointer strings to the States reported by setup.
	prior map[string]*State

	// closed is set by Release.  A closed Application ignores
	// setup and configuration.
	closed bool
}

// NewApplication makes an Application without an anchor.
func NewApplication(id string, ds Discoverer, devices *device.Pool) *Application {
	return &Application{
		Id:         id,
		Discoverer: ds,
		Devices:    devices,
		items:      make(map[ItemId]*item, 32),
		prior:      make(map[string]*State, 32),
	}
}

func (a *Application) logf(format string, args ...interface{}) {
	if a.Verbose {
		log.Printf("Application "+a.Id+" "+format, args...)
	}
}

func (a *Application) scope() []string {
	if a.Scope != nil {
		return a.Scope
	}
	if a.Devices != nil {
		return a.Devices.Ids()
	}
	return nil
}

// SetupState records the State at the given Pointer and returns the
// child Pointers it introduces that haven't been set up yet.
//
// Setting up the root (re)creates the anchor with the State's
// Template as its only template.  Any previous tree is released
// first.
//
// After Release, SetupState does nothing and returns nothing.
func (a *Application) SetupState(p Pointer, s *State) ([]Pointer, error) {
	a.Lock()
	defer a.Unlock()

	if a.closed {
		a.logf("SetupState %s after release", p)
		return nil, nil
	}

	if s == nil {
		return nil, fmt.Errorf("%w: nil state at %s", BadState, p)
	}

	if p.IsRoot() {
		if s.Template == nil {
			return nil, fmt.Errorf("%w: anchor without a template", BadState)
		}
		if it, have := a.items[a.anchor]; have {
			a.release(it)
		}
		a.pending = a.pending[:0]
		anchor := a.spawn(nil, InstanceElement, p, nil, []Candidate{{
			SystemId:   s.SystemId,
			ProviderId: s.ProviderId,
			Template:   s.Template,
		}}, nil)
		a.anchor = anchor.id
	} else if a.anchor == 0 {
		return nil, NoAnchor
	}

	a.prior[p.String()] = s

	var acc []Pointer
	if s.Template == nil {
		return acc, nil
	}
	for _, c := range s.Template.Contracts() {
		var q Pointer
		switch c.Kind() {
		case contract.InstanceDemand:
			q = p.Child(true, c.Name())
		case contract.ResourceDemand:
			q = p.Child(false, c.Name())
		default:
			continue
		}
		if _, have := a.prior[q.String()]; !have {
			acc = append(acc, q)
		}
	}
	return acc, nil
}

// Configure runs configuration until every item is configured or the
// anchor is exhausted.
//
// Exhaustion isn't an error: the result is just nil.  An error means
// there was no anchor or ctx ended.  After ctx ends, Configure can be
// called again to pick up where it stopped.
//
// After Release, Configure does nothing and returns nil.
func (a *Application) Configure(ctx context.Context) (*Assembly, error) {
	a.Lock()
	defer a.Unlock()

	if a.closed {
		a.logf("Configure after release")
		return nil, nil
	}

	if a.anchor == 0 {
		return nil, NoAnchor
	}

	for len(a.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := a.pending[0]
		a.pending = a.pending[1:]
		it, have := a.items[id]
		if !have {
			continue
		}
		it.queued = false
		if err := a.configure(ctx, it); err != nil {
			return nil, err
		}
	}

	anchor, have := a.items[a.anchor]
	if !have || !anchor.configured {
		a.logf("no assembly")
		return nil, nil
	}
	return a.externalize(anchor), nil
}

// Release tears down the whole tree and closes the Application.
// Every reservation is returned.
func (a *Application) Release() {
	a.Lock()
	defer a.Unlock()
	a.closed = true
	if it, have := a.items[a.anchor]; have {
		a.release(it)
	}
	a.pending = nil
}

// Closed reports whether Release has been called.
func (a *Application) Closed() bool {
	a.Lock()
	defer a.Unlock()
	return a.closed
}

// AnchorState reports the state of the anchor.  Without an anchor,
// the state is Released.
func (a *Application) AnchorState() ItemState {
	a.Lock()
	defer a.Unlock()
	if it, have := a.items[a.anchor]; have {
		return it.state()
	}
	return Released
}

// Prior returns the State recorded for the Pointer, if any.
func (a *Application) Prior(p Pointer) (*State, bool) {
	a.Lock()
	defer a.Unlock()
	s, have := a.prior[p.String()]
	return s, have
}

// ItemInfo is a snapshot of one item for diagnostics.
type ItemInfo struct {
	Id         ItemId  `json:"id"`
	Parent     ItemId  `json:"parent,omitempty"`
	Kind       string  `json:"kind"`
	Pointer    Pointer `json:"pointer"`
	State      string  `json:"state"`
	Cursor     int     `json:"cursor"`
	Templates  int     `json:"templates"`
	SystemId   string  `json:"systemId,omitempty"`
	ProviderId string  `json:"providerId,omitempty"`
}

// Items returns a snapshot of every item ordered by id, which is
// creation order.
func (a *Application) Items() []ItemInfo {
	a.Lock()
	defer a.Unlock()

	acc := make([]ItemInfo, 0, len(a.items))
	for _, it := range a.items {
		info := ItemInfo{
			Id:        it.id,
			Parent:    it.parent,
			Kind:      it.kind.String(),
			Pointer:   it.pointer,
			State:     it.state().String(),
			Cursor:    it.cursor,
			Templates: len(it.templates),
		}
		if c, ok := it.chosen(); ok {
			info.SystemId, info.ProviderId = c.SystemId, c.ProviderId
		}
		acc = append(acc, info)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i].Id < acc[j].Id })
	return acc
}
