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
	"errors"

	"github.com/Comcast/pcom/contract"
)

// Candidate is one template a provider on some device is willing to
// instantiate for a demand.
type Candidate struct {
	SystemId   string             `json:"systemId"`
	ProviderId string             `json:"providerId"`
	Template   *contract.Contract `json:"template"`
}

// Discoverer finds candidate templates for a demand among the devices
// in scope.
//
// The order of the returned Candidates matters: a Binding tries them
// in that order (after moving a previously chosen one to the front).
// This call can block on the network.
type Discoverer interface {
	Discover(ctx context.Context, demand *contract.Contract, scope []string) ([]Candidate, error)
}

// DiscovererFunc adapts a function to a Discoverer.
type DiscovererFunc func(ctx context.Context, demand *contract.Contract, scope []string) ([]Candidate, error)

func (f DiscovererFunc) Discover(ctx context.Context, demand *contract.Contract, scope []string) ([]Candidate, error) {
	return f(ctx, demand, scope)
}

// State describes a position in a realized (or to-be-realized)
// assembly.
//
// For the anchor, Template is the application's own demand and
// SystemId is the device hosting the application.  For other
// positions, SystemId and ProviderId record the choice made in an
// earlier round, and Template is what was chosen.
type State struct {
	SystemId   string             `json:"systemId,omitempty"`
	ProviderId string             `json:"providerId,omitempty"`
	Template   *contract.Contract `json:"template,omitempty"`
}

// Assembly is the externalized, fully resolved binding tree that a
// container instantiates.
type Assembly struct {
	Pointer    Pointer            `json:"pointer"`
	Kind       string             `json:"kind"`
	SystemId   string             `json:"systemId"`
	ProviderId string             `json:"providerId,omitempty"`
	Template   *contract.Contract `json:"template"`
	Children   []*Assembly        `json:"children,omitempty"`
}

// Walk calls f on the Assembly and then on its descendants
// (depth-first, in order) until f returns false.
func (a *Assembly) Walk(f func(*Assembly) bool) bool {
	if !f(a) {
		return false
	}
	for _, c := range a.Children {
		if !c.Walk(f) {
			return false
		}
	}
	return true
}

// Find returns the Assembly at the given Pointer or nil.
func (a *Assembly) Find(p Pointer) *Assembly {
	var found *Assembly
	a.Walk(func(x *Assembly) bool {
		if x.Pointer.Equal(p) {
			found = x
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes.
func (a *Assembly) Count() int {
	n := 0
	a.Walk(func(*Assembly) bool {
		n++
		return true
	})
	return n
}

// States flattens the Assembly into the per-pointer States that a
// container feeds back (via setup) in the next configuration round.
func (a *Assembly) States() map[string]*State {
	acc := make(map[string]*State)
	a.Walk(func(x *Assembly) bool {
		acc[x.Pointer.String()] = &State{
			SystemId:   x.SystemId,
			ProviderId: x.ProviderId,
			Template:   x.Template,
		}
		return true
	})
	return acc
}

// Event reports that an item left an Application's tree.
type Event struct {
	ApplicationId string  `json:"app"`
	Pointer       Pointer `json:"pointer"`
	Kind          string  `json:"kind"`
	SystemId      string  `json:"systemId,omitempty"`
	ProviderId    string  `json:"providerId,omitempty"`
}

var (
	// NoAnchor occurs when an Application is configured (or a
	// child is set up) before the anchor's state was set up.
	NoAnchor = errors.New("no anchor")

	// BadState occurs when setup is given a State it can't use.
	BadState = errors.New("bad state")
)

// NotConfigured is the panic value when an item tree that isn't
// completely configured is externalized.
type NotConfigured struct {
	Pointer Pointer
}

func (e *NotConfigured) Error() string {
	return "item at " + e.Pointer.String() + " isn't configured"
}
