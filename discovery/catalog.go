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

// Package discovery finds candidate templates for demands.
//
// A Catalog holds the Offers that providers have published.  A remote
// Catalog is reachable through a Client, and Handler serves a
// Catalog over HTTP.
package discovery

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/discovery/dynamic"
	"github.com/Comcast/pcom/match"
	"github.com/Comcast/pcom/view"
)

// Offer is what one provider on one device is willing to instantiate.
type Offer struct {
	SystemId   string `json:"systemId" yaml:"systemId"`
	ProviderId string `json:"providerId" yaml:"providerId"`

	// Doc is an optional Markdown description.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Rules admit demands before any template is examined.
	Rules match.Rules `json:"rules,omitempty" yaml:"rules,omitempty"`

	Templates []*contract.Contract `json:"templates" yaml:"templates"`

	// Dynamic has the scripts for dynamic features keyed by
	// "dimension/feature".
	Dynamic map[string]string `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

// Catalog is an in-memory registry of Offers.
type Catalog struct {
	sync.RWMutex

	Interpreter *dynamic.Interpreter
	Verbose     bool

	offers map[string][]*Offer
}

// NewCatalog makes an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Interpreter: dynamic.NewInterpreter(),
		offers:      make(map[string][]*Offer, 32),
	}
}

func (c *Catalog) logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf("Catalog "+format, args...)
	}
}

// Add registers an Offer.  An Offer from the same provider on the
// same device is replaced in place.
func (c *Catalog) Add(o *Offer) error {
	s := &dynamic.Scripts{Interpreter: c.Interpreter, Sources: o.Dynamic}
	if err := s.Check(); err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()
	known := c.offers[o.SystemId]
	for i, x := range known {
		if x.ProviderId == o.ProviderId {
			known[i] = o
			return nil
		}
	}
	c.offers[o.SystemId] = append(known, o)
	return nil
}

// RemoveOffer forgets one provider's Offer.
func (c *Catalog) RemoveOffer(systemId, providerId string) {
	c.Lock()
	defer c.Unlock()
	known := c.offers[systemId]
	for i, x := range known {
		if x.ProviderId == providerId {
			c.offers[systemId] = append(known[:i:i], known[i+1:]...)
			return
		}
	}
}

// RemoveDevice forgets every Offer from the device.
func (c *Catalog) RemoveDevice(systemId string) {
	c.Lock()
	delete(c.offers, systemId)
	c.Unlock()
}

// Offers returns the device's Offers in registration order.
func (c *Catalog) Offers(systemId string) []*Offer {
	c.RLock()
	defer c.RUnlock()
	return append([]*Offer(nil), c.offers[systemId]...)
}

// Systems returns the ids of the devices with Offers, sorted.
func (c *Catalog) Systems() []string {
	c.RLock()
	acc := make([]string, 0, len(c.offers))
	for sid := range c.offers {
		acc = append(acc, sid)
	}
	c.RUnlock()
	sort.Strings(acc)
	return acc
}

// Discover implements assembly.Discoverer.
//
// Devices are visited in scope order and Offers in registration
// order.  Each matching template is a Candidate.  A nil scope means
// every device in the Catalog.
func (c *Catalog) Discover(ctx context.Context, demand *contract.Contract, scope []string) ([]assembly.Candidate, error) {
	want, ok := demand.Kind().Answers()
	if !ok {
		return nil, &contract.WrongKind{Kind: demand.Kind(), Attribute: "discovery"}
	}
	if scope == nil {
		scope = c.Systems()
	}

	var acc []assembly.Candidate
	for _, sid := range scope {
		for _, o := range c.Offers(sid) {
			if !o.Rules.Validate(demand) {
				c.logf("%s/%s rules reject %s", sid, o.ProviderId, demand.Name())
				continue
			}
			r := &dynamic.Scripts{Interpreter: c.Interpreter, Sources: o.Dynamic}
			for _, t := range o.Templates {
				if t.Kind() != want || t.Name() != demand.Name() {
					continue
				}
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if !Satisfied(ctx, demand, t, r) {
					c.logf("%s/%s template %s unsatisfying", sid, o.ProviderId, t.Name())
					continue
				}
				acc = append(acc, assembly.Candidate{
					SystemId:   sid,
					ProviderId: o.ProviderId,
					Template:   t.Copy(),
				})
			}
		}
	}
	return acc, nil
}

// Satisfied reports whether the template provides every feature the
// demand asks for, including the features of demanded types.
//
// Dynamic features are computed with the Resolver.  A feature that
// can't be computed doesn't satisfy anything.
func Satisfied(ctx context.Context, demand, template *contract.Contract, r view.Resolver) bool {
	if template.Kind().IsDemand() {
		return false
	}
	return satisfied(ctx, view.NewDemandReader(demand), view.NewProvisionReader(template, r))
}

func satisfied(ctx context.Context, d *view.DemandReader, p *view.ProvisionReader) bool {
	for _, dim := range d.Dimensions() {
		for _, f := range dim.Children(contract.FeatureDemand) {
			x, err := p.Value(ctx, dim.Name(), f.Name())
			if err != nil {
				return false
			}
			if !match.Satisfies(f.Contract(), x) {
				return false
			}
		}
	}
	for _, t := range d.Types() {
		pt := p.Child(contract.TypeProvision, t.Name())
		if pt == nil || !satisfied(ctx, t, pt) {
			return false
		}
	}
	return true
}
