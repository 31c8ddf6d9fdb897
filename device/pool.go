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

package device

import (
	"log"
	"sort"
	"sync"

	"github.com/Comcast/pcom/contract"
)

// Pool maps system ids to Devices.
//
// The Pool's lock only guards the map.  Ledger changes go through
// each Device's own lock.
type Pool struct {
	sync.RWMutex

	devices map[string]*Device
}

// NewPool makes an empty Pool.
func NewPool() *Pool {
	return &Pool{
		devices: make(map[string]*Device, 32),
	}
}

// Get returns the Device with the given id or nil.
func (p *Pool) Get(id string) *Device {
	p.RLock()
	defer p.RUnlock()
	return p.devices[id]
}

// Ensure returns the Device with the given id, making it if needed.
func (p *Pool) Ensure(id string) *Device {
	p.Lock()
	defer p.Unlock()
	d, have := p.devices[id]
	if !have {
		d = NewDevice(id)
		p.devices[id] = d
	}
	return d
}

// Put adds or replaces a Device.
func (p *Pool) Put(d *Device) {
	p.Lock()
	p.devices[d.Id] = d
	p.Unlock()
}

// Remove forgets the Device with the given id and returns it (if
// any).
func (p *Pool) Remove(id string) *Device {
	p.Lock()
	defer p.Unlock()
	d := p.devices[id]
	delete(p.devices, id)
	return d
}

// Ids returns the ids of all Devices, sorted.
func (p *Pool) Ids() []string {
	p.RLock()
	acc := make([]string, 0, len(p.devices))
	for id := range p.devices {
		acc = append(acc, id)
	}
	p.RUnlock()
	sort.Strings(acc)
	return acc
}

// Ledger is a copy of the free units per provider per device.
type Ledger map[string]map[string][]int64

// Snapshot copies every Device's free vectors.  Each Device is
// locked while it's copied.
func (p *Pool) Snapshot() Ledger {
	acc := make(Ledger)
	for _, id := range p.Ids() {
		d := p.Get(id)
		if d == nil {
			continue
		}
		m := make(map[string][]int64)
		for _, pid := range d.Providers() {
			if f := d.Free(pid); f != nil {
				m[pid] = f
			}
		}
		acc[id] = m
	}
	return acc
}

// Reservation records where a Pool reservation was taken.  Only a
// Reservation from a successful Reserve should be given to Release.
type Reservation struct {
	SystemId   string
	ProviderId string
	Template   *contract.Contract

	device *Device
	epoch  uint64
}

// Reserve reserves on the given device.  Returns false if there's no
// such device.
func (p *Pool) Reserve(systemId, pid string, template *contract.Contract) (*Reservation, bool) {
	d := p.Get(systemId)
	if d == nil {
		return nil, false
	}
	epoch, ok := d.ReserveAt(pid, template)
	if !ok {
		return nil, false
	}
	return &Reservation{
		SystemId:   systemId,
		ProviderId: pid,
		Template:   template,
		device:     d,
		epoch:      epoch,
	}, true
}

// Release gives the Reservation back to the ledger it was taken
// from.
//
// A Device that has left the Pool, or a provider ledger that started
// fresh, took its reservations with it.  Those releases are dropped
// (and logged), so they never credit a newer ledger.
func (p *Pool) Release(r *Reservation) {
	if r == nil || r.device == nil {
		return
	}
	if d := p.Get(r.SystemId); d != r.device {
		log.Printf("Pool.Release device %s is gone", r.SystemId)
		return
	}
	r.device.ReleaseAt(r.ProviderId, r.Template, r.epoch)
}
