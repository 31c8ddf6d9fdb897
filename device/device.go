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

// Package device implements per-device resource ledgers.
//
// A Device tracks, for each provider hosted on a networked device,
// a vector of free units (one component per resource dimension the
// provider tracks).  Reserving a resource-template subtracts the
// template's estimate from that vector.  A reservation is
// all-or-nothing: if any component would go negative, nothing
// changes.
//
// Devices are shared by every session in the process, so each
// Reserve and Release is a single critical section.
package device

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Comcast/pcom/contract"
)

// OverRelease is the panic value when a Release would leave more
// free units than the provider's capacity.  That only happens when a
// Release isn't paired with a prior successful Reserve.
type OverRelease struct {
	SystemId   string
	ProviderId string
	Free       []int64
	Capacity   []int64
}

func (e *OverRelease) Error() string {
	return fmt.Sprintf("release on %s/%s would exceed capacity (free %v, capacity %v)",
		e.SystemId, e.ProviderId, e.Free, e.Capacity)
}

// Device is one networked host's resource ledger.
type Device struct {
	sync.Mutex

	Id string

	// Debug turns on logging of every reservation.
	Debug bool

	capacity map[string][]int64
	free     map[string][]int64

	// epochs identify each provider ledger.  A ledger that starts
	// fresh gets a new epoch, so a release of a reservation taken
	// on an older ledger can be recognized and dropped.
	epochs map[string]uint64
}

// epochs is shared by every Device so an epoch is never reused, even
// by a Device that replaced one with the same id.
var epochs uint64

func nextEpoch() uint64 {
	return atomic.AddUint64(&epochs, 1)
}

// NewDevice makes a Device without any providers.
func NewDevice(id string) *Device {
	return &Device{
		Id:       id,
		capacity: make(map[string][]int64, 4),
		free:     make(map[string][]int64, 4),
		epochs:   make(map[string]uint64, 4),
	}
}

func (d *Device) debugf(format string, args ...interface{}) {
	if d.Debug {
		log.Printf("Device "+d.Id+" "+format, args...)
	}
}

// SetProvider sets the capacity of the given provider.
//
// Outstanding reservations are carried over when the number of
// dimensions doesn't change.  Otherwise the ledger starts fresh and
// those reservations are forgotten.
func (d *Device) SetProvider(pid string, capacity ...int64) {
	d.Lock()
	defer d.Unlock()

	capacity = append([]int64{}, capacity...)
	free := append([]int64{}, capacity...)
	if old, have := d.capacity[pid]; have && len(old) == len(capacity) {
		for i := range free {
			free[i] -= old[i] - d.free[pid][i]
		}
	} else {
		d.epochs[pid] = nextEpoch()
	}
	d.capacity[pid] = capacity
	d.free[pid] = free
}

// RemoveProvider forgets the given provider along with its
// outstanding reservations.
func (d *Device) RemoveProvider(pid string) {
	d.Lock()
	delete(d.capacity, pid)
	delete(d.free, pid)
	delete(d.epochs, pid)
	d.Unlock()
}

// Epoch returns the current epoch of the provider's ledger, or zero
// if there's no such provider.
func (d *Device) Epoch(pid string) uint64 {
	d.Lock()
	defer d.Unlock()
	return d.epochs[pid]
}

// Providers returns the ids of the providers on this device, sorted.
func (d *Device) Providers() []string {
	d.Lock()
	acc := make([]string, 0, len(d.capacity))
	for pid := range d.capacity {
		acc = append(acc, pid)
	}
	d.Unlock()
	sort.Strings(acc)
	return acc
}

// Capacity returns a copy of the provider's capacity vector or nil.
func (d *Device) Capacity(pid string) []int64 {
	d.Lock()
	defer d.Unlock()
	if c, have := d.capacity[pid]; have {
		return append([]int64{}, c...)
	}
	return nil
}

// Free returns a copy of the provider's free vector or nil.
func (d *Device) Free(pid string) []int64 {
	d.Lock()
	defer d.Unlock()
	if f, have := d.free[pid]; have {
		return append([]int64{}, f...)
	}
	return nil
}

// estimate extracts a usable estimate for the provider.  A template
// that isn't a resource-template, or whose estimate doesn't have one
// component per tracked dimension, is malformed.
//
// Caller holds the lock.
func (d *Device) estimate(pid string, template *contract.Contract) ([]int64, []int64, bool) {
	if template == nil || template.Kind() != contract.ResourceTemplate {
		return nil, nil, false
	}
	free, have := d.free[pid]
	if !have {
		return nil, nil, false
	}
	est := template.Estimate()
	if len(est) != len(free) {
		return nil, nil, false
	}
	return est, free, true
}

// Reserve subtracts the template's estimate from the provider's free
// units.  Returns false, changing nothing, if the provider is
// unknown, the template is malformed, or any component would go
// negative.
func (d *Device) Reserve(pid string, template *contract.Contract) bool {
	_, ok := d.ReserveAt(pid, template)
	return ok
}

// ReserveAt is Reserve that also returns the epoch of the ledger the
// reservation was taken on.  Give that epoch to ReleaseAt.
func (d *Device) ReserveAt(pid string, template *contract.Contract) (uint64, bool) {
	d.Lock()
	defer d.Unlock()

	est, free, ok := d.estimate(pid, template)
	if !ok {
		d.debugf("Reserve %s malformed template %s", pid, template)
		return 0, false
	}
	for i, n := range est {
		if free[i]-n < 0 {
			d.debugf("Reserve %s short in dimension %d (%d < %d)", pid, i, free[i], n)
			return 0, false
		}
	}
	for i, n := range est {
		free[i] -= n
	}
	d.debugf("Reserve %s %v -> free %v", pid, est, free)
	return d.epochs[pid], true
}

// Release gives back what a successful Reserve took.
//
// Releasing on a provider that has since gone away, or whose
// dimensions have changed, is quietly ignored.  Releasing more than
// was reserved panics with OverRelease.
func (d *Device) Release(pid string, template *contract.Contract) {
	d.Lock()
	defer d.Unlock()
	d.release(pid, template)
}

// ReleaseAt gives back a reservation taken at the given epoch.  If
// the provider's ledger has started fresh since then, the
// reservation went with the old ledger and nothing changes.  Returns
// whether anything was given back.
func (d *Device) ReleaseAt(pid string, template *contract.Contract, epoch uint64) bool {
	d.Lock()
	defer d.Unlock()
	if current := d.epochs[pid]; current != epoch {
		log.Printf("Device %s Release %s dropped (epoch %d, now %d)", d.Id, pid, epoch, current)
		return false
	}
	return d.release(pid, template)
}

// release is Release with the lock held.
func (d *Device) release(pid string, template *contract.Contract) bool {
	est, free, ok := d.estimate(pid, template)
	if !ok {
		d.debugf("Release %s ignored for %s", pid, template)
		return false
	}
	capacity := d.capacity[pid]
	for i, n := range est {
		if capacity[i] < free[i]+n {
			panic(&OverRelease{
				SystemId:   d.Id,
				ProviderId: pid,
				Free:       append([]int64{}, free...),
				Capacity:   append([]int64{}, capacity...),
			})
		}
	}
	for i, n := range est {
		free[i] += n
	}
	d.debugf("Release %s %v -> free %v", pid, est, free)
	return true
}
