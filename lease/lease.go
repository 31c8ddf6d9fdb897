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

// Package lease keeps sessions alive only as long as somebody renews
// them.
//
// At any point in time, only one time.Timer exists to implement all
// leases.  Leases wait in a backlog ordered by deadline.  When the
// head of that backlog changes, the Run loop replaces its timer.
// When the timer goes off, every lease that's actually due is taken
// out of the backlog and its callback runs in a new goroutine.
// Since due-ness is checked against the backlog at that moment, a
// lease that was renewed or removed never fires on its old deadline.
//
// A Registry is designed for a few hundred leases (and not many
// thousands).
package lease

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	NotFound       = errors.New("not found")
	TooMany        = errors.New("too many")
	NotRunning     = errors.New("not running")
	AlreadyRunning = errors.New("already running")
)

// Handle names a lease.
type Handle string

// Expired is called when a lease runs out (or is removed with
// notification).
type Expired func(Handle)

type lease struct {
	h  Handle
	at time.Time
	f  Expired
}

// Registry is a managed set of leases that share one TTL.
//
// You need to Run the Registry before calling Create.
type Registry struct {
	TTL   time.Duration `json:"ttl"`
	Max   int           `json:"max"`
	Debug bool          `json:"-"`

	sync.Mutex
	backlog []*lease
	leases  map[Handle]*lease
	up      chan bool
	running int64
	ready   chan struct{}
	once    sync.Once
}

// NewRegistry makes a Registry with the given TTL and maximum number
// of outstanding leases.
func NewRegistry(ttl time.Duration, max int) *Registry {
	initial := max / 4
	if initial < 8 {
		initial = 8
	}
	return &Registry{
		TTL:     ttl,
		Max:     max,
		backlog: make([]*lease, 0, initial),
		leases:  make(map[Handle]*lease, initial),
		up:      make(chan bool, 1),
		ready:   make(chan struct{}),
	}
}

func (r *Registry) debugf(format string, args ...interface{}) {
	if r.Debug {
		log.Printf("Registry "+format, args...)
	}
}

// Run drives the Registry in the current goroutine until ctx is
// done.
func (r *Registry) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt64(&r.running, 0, 1) {
		return AlreadyRunning
	}
	defer atomic.StoreInt64(&r.running, 0)
	r.once.Do(func() { close(r.ready) })

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.up:
			r.debugf("head changed")
		case <-timer.C:
			r.expire()
		}

		// Reset the timer for the (possibly new) head.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if at, ok := r.next(); ok {
			d := time.Until(at)
			if d < 0 {
				d = 0
			}
			r.debugf("next in %s", d)
			timer.Reset(d)
		}
	}
}

// IsRunning reports whether Run is executing.
func (r *Registry) IsRunning() bool {
	return atomic.LoadInt64(&r.running) == 1
}

// Wait waits for Run to start.
func (r *Registry) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-r.ready:
		return true
	}
}

func (r *Registry) next() (time.Time, bool) {
	r.Lock()
	defer r.Unlock()
	if len(r.backlog) == 0 {
		return time.Time{}, false
	}
	return r.backlog[0].at, true
}

// expire takes every due lease out of the backlog and fires it.
func (r *Registry) expire() {
	now := time.Now()
	r.Lock()
	var due []*lease
	for len(r.backlog) > 0 && !r.backlog[0].at.After(now) {
		l := r.backlog[0]
		r.backlog[0] = nil
		r.backlog = r.backlog[1:]
		delete(r.leases, l.h)
		due = append(due, l)
	}
	r.Unlock()

	for _, l := range due {
		r.debugf("lease %s expired", l.h)
		if l.f != nil {
			go l.f(l.h)
		}
	}
}

// poke tells Run to look at the head again.
func (r *Registry) poke() {
	select {
	case r.up <- true:
	default:
	}
}

// insert puts the lease in deadline order.  The caller holds the
// lock.
func (r *Registry) insert(l *lease) {
	i := sort.Search(len(r.backlog), func(i int) bool {
		return r.backlog[i].at.After(l.at)
	})
	r.backlog = append(r.backlog, nil)
	copy(r.backlog[i+1:], r.backlog[i:])
	r.backlog[i] = l
	if i == 0 {
		r.poke()
	}
}

// remove takes the lease out of the backlog.  The caller holds the
// lock.
func (r *Registry) remove(l *lease) {
	for i, x := range r.backlog {
		if x == l {
			copy(r.backlog[i:], r.backlog[i+1:])
			r.backlog[len(r.backlog)-1] = nil
			r.backlog = r.backlog[:len(r.backlog)-1]
			if i == 0 {
				r.poke()
			}
			return
		}
	}
}

// Create makes a new lease that will expire after the TTL unless
// renewed.
func (r *Registry) Create(f Expired) (Handle, error) {
	if !r.IsRunning() {
		return "", NotRunning
	}

	r.Lock()
	defer r.Unlock()

	if 0 < r.Max && r.Max <= len(r.backlog) {
		return "", TooMany
	}

	l := &lease{
		h:  Handle(uuid.New().String()),
		at: time.Now().Add(r.TTL),
		f:  f,
	}
	r.leases[l.h] = l
	r.insert(l)
	r.debugf("created %s", l.h)

	return l.h, nil
}

// Renew pushes the lease's deadline out to a TTL from now.
func (r *Registry) Renew(h Handle) error {
	r.Lock()
	defer r.Unlock()

	l, have := r.leases[h]
	if !have {
		return NotFound
	}
	r.remove(l)
	l.at = time.Now().Add(r.TTL)
	r.insert(l)
	r.debugf("renewed %s", h)
	return nil
}

// Remove forgets the lease.  If notify is true, the lease's callback
// runs (in this goroutine) before Remove returns.
func (r *Registry) Remove(h Handle, notify bool) error {
	r.Lock()
	l, have := r.leases[h]
	if have {
		delete(r.leases, h)
		r.remove(l)
	}
	r.Unlock()

	if !have {
		return NotFound
	}
	r.debugf("removed %s (notify %v)", h, notify)
	if notify && l.f != nil {
		l.f(h)
	}
	return nil
}

// Len returns the number of outstanding leases.
func (r *Registry) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.backlog)
}

// Deadline returns when the lease will expire.
func (r *Registry) Deadline(h Handle) (time.Time, error) {
	r.Lock()
	defer r.Unlock()
	l, have := r.leases[h]
	if !have {
		return time.Time{}, NotFound
	}
	return l.at, nil
}
