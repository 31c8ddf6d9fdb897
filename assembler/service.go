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

// Package assembler is the network-facing entry point that
// multiplexes configuration sessions.
//
// A session starts with Prepare, which makes an Application and a
// lease.  The remote container then feeds States in with Setup and
// asks for an Assembly with Configure.  A session ends with Remove or
// when its lease runs out.  Either way, every reservation it held is
// returned.
package assembler

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/lease"
)

// Addressed is a Pointer together with the session and the assembler
// that owns it.  The container uses these to send the next Setup.
type Addressed struct {
	Pointer       assembly.Pointer `json:"pointer"`
	ApplicationId string           `json:"app"`
	Assembler     string           `json:"assembler,omitempty"`
}

// ProtocolViolation is the panic value for a call this assembler
// should never see.
type ProtocolViolation struct {
	Op            string
	ApplicationId string
}

func (e *ProtocolViolation) Error() string {
	return "protocol violation: " + e.Op + " for " + e.ApplicationId
}

// Service manages many Applications.
//
// The Service's lock only guards the session map.  Each Application
// has its own lock, so sessions configure concurrently.
type Service struct {
	sync.Mutex

	// Address is how remote containers reach this Service.
	Address string

	Devices    *device.Pool
	Discoverer assembly.Discoverer
	Leases     *lease.Registry

	// Scope, if not nil, limits discovery to these devices.
	Scope []string

	// Subs gets item-removal Events by application id.
	Subs *Subs

	Verbose bool

	apps     map[string]*assembly.Application
	firehose chan interface{}
}

// NewService makes a Service without any sessions.
//
// The lease Registry should be running.
func NewService(address string, devices *device.Pool, ds assembly.Discoverer, leases *lease.Registry) *Service {
	return &Service{
		Address:    address,
		Devices:    devices,
		Discoverer: ds,
		Leases:     leases,
		Subs:       NewSubs(),
		apps:       make(map[string]*assembly.Application, 32),
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf("Service."+format, args...)
	}
}

func (s *Service) find(id string) *assembly.Application {
	s.Lock()
	defer s.Unlock()
	return s.apps[id]
}

// Prepare starts a fresh session.  An existing session with the same
// id is torn down first.
func (s *Service) Prepare(ctx context.Context, id string) (lease.Handle, error) {
	s.logf("Prepare %s", id)

	s.Lock()
	old := s.apps[id]
	delete(s.apps, id)
	s.Unlock()

	if old != nil {
		s.teardown(old)
	}

	app := assembly.NewApplication(id, s.Discoverer, s.Devices)
	app.Scope = s.Scope
	app.Verbose = s.Verbose
	app.OnRemove = func(e assembly.Event) {
		s.Subs.Do(e.ApplicationId, e)
		s.emit("removed", e)
	}

	// The lease and the session appear together.  An expiry
	// callback waits for the lock, so it always finds the session.
	s.Lock()
	h, err := s.Leases.Create(func(h lease.Handle) {
		s.expired(id, app)
	})
	if err != nil {
		s.Unlock()
		return "", err
	}
	app.Lease = string(h)
	displaced := s.apps[id]
	s.apps[id] = app
	s.Unlock()

	// A concurrent Prepare for the same id got in first.
	if displaced != nil {
		s.teardown(displaced)
	}

	return h, nil
}

// expired is the lease callback.  The session leaves the map before
// its tree is released, so nobody can find it mid-teardown.
func (s *Service) expired(id string, app *assembly.Application) {
	log.Printf("Service lease for %s expired", id)
	s.Lock()
	if s.apps[id] == app {
		delete(s.apps, id)
	}
	s.Unlock()
	app.Release()
}

func (s *Service) teardown(app *assembly.Application) {
	if err := s.Leases.Remove(lease.Handle(app.Lease), false); err != nil {
		s.logf("teardown %s lease %v", app.Id, err)
	}
	app.Release()
}

// Setup records the State at the Pointer and returns the children the
// container should set up next.
func (s *Service) Setup(ctx context.Context, id string, p assembly.Pointer, state *assembly.State) ([]Addressed, error) {
	app := s.find(id)
	if app == nil {
		s.logf("Setup unknown %s", id)
		return nil, nil
	}
	ps, err := app.SetupState(p, state)
	if err != nil {
		return nil, err
	}
	acc := make([]Addressed, len(ps))
	for i, q := range ps {
		acc[i] = Addressed{
			Pointer:       q,
			ApplicationId: id,
			Assembler:     s.Address,
		}
	}
	return acc, nil
}

// Configure runs the session's configuration.  A nil Assembly without
// an error means there's no way to satisfy the application right now.
func (s *Service) Configure(ctx context.Context, id string) (*assembly.Assembly, error) {
	app := s.find(id)
	if app == nil {
		s.logf("Configure unknown %s", id)
		return nil, nil
	}
	return app.Configure(ctx)
}

// Remove ends the session and releases everything it holds.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.Lock()
	app := s.apps[id]
	delete(s.apps, id)
	s.Unlock()

	if app == nil {
		s.logf("Remove unknown %s", id)
		return nil
	}
	s.teardown(app)
	return nil
}

// Retrieve belongs to lazy assemblers.  This one configures eagerly,
// so a call is a protocol violation.
func (s *Service) Retrieve(ctx context.Context, id string, p assembly.Pointer) *assembly.Assembly {
	panic(&ProtocolViolation{Op: "retrieve", ApplicationId: id})
}

// Renew extends the session's lease.
func (s *Service) Renew(ctx context.Context, id string) error {
	app := s.find(id)
	if app == nil {
		return nil
	}
	return s.Leases.Renew(lease.Handle(app.Lease))
}

// Sessions returns the ids of the live sessions, sorted.
func (s *Service) Sessions() []string {
	s.Lock()
	acc := make([]string, 0, len(s.apps))
	for id := range s.apps {
		acc = append(acc, id)
	}
	s.Unlock()
	sort.Strings(acc)
	return acc
}

// Items returns diagnostics for a session.
func (s *Service) Items(id string) []assembly.ItemInfo {
	app := s.find(id)
	if app == nil {
		return nil
	}
	return app.Items()
}

func (s *Service) emit(tag string, x interface{}) {
	if s.firehose == nil {
		return
	}
	select {
	case s.firehose <- map[string]interface{}{tag: x}:
	default:
		log.Printf("Service firehose blocked")
	}
}
