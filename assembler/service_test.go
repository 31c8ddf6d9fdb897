package assembler

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/lease"
)

// fixture has one device with a "cpu" provider and a Discoverer that
// offers a 1-unit cpu template for every resource-demand.
type fixture struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   *device.Pool
	leases *lease.Registry
	s      *Service
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	ctx, cancel := context.WithCancel(context.Background())
	pool := device.NewPool()
	pool.Ensure("hub").SetProvider("cpu", 10)

	leases := lease.NewRegistry(ttl, 100)
	go leases.Run(ctx)
	if !leases.Wait(time.Second) {
		cancel()
		t.Fatal("leases didn't start")
	}

	ds := assembly.DiscovererFunc(func(ctx context.Context, demand *contract.Contract, scope []string) ([]assembly.Candidate, error) {
		switch demand.Kind() {
		case contract.ResourceDemand:
			c, err := contract.NewResourceTemplate(demand.Name(), 1)
			if err != nil {
				return nil, err
			}
			return []assembly.Candidate{{SystemId: "hub", ProviderId: "cpu", Template: c}}, nil
		case contract.InstanceDemand:
			// A worker that needs one more unit.
			w := contract.New(contract.InstanceProvision, demand.Name())
			w.AddContract(contract.New(contract.ResourceDemand, "cycles"))
			return []assembly.Candidate{{SystemId: "hub", ProviderId: "workers", Template: w}}, nil
		}
		return nil, nil
	})

	return &fixture{
		ctx:    ctx,
		cancel: cancel,
		pool:   pool,
		leases: leases,
		s:      NewService("local", pool, ds, leases),
	}
}

// anchor needs n resources directly and n workers that each need one
// more.
func anchor(n int) *contract.Contract {
	c := contract.New(contract.InstanceProvision, "app")
	for i := 0; i < n; i++ {
		c.AddContract(contract.New(contract.ResourceDemand, "r"+string(rune('a'+i))))
		c.AddContract(contract.New(contract.InstanceDemand, "w"+string(rune('a'+i))))
	}
	return c
}

func (f *fixture) session(t *testing.T, id string, n int) *assembly.Assembly {
	if _, err := f.s.Prepare(f.ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := f.s.Setup(f.ctx, id, assembly.Root(), &assembly.State{SystemId: "hub", Template: anchor(n)}); err != nil {
		t.Fatal(err)
	}
	x, err := f.s.Configure(f.ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if x == nil {
		t.Fatal("no assembly")
	}
	return x
}

func TestIdempotentPrepare(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	f.session(t, "app", 2)
	if got := f.pool.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{6}) {
		t.Fatalf("free %v", got)
	}

	if _, err := f.s.Prepare(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}
	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v after second prepare", got)
	}
	if f.leases.Len() != 1 {
		t.Fatalf("%d leases", f.leases.Len())
	}
	if ss := f.s.Sessions(); !reflect.DeepEqual(ss, []string{"app"}) {
		t.Fatalf("sessions %v", ss)
	}
}

func TestLeaseTeardown(t *testing.T) {
	f := newFixture(t, 100*time.Millisecond)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	removed := make(chan assembly.Event, 100)
	f.s.Subs.Add("app", func(x interface{}) {
		removed <- x.(assembly.Event)
	})

	const n = 3
	x := f.session(t, "app", n)
	if got := f.pool.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{10 - 2*n}) {
		t.Fatalf("free %v", got)
	}
	// Anchor, n resources, n workers with one resource each.
	if c := x.Count(); c != 1+3*n {
		t.Fatalf("assembly has %d nodes", c)
	}

	// The session leaves the map before its tree is released.
	deadline := time.Now().Add(2 * time.Second)
	for len(f.s.Sessions()) > 0 || !reflect.DeepEqual(f.pool.Snapshot(), baseline) {
		if time.Now().After(deadline) {
			t.Fatalf("session outlived its lease: %v %v", f.s.Sessions(), f.pool.Snapshot())
		}
		time.Sleep(20 * time.Millisecond)
	}

	var resources int
	timeout := time.After(2 * time.Second)
	for resources < 2*n {
		select {
		case e := <-removed:
			if e.Kind == "resource-element" {
				resources++
			}
		case <-timeout:
			t.Fatalf("%d resource elements removed", resources)
		}
	}
}

func TestRenewKeepsSession(t *testing.T) {
	f := newFixture(t, 150*time.Millisecond)
	defer f.cancel()

	f.session(t, "app", 1)
	for i := 0; i < 4; i++ {
		time.Sleep(75 * time.Millisecond)
		if err := f.s.Renew(f.ctx, "app"); err != nil {
			t.Fatal(err)
		}
	}
	if ss := f.s.Sessions(); len(ss) != 1 {
		t.Fatalf("sessions %v", ss)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	f.session(t, "a", 1)
	f.session(t, "b", 1)
	if err := f.s.Remove(f.ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if ss := f.s.Sessions(); !reflect.DeepEqual(ss, []string{"b"}) {
		t.Fatalf("sessions %v", ss)
	}
	if err := f.s.Remove(f.ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v", got)
	}
	if f.leases.Len() != 0 {
		t.Fatalf("%d leases", f.leases.Len())
	}
}

func TestUnknownIdsAreNoOps(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	if ps, err := f.s.Setup(f.ctx, "nope", assembly.Root(), &assembly.State{Template: anchor(1)}); ps != nil || err != nil {
		t.Fatalf("setup %v %v", ps, err)
	}
	if x, err := f.s.Configure(f.ctx, "nope"); x != nil || err != nil {
		t.Fatalf("configure %v %v", x, err)
	}
	if err := f.s.Renew(f.ctx, "nope"); err != nil {
		t.Fatal(err)
	}
	if err := f.s.Remove(f.ctx, "nope"); err != nil {
		t.Fatal(err)
	}
}

func TestSetupAddresses(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	if _, err := f.s.Prepare(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}
	as, err := f.s.Setup(f.ctx, "app", assembly.Root(), &assembly.State{SystemId: "hub", Template: anchor(1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(as) != 2 {
		t.Fatalf("addressed %v", as)
	}
	for _, a := range as {
		if a.ApplicationId != "app" || a.Assembler != "local" || a.Pointer.Len() != 1 {
			t.Fatalf("addressed %#v", a)
		}
	}
}

func TestRetrievePanics(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	defer func() {
		if _, is := recover().(*ProtocolViolation); !is {
			t.Fatal("expected a ProtocolViolation")
		}
	}()
	f.s.Retrieve(f.ctx, "app", assembly.Root())
}

func TestRetrieveViolationIsLogged(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	op := &Op{Retrieve: &RetrieveOp{App: "app", Pointer: assembly.Root()}}
	if err := op.Do(f.ctx, f.s); err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(buf.String(), "protocol violation") {
		t.Fatalf("log: %q", buf.String())
	}
}

func TestWorkAfterRemoveIsIgnored(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	if _, err := f.s.Prepare(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}
	// A request that found the session just before it was removed.
	app := f.s.find("app")
	if err := f.s.Remove(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}

	if _, err := app.SetupState(assembly.Root(), &assembly.State{SystemId: "hub", Template: anchor(2)}); err != nil {
		t.Fatal(err)
	}
	x, err := app.Configure(f.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if x != nil {
		t.Fatalf("assembly %v from a removed session", x)
	}
	if ss := f.s.Sessions(); len(ss) != 0 {
		t.Fatalf("sessions %v", ss)
	}
	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v", got)
	}
}

func TestConcurrentSessions(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.s.Prepare(f.ctx, id); err != nil {
				t.Error(err)
				return
			}
			if _, err := f.s.Setup(f.ctx, id, assembly.Root(), &assembly.State{SystemId: "hub", Template: anchor(1)}); err != nil {
				t.Error(err)
				return
			}
			x, err := f.s.Configure(f.ctx, id)
			if err != nil {
				t.Error(err)
				return
			}
			if x != nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(fmt.Sprintf("app-%d", i))
	}
	wg.Wait()

	// Each assembly takes two units out of ten.
	if 5 < succeeded {
		t.Fatalf("%d assemblies from ten units", succeeded)
	}
	free := f.pool.Get("hub").Free("cpu")
	if len(free) != 1 || free[0] < 0 || 10-2*int64(succeeded) < free[0] {
		t.Fatalf("free %v with %d assemblies", free, succeeded)
	}

	for _, id := range f.s.Sessions() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := f.s.Remove(f.ctx, id); err != nil {
				t.Error(err)
			}
		}(id)
	}
	wg.Wait()

	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v", got)
	}
	if f.leases.Len() != 0 {
		t.Fatalf("%d leases", f.leases.Len())
	}
}

func TestTeardownRacesWork(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	if _, err := f.s.Prepare(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.s.Setup(f.ctx, "app", assembly.Root(), &assembly.State{SystemId: "hub", Template: anchor(2)})
			f.s.Configure(f.ctx, "app")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.s.Remove(f.ctx, "app")
			f.s.Prepare(f.ctx, "app")
		}
	}()
	wg.Wait()

	if err := f.s.Remove(f.ctx, "app"); err != nil {
		t.Fatal(err)
	}
	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v", got)
	}
	if f.leases.Len() != 0 {
		t.Fatalf("%d leases", f.leases.Len())
	}
}

func TestDeviceReturnsMidSession(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()
	baseline := f.pool.Snapshot()

	f.session(t, "old", 1)

	// The hub leaves and comes back with a fresh ledger.
	f.pool.Remove("hub")
	f.pool.Ensure("hub").SetProvider("cpu", 10)

	f.session(t, "young", 1)
	if err := f.s.Remove(f.ctx, "old"); err != nil {
		t.Fatal(err)
	}
	if got := f.pool.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{8}) {
		t.Fatalf("free %v after removing the old session", got)
	}
	if err := f.s.Remove(f.ctx, "young"); err != nil {
		t.Fatal(err)
	}
	if got := f.pool.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v", got)
	}
}
