package device

import (
	"reflect"
	"sync"
	"testing"

	"github.com/Comcast/pcom/contract"
)

func template(t *testing.T, estimate ...int64) *contract.Contract {
	c, err := contract.NewResourceTemplate("r", estimate...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestConservation(t *testing.T) {
	d := NewDevice("laptop")
	d.SetProvider("screen", 10, 4, 1)
	start := d.Free("screen")

	ts := []*contract.Contract{
		template(t, 1, 1, 0),
		template(t, 3, 0, 1),
		template(t, 2, 2, 0),
		template(t, 0, 0, 0),
	}
	for i, c := range ts {
		if !d.Reserve("screen", c) {
			t.Fatalf("reserve %d failed with free %v", i, d.Free("screen"))
		}
	}
	if got := d.Free("screen"); !reflect.DeepEqual(got, []int64{4, 1, 0}) {
		t.Fatalf("free %v", got)
	}
	// Release in a different order.
	for _, i := range []int{2, 0, 3, 1} {
		d.Release("screen", ts[i])
	}
	if got := d.Free("screen"); !reflect.DeepEqual(got, start) {
		t.Fatalf("free %v after releases; wanted %v", got, start)
	}
}

func TestAllOrNothing(t *testing.T) {
	d := NewDevice("phone")
	d.SetProvider("audio", 5, 5, 5)

	// Short in the last dimension only.
	if d.Reserve("audio", template(t, 1, 1, 6)) {
		t.Fatal("reserve should have failed")
	}
	if got := d.Free("audio"); !reflect.DeepEqual(got, []int64{5, 5, 5}) {
		t.Fatalf("ledger changed: %v", got)
	}
}

func TestMalformed(t *testing.T) {
	d := NewDevice("phone")
	d.SetProvider("audio", 5, 5)

	if d.Reserve("audio", template(t, 1)) {
		t.Fatal("short estimate reserved")
	}
	if d.Reserve("audio", template(t, 1, 1, 1)) {
		t.Fatal("long estimate reserved")
	}
	if d.Reserve("video", template(t, 1, 1)) {
		t.Fatal("unknown provider reserved")
	}
	if d.Reserve("audio", contract.New(contract.ResourceDemand, "r")) {
		t.Fatal("non-template reserved")
	}
	if d.Reserve("audio", nil) {
		t.Fatal("nil template reserved")
	}
	// Ignored.
	d.Release("audio", template(t, 1))
	if got := d.Free("audio"); !reflect.DeepEqual(got, []int64{5, 5}) {
		t.Fatalf("ledger changed: %v", got)
	}
}

func TestOverReleasePanics(t *testing.T) {
	d := NewDevice("phone")
	d.SetProvider("audio", 2)
	c := template(t, 1)
	if !d.Reserve("audio", c) {
		t.Fatal("reserve failed")
	}
	d.Release("audio", c)

	defer func() {
		if _, is := recover().(*OverRelease); !is {
			t.Fatal("expected an OverRelease panic")
		}
	}()
	d.Release("audio", c)
}

func TestSetProviderKeepsReservations(t *testing.T) {
	d := NewDevice("tv")
	d.SetProvider("panel", 4)
	c := template(t, 3)
	if !d.Reserve("panel", c) {
		t.Fatal("reserve failed")
	}
	d.SetProvider("panel", 6)
	if got := d.Free("panel"); !reflect.DeepEqual(got, []int64{3}) {
		t.Fatalf("free %v", got)
	}
	d.Release("panel", c)
	if got := d.Free("panel"); !reflect.DeepEqual(got, []int64{6}) {
		t.Fatalf("free %v", got)
	}
}

func TestPoolConcurrent(t *testing.T) {
	p := NewPool()
	p.Ensure("a").SetProvider("cpu", 100)
	p.Ensure("b").SetProvider("cpu", 100)
	baseline := p.Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := []string{"a", "b"}[i%2]
			c, _ := contract.NewResourceTemplate("r", int64(1+i%3))
			for j := 0; j < 50; j++ {
				if r, ok := p.Reserve(sid, "cpu", c); ok {
					p.Release(r)
				}
			}
		}(i)
	}
	wg.Wait()

	if got := p.Snapshot(); !reflect.DeepEqual(got, baseline) {
		t.Fatalf("ledger %v; wanted %v", got, baseline)
	}
	if ids := p.Ids(); !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("ids %v", ids)
	}

	p.Remove("b")
	if _, ok := p.Reserve("b", "cpu", template(t, 1)); ok {
		t.Fatal("reserved on a removed device")
	}
	// Quietly ignored.
	p.Release(nil)
}

func TestReleaseAfterDeviceReturns(t *testing.T) {
	p := NewPool()
	p.Ensure("hub").SetProvider("cpu", 10)

	old, ok := p.Reserve("hub", "cpu", template(t, 4))
	if !ok {
		t.Fatal("couldn't reserve")
	}

	// The device leaves and comes back with a fresh ledger.
	p.Remove("hub")
	p.Ensure("hub").SetProvider("cpu", 10)

	young, ok := p.Reserve("hub", "cpu", template(t, 2))
	if !ok {
		t.Fatal("couldn't reserve on the new ledger")
	}

	// Neither panics nor credits the new ledger.
	p.Release(old)
	if got := p.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{8}) {
		t.Fatalf("free %v", got)
	}
	p.Release(young)
	if got := p.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{10}) {
		t.Fatalf("free %v", got)
	}
}

func TestReleaseAfterProviderReturns(t *testing.T) {
	p := NewPool()
	d := p.Ensure("hub")
	d.SetProvider("cpu", 10)

	old, ok := p.Reserve("hub", "cpu", template(t, 4))
	if !ok {
		t.Fatal("couldn't reserve")
	}
	epoch := d.Epoch("cpu")

	d.RemoveProvider("cpu")
	d.SetProvider("cpu", 10)
	if d.Epoch("cpu") == epoch {
		t.Fatal("fresh ledger kept its epoch")
	}

	p.Release(old)
	if got := d.Free("cpu"); !reflect.DeepEqual(got, []int64{10}) {
		t.Fatalf("free %v", got)
	}
}

func TestSameShapeKeepsEpoch(t *testing.T) {
	p := NewPool()
	d := p.Ensure("hub")
	d.SetProvider("cpu", 10)
	r, ok := p.Reserve("hub", "cpu", template(t, 4))
	if !ok {
		t.Fatal("couldn't reserve")
	}

	// A capacity change with the same dimensions carries the
	// reservation over, so its release still counts.
	d.SetProvider("cpu", 12)
	if got := d.Free("cpu"); !reflect.DeepEqual(got, []int64{8}) {
		t.Fatalf("free %v", got)
	}
	p.Release(r)
	if got := d.Free("cpu"); !reflect.DeepEqual(got, []int64{12}) {
		t.Fatalf("free %v", got)
	}
}
