package dynamic

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExec(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	i := NewInterpreter()
	x, err := i.Exec(ctx, "power", "battery", `return 40 + 2;`)
	if err != nil {
		t.Fatal(err)
	}
	if n, is := x.(int64); !is || n != 42 {
		t.Fatalf("got %#v (%T)", x, x)
	}

	x, err = i.Exec(ctx, "power", "battery", `return _.dimension + "." + _.feature;`)
	if err != nil || x != "power.battery" {
		t.Fatalf("got %#v %v", x, err)
	}

	if x, err = i.Exec(ctx, "d", "f", `return 0 < _.now();`); err != nil || x != true {
		t.Fatalf("now %#v %v", x, err)
	}

	x, err = i.Exec(ctx, "d", "f", `return _.cronNext("* * * * *");`)
	if err != nil {
		t.Fatal(err)
	}
	s, is := x.(string)
	if !is {
		t.Fatalf("cronNext gave a %T", x)
	}
	next, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatal(err)
	}
	if !next.After(time.Now()) {
		t.Fatalf("cronNext %s isn't in the future", next)
	}
}

func TestBadSource(t *testing.T) {
	i := NewInterpreter()
	if _, err := i.Exec(context.Background(), "d", "f", `return (;`); err == nil {
		t.Fatal("compiled garbage")
	}
	if _, err := i.Exec(context.Background(), "d", "f", `return _.cronNext(42);`); err == nil {
		t.Fatal("cronNext accepted a number")
	}
}

func TestInterrupt(t *testing.T) {
	i := NewInterpreter()
	i.Timeout = 50 * time.Millisecond
	_, err := i.Exec(context.Background(), "d", "f", `for (;;) {}`)
	if err != Interrupted {
		t.Fatalf("expected Interrupted, got %v", err)
	}
}

func TestScripts(t *testing.T) {
	s := &Scripts{
		Sources: map[string]string{
			Key("codec", "load"): `return 0.25;`,
		},
	}
	if err := s.Check(); err != nil {
		t.Fatal(err)
	}
	x, err := s.Resolve(context.Background(), "codec", "load")
	if err != nil || x != 0.25 {
		t.Fatalf("got %#v %v", x, err)
	}
	if _, err = s.Resolve(context.Background(), "codec", "nope"); err != NoScript {
		t.Fatalf("expected NoScript, got %v", err)
	}

	s.Sources["x/y"] = `return (`
	if err = s.Check(); err == nil || !strings.Contains(err.Error(), "x/y") {
		t.Fatalf("check %v", err)
	}
}
