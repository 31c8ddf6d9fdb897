package assembler

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestListener(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	in := strings.NewReader(`
# A session.
{"prepare":{"app":"a"}}
// Nothing to do.
{}
not json
{"renew":{"app":"a"}}`)

	var out bytes.Buffer
	if err := f.s.Listener(f.ctx, in, &out); err != nil {
		t.Fatal(err)
	}

	var replies []*Op
	dec := json.NewDecoder(&out)
	for dec.More() {
		var op Op
		if err := dec.Decode(&op); err != nil {
			t.Fatal(err)
		}
		replies = append(replies, &op)
	}
	if len(replies) != 4 {
		t.Fatalf("replies %v", replies)
	}
	if p := replies[0].Prepare; p == nil || p.Lease == "" || replies[0].Err != "" {
		t.Fatalf("prepare %v", replies[0])
	}
	if !strings.Contains(replies[1].Err, "not implemented") {
		t.Fatalf("empty op %v", replies[1])
	}
	if !strings.Contains(replies[2].Err, "can't parse") {
		t.Fatalf("garbage %v", replies[2])
	}
	if replies[3].Renew == nil || replies[3].Err != "" {
		t.Fatalf("renew %v", replies[3])
	}
}

func TestBoot(t *testing.T) {
	f := newFixture(t, time.Minute)
	defer f.cancel()

	if err := f.s.Boot(f.ctx, strings.NewReader("{\"prepare\":{\"app\":\"a\"}}\n{\"prepare\":{\"app\":\"b\"}}\n")); err != nil {
		t.Fatal(err)
	}
	if ss := f.s.Sessions(); len(ss) != 2 {
		t.Fatalf("sessions %v", ss)
	}
	if err := f.s.Boot(f.ctx, strings.NewReader(`{"renew":{"app":"nope"}}`+"\n"+`{"prepare":{"app":"c"}}`)); err != nil {
		// Renewing an unknown session is a no-op.
		t.Fatal(err)
	}
	if err := f.s.Boot(f.ctx, strings.NewReader("{}\n")); err == nil {
		t.Fatal("booted an empty op")
	}
}
