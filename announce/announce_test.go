package announce

import (
	"context"
	"reflect"
	"testing"

	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/device"
	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/match"
)

func TestTopics(t *testing.T) {
	if got := Topic("home/", "tv"); got != "home/devices/tv" {
		t.Fatalf("topic %s", got)
	}
	for topic, want := range map[string]string{
		"home/devices/tv":    "tv",
		"home/devices/":      "",
		"home/devices/tv/x":  "",
		"office/devices/tv":  "",
		"home/devices/phone": "phone",
	} {
		got, ok := SystemId("home", topic)
		if got != want || ok != (want != "") {
			t.Fatalf("%s: %q %v", topic, got, ok)
		}
	}
}

func listener() *Listener {
	return &Listener{
		Prefix:  "home",
		Devices: device.NewPool(),
		Catalog: discovery.NewCatalog(),
	}
}

func TestHandleJSON(t *testing.T) {
	l := listener()
	ctx := context.Background()
	payload := `{"providers":{"cpu":[8]},"offers":[{"providerId":"cpu","templates":[{"kind":"resource-template","name":"cycles","estimate":[2]}]}]}`
	if err := l.Handle(ctx, "home/devices/hub", []byte(payload)); err != nil {
		t.Fatal(err)
	}
	if got := l.Devices.Get("hub").Free("cpu"); !reflect.DeepEqual(got, []int64{8}) {
		t.Fatalf("free %v", got)
	}
	cs, err := l.Catalog.Discover(ctx, contract.New(contract.ResourceDemand, "cycles"), nil)
	if err != nil || len(cs) != 1 || cs[0].SystemId != "hub" {
		t.Fatalf("candidates %v %v", cs, err)
	}

	if err = l.Handle(ctx, "home/devices/hub", nil); err != nil {
		t.Fatal(err)
	}
	if l.Devices.Get("hub") != nil || len(l.Catalog.Offers("hub")) != 0 {
		t.Fatal("hub still known")
	}
}

func TestHandleCBOR(t *testing.T) {
	rt, err := contract.NewResourceTemplate("screen", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := &discovery.Device{
		SystemId:  "tv",
		Providers: map[string][]int64{"panel": {4, 2}},
		Offers: []*discovery.Offer{{
			ProviderId: "panel",
			Rules:      match.Rules{{Dimension: "size", Feature: "inches", Value: 55}},
			Templates:  []*contract.Contract{rt},
		}},
	}
	bs, err := Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Encode(d)
	if err != nil || !reflect.DeepEqual(bs, again) {
		t.Fatal("encoding isn't deterministic")
	}

	e, err := Decode(bs)
	if err != nil {
		t.Fatal(err)
	}
	if e.SystemId != "tv" || !e.Offers[0].Templates[0].Equal(rt) || e.Offers[0].Rules[0].Feature != "inches" {
		t.Fatalf("decoded %#v", e)
	}

	l := listener()
	if err = l.Handle(context.Background(), "home/devices/tv", bs); err != nil {
		t.Fatal(err)
	}
	if got := l.Devices.Get("tv").Free("panel"); !reflect.DeepEqual(got, []int64{4, 2}) {
		t.Fatalf("free %v", got)
	}

	// The topic and the payload have to agree.
	if err = l.Handle(context.Background(), "home/devices/radio", bs); err == nil {
		t.Fatal("accepted a mismatched announcement")
	}
	if err = l.Handle(context.Background(), "elsewhere/tv", bs); err == nil {
		t.Fatal("accepted a foreign topic")
	}
	if err = l.Handle(context.Background(), "home/devices/tv", []byte("\xff\xff")); err == nil {
		t.Fatal("accepted garbage")
	}
}

func TestAnnounceNotConnected(t *testing.T) {
	if err := listener().Announce(context.Background(), &discovery.Device{SystemId: "tv"}); err != NotConnected {
		t.Fatalf("expected NotConnected, got %v", err)
	}
}
