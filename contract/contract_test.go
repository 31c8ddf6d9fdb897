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

package contract

import (
	"encoding/json"
	"testing"
)

// sample makes a small demand tree: a "player" instance-demand that
// wants a "display" resource and a codec of a certain quality.
func sample(t *testing.T) *Contract {
	root := New(InstanceDemand, "player")

	dim := New(DimensionDemand, "codec")
	f, err := NewPointFeature("bitrate", GE, 128)
	if err != nil {
		t.Fatal(err)
	}
	dim.AddContract(f)
	if f, err = NewRangeFeature("channels", InRange, 2, 6); err != nil {
		t.Fatal(err)
	}
	dim.AddContract(f)
	if f, err = NewPointFeature("name", EQ, "mp3"); err != nil {
		t.Fatal(err)
	}
	dim.AddContract(f)
	if f, err = NewPointFeature("stereo", EQ, false); err != nil {
		t.Fatal(err)
	}
	dim.AddContract(f)

	typ := New(TypeDemand, "audio.Player")
	typ.AddContract(dim)
	root.AddContract(typ)
	root.AddContract(New(ResourceDemand, "display"))

	return root
}

func TestAddContractReplaces(t *testing.T) {
	c := New(InstanceDemand, "x")
	a := New(ResourceDemand, "a")
	if old := c.AddContract(a); old != nil {
		t.Fatalf("unexpected old %v", old)
	}
	c.AddContract(New(InstanceDemand, "a"))
	c.AddContract(New(ResourceDemand, "b"))

	a2 := New(ResourceDemand, "a")
	a2.AddContract(New(TypeDemand, "t"))
	if old := c.AddContract(a2); old != a {
		t.Fatalf("expected the old contract back, got %v", old)
	}
	if n := c.Len(); n != 3 {
		t.Fatalf("expected 3 children, got %d", n)
	}
	// Replacement keeps position.
	if got := c.Contracts()[0]; got != a2 {
		t.Fatalf("replacement moved: %v", got)
	}
	if got := c.GetContract(ResourceDemand, "a"); got != a2 {
		t.Fatalf("GetContract returned %v", got)
	}
	if got := c.GetContracts(ResourceDemand); len(got) != 2 {
		t.Fatalf("GetContracts returned %d", len(got))
	}
	if got := c.GetContract(TypeDemand, "a"); got != nil {
		t.Fatalf("GetContract found %v", got)
	}

	if old := c.RemoveContract(ResourceDemand, "a"); old != a2 {
		t.Fatalf("RemoveContract returned %v", old)
	}
	if got := c.GetContract(ResourceDemand, "b"); got == nil || c.Len() != 2 {
		t.Fatal("lost a sibling after RemoveContract")
	}
}

func TestFeatureAttributes(t *testing.T) {
	if _, err := NewPointFeature("f", InRange, 1); err == nil {
		t.Fatal("range comparator with a point value should fail")
	}
	if _, err := NewRangeFeature("f", GE, 1, 2); err == nil {
		t.Fatal("point comparator with bounds should fail")
	}
	if _, err := NewPointFeature("f", "ABOUT", 1); err == nil {
		t.Fatal("unknown comparator should fail")
	}
	if _, err := NewPointFeature("f", EQ, []int{1}); err != BadValue {
		t.Fatalf("expected BadValue, got %v", err)
	}
	if _, err := NewResourceTemplate("r", 1, -1); err == nil {
		t.Fatal("negative estimate should fail")
	}

	f, err := NewPointFeature("f", LT, int32(7))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := f.Value(); !ok || v != float64(7) {
		t.Fatalf("value %v %v", v, ok)
	}
	if _, _, ok := f.Bounds(); ok {
		t.Fatal("point feature has bounds")
	}

	d := NewDynamicFeature("load")
	if !d.Dynamic() {
		t.Fatal("not dynamic")
	}
	if _, ok := d.Value(); ok {
		t.Fatal("dynamic feature has a static value")
	}
}

func TestWrongKindPanics(t *testing.T) {
	defer func() {
		r := recover()
		if _, is := r.(*WrongKind); !is {
			t.Fatalf("expected *WrongKind, got %#v", r)
		}
	}()
	New(TypeDemand, "t").Estimate()
}

func TestJSONRoundTrip(t *testing.T) {
	c := sample(t)
	r, err := NewResourceTemplate("display", 1, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	c.AddContract(r)
	c.AddContract(NewDynamicFeature("load"))

	js, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var d Contract
	if err = json.Unmarshal(js, &d); err != nil {
		t.Fatal(err)
	}
	if !c.Equal(&d) {
		t.Fatalf("round trip changed\n%s\n%s", c, &d)
	}
}

func TestCBORRoundTrip(t *testing.T) {
	c := sample(t)

	bs, err := EncodeCBOR(c)
	if err != nil {
		t.Fatal(err)
	}
	var d Contract
	if err = DecodeCBOR(bs, &d); err != nil {
		t.Fatal(err)
	}
	if !c.Equal(&d) {
		t.Fatalf("round trip changed\n%s\n%s", c, &d)
	}

	// Deterministic.
	again, err := EncodeCBOR(&d)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(bs) {
		t.Fatal("encoding isn't deterministic")
	}
}

func TestDecodeRejects(t *testing.T) {
	for i, js := range []string{
		`{"kind":"bogus","name":"x"}`,
		`{"kind":"feature-demand","name":"f","cmp":"EQ"}`,
		`{"kind":"feature-demand","name":"f","cmp":"IN_RANGE","min":1}`,
		`{"kind":"feature-demand","name":"f","cmp":"EQ","value":1,"min":0,"max":2}`,
		`{"kind":"feature-provision","name":"f","value":1,"dynamic":true}`,
		`{"kind":"type-demand","name":"t","contracts":[{"kind":"instance-demand","name":"a"},{"kind":"instance-demand","name":"a"}]}`,
	} {
		var c Contract
		if err := json.Unmarshal([]byte(js), &c); err == nil {
			t.Fatalf("%d: expected an error for %s", i, js)
		}
	}
}

func TestCopyIsDeep(t *testing.T) {
	c := sample(t)
	d := c.Copy()
	if !c.Equal(d) {
		t.Fatal("copy differs")
	}
	d.AddContract(New(ResourceDemand, "speaker"))
	if c.Equal(d) {
		t.Fatal("copy shares children")
	}
}
