package match

import (
	"testing"

	"github.com/Comcast/pcom/contract"
)

type CompareTest struct {
	Cmp    contract.Comparator
	D      interface{}
	Accept []interface{}
	Reject []interface{}
}

func TestCompare(t *testing.T) {
	tests := []CompareTest{
		{contract.EQ, 3, []interface{}{3, 3.0, int64(3)}, []interface{}{2, 4, "3", nil, true}},
		{contract.GE, 3, []interface{}{3, 4, 10.5}, []interface{}{2, 2.99, "4"}},
		{contract.GT, 3, []interface{}{4, 3.01}, []interface{}{3, 2}},
		{contract.LE, 3, []interface{}{3, 2, -1}, []interface{}{4, 3.01}},
		{contract.LT, 3, []interface{}{2, 2.99}, []interface{}{3, 4}},
		{contract.EQ, "mp3", []interface{}{"mp3"}, []interface{}{"ogg", 3}},
		{contract.GE, "b", []interface{}{"b", "c"}, []interface{}{"a", 1}},
		{contract.EQ, true, []interface{}{true}, []interface{}{false, 1, "true"}},
		{contract.GE, true, nil, []interface{}{true, false}},
	}

	for i, test := range tests {
		for _, p := range test.Accept {
			if !Compare(test.Cmp, p, test.D) {
				t.Fatalf("%d: %s %v should accept %v", i, test.Cmp, test.D, p)
			}
		}
		for _, p := range test.Reject {
			if Compare(test.Cmp, p, test.D) {
				t.Fatalf("%d: %s %v should reject %v", i, test.Cmp, test.D, p)
			}
		}
	}
}

func TestCompareRange(t *testing.T) {
	for p := 0; p <= 7; p++ {
		in := CompareRange(contract.InRange, p, 2, 5)
		out := CompareRange(contract.OutRange, p, 2, 5)
		want := 2 <= p && p <= 5
		if in != want {
			t.Fatalf("IN_RANGE(2,5) on %d gave %v", p, in)
		}
		if out == in {
			t.Fatalf("OUT_RANGE(2,5) on %d isn't the complement", p)
		}
	}

	if CompareRange(contract.InRange, "x", 2, 5) || CompareRange(contract.OutRange, "x", 2, 5) {
		t.Fatal("incompatible types matched")
	}
	if CompareRange(contract.EQ, 3, 2, 5) {
		t.Fatal("point comparator matched a range")
	}
}

func feature(t *testing.T, name string, cmp contract.Comparator, args ...interface{}) *contract.Contract {
	var (
		f   *contract.Contract
		err error
	)
	if cmp.Ranged() {
		f, err = contract.NewRangeFeature(name, cmp, args[0], args[1])
	} else {
		f, err = contract.NewPointFeature(name, cmp, args[0])
	}
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestSatisfies(t *testing.T) {
	if !Satisfies(feature(t, "bitrate", contract.GE, 128), 256) {
		t.Fatal("256 >= 128")
	}
	if Satisfies(feature(t, "bitrate", contract.GE, 128), 64) {
		t.Fatal("64 < 128")
	}
	if !Satisfies(feature(t, "channels", contract.InRange, 2, 6), 2) {
		t.Fatal("2 in [2,6]")
	}
}

func demand(t *testing.T) *contract.Contract {
	typ := contract.New(contract.TypeDemand, "audio.Player")

	codec := contract.New(contract.DimensionDemand, "codec")
	codec.AddContract(feature(t, "bitrate", contract.GE, 128))
	codec.AddContract(feature(t, "name", contract.EQ, "mp3"))
	typ.AddContract(codec)

	typ.AddContract(contract.New(contract.DimensionDemand, "stream"))

	d := contract.New(contract.InstanceDemand, "player")
	d.AddContract(typ)
	return d
}

func TestValidate(t *testing.T) {
	d := demand(t)

	tests := []struct {
		Rules Rules
		Want  bool
	}{
		{Rules{{Dimension: "codec"}, {Dimension: "stream"}}, true},
		{Rules{{Dimension: "codec"}}, false},
		{Rules{
			{Dimension: "codec", Feature: "bitrate", Value: 256},
			{Dimension: "codec", Feature: "name"},
			{Dimension: "stream", Feature: "anything"},
		}, true},
		{Rules{
			{Dimension: "codec", Feature: "bitrate", Value: 64},
			{Dimension: "codec", Feature: "name"},
			{Dimension: "stream"},
		}, false},
		{Rules{
			{Dimension: "codec", Feature: "bitrate", Value: 64},
			{Dimension: "codec", Feature: "bitrate", Value: 320},
			{Dimension: "codec", Feature: "name", Value: "mp3"},
			{Dimension: "stream"},
		}, true},
		{Rules{
			{Dimension: "codec", Feature: "bitrate"},
			{Dimension: "stream"},
		}, false},
		{nil, false},
	}

	for i, test := range tests {
		if got := test.Rules.Validate(d); got != test.Want {
			t.Fatalf("%d: Validate gave %v", i, got)
		}
	}

	if !Rules(nil).Validate(contract.New(contract.InstanceDemand, "bare")) {
		t.Fatal("a demand without dimensions should validate")
	}
}
