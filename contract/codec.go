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
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// wire is the serialized form of a Contract.
//
// Value is a pointer so that a zero value (0, "", false) survives
// omitempty.
type wire struct {
	Kind       Kind         `json:"kind" cbor:"kind"`
	Name       string       `json:"name" cbor:"name"`
	Comparator Comparator   `json:"cmp,omitempty" cbor:"cmp,omitempty"`
	Value      *interface{} `json:"value,omitempty" cbor:"value,omitempty"`
	Min        *interface{} `json:"min,omitempty" cbor:"min,omitempty"`
	Max        *interface{} `json:"max,omitempty" cbor:"max,omitempty"`
	Dynamic    bool         `json:"dynamic,omitempty" cbor:"dynamic,omitempty"`
	Estimate   []int64      `json:"estimate,omitempty" cbor:"estimate,omitempty"`
	Contracts  []*Contract  `json:"contracts,omitempty" cbor:"contracts,omitempty"`
}

func (c *Contract) toWire() *wire {
	w := &wire{
		Kind:       c.kind,
		Name:       c.name,
		Comparator: c.comparator,
		Dynamic:    c.dynamic,
		Estimate:   c.estimate,
		Contracts:  c.children,
	}
	if c.hasValue {
		v := c.value
		w.Value = &v
	}
	if c.hasRange {
		min, max := c.min, c.max
		w.Min, w.Max = &min, &max
	}
	return w
}

func (c *Contract) fromWire(w *wire) error {
	if !w.Kind.Valid() {
		return &UnknownKind{w.Kind}
	}
	*c = Contract{
		kind:       w.Kind,
		name:       w.Name,
		comparator: w.Comparator,
		dynamic:    w.Dynamic,
		estimate:   w.Estimate,
	}
	var err error
	if w.Value != nil {
		if c.value, err = Normalize(*w.Value); err != nil {
			return err
		}
		c.hasValue = true
	}
	if (w.Min == nil) != (w.Max == nil) {
		return &BadAttributes{Slot: c.Slot(), Reason: "need both minimum and maximum"}
	}
	if w.Min != nil {
		if c.min, err = Normalize(*w.Min); err != nil {
			return err
		}
		if c.max, err = Normalize(*w.Max); err != nil {
			return err
		}
		c.hasRange = true
	}
	if err = c.check(); err != nil {
		return err
	}
	for _, child := range w.Contracts {
		if child == nil {
			continue
		}
		if old := c.AddContract(child); old != nil {
			return &DuplicateSlot{child.Slot()}
		}
	}
	return nil
}

func (c *Contract) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toWire())
}

func (c *Contract) UnmarshalJSON(bs []byte) error {
	var w wire
	if err := json.Unmarshal(bs, &w); err != nil {
		return err
	}
	return c.fromWire(&w)
}

// encMode uses Core Deterministic Encoding so the same Contract
// always produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	// Types with MarshalText (pointers, for one) go out as text
	// strings rather than as empty maps.
	opts.TextMarshaler = cbor.TextMarshalerTextString
	if encMode, err = opts.EncMode(); err != nil {
		panic("contract: CBOR encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]interface{}(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("contract: CBOR decoder: " + err.Error())
	}
}

func (c *Contract) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(c.toWire())
}

func (c *Contract) UnmarshalCBOR(bs []byte) error {
	var w wire
	if err := decMode.Unmarshal(bs, &w); err != nil {
		return err
	}
	return c.fromWire(&w)
}

// EncodeCBOR encodes anything (Contracts, assemblies, announcements)
// with the deterministic encoder.
func EncodeCBOR(x interface{}) ([]byte, error) {
	return encMode.Marshal(x)
}

// DecodeCBOR decodes CBOR data into x.
func DecodeCBOR(bs []byte, x interface{}) error {
	return decMode.Unmarshal(bs, x)
}
