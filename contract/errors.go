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
	"errors"
	"fmt"
)

// WrongKind is the panic value when an attribute getter is called on
// a Contract whose kind doesn't define that attribute.
type WrongKind struct {
	Kind      Kind
	Attribute string
}

func (e *WrongKind) Error() string {
	return `kind "` + string(e.Kind) + `" has no attribute "` + e.Attribute + `"`
}

// UnknownKind occurs when a Contract is made or decoded with a kind
// we don't know.
type UnknownKind struct {
	Kind Kind
}

func (e *UnknownKind) Error() string {
	return `unknown contract kind "` + string(e.Kind) + `"`
}

// BadAttributes occurs when a Contract's attributes don't fit its
// kind (a point comparator with bounds, say).
type BadAttributes struct {
	Slot   Slot
	Reason string
}

func (e *BadAttributes) Error() string {
	return fmt.Sprintf("contract %s: %s", e.Slot, e.Reason)
}

// DuplicateSlot occurs when decoding finds two children with the same
// (kind, name).
type DuplicateSlot struct {
	Slot Slot
}

func (e *DuplicateSlot) Error() string {
	return "duplicate child " + e.Slot.String()
}

// BadValue occurs when a feature value isn't a scalar we can order.
var BadValue = errors.New("feature values must be numbers, strings, or booleans")
