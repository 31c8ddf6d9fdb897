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

package assembly

import (
	"fmt"
	"net/url"
	"strings"
)

// Step is one hop in a Pointer: down through an instance-demand or a
// resource-demand with the given name.
type Step struct {
	Instance bool   `json:"instance"`
	Name     string `json:"name"`
}

// Pointer is a path from the anchor to a position in a previously
// realized assembly.
//
// Pointers are values.  Two Pointers are equal iff their steps are
// equal.  Use String() as a map key.
type Pointer struct {
	steps []Step
}

// Root is the anchor's Pointer.
func Root() Pointer {
	return Pointer{}
}

// NewPointer makes a Pointer with the given steps.
func NewPointer(steps ...Step) Pointer {
	return Pointer{steps: append([]Step(nil), steps...)}
}

// Child extends the Pointer by one step.  The receiver doesn't
// change.
func (p Pointer) Child(instance bool, name string) Pointer {
	steps := make([]Step, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	return Pointer{steps: append(steps, Step{Instance: instance, Name: name})}
}

// Parent drops the last step.  The second result is false for the
// root.
func (p Pointer) Parent() (Pointer, bool) {
	if len(p.steps) == 0 {
		return p, false
	}
	return NewPointer(p.steps[:len(p.steps)-1]...), true
}

// Steps returns a copy of the steps.
func (p Pointer) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

func (p Pointer) Len() int {
	return len(p.steps)
}

func (p Pointer) IsRoot() bool {
	return len(p.steps) == 0
}

// Last returns the last step.  Don't call it on the root.
func (p Pointer) Last() Step {
	return p.steps[len(p.steps)-1]
}

func (p Pointer) Equal(q Pointer) bool {
	if len(p.steps) != len(q.steps) {
		return false
	}
	for i, s := range p.steps {
		if q.steps[i] != s {
			return false
		}
	}
	return true
}

// String gives the canonical form: "/" for the root, otherwise each
// step as "/+name" (instance) or "/-name" (resource) with the name
// path-escaped.
func (p Pointer) String() string {
	if len(p.steps) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.steps {
		b.WriteByte('/')
		if s.Instance {
			b.WriteByte('+')
		} else {
			b.WriteByte('-')
		}
		b.WriteString(url.PathEscape(s.Name))
	}
	return b.String()
}

// ParsePointer parses the canonical form.
func ParsePointer(s string) (Pointer, error) {
	if s == "/" || s == "" {
		return Root(), nil
	}
	if !strings.HasPrefix(s, "/") {
		return Pointer{}, fmt.Errorf("bad pointer %q", s)
	}
	parts := strings.Split(s[1:], "/")
	steps := make([]Step, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			return Pointer{}, fmt.Errorf("bad pointer %q: empty step", s)
		}
		var instance bool
		switch part[0] {
		case '+':
			instance = true
		case '-':
		default:
			return Pointer{}, fmt.Errorf("bad pointer %q: step %q", s, part)
		}
		name, err := url.PathUnescape(part[1:])
		if err != nil {
			return Pointer{}, fmt.Errorf("bad pointer %q: %w", s, err)
		}
		steps = append(steps, Step{Instance: instance, Name: name})
	}
	return Pointer{steps: steps}, nil
}

func (p Pointer) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pointer) UnmarshalText(bs []byte) error {
	q, err := ParsePointer(string(bs))
	if err != nil {
		return err
	}
	*p = q
	return nil
}
