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

package assembler

import (
	"sync"
)

// Hook gets notifications for one application id.
type Hook func(interface{})

// Subs holds Hooks by application id.  Add returns a key for Rem
// since funcs aren't comparable.
type Subs struct {
	sync.Mutex
	hooks map[string]map[int]Hook
	next  int
}

func NewSubs() *Subs {
	return &Subs{
		hooks: make(map[string]map[int]Hook, 32),
	}
}

func (s *Subs) Add(id string, h Hook) int {
	s.Lock()
	defer s.Unlock()
	hooks, have := s.hooks[id]
	if !have {
		hooks = make(map[int]Hook, 2)
		s.hooks[id] = hooks
	}
	s.next++
	hooks[s.next] = h
	return s.next
}

func (s *Subs) Rem(id string, key int) {
	s.Lock()
	if hooks, have := s.hooks[id]; have {
		delete(hooks, key)
		if len(hooks) == 0 {
			delete(s.hooks, id)
		}
	}
	s.Unlock()
}

// Do calls the Hooks for the id outside the lock.
func (s *Subs) Do(id string, x interface{}) {
	var acc []Hook
	s.Lock()
	for _, h := range s.hooks[id] {
		acc = append(acc, h)
	}
	s.Unlock()
	for _, h := range acc {
		h(x)
	}
}
