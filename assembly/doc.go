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

// Package assembly is the greedy configuration engine.
//
// An Application holds a tree of items.  Elements have chosen a
// template; Bindings are looking for one.  Configuring an Element
// makes a Binding for each instance-demand and resource-demand in its
// template.  Configuring a Binding asks a Discoverer for candidates
// once and then takes the first one that works.  A resource Binding
// works only if the Device reservation succeeds.
//
// When an item runs out of templates, its parent moves on to its own
// next template.  Cursors never move backwards, so the search is
// linear and never revisits a choice.  If the anchor runs out, the
// Application has no Assembly.
//
// Positions in a previous round's Assembly are named by Pointers.
// The State recorded for a Pointer moves the previously chosen
// candidate to the front of that Binding's list.
package assembly
