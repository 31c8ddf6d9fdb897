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

// Package contract implements the typed attribute tree shared by
// demands and provisions.
//
// An application declares what it needs as a tree of demand
// Contracts: type-demands (interfaces and events), instance-demands
// and resource-demands, each refined by dimension-demands that group
// feature-demands.  A feature-demand carries a comparator and either
// a value or (minimum, maximum) bounds.
//
// A device declares what it can provide as a tree of provision
// Contracts.  A feature-provision has either a static value or is
// dynamic, in which case its owner computes the value when asked.
// A resource-template carries an estimate vector that a device ledger
// subtracts when the resource is reserved.
//
// Contracts serialize to JSON and to deterministic CBOR.  Child slots
// and child order survive both.
package contract
