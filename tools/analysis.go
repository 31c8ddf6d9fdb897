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

package tools

import (
	"fmt"
	"sort"

	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/discovery/dynamic"
)

// CatalogAnalysis reports what a catalog file offers and what looks
// wrong with it.
type CatalogAnalysis struct {
	Errors []string `json:"errors,omitempty"`

	Devices   int `json:"devices"`
	Offers    int `json:"offers"`
	Templates int `json:"templates"`

	// Serves is the sorted list of "kind:name" slots that some
	// template answers.
	Serves []string `json:"serves,omitempty"`

	// MissingScripts are dynamic features without a script, as
	// "system/provider dimension/feature".
	MissingScripts []string `json:"missingScripts,omitempty"`

	// UnusedScripts are scripts without a dynamic feature.
	UnusedScripts []string `json:"unusedScripts,omitempty"`

	// Uncapacitated are resource templates whose provider has no
	// capacity on the device.  They can never be reserved.
	Uncapacitated []string `json:"uncapacitated,omitempty"`
}

// dynamicKeys finds the "dimension/feature" keys of the template's
// dynamic features, including those under types.
func dynamicKeys(c *contract.Contract, acc map[string]bool) {
	for _, dim := range c.GetContracts(contract.DimensionProvision) {
		for _, f := range dim.GetContracts(contract.FeatureProvision) {
			if f.Dynamic() {
				acc[dynamic.Key(dim.Name(), f.Name())] = true
			}
		}
	}
	for _, t := range c.GetContracts(contract.TypeProvision) {
		dynamicKeys(t, acc)
	}
}

func sorted(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// Analyze examines a catalog file.
func Analyze(f *discovery.File) *CatalogAnalysis {
	a := &CatalogAnalysis{
		Devices: len(f.Devices),
	}
	serves := make(map[string]bool)
	missing := make(map[string]bool)
	unused := make(map[string]bool)
	uncapacitated := make(map[string]bool)
	seen := make(map[string]bool)

	for _, d := range f.Devices {
		if seen[d.SystemId] {
			a.Errors = append(a.Errors, fmt.Sprintf("device %s appears more than once", d.SystemId))
		}
		seen[d.SystemId] = true

		for _, o := range d.Offers {
			a.Offers++
			at := d.SystemId + "/" + o.ProviderId
			keys := make(map[string]bool)
			for _, t := range o.Templates {
				a.Templates++
				if t.Kind().IsDemand() {
					a.Errors = append(a.Errors, fmt.Sprintf("%s offers a %s", at, t.Kind()))
					continue
				}
				serves[t.Slot().String()] = true
				dynamicKeys(t, keys)
				if t.Kind() == contract.ResourceTemplate && len(d.Providers[o.ProviderId]) == 0 {
					uncapacitated[at+" "+t.Name()] = true
				}
			}
			for k := range keys {
				if _, have := o.Dynamic[k]; !have {
					missing[at+" "+k] = true
				}
			}
			for k := range o.Dynamic {
				if !keys[k] {
					unused[at+" "+k] = true
				}
			}
		}
	}

	a.Serves = sorted(serves)
	a.MissingScripts = sorted(missing)
	a.UnusedScripts = sorted(unused)
	a.Uncapacitated = sorted(uncapacitated)
	return a
}
