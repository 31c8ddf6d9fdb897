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

package match

import (
	"github.com/Comcast/pcom/contract"
)

// Rule is one entry in a provider's admission rule set.
//
// A Rule with only a Dimension accepts every feature of that
// dimension.  A Rule with a Feature accepts that feature, and, if the
// Rule also has a Value, only when that Value satisfies the demanded
// feature.
type Rule struct {
	Dimension string      `json:"dimension" yaml:"dimension"`
	Feature   string      `json:"feature,omitempty" yaml:"feature,omitempty"`
	Value     interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// Blanket reports whether the rule accepts a whole dimension.
func (r Rule) Blanket() bool {
	return r.Feature == ""
}

// Rules is a provider's flat rule set.
type Rules []Rule

// dimensions gathers the dimension-demands of the given demand and of
// its type-demand children.
func dimensions(demand *contract.Contract) []*contract.Contract {
	acc := demand.GetContracts(contract.DimensionDemand)
	for _, t := range demand.GetContracts(contract.TypeDemand) {
		acc = append(acc, t.GetContracts(contract.DimensionDemand)...)
	}
	return acc
}

// Validate reports whether these rules admit the given demand.
//
// For every declared dimension, either a blanket rule names the
// dimension, or every feature in that dimension is accepted by some
// rule.  A dimension without features is admitted if any rule names
// it.
//
// This check is cheap.  A provider runs it before doing the work of
// deriving a concrete template for the demand.
func (rs Rules) Validate(demand *contract.Contract) bool {
	for _, dim := range dimensions(demand) {
		if !rs.validateDimension(dim) {
			return false
		}
	}
	return true
}

func (rs Rules) validateDimension(dim *contract.Contract) bool {
	named := false
	for _, r := range rs {
		if r.Dimension != dim.Name() {
			continue
		}
		if r.Blanket() {
			return true
		}
		named = true
	}

	features := dim.GetContracts(contract.FeatureDemand)
	if len(features) == 0 {
		return named
	}

FEATURES:
	for _, f := range features {
		for _, r := range rs {
			if r.Dimension != dim.Name() || r.Feature != f.Name() {
				continue
			}
			if r.Value == nil || Satisfies(f, r.Value) {
				continue FEATURES
			}
		}
		return false
	}
	return true
}
