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

// Kind says what a Contract node describes.
type Kind string

const (
	DimensionDemand Kind = "dimension-demand"
	FeatureDemand   Kind = "feature-demand"
	InstanceDemand  Kind = "instance-demand"
	ResourceDemand  Kind = "resource-demand"

	// TypeDemand names a demanded interface or event type.
	TypeDemand Kind = "type-demand"

	DimensionProvision Kind = "dimension-provision"
	FeatureProvision   Kind = "feature-provision"
	InstanceProvision  Kind = "instance-provision"
	ResourceProvision  Kind = "resource-provision"
	TypeProvision      Kind = "type-provision"

	// ResourceTemplate carries an estimate of the units a provider
	// would consume to instantiate a resource.
	ResourceTemplate Kind = "resource-template"
)

var kinds = map[Kind]bool{
	DimensionDemand:    true,
	FeatureDemand:      true,
	InstanceDemand:     true,
	ResourceDemand:     true,
	TypeDemand:         true,
	DimensionProvision: true,
	FeatureProvision:   true,
	InstanceProvision:  true,
	ResourceProvision:  true,
	TypeProvision:      true,
	ResourceTemplate:   true,
}

// Valid reports whether the kind is one of the known kinds.
func (k Kind) Valid() bool {
	return kinds[k]
}

// IsDemand reports whether the kind is on the demand side.
func (k Kind) IsDemand() bool {
	switch k {
	case DimensionDemand, FeatureDemand, InstanceDemand, ResourceDemand, TypeDemand:
		return true
	}
	return false
}

// Answers gives the provision kind that can satisfy a demand of this
// kind.  The second result is false for kinds that aren't answered by
// a template.
func (k Kind) Answers() (Kind, bool) {
	switch k {
	case InstanceDemand:
		return InstanceProvision, true
	case ResourceDemand:
		return ResourceTemplate, true
	case TypeDemand:
		return TypeProvision, true
	case DimensionDemand:
		return DimensionProvision, true
	case FeatureDemand:
		return FeatureProvision, true
	}
	return "", false
}

// Comparator is the test a feature-demand applies to a provided
// value.
type Comparator string

const (
	EQ       Comparator = "EQ"
	GE       Comparator = "GE"
	GT       Comparator = "GT"
	LE       Comparator = "LE"
	LT       Comparator = "LT"
	InRange  Comparator = "IN_RANGE"
	OutRange Comparator = "OUT_RANGE"
)

// Valid reports whether the comparator is known.
func (c Comparator) Valid() bool {
	switch c {
	case EQ, GE, GT, LE, LT, InRange, OutRange:
		return true
	}
	return false
}

// Ranged reports whether the comparator takes (minimum, maximum)
// bounds rather than a single value.
func (c Comparator) Ranged() bool {
	return c == InRange || c == OutRange
}

// Slot identifies a child position: at most one child per (kind,
// name).
type Slot struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

func (s Slot) String() string {
	return string(s.Kind) + ":" + s.Name
}
