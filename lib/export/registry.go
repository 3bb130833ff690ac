// Copyright 2026 The Offprint Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

// TypeSpec declares one semantic record type to the registry.
type TypeSpec struct {
	// Name is the type name records carry.
	Name string `json:"name"`

	// Parent names the supertype, empty for roots. Variant support is
	// inherited: a variant supporting a type supports its subtypes.
	Parent string `json:"parent,omitempty"`

	// Exportable marks whether records of this type may leave the
	// store at all. Configuration view-models and other housekeeping
	// types have no standalone meaning outside their store and are
	// refused for every variant.
	Exportable bool `json:"exportable"`
}

// VariantSpec declares one exporter variant.
type VariantSpec struct {
	// Name is the variant's stable identifier, used in requests.
	Name string `json:"name"`

	// Label is the human-facing description.
	Label string `json:"label"`

	// Supports lists the type names the variant handles. Subtypes of
	// a supported type are supported.
	Supports []string `json:"supports"`

	// Groups marks whether the variant accepts ensemble targets.
	Groups bool `json:"groups"`
}

// RegistryDef is the serialized form of a registry: the type hierarchy
// plus the variant roster. Authored on disk as JSONC (JSON extended
// with comments and trailing commas).
type RegistryDef struct {
	Types    []TypeSpec    `json:"types"`
	Variants []VariantSpec `json:"variants"`
}

// Registry is the validated capability table: which record types are
// exportable, how they relate, and which variants support which types.
// Immutable after construction.
type Registry struct {
	types    map[string]TypeSpec
	variants map[string]VariantSpec
}

// NewRegistry validates a definition and builds its lookup table.
// Types must have unique non-empty names, parents must name declared
// types, and the parent graph must be acyclic. Variants must have
// unique non-empty names and support at least one declared type.
func NewRegistry(def RegistryDef) (*Registry, error) {
	types := make(map[string]TypeSpec, len(def.Types))
	for _, spec := range def.Types {
		if spec.Name == "" {
			return nil, fmt.Errorf("registry: type with empty name")
		}
		if _, exists := types[spec.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate type %q", spec.Name)
		}
		types[spec.Name] = spec
	}

	for _, spec := range def.Types {
		if spec.Parent == "" {
			continue
		}
		if _, known := types[spec.Parent]; !known {
			return nil, fmt.Errorf("registry: type %q: unknown parent %q", spec.Name, spec.Parent)
		}
	}

	// The parent chain from any type must reach a root without
	// revisiting a name.
	for name := range types {
		seen := make(map[string]bool)
		for current := name; current != ""; current = types[current].Parent {
			if seen[current] {
				return nil, fmt.Errorf("registry: type %q: parent cycle through %q", name, current)
			}
			seen[current] = true
		}
	}

	variants := make(map[string]VariantSpec, len(def.Variants))
	for _, spec := range def.Variants {
		if spec.Name == "" {
			return nil, fmt.Errorf("registry: variant with empty name")
		}
		if _, exists := variants[spec.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate variant %q", spec.Name)
		}
		if len(spec.Supports) == 0 {
			return nil, fmt.Errorf("registry: variant %q supports no types", spec.Name)
		}
		for _, supported := range spec.Supports {
			if _, known := types[supported]; !known {
				return nil, fmt.Errorf("registry: variant %q: unknown type %q", spec.Name, supported)
			}
		}
		variants[spec.Name] = spec
	}

	return &Registry{types: types, variants: variants}, nil
}

// LoadRegistry reads a JSONC registry definition from disk and
// validates it.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var def RegistryDef
	if err := json.Unmarshal(jsonc.ToJSON(data), &def); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	registry, err := NewRegistry(def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return registry, nil
}

// Type returns the registered TypeSpec for a type name.
func (r *Registry) Type(name string) (TypeSpec, bool) {
	spec, ok := r.types[name]
	return spec, ok
}

// Variant returns the registered VariantSpec for a variant name.
func (r *Registry) Variant(name string) (VariantSpec, bool) {
	spec, ok := r.variants[name]
	return spec, ok
}

// Variants returns every variant, sorted by name.
func (r *Registry) Variants() []VariantSpec {
	variants := make([]VariantSpec, 0, len(r.variants))
	for _, spec := range r.variants {
		variants = append(variants, spec)
	}
	slices.SortFunc(variants, func(a, b VariantSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
	return variants
}

// Exportable reports whether name is a known, exportable type.
func (r *Registry) Exportable(name string) bool {
	spec, ok := r.types[name]
	return ok && spec.Exportable
}

// IsSubtype reports whether name is ancestor or descends from it.
// Reflexive: every known type is a subtype of itself. Unknown names
// are subtypes of nothing.
func (r *Registry) IsSubtype(name, ancestor string) bool {
	if _, known := r.types[name]; !known {
		return false
	}
	for current := name; current != ""; current = r.types[current].Parent {
		if current == ancestor {
			return true
		}
	}
	return false
}

// DefaultRegistry returns the compiled-in capability table. Hosts with
// their own type worlds load a JSONC definition instead.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(defaultDef)
	if err != nil {
		panic(fmt.Sprintf("export: default registry invalid: %v", err))
	}
	return registry
}

var defaultDef = RegistryDef{
	Types: []TypeSpec{
		{Name: "time_series", Exportable: true},
		{Name: "time_series_region", Parent: "time_series", Exportable: true},
		{Name: "time_series_surface", Parent: "time_series", Exportable: true},
		{Name: "connectivity", Exportable: true},
		{Name: "surface", Exportable: true},
		{Name: "cortical_surface", Parent: "surface", Exportable: true},
		{Name: "derived_measure", Exportable: true},

		// Housekeeping types that never leave the store: operation
		// view-models and bare scalar holders.
		{Name: "simulation_config", Exportable: false},
		{Name: "value_wrapper", Exportable: false},
	},
	Variants: []VariantSpec{
		{
			Name:     "archive",
			Label:    "Self-contained archive",
			Supports: []string{"time_series", "connectivity", "surface", "derived_measure"},
			Groups:   true,
		},
		{
			Name:     "series-matrix",
			Label:    "Time-series sample matrix",
			Supports: []string{"time_series"},
			Groups:   false,
		},
		{
			Name:     "mesh",
			Label:    "Surface mesh",
			Supports: []string{"surface"},
			Groups:   false,
		},
	},
}
