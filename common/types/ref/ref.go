// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ref contains the reference interfaces used throughout the CEL value types.
package ref

// Type represents a CEL type together with its runtime-erased name.
type Type interface {
	// TypeName returns the type-erased fully qualified name of the type.
	TypeName() string
}

// Val describes a CEL runtime value produced by evaluation or constant folding.
//
// Implementations are expected to be side-effect free and comparable via Equal.
type Val interface {
	// ConvertToType converts the current value to the given CEL type, returning an error value
	// wrapped as a Val if the conversion is not supported.
	ConvertToType(typeVal Type) Val

	// Equal returns types.True, types.False, or an error value depending on whether the two
	// values are equal and comparable.
	Equal(other Val) Val

	// Type returns the CEL type of the value.
	Type() Type

	// Value returns the raw Go native representation of the value.
	Value() any
}

// TypeProvider resolves qualified type and field names to type metadata.
//
// This is a consumed, external interface (see package-level documentation in the optimizer
// core): a real implementation is backed by a descriptor registry for structured message
// types, which is explicitly out of scope for the optimizer core itself.
type TypeProvider interface {
	// FindType looks up the Type given a qualified type name, returning false if not found.
	FindType(typeName string) (Type, bool)

	// FindField returns the field's type, returning false if the field could not be found on
	// the given type.
	FindField(typeName, fieldName string) (Type, bool)
}

// TypeAdapter converts native Go values of varying type and complexity into equivalent CEL
// values. This is a consumed, external interface: production adapters typically bridge to a
// host language's object model, which the optimizer core treats as opaque.
type TypeAdapter interface {
	NativeToValue(value any) Val
}
