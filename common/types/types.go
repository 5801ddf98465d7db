// Copyright 2023 Google LLC
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

package types

import (
	"fmt"
	"strings"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Kind indicates a CEL type's kind which is used to differentiate quickly between simple
// and complex types.
type Kind uint

const (
	// DynKind represents a dynamic type whose shape is resolved at runtime.
	DynKind Kind = iota + 1

	// BoolKind represents a boolean type.
	BoolKind

	// BytesKind represents a bytes type.
	BytesKind

	// DoubleKind represents a double type.
	DoubleKind

	// DurationKind represents a CEL duration type.
	DurationKind

	// ErrorKind represents a CEL error type.
	ErrorKind

	// IntKind represents an integer type.
	IntKind

	// ListKind represents a list type.
	ListKind

	// MapKind represents a map type.
	MapKind

	// NullTypeKind represents a null type.
	NullTypeKind

	// OpaqueKind represents an abstract type which has no accessible fields, e.g. optional_type.
	OpaqueKind

	// StringKind represents a string type.
	StringKind

	// StructKind represents a structured object with typed fields.
	StructKind

	// TimestampKind represents a CEL time type.
	TimestampKind

	// TypeKind represents the CEL meta-type, the type of a Type value.
	TypeKind

	// UintKind represents a uint type.
	UintKind

	// UnknownKind represents an unresolved runtime value.
	UnknownKind
)

var (
	// BoolType represents the bool type.
	BoolType = &Type{Kind: BoolKind, runtimeTypeName: "bool"}
	// BytesType represents the bytes type.
	BytesType = &Type{Kind: BytesKind, runtimeTypeName: "bytes"}
	// DoubleType represents the double type.
	DoubleType = &Type{Kind: DoubleKind, runtimeTypeName: "double"}
	// DurationType represents the CEL duration type.
	DurationType = &Type{Kind: DurationKind, runtimeTypeName: "google.protobuf.Duration"}
	// DynType represents a dynamic CEL type whose type is determined at runtime from context.
	DynType = &Type{Kind: DynKind, runtimeTypeName: "dyn"}
	// ErrorType represents a CEL error value.
	ErrorType = &Type{Kind: ErrorKind, runtimeTypeName: "error"}
	// IntType represents the int type.
	IntType = &Type{Kind: IntKind, runtimeTypeName: "int"}
	// ListType represents the runtime list type, parameterized by a dynamic element.
	ListType = NewListType(nil)
	// MapType represents the runtime map type, parameterized by dynamic key and value.
	MapType = NewMapType(nil, nil)
	// NullType represents the type of a null value.
	NullType = &Type{Kind: NullTypeKind, runtimeTypeName: "null_type"}
	// StringType represents the string type.
	StringType = &Type{Kind: StringKind, runtimeTypeName: "string"}
	// TimestampType represents the timestamp type.
	TimestampType = &Type{Kind: TimestampKind, runtimeTypeName: "google.protobuf.Timestamp"}
	// TypeType represents the CEL meta-type.
	TypeType = &Type{Kind: TypeKind, runtimeTypeName: "type"}
	// UintType represents the uint type.
	UintType = &Type{Kind: UintKind, runtimeTypeName: "uint"}
	// UnknownType represents the type of an unresolved runtime value.
	UnknownType = &Type{Kind: UnknownKind, runtimeTypeName: "unknown"}
)

var (
	_ ref.Type = &Type{}
	_ ref.Val  = &Type{}
)

// Type holds a reference to a runtime type with an optional type-checked set of type parameters.
//
// Unlike the full checker's type lattice, this representation intentionally drops the
// trait/dispatch machinery used to pick runtime operator overloads: the optimizer core never
// executes arbitrary CEL operators itself, it only needs enough shape to compare, re-typecheck,
// and print types. See DESIGN.md for the full justification.
type Type struct {
	// Kind indicates the general category of the type.
	Kind Kind

	// Parameters holds the type-checked set of type parameters, e.g. the element type of a list.
	Parameters []*Type

	runtimeTypeName string
}

// ConvertToType implements ref.Val.
func (t *Type) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case TypeType:
		return TypeType
	case StringType:
		return String(t.TypeName())
	}
	return NewErr("type conversion error from '%s' to '%s'", TypeType, typeVal)
}

// Equal indicates whether two types share the same runtime type name.
func (t *Type) Equal(other ref.Val) ref.Val {
	otherType, ok := other.(ref.Type)
	return Bool(ok && t.TypeName() == otherType.TypeName())
}

// IsExactType indicates whether the two types are exactly the same, parameters included.
func (t *Type) IsExactType(other *Type) bool {
	if t == other {
		return true
	}
	if other == nil || t.Kind != other.Kind || t.TypeName() != other.TypeName() || len(t.Parameters) != len(other.Parameters) {
		return false
	}
	for i, p := range t.Parameters {
		if !p.IsExactType(other.Parameters[i]) {
			return false
		}
	}
	return true
}

// IsAssignableType determines whether the current type is type-check assignable from fromType.
func (t *Type) IsAssignableType(fromType *Type) bool {
	if t == fromType || t.isDyn() || fromType.isDyn() {
		return true
	}
	if t.Kind != fromType.Kind || t.TypeName() != fromType.TypeName() || len(t.Parameters) != len(fromType.Parameters) {
		return false
	}
	for i, tp := range t.Parameters {
		if !tp.IsAssignableType(fromType.Parameters[i]) {
			return false
		}
	}
	return true
}

// DeclaredTypeName indicates the fully qualified and parameterized type-check type name.
func (t *Type) DeclaredTypeName() string {
	return t.TypeName()
}

// Type implements the ref.Val interface method.
func (t *Type) Type() ref.Type {
	return TypeType
}

// Value implements the ref.Val interface method.
func (t *Type) Value() any {
	return t.TypeName()
}

// TypeName returns the type-erased fully qualified runtime type name.
func (t *Type) TypeName() string {
	return t.runtimeTypeName
}

// String returns a human-readable definition of the type name.
func (t *Type) String() string {
	if len(t.Parameters) == 0 {
		return t.DeclaredTypeName()
	}
	params := make([]string, len(t.Parameters))
	for i, p := range t.Parameters {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", t.DeclaredTypeName(), strings.Join(params, ", "))
}

func (t *Type) isDyn() bool {
	return t.Kind == DynKind
}

// NewListType creates an instance of a list type value with the provided element type.
func NewListType(elemType *Type) *Type {
	t := &Type{Kind: ListKind, Parameters: []*Type{}, runtimeTypeName: "list"}
	if elemType != nil {
		t.Parameters = append(t.Parameters, elemType)
	}
	return t
}

// NewMapType creates an instance of a map type value with the provided key and value types.
func NewMapType(keyType, valueType *Type) *Type {
	t := &Type{Kind: MapKind, Parameters: []*Type{}, runtimeTypeName: "map"}
	if keyType != nil && valueType != nil {
		t.Parameters = append(t.Parameters, keyType, valueType)
	}
	return t
}

// NewObjectType creates a type reference to a structured message type, such as a protobuf
// message. Field resolution for object types is delegated to a ref.TypeProvider.
func NewObjectType(typeName string) *Type {
	return &Type{Kind: StructKind, runtimeTypeName: typeName}
}

// NewOpaqueType creates an abstract parameterized type, e.g. optional_type(int).
func NewOpaqueType(name string, params ...*Type) *Type {
	return &Type{Kind: OpaqueKind, Parameters: params, runtimeTypeName: name}
}

// NewTypeParamType creates a parameterized type whose name is resolved during type-checking.
func NewTypeParamType(name string) *Type {
	return &Type{Kind: DynKind, runtimeTypeName: name}
}
