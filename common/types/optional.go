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

import "github.com/google/cel-ast-optimizer/common/types/ref"

// OptionalType is the runtime type for both present and absent optional values.
var OptionalType = NewOpaqueType("optional_type")

// OptionalNone is the singleton instance of an optional value with no contents.
var OptionalNone = &Optional{}

// Optional holds an optional value which may or may not be present, used to model the
// result of the `optional.of`, `optional.none`, and `optional.ofNonZeroValue` builders as
// well as any optional-typed field or index selection.
type Optional struct {
	hasValue bool
	value    ref.Val
}

// OptionalOf constructs a new optional value whose contents are always present.
func OptionalOf(value ref.Val) *Optional {
	return &Optional{hasValue: true, value: value}
}

// HasValue indicates whether the optional value has a non-empty value.
func (o *Optional) HasValue() bool {
	return o.hasValue
}

// GetValue returns the contents of the optional value, or an error if absent.
func (o *Optional) GetValue() ref.Val {
	if !o.hasValue {
		return NewErr("optional.none() dereferenced")
	}
	return o.value
}

// ConvertToType implements the ref.Val interface method.
func (o *Optional) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case OptionalType:
		return o
	case TypeType:
		return OptionalType
	}
	return NewErr("type conversion error from '%s' to '%s'", OptionalType, typeVal)
}

// Equal implements the ref.Val interface method.
func (o *Optional) Equal(other ref.Val) ref.Val {
	otherOpt, ok := other.(*Optional)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if o.hasValue != otherOpt.hasValue {
		return False
	}
	if !o.hasValue {
		return True
	}
	return o.value.Equal(otherOpt.value)
}

// Type implements the ref.Val interface method.
func (o *Optional) Type() ref.Type {
	return OptionalType
}

// Value implements the ref.Val interface method; absent optionals have no native representation.
func (o *Optional) Value() any {
	if !o.hasValue {
		return nil
	}
	return o.value.Value()
}

// IsZeroValue reports whether a constant-folded value should be treated as the type's zero
// value for the purposes of `optional.ofNonZeroValue`.
func IsZeroValue(val ref.Val) bool {
	switch v := val.(type) {
	case Bool:
		return v == False
	case Int:
		return v == IntZero
	case Uint:
		return v == uintZero
	case Double:
		return v == Double(0)
	case String:
		return v == String("")
	case Bytes:
		return len(v) == 0
	case Lister:
		return v.Size() == Int(0)
	case Mapper:
		return v.Size() == Int(0)
	case Null:
		return true
	default:
		return false
	}
}

// IsOptional returns whether the input ref.Val is an *Optional.
func IsOptional(val ref.Val) bool {
	_, ok := val.(*Optional)
	return ok
}
