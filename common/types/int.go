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

package types

import (
	"fmt"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Int type that implements ref.Val as well as comparison and math operators.
type Int int64

const (
	// Int constants used for comparison results and folding arithmetic.
	IntZero   = Int(0)
	IntOne    = Int(1)
	IntNegOne = Int(-1)
)

// Add implements the traits.Adder behavior for the Int type, checked for int64 overflow.
func (i Int) Add(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	val, ok := addInt64Checked(int64(i), int64(otherInt))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Compare implements the traits.Comparer interface method.
func (i Int) Compare(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if i < otherInt {
		return IntNegOne
	}
	if i > otherInt {
		return IntOne
	}
	return IntZero
}

// ConvertToType implements the ref.Val interface method.
func (i Int) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case IntType:
		return i
	case UintType:
		return Uint(i)
	case DoubleType:
		return Double(i)
	case StringType:
		return String(fmt.Sprintf("%d", int64(i)))
	case TypeType:
		return IntType
	}
	return NewErr("type conversion error from '%s' to '%s'", IntType, typeVal)
}

// Divide implements the traits.Divider interface method, checked for int64 overflow.
func (i Int) Divide(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if otherInt == IntZero {
		return NewErr("divide by zero")
	}
	val, ok := divideInt64Checked(int64(i), int64(otherInt))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Equal implements the ref.Val interface method.
func (i Int) Equal(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return Bool(i == otherInt)
}

// Modulo implements the traits.Modder interface method, checked for int64 overflow.
func (i Int) Modulo(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if otherInt == IntZero {
		return NewErr("modulus by zero")
	}
	val, ok := moduloInt64Checked(int64(i), int64(otherInt))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Multiply implements the traits.Multiplier interface method, checked for int64 overflow.
func (i Int) Multiply(other ref.Val) ref.Val {
	otherInt, ok := other.(Int)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	val, ok := multiplyInt64Checked(int64(i), int64(otherInt))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Negate implements the traits.Negater interface method, checked for int64 overflow.
func (i Int) Negate() ref.Val {
	val, ok := negateInt64Checked(int64(i))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Subtract implements the traits.Subtractor interface method, checked for int64 overflow.
func (i Int) Subtract(subtrahend ref.Val) ref.Val {
	otherInt, ok := subtrahend.(Int)
	if !ok {
		return ValOrErr(subtrahend, "no such overload")
	}
	val, ok := subtractInt64Checked(int64(i), int64(otherInt))
	if !ok {
		return NewErr("integer overflow")
	}
	return Int(val)
}

// Type implements the ref.Val interface method.
func (i Int) Type() ref.Type {
	return IntType
}

// Value implements the ref.Val interface method.
func (i Int) Value() any {
	return int64(i)
}
