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

// Uint type implementation which supports comparison and math operators.
type Uint uint64

const uintZero = Uint(0)

// Add implements the traits.Adder interface method, checked for uint64 overflow.
func (i Uint) Add(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	val, ok := addUint64Checked(uint64(i), uint64(otherUint))
	if !ok {
		return NewErr("unsigned integer overflow")
	}
	return Uint(val)
}

// Compare implements the traits.Comparer interface method.
func (i Uint) Compare(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if i < otherUint {
		return IntNegOne
	}
	if i > otherUint {
		return IntOne
	}
	return IntZero
}

// ConvertToType implements the ref.Val interface method.
func (i Uint) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case IntType:
		return Int(i)
	case UintType:
		return i
	case DoubleType:
		return Double(i)
	case StringType:
		return String(fmt.Sprintf("%d", uint64(i)))
	case TypeType:
		return UintType
	}
	return NewErr("type conversion error from '%s' to '%s'", UintType, typeVal)
}

// Divide implements the traits.Divider interface method.
func (i Uint) Divide(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if otherUint == uintZero {
		return NewErr("divide by zero")
	}
	return i / otherUint
}

// Equal implements the ref.Val interface method.
func (i Uint) Equal(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return Bool(i == otherUint)
}

// Modulo implements the traits.Modder interface method.
func (i Uint) Modulo(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if otherUint == uintZero {
		return NewErr("modulus by zero")
	}
	return i % otherUint
}

// Multiply implements the traits.Multiplier interface method, checked for uint64 overflow.
func (i Uint) Multiply(other ref.Val) ref.Val {
	otherUint, ok := other.(Uint)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	val, ok := multiplyUint64Checked(uint64(i), uint64(otherUint))
	if !ok {
		return NewErr("unsigned integer overflow")
	}
	return Uint(val)
}

// Subtract implements the traits.Subtractor interface method, checked for uint64 underflow.
func (i Uint) Subtract(subtrahend ref.Val) ref.Val {
	otherUint, ok := subtrahend.(Uint)
	if !ok {
		return ValOrErr(subtrahend, "no such overload")
	}
	val, ok := subtractUint64Checked(uint64(i), uint64(otherUint))
	if !ok {
		return NewErr("unsigned integer overflow")
	}
	return Uint(val)
}

// Type implements the ref.Val interface method.
func (i Uint) Type() ref.Type {
	return UintType
}

// Value implements the ref.Val interface method.
func (i Uint) Value() any {
	return uint64(i)
}
