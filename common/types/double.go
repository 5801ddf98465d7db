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

// Double type that implements ref.Val, comparison, and mathematical operations.
type Double float64

// Add implements the traits.Adder interface method.
func (d Double) Add(other ref.Val) ref.Val {
	otherDouble, ok := other.(Double)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return d + otherDouble
}

// Compare implements the traits.Comparer interface method.
func (d Double) Compare(other ref.Val) ref.Val {
	otherDouble, ok := other.(Double)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if d < otherDouble {
		return IntNegOne
	}
	if d > otherDouble {
		return IntOne
	}
	return IntZero
}

// ConvertToType implements the ref.Val interface method.
func (d Double) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case IntType:
		return Int(d)
	case UintType:
		return Uint(d)
	case DoubleType:
		return d
	case StringType:
		return String(fmt.Sprintf("%g", float64(d)))
	case TypeType:
		return DoubleType
	}
	return NewErr("type conversion error from '%s' to '%s'", DoubleType, typeVal)
}

// Divide implements the traits.Divider interface method.
func (d Double) Divide(other ref.Val) ref.Val {
	otherDouble, ok := other.(Double)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return d / otherDouble
}

// Equal implements the ref.Val interface method.
func (d Double) Equal(other ref.Val) ref.Val {
	otherDouble, ok := other.(Double)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return Bool(d == otherDouble)
}

// Multiply implements the traits.Multiplier interface method.
func (d Double) Multiply(other ref.Val) ref.Val {
	otherDouble, ok := other.(Double)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return d * otherDouble
}

// Negate implements the traits.Negater interface method.
func (d Double) Negate() ref.Val {
	return -d
}

// Subtract implements the traits.Subtractor interface method.
func (d Double) Subtract(subtrahend ref.Val) ref.Val {
	otherDouble, ok := subtrahend.(Double)
	if !ok {
		return ValOrErr(subtrahend, "no such overload")
	}
	return d - otherDouble
}

// Type implements the ref.Val interface method.
func (d Double) Type() ref.Type {
	return DoubleType
}

// Value implements the ref.Val interface method.
func (d Double) Value() any {
	return float64(d)
}
