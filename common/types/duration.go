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
	"strconv"
	"time"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Duration type that implements ref.Val and supports add, compare, negate, and subtract.
type Duration time.Duration

// Add implements the traits.Adder interface method.
func (d Duration) Add(other ref.Val) ref.Val {
	switch o := other.(type) {
	case Duration:
		val, ok := addDurationChecked(time.Duration(d), time.Duration(o))
		if !ok {
			return NewErr("duration overflow")
		}
		return Duration(val)
	case Timestamp:
		return o.Add(d)
	}
	return ValOrErr(other, "no such overload")
}

// Compare implements the traits.Comparer interface method.
func (d Duration) Compare(other ref.Val) ref.Val {
	otherDur, ok := other.(Duration)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if d < otherDur {
		return IntNegOne
	}
	if d > otherDur {
		return IntOne
	}
	return IntZero
}

// ConvertToType implements the ref.Val interface method.
func (d Duration) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case StringType:
		return String(strconv.FormatFloat(time.Duration(d).Seconds(), 'f', -1, 64) + "s")
	case IntType:
		return Int(d)
	case DurationType:
		return d
	case TypeType:
		return DurationType
	}
	return NewErr("type conversion error from '%s' to '%s'", DurationType, typeVal)
}

// Equal implements the ref.Val interface method.
func (d Duration) Equal(other ref.Val) ref.Val {
	otherDur, ok := other.(Duration)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return Bool(d == otherDur)
}

// Negate implements the traits.Negater interface method.
func (d Duration) Negate() ref.Val {
	val, ok := negateDurationChecked(time.Duration(d))
	if !ok {
		return NewErr("duration overflow")
	}
	return Duration(val)
}

// Subtract implements the traits.Subtractor interface method.
func (d Duration) Subtract(subtrahend ref.Val) ref.Val {
	otherDur, ok := subtrahend.(Duration)
	if !ok {
		return ValOrErr(subtrahend, "no such overload")
	}
	val, ok := subtractDurationChecked(time.Duration(d), time.Duration(otherDur))
	if !ok {
		return NewErr("duration overflow")
	}
	return Duration(val)
}

// Type implements the ref.Val interface method.
func (d Duration) Type() ref.Type {
	return DurationType
}

// Value implements the ref.Val interface method.
func (d Duration) Value() any {
	return time.Duration(d)
}
