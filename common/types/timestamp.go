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
	"time"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Timestamp type implementation which supports add, compare, and subtract operations.
type Timestamp time.Time

// Add implements the traits.Adder interface method.
func (t Timestamp) Add(other ref.Val) ref.Val {
	otherDur, ok := other.(Duration)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	val, ok := addTimeDurationChecked(time.Time(t), time.Duration(otherDur))
	if !ok {
		return NewErr("timestamp overflow")
	}
	return Timestamp(val)
}

// Compare implements the traits.Comparer interface method.
func (t Timestamp) Compare(other ref.Val) ref.Val {
	otherTs, ok := other.(Timestamp)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	diff := time.Time(t).Sub(time.Time(otherTs))
	if diff < 0 {
		return IntNegOne
	}
	if diff > 0 {
		return IntOne
	}
	return IntZero
}

// ConvertToType implements the ref.Val interface method.
func (t Timestamp) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case StringType:
		return String(time.Time(t).Format(time.RFC3339Nano))
	case IntType:
		return Int(time.Time(t).Unix())
	case TimestampType:
		return t
	case TypeType:
		return TimestampType
	}
	return NewErr("type conversion error from '%s' to '%s'", TimestampType, typeVal)
}

// Equal implements the ref.Val interface method.
func (t Timestamp) Equal(other ref.Val) ref.Val {
	otherTs, ok := other.(Timestamp)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	return Bool(time.Time(t).Equal(time.Time(otherTs)))
}

// Subtract implements the traits.Subtractor interface method.
func (t Timestamp) Subtract(subtrahend ref.Val) ref.Val {
	switch o := subtrahend.(type) {
	case Duration:
		return Timestamp(time.Time(t).Add(-time.Duration(o)))
	case Timestamp:
		return Duration(time.Time(t).Sub(time.Time(o)))
	}
	return ValOrErr(subtrahend, "no such overload")
}

// Type implements the ref.Val interface method.
func (t Timestamp) Type() ref.Type {
	return TimestampType
}

// Value implements the ref.Val interface method.
func (t Timestamp) Value() any {
	return time.Time(t)
}
