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

// Err type which extends the built-in go error and implements ref.Val.
type Err struct {
	error
}

var (
	// ErrType singleton.
	ErrType = &Type{Kind: ErrorKind, runtimeTypeName: "error"}
)

// NewErr creates a new Err described by the format string and args.
func NewErr(format string, args ...any) *Err {
	return &Err{fmt.Errorf(format, args...)}
}

// WrapErr wraps a Go error as a CEL error value.
func WrapErr(err error) *Err {
	return &Err{err}
}

// ConvertToType implements ref.Val; errors are not convertible to other representations.
func (e *Err) ConvertToType(typeVal ref.Type) ref.Val {
	return e
}

// Equal implements ref.Val; an error cannot be equal to any other value, so it returns itself.
func (e *Err) Equal(other ref.Val) ref.Val {
	return e
}

// Type implements ref.Val.
func (e *Err) Type() ref.Type {
	return ErrType
}

// Value implements ref.Val.
func (e *Err) Value() any {
	return e.error
}

// String implements the fmt.Stringer interface method.
func (e *Err) String() string {
	return e.error.Error()
}

// IsError returns whether the input element ref.Val is an Err.
func IsError(val ref.Val) bool {
	if val == nil {
		return true
	}
	_, ok := val.(*Err)
	return ok
}

// ValOrErr returns the first error found amongst the inputs, or constructs a new error from
// format/args if neither is an error; used to propagate "no such overload" style failures.
func ValOrErr(val ref.Val, format string, args ...any) ref.Val {
	if err, ok := val.(*Err); ok {
		return err
	}
	return NewErr(format, args...)
}
