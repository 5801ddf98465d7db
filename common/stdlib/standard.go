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

// Package stdlib names the standard CEL functions, operators, and optional-library
// helpers that the optimizer passes treat as safe to fold or eliminate by default.
package stdlib

import "github.com/google/cel-ast-optimizer/operators"

// optionalFunctions are the optional-type constructors recognized by the evaluator
// adapter used for constant folding.
var optionalFunctions = []string{
	"optional.of",
	"optional.none",
	"optional.ofNonZeroValue",
}

// memberFunctions are standard member-style function calls, as opposed to the
// symbolic operators declared in the operators package.
var memberFunctions = []string{
	"size",
	"contains",
	"endsWith",
	"startsWith",
	"matches",
	"getFullYear",
	"getMonth",
	"getDayOfYear",
	"getDayOfMonth",
	"getDate",
	"getDayOfWeek",
	"getHours",
	"getMinutes",
	"getSeconds",
	"getMilliseconds",
}

// typeConversionFunctions are the standard CEL type conversion functions, e.g. int(x).
var typeConversionFunctions = []string{
	"bool", "bytes", "double", "duration", "dyn", "int", "string", "timestamp", "type", "uint",
}

var standardFunctionSet map[string]bool

func init() {
	standardFunctionSet = make(map[string]bool)
	for _, name := range operators.AllOperators() {
		standardFunctionSet[name] = true
	}
	for _, name := range optionalFunctions {
		standardFunctionSet[name] = true
	}
	for _, name := range memberFunctions {
		standardFunctionSet[name] = true
	}
	for _, name := range typeConversionFunctions {
		standardFunctionSet[name] = true
	}
}

// Functions returns the standard CEL operators, optional-library helpers, member
// functions, and type conversions, in a stable order.
//
// This is the default contents of the foldable-functions and eliminable-functions
// configuration used by the constant-folding and common subexpression optimizers
// when the caller supplies no explicit set.
func Functions() []string {
	all := make([]string, 0, len(standardFunctionSet))
	all = append(all, operators.AllOperators()...)
	all = append(all, optionalFunctions...)
	all = append(all, memberFunctions...)
	all = append(all, typeConversionFunctions...)
	return all
}

// IsStandard reports whether the given function or operator name is part of the
// default standard library surface.
func IsStandard(function string) bool {
	return standardFunctionSet[function]
}

// IsOptionalConstructor reports whether the function name is one of the optional
// library's value constructors, which the constant folder treats specially when
// rewriting evaluated results back into canonical optional call form.
func IsOptionalConstructor(function string) bool {
	switch function {
	case "optional.of", "optional.none", "optional.ofNonZeroValue":
		return true
	default:
		return false
	}
}
