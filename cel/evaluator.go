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

package cel

import (
	"fmt"

	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// EvalStatus classifies the outcome of folding a subtree through an Evaluator.
type EvalStatus int

const (
	// EvalOK indicates the subtree evaluated to a representable value.
	EvalOK EvalStatus = iota

	// EvalUnknown indicates the subtree depends on a variable the Evaluator has no binding
	// for; the constant-folding optimizer recovers from this by leaving the subtree untouched.
	EvalUnknown

	// EvalError indicates evaluation failed, e.g. the expression raised a runtime error such as
	// division by zero; this is surfaced as an INTERNAL_ERROR by the caller.
	EvalError
)

// EvalResult is the outcome of attempting to fold one subtree.
type EvalResult struct {
	Status EvalStatus
	Value  ref.Val
	Err    error
}

// Evaluator folds a checked subtree into a constant-representable ref.Val without performing
// any host I/O. It is a consumed, opaque collaborator — the optimization core neither parses,
// plans, nor executes CEL programs; it only asks an external evaluator to evaluate a subtree
// against an empty (or mangled-comprehension-variable-only) binding.
//
// Implementations MUST be side-effect free: Eval is always invoked with no host state, so any
// free variable other than a declared constant or an explicitly bound mangled comprehension
// variable must resolve to EvalUnknown rather than an error.
type Evaluator interface {
	// Eval type-checks and evaluates expr within env, extended with the given bindings.
	Eval(env *Env, expr ast.Expr, bindings map[string]ref.Val) EvalResult
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(env *Env, expr ast.Expr, bindings map[string]ref.Val) EvalResult

// Eval implements the Evaluator interface.
func (f EvaluatorFunc) Eval(env *Env, expr ast.Expr, bindings map[string]ref.Val) EvalResult {
	return f(env, expr, bindings)
}

// LiteralEvaluator folds subtrees composed entirely of literal values and the subset of
// standard operators whose semantics it implements directly, without any wired runtime. It is
// useful for tests and for embedders who have not yet wired a full CEL evaluator, and it never
// needs host state: every subtree it can fold is, by construction, already fully literal.
//
// Any subtree it cannot reduce this way — including any reference to a free variable — reports
// EvalUnknown, which is always a safe (if conservative) answer for the constant-folding
// optimizer to receive.
type LiteralEvaluator struct{}

// Eval implements the Evaluator interface.
func (LiteralEvaluator) Eval(env *Env, expr ast.Expr, bindings map[string]ref.Val) EvalResult {
	val, ok := evalLiteral(expr, bindings)
	if !ok {
		return EvalResult{Status: EvalUnknown}
	}
	if types.IsError(val) {
		return EvalResult{Status: EvalError, Err: fmt.Errorf("%v", val.Value())}
	}
	return EvalResult{Status: EvalOK, Value: val}
}

func evalLiteral(expr ast.Expr, bindings map[string]ref.Val) (ref.Val, bool) {
	switch expr.Kind() {
	case ast.LiteralKind:
		return expr.AsLiteral(), true
	case ast.IdentKind:
		v, found := bindings[expr.AsIdent()]
		return v, found
	case ast.ListKind:
		l := expr.AsList()
		elems := make([]ref.Val, 0, len(l.Elements()))
		for _, e := range l.Elements() {
			v, ok := evalLiteral(e, bindings)
			if !ok {
				return nil, false
			}
			elems = append(elems, v)
		}
		return types.NewDynamicList(elems), true
	case ast.MapKind:
		m := expr.AsMap()
		entries := make([]struct{ Key, Value ref.Val }, 0, len(m.Entries()))
		for _, entry := range m.Entries() {
			me := entry.AsMapEntry()
			k, ok := evalLiteral(me.Key(), bindings)
			if !ok {
				return nil, false
			}
			v, ok := evalLiteral(me.Value(), bindings)
			if !ok {
				return nil, false
			}
			entries = append(entries, struct{ Key, Value ref.Val }{k, v})
		}
		return types.NewDynamicMap(entries), true
	case ast.CallKind:
		return evalLiteralCall(expr.AsCall(), bindings)
	case ast.ComprehensionKind:
		return evalComprehension(expr.AsComprehension(), bindings)
	default:
		return nil, false
	}
}

// evalComprehension interprets a comprehension directly against its iterRange/accuInit/
// loopCondition/loopStep/result structure, rather than recognizing any particular macro shape.
// This covers map, filter, exists_one and cel.bind, since they are all just different
// accuInit/loopStep/loopCondition/result encodings of the same generic loop. Loop conditions
// built on @not_strictly_false, as exists and all use, are not evaluated, so those
// comprehensions are reported as unknown.
func evalComprehension(c ast.ComprehensionExpr, bindings map[string]ref.Val) (ref.Val, bool) {
	rangeVal, ok := evalLiteral(c.IterRange(), bindings)
	if !ok {
		return nil, false
	}
	accu, ok := evalLiteral(c.AccuInit(), bindings)
	if !ok {
		return nil, false
	}
	child := make(map[string]ref.Val, len(bindings)+3)
	for k, v := range bindings {
		child[k] = v
	}
	switch r := rangeVal.(type) {
	case types.Lister:
		it := r.Iterator()
		for it.HasNext() {
			child[c.IterVar()] = it.Next()
			var brk bool
			accu, brk, ok = evalComprehensionStep(c, accu, child)
			if !ok {
				return nil, false
			}
			if brk {
				break
			}
		}
	case types.Mapper:
		it := r.Iterator()
		for it.HasNext() {
			key := it.Next()
			child[c.IterVar()] = key
			if c.HasIterVar2() {
				val, found := r.Find(key)
				if !found {
					return nil, false
				}
				child[c.IterVar2()] = val
			}
			var brk bool
			accu, brk, ok = evalComprehensionStep(c, accu, child)
			if !ok {
				return nil, false
			}
			if brk {
				break
			}
		}
	default:
		return nil, false
	}
	child[c.AccuVar()] = accu
	return evalLiteral(c.Result(), child)
}

// evalComprehensionStep evaluates one loop iteration, returning the updated accumulator value
// and whether the loop should stop (the condition evaluated to false).
func evalComprehensionStep(c ast.ComprehensionExpr, accu ref.Val, scope map[string]ref.Val) (ref.Val, bool, bool) {
	scope[c.AccuVar()] = accu
	condVal, ok := evalLiteral(c.LoopCondition(), scope)
	if !ok {
		return nil, false, false
	}
	b, ok := condVal.(types.Bool)
	if !ok {
		return nil, false, false
	}
	if !b {
		return accu, true, true
	}
	next, ok := evalLiteral(c.LoopStep(), scope)
	if !ok {
		return nil, false, false
	}
	return next, false, true
}

func evalLiteralCall(call ast.CallExpr, bindings map[string]ref.Val) (ref.Val, bool) {
	args := make([]ref.Val, 0, len(call.Args()))
	for _, a := range call.Args() {
		v, ok := evalLiteral(a, bindings)
		if !ok {
			return nil, false
		}
		args = append(args, v)
	}
	switch call.FunctionName() {
	case "optional.of":
		if len(args) != 1 {
			return nil, false
		}
		return types.OptionalOf(args[0]), true
	case "optional.none":
		return types.OptionalNone, true
	case "optional.ofNonZeroValue":
		if len(args) != 1 {
			return nil, false
		}
		if types.IsZeroValue(args[0]) {
			return types.OptionalNone, true
		}
		return types.OptionalOf(args[0]), true
	}
	return evalArithmeticOrComparison(call.FunctionName(), args)
}

func evalArithmeticOrComparison(function string, args []ref.Val) (ref.Val, bool) {
	switch function {
	case "_+_":
		if len(args) != 2 {
			return nil, false
		}
		if a, ok := args[0].(adder); ok {
			return a.Add(args[1]), true
		}
		return nil, false
	case "_-_":
		if len(args) != 2 {
			return nil, false
		}
		if a, ok := args[0].(subtracter); ok {
			return a.Subtract(args[1]), true
		}
		return nil, false
	case "_*_":
		if len(args) != 2 {
			return nil, false
		}
		if a, ok := args[0].(multiplier); ok {
			return a.Multiply(args[1]), true
		}
		return nil, false
	case "_/_":
		if len(args) != 2 {
			return nil, false
		}
		if a, ok := args[0].(divider); ok {
			return a.Divide(args[1]), true
		}
		return nil, false
	case "_%_":
		if len(args) != 2 {
			return nil, false
		}
		if a, ok := args[0].(modulor); ok {
			return a.Modulo(args[1]), true
		}
		return nil, false
	case "-_":
		if len(args) != 1 {
			return nil, false
		}
		if a, ok := args[0].(negater); ok {
			return a.Negate(), true
		}
		return nil, false
	case "!_":
		if len(args) != 1 {
			return nil, false
		}
		b, ok := args[0].(types.Bool)
		if !ok {
			return nil, false
		}
		return b.Negate(), true
	case "_==_":
		if len(args) != 2 {
			return nil, false
		}
		return args[0].Equal(args[1]), true
	case "_!=_":
		if len(args) != 2 {
			return nil, false
		}
		eq := args[0].Equal(args[1])
		b, ok := eq.(types.Bool)
		if !ok {
			return nil, false
		}
		return b.Negate(), true
	case "_&&_":
		if len(args) != 2 {
			return nil, false
		}
		a, ok1 := args[0].(types.Bool)
		b, ok2 := args[1].(types.Bool)
		if !ok1 || !ok2 {
			return nil, false
		}
		return a && b, true
	case "_||_":
		if len(args) != 2 {
			return nil, false
		}
		a, ok1 := args[0].(types.Bool)
		b, ok2 := args[1].(types.Bool)
		if !ok1 || !ok2 {
			return nil, false
		}
		return a || b, true
	case "_?_:_":
		if len(args) != 3 {
			return nil, false
		}
		cond, ok := args[0].(types.Bool)
		if !ok {
			return nil, false
		}
		if cond {
			return args[1], true
		}
		return args[2], true
	case "_<_", "_<=_", "_>_", "_>=_":
		if len(args) != 2 {
			return nil, false
		}
		cmp, ok := args[0].(comparer)
		if !ok {
			return nil, false
		}
		result := cmp.Compare(args[1])
		cmpInt, ok := result.(types.Int)
		if !ok {
			return nil, false
		}
		switch function {
		case "_<_":
			return types.Bool(cmpInt == types.IntNegOne), true
		case "_<=_":
			return types.Bool(cmpInt != types.IntOne), true
		case "_>_":
			return types.Bool(cmpInt == types.IntOne), true
		default: // "_>=_"
			return types.Bool(cmpInt != types.IntNegOne), true
		}
	}
	return nil, false
}

type adder interface{ Add(ref.Val) ref.Val }
type subtracter interface{ Subtract(ref.Val) ref.Val }
type multiplier interface{ Multiply(ref.Val) ref.Val }
type divider interface{ Divide(ref.Val) ref.Val }
type modulor interface{ Modulo(ref.Val) ref.Val }
type negater interface{ Negate() ref.Val }
type comparer interface{ Compare(ref.Val) ref.Val }
