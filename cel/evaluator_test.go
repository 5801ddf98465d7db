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
	"testing"

	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
	"github.com/google/cel-ast-optimizer/common/types/ref"
)

func TestLiteralEvaluatorArithmetic(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewLiteral(2, types.Int(1)), fac.NewLiteral(3, types.Int(2)))

	result := LiteralEvaluator{}.Eval(NewEnv(), expr, nil)
	if result.Status != EvalOK {
		t.Fatalf("Eval() status = %v, wanted EvalOK", result.Status)
	}
	if got, ok := result.Value.(types.Int); !ok || got != types.Int(3) {
		t.Errorf("Eval() value = %v, wanted 3", result.Value)
	}
}

func TestLiteralEvaluatorDivideByZero(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_/_", fac.NewLiteral(2, types.Int(1)), fac.NewLiteral(3, types.Int(0)))

	result := LiteralEvaluator{}.Eval(NewEnv(), expr, nil)
	if result.Status != EvalError {
		t.Fatalf("Eval() status = %v, wanted EvalError", result.Status)
	}
	if result.Err == nil {
		t.Errorf("Eval() Err = nil, wanted a divide-by-zero error")
	}
}

func TestLiteralEvaluatorLogical(t *testing.T) {
	fac := ast.NewExprFactory()
	tests := []struct {
		name string
		expr ast.Expr
		want types.Bool
	}{
		{"and-true", fac.NewCall(1, "_&&_", fac.NewLiteral(2, types.True), fac.NewLiteral(3, types.True)), types.True},
		{"and-false", fac.NewCall(1, "_&&_", fac.NewLiteral(2, types.True), fac.NewLiteral(3, types.False)), types.False},
		{"or-true", fac.NewCall(1, "_||_", fac.NewLiteral(2, types.False), fac.NewLiteral(3, types.True)), types.True},
		{"not", fac.NewCall(1, "!_", fac.NewLiteral(2, types.False)), types.True},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := LiteralEvaluator{}.Eval(NewEnv(), tc.expr, nil)
			if result.Status != EvalOK {
				t.Fatalf("Eval() status = %v, wanted EvalOK", result.Status)
			}
			if result.Value != tc.want {
				t.Errorf("Eval() value = %v, wanted %v", result.Value, tc.want)
			}
		})
	}
}

func TestLiteralEvaluatorComparison(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_<_", fac.NewLiteral(2, types.Int(1)), fac.NewLiteral(3, types.Int(2)))
	result := LiteralEvaluator{}.Eval(NewEnv(), expr, nil)
	if result.Status != EvalOK || result.Value != types.True {
		t.Errorf("Eval() = %v/%v, wanted EvalOK/true", result.Status, result.Value)
	}
}

func TestLiteralEvaluatorListAndMap(t *testing.T) {
	fac := ast.NewExprFactory()
	list := fac.NewList(1, []ast.Expr{fac.NewLiteral(2, types.Int(1)), fac.NewLiteral(3, types.Int(2))}, nil)
	result := LiteralEvaluator{}.Eval(NewEnv(), list, nil)
	if result.Status != EvalOK {
		t.Fatalf("Eval(list) status = %v, wanted EvalOK", result.Status)
	}
	if _, ok := result.Value.(types.Lister); !ok {
		t.Errorf("Eval(list) value = %v (%T), wanted a Lister", result.Value, result.Value)
	}

	m := fac.NewMap(1, []ast.EntryExpr{
		fac.NewMapEntry(2, fac.NewLiteral(3, types.String("k")), fac.NewLiteral(4, types.Int(5)), false),
	})
	result = LiteralEvaluator{}.Eval(NewEnv(), m, nil)
	if result.Status != EvalOK {
		t.Fatalf("Eval(map) status = %v, wanted EvalOK", result.Status)
	}
	if _, ok := result.Value.(types.Mapper); !ok {
		t.Errorf("Eval(map) value = %v (%T), wanted a Mapper", result.Value, result.Value)
	}
}

func TestLiteralEvaluatorUnknownVariable(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.Int(1)))
	result := LiteralEvaluator{}.Eval(NewEnv(), expr, nil)
	if result.Status != EvalUnknown {
		t.Errorf("Eval() status = %v, wanted EvalUnknown for a free variable", result.Status)
	}
}

func TestLiteralEvaluatorBoundVariable(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.Int(1)))
	result := LiteralEvaluator{}.Eval(NewEnv(), expr, map[string]ref.Val{"x": types.Int(41)})
	if result.Status != EvalOK {
		t.Fatalf("Eval() status = %v, wanted EvalOK once x is bound", result.Status)
	}
	if result.Value != types.Int(42) {
		t.Errorf("Eval() value = %v, wanted 42", result.Value)
	}
}

// TestLiteralEvaluatorComprehension exercises the generic iterRange/accuInit/loopCondition/
// loopStep/result interpretation against a filter-style comprehension equivalent to
// `[1, 2, 3].filter(i, i > 1)`.
func TestLiteralEvaluatorComprehension(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewComprehension(1,
		fac.NewList(2, []ast.Expr{
			fac.NewLiteral(3, types.Int(1)),
			fac.NewLiteral(4, types.Int(2)),
			fac.NewLiteral(5, types.Int(3)),
		}, nil),
		"i",
		"__result__",
		fac.NewList(6, []ast.Expr{}, nil),
		fac.NewLiteral(7, types.True),
		fac.NewCall(8, "_?_:_",
			fac.NewCall(9, "_>_", fac.NewIdent(10, "i"), fac.NewLiteral(11, types.Int(1))),
			fac.NewCall(12, "_+_", fac.NewAccuIdent(13), fac.NewList(14, []ast.Expr{fac.NewIdent(15, "i")}, nil)),
			fac.NewAccuIdent(16)),
		fac.NewAccuIdent(17),
	)

	result := LiteralEvaluator{}.Eval(NewEnv(), expr, nil)
	if result.Status != EvalOK {
		t.Fatalf("Eval(comprehension) status = %v, wanted EvalOK", result.Status)
	}
	lister, ok := result.Value.(types.Lister)
	if !ok {
		t.Fatalf("Eval(comprehension) value = %v (%T), wanted a Lister", result.Value, result.Value)
	}
	if lister.Size() != types.Int(2) {
		t.Errorf("Eval(comprehension) produced a list of size %v, wanted 2", lister.Size())
	}
}

func TestEvaluatorFuncAdapter(t *testing.T) {
	called := false
	f := EvaluatorFunc(func(env *Env, expr ast.Expr, bindings map[string]ref.Val) EvalResult {
		called = true
		return EvalResult{Status: EvalOK, Value: types.True}
	})
	var e Evaluator = f
	result := e.Eval(NewEnv(), nil, nil)
	if !called {
		t.Errorf("EvaluatorFunc did not invoke the wrapped function")
	}
	if result.Status != EvalOK || result.Value != types.True {
		t.Errorf("EvaluatorFunc.Eval() = %v/%v, wanted EvalOK/true", result.Status, result.Value)
	}
}
