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

func foldExpr(t *testing.T, env *Env, expr ast.Expr, maxID int64, opts ...ConstantFoldingOption) ast.Expr {
	t.Helper()
	opt, err := NewConstantFoldingOptimizer(opts...)
	if err != nil {
		t.Fatalf("NewConstantFoldingOptimizer() failed: %v", err)
	}
	info := newTestSourceInfo(maxID)
	a := ast.NewAST(expr, info)
	ctx := newTestContext(env, info, maxID)
	return opt.Optimize(ctx, a).Expr()
}

func TestPruneLogicalAndIdentityElement(t *testing.T) {
	fac := ast.NewExprFactory()
	// true && x
	expr := fac.NewCall(1, "_&&_", fac.NewLiteral(2, types.True), fac.NewIdent(3, "x"))
	got := foldExpr(t, NewEnv(), expr, 3)
	if got.Kind() != ast.IdentKind || got.AsIdent() != "x" {
		t.Errorf("fold(true && x) = %v, wanted ident x", got)
	}
}

func TestPruneLogicalAndShortCircuit(t *testing.T) {
	fac := ast.NewExprFactory()
	// false && x
	expr := fac.NewCall(1, "_&&_", fac.NewLiteral(2, types.False), fac.NewIdent(3, "x"))
	got := foldExpr(t, NewEnv(), expr, 3)
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.False {
		t.Errorf("fold(false && x) = %v, wanted literal false", got)
	}
}

func TestPruneLogicalOrShortCircuit(t *testing.T) {
	fac := ast.NewExprFactory()
	// x || true
	expr := fac.NewCall(1, "_||_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.True))
	got := foldExpr(t, NewEnv(), expr, 3)
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.True {
		t.Errorf("fold(x || true) = %v, wanted literal true", got)
	}
}

func TestPruneTernary(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_?_:_",
		fac.NewLiteral(2, types.True),
		fac.NewIdent(3, "a"),
		fac.NewIdent(4, "b"))
	got := foldExpr(t, NewEnv(), expr, 4)
	if got.Kind() != ast.IdentKind || got.AsIdent() != "a" {
		t.Errorf("fold(true ? a : b) = %v, wanted ident a", got)
	}
}

func TestPruneInEmptyList(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_in_", fac.NewIdent(2, "x"), fac.NewList(3, nil, nil))
	got := foldExpr(t, NewEnv(), expr, 3)
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.False {
		t.Errorf("fold(x in []) = %v, wanted literal false", got)
	}
}

func TestPruneInStructuralMatch(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_in_",
		fac.NewLiteral(2, types.Int(2)),
		fac.NewList(3, []ast.Expr{
			fac.NewLiteral(4, types.Int(1)),
			fac.NewLiteral(5, types.Int(2)),
			fac.NewLiteral(6, types.Int(3)),
		}, nil))
	got := foldExpr(t, NewEnv(), expr, 6)
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.True {
		t.Errorf("fold(2 in [1, 2, 3]) = %v, wanted literal true", got)
	}
}

func TestPruneBoolEquality(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_==_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.False))
	got := foldExpr(t, NewEnv(), expr, 3)
	if got.Kind() != ast.CallKind || got.AsCall().FunctionName() != "!_" {
		t.Errorf("fold(x == false) = %v, wanted !x", got)
	}
}

func TestEvalFoldArithmetic(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewLiteral(2, types.Int(1)), fac.NewLiteral(3, types.Int(2)))
	env := NewEnv().WithEvaluator(LiteralEvaluator{})
	got := foldExpr(t, env, expr, 3)
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.Int(3) {
		t.Errorf("fold(1 + 2) = %v, wanted literal 3", got)
	}
}

func TestEvalFoldLeavesUnknownFreeVariable(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.Int(2)))
	env := NewEnv().WithEvaluator(LiteralEvaluator{})
	got := foldExpr(t, env, expr, 3)
	if got.Kind() != ast.CallKind {
		t.Errorf("fold(x + 2) = %v, wanted the call left untouched", got)
	}
}

func TestFoldKnownValues(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_", fac.NewIdent(2, "x"), fac.NewLiteral(3, types.Int(2)))
	env := NewEnv().WithEvaluator(LiteralEvaluator{})
	got := foldExpr(t, env, expr, 3, FoldKnownValues(map[string]ref.Val{"x": types.Int(40)}))
	if got.Kind() != ast.LiteralKind || got.AsLiteral() != types.Int(42) {
		t.Errorf("fold(x + 2) with x known to be 40 = %v, wanted literal 42", got)
	}
}

func TestPruneOptionalListEntries(t *testing.T) {
	fac := ast.NewExprFactory()
	list := fac.NewList(1, []ast.Expr{
		fac.NewLiteral(2, types.Int(1)),
		fac.NewCall(3, "optional.none"),
		fac.NewCall(4, "optional.of", fac.NewLiteral(5, types.Int(2))),
	}, []int32{1, 2})
	got := foldExpr(t, NewEnv(), list, 5)
	if got.Kind() != ast.ListKind {
		t.Fatalf("fold(list) = %v, wanted a list", got.Kind())
	}
	l := got.AsList()
	if len(l.Elements()) != 2 {
		t.Fatalf("fold(list) produced %d elements, wanted 2 (none dropped, of unwrapped)", len(l.Elements()))
	}
	if len(l.OptionalIndices()) != 0 {
		t.Errorf("fold(list) OptionalIndices() = %v, wanted none (the surviving optional.of was unwrapped to a constant)", l.OptionalIndices())
	}
}

func TestConstantFoldingExceededIterations(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewLiteral(1, types.Int(1))
	opt, err := NewConstantFoldingOptimizer(MaxFoldIterations(0))
	if err != nil {
		t.Fatalf("NewConstantFoldingOptimizer() failed: %v", err)
	}
	info := newTestSourceInfo(1)
	a := ast.NewAST(expr, info)
	ctx := newTestContext(NewEnv(), info, 1)
	opt.Optimize(ctx, a)
	if ctx.Issues.Err() == nil {
		t.Errorf("Optimize() with MaxFoldIterations(0) reported no issue")
	}
}

func TestMaxFoldIterationsRejectsNegative(t *testing.T) {
	if _, err := NewConstantFoldingOptimizer(MaxFoldIterations(-1)); err == nil {
		t.Errorf("MaxFoldIterations(-1) accepted a negative bound")
	}
}

func TestFoldableFunctionsRejectsEmpty(t *testing.T) {
	if _, err := NewConstantFoldingOptimizer(FoldableFunctions(nil)); err == nil {
		t.Errorf("FoldableFunctions(nil) accepted an empty function set")
	}
}
