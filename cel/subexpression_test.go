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
)

func cseExpr(t *testing.T, expr ast.Expr, maxID int64, opts ...SubexpressionOption) ast.Expr {
	t.Helper()
	opt, err := NewSubexpressionOptimizer(opts...)
	if err != nil {
		t.Fatalf("NewSubexpressionOptimizer() failed: %v", err)
	}
	info := newTestSourceInfo(maxID)
	a := ast.NewAST(expr, info)
	ctx := newTestContext(NewEnv(), info, maxID)
	return opt.Optimize(ctx, a).Expr()
}

// TestExtractDuplicateSubexpressionBlockForm exercises size(x) + size(x), which should become
// cel.@block([size(x)], @index0 + @index0).
func TestExtractDuplicateSubexpressionBlockForm(t *testing.T) {
	fac := ast.NewExprFactory()
	dup := func() ast.Expr { return fac.NewCall(1, "size", fac.NewIdent(2, "x")) }
	expr := fac.NewCall(3, "_+_", dup(), dup())

	got := cseExpr(t, expr, 3)
	if got.Kind() != ast.CallKind || got.AsCall().FunctionName() != ast.BlockMacroName {
		t.Fatalf("Optimize() root = %v, wanted a cel.@block call", got)
	}
	args := got.AsCall().Args()
	if len(args) != 2 || args[0].Kind() != ast.ListKind {
		t.Fatalf("cel.@block args = %v, wanted [list, result]", args)
	}
	subs := args[0].AsList().Elements()
	if len(subs) != 1 {
		t.Fatalf("cel.@block subexpression list has %d entries, wanted 1", len(subs))
	}
	if subs[0].Kind() != ast.CallKind || subs[0].AsCall().FunctionName() != "size" {
		t.Errorf("extracted subexpression = %v, wanted size(x)", subs[0])
	}
	result := args[1]
	if result.Kind() != ast.CallKind || result.AsCall().FunctionName() != "_+_" {
		t.Fatalf("block result = %v, wanted a _+_ call", result)
	}
	for _, arg := range result.AsCall().Args() {
		if arg.Kind() != ast.IdentKind || arg.AsIdent() != "@index0" {
			t.Errorf("block result argument = %v, wanted ident @index0", arg)
		}
	}
}

// TestNoDuplicateLeavesTreeUnchanged verifies that a tree with no eliminable duplicate produces
// no cel.@block wrapper.
func TestNoDuplicateLeavesTreeUnchanged(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "_+_",
		fac.NewCall(2, "size", fac.NewIdent(3, "x")),
		fac.NewCall(4, "size", fac.NewIdent(5, "y")))

	got := cseExpr(t, expr, 5)
	if got.Kind() != ast.CallKind || got.AsCall().FunctionName() != "_+_" {
		t.Errorf("Optimize() with no duplicates = %v, wanted the original _+_ call untouched", got)
	}
}

// TestEnableCelBlockFalseProducesNestedBind verifies the nested cel.bind fallback form.
func TestEnableCelBlockFalseProducesNestedBind(t *testing.T) {
	fac := ast.NewExprFactory()
	dup := func() ast.Expr { return fac.NewCall(1, "size", fac.NewIdent(2, "x")) }
	expr := fac.NewCall(3, "_+_", dup(), dup())

	got := cseExpr(t, expr, 3, EnableCelBlock(false))
	if !ast.IsBindMacro(got) {
		t.Fatalf("Optimize() with EnableCelBlock(false) = %v, wanted a cel.bind comprehension", got)
	}
	comp := got.AsComprehension()
	if comp.Result().Kind() != ast.CallKind || comp.Result().AsCall().FunctionName() != "_+_" {
		t.Errorf("cel.bind result = %v, wanted a _+_ call", comp.Result())
	}
}

// TestFreeMangledReferenceNotExtracted verifies that a duplicate subexpression referencing a
// comprehension's own bound variable is never hoisted, even though it is otherwise eligible.
func TestFreeMangledReferenceNotExtracted(t *testing.T) {
	fac := ast.NewExprFactory()
	dup := func() ast.Expr {
		return fac.NewCall(1, "_==_", fac.NewCall(2, "size", fac.NewIdent(3, "i")), fac.NewLiteral(4, types.Int(1)))
	}
	comp := fac.NewComprehension(5,
		fac.NewList(6, []ast.Expr{fac.NewLiteral(7, types.Int(1)), fac.NewLiteral(8, types.Int(2))}, nil),
		"i",
		"__result__",
		fac.NewLiteral(9, types.False),
		fac.NewLiteral(10, types.True),
		fac.NewAccuIdent(11),
		fac.NewCall(12, "_&&_", dup(), dup()),
	)

	got := cseExpr(t, comp, 12)
	if got.Kind() != ast.ComprehensionKind {
		t.Fatalf("Optimize() = %v, wanted the comprehension left in place (no extraction possible)", got.Kind())
	}
	if got.AsComprehension().IterVar() != "@it0" {
		t.Errorf("IterVar() = %q, wanted the mangled name @it0 even though nothing was extracted", got.AsComprehension().IterVar())
	}
	result := got.AsComprehension().Result()
	if result.Kind() != ast.CallKind || result.AsCall().FunctionName() != "_&&_" {
		t.Fatalf("comprehension result = %v, wanted the original _&&_ call untouched", result)
	}
	for _, arg := range result.AsCall().Args() {
		if arg.Kind() != ast.CallKind || arg.AsCall().FunctionName() != "_==_" {
			t.Errorf("comprehension result argument = %v, wanted the original _==_ call, not an @index reference", arg)
		}
	}
}

// TestMaxRecursionDepthForcesTallestExtraction verifies spec rule 2: when the tree is taller than the
// configured depth and no duplicate is found, the tallest eligible node is forced out.
func TestMaxRecursionDepthForcesTallestExtraction(t *testing.T) {
	fac := ast.NewExprFactory()
	inner := fac.NewCall(1, "_+_", fac.NewIdent(2, "a"), fac.NewIdent(3, "b"))
	mid := fac.NewCall(4, "_+_", inner, fac.NewIdent(5, "c"))
	root := fac.NewCall(6, "_+_", mid, fac.NewIdent(7, "d"))

	got := cseExpr(t, root, 7, MaxRecursionDepth(1))
	if got.Kind() != ast.CallKind || got.AsCall().FunctionName() != ast.BlockMacroName {
		t.Fatalf("Optimize() with MaxRecursionDepth(1) = %v, wanted a cel.@block call", got.Kind())
	}
	subs := got.AsCall().Args()[0].AsList().Elements()
	if len(subs) != 1 {
		t.Fatalf("cel.@block subexpression list has %d entries, wanted 1", len(subs))
	}
	if subs[0].Kind() != ast.CallKind || subs[0].AsCall().FunctionName() != "_+_" {
		t.Errorf("forced extraction = %v, wanted the tallest eligible call", subs[0])
	}
	result := got.AsCall().Args()[1]
	if result.Kind() != ast.IdentKind || result.AsIdent() != "@index0" {
		t.Errorf("block result = %v, wanted ident @index0 (the whole tree was hoisted)", result)
	}
}

func TestCseCollectorExcludesLiteralsAndIdents(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "size", fac.NewIdent(2, "x"))
	info := newTestSourceInfo(2)
	a := ast.NewAST(expr, info)
	collector := &cseCollector{mangledNames: map[string]bool{}, eliminableFunctions: defaultEliminableFunctions()}
	eligible := collector.collect(ast.NavigateAST(a))

	for _, nav := range eligible {
		if nav.Kind() == ast.LiteralKind || nav.Kind() == ast.IdentKind {
			t.Errorf("collect() included a bare %v node, which canEliminate must reject", nav.Kind())
		}
	}
	found := false
	for _, nav := range eligible {
		if nav.Kind() == ast.CallKind && nav.AsCall().FunctionName() == "size" {
			found = true
		}
	}
	if !found {
		t.Errorf("collect() did not include the size(x) call")
	}
}

func TestCseCollectorExcludesNonEliminableFunction(t *testing.T) {
	fac := ast.NewExprFactory()
	expr := fac.NewCall(1, "custom.sideEffecting", fac.NewIdent(2, "x"))
	info := newTestSourceInfo(2)
	a := ast.NewAST(expr, info)
	collector := &cseCollector{mangledNames: map[string]bool{}, eliminableFunctions: map[string]bool{"size": true}}
	eligible := collector.collect(ast.NavigateAST(a))
	for _, nav := range eligible {
		if nav.Kind() == ast.CallKind {
			t.Errorf("collect() included %v, whose function is not in the eliminable set", nav)
		}
	}
}

func TestExprEquivalentIgnoresSelectTestOnly(t *testing.T) {
	fac := ast.NewExprFactory()
	operand := func() ast.Expr { return fac.NewIdent(1, "msg") }
	presenceTest := fac.NewPresenceTest(2, operand(), "field")
	plainSelect := fac.NewSelect(3, operand(), "field")

	ctx := newTestContext(NewEnv(), newTestSourceInfo(3), 3)
	if !exprEquivalent(ctx, presenceTest, plainSelect) {
		t.Errorf("exprEquivalent(has(msg.field), msg.field) = false, wanted true")
	}
}

func TestExprEquivalentDifferentFunctions(t *testing.T) {
	fac := ast.NewExprFactory()
	a := fac.NewCall(1, "size", fac.NewIdent(2, "x"))
	b := fac.NewCall(3, "length", fac.NewIdent(4, "x"))

	ctx := newTestContext(NewEnv(), newTestSourceInfo(4), 4)
	if exprEquivalent(ctx, a, b) {
		t.Errorf("exprEquivalent(size(x), length(x)) = true, wanted false")
	}
}

func TestMaxInlineIterationsRejectsNegative(t *testing.T) {
	if _, err := NewSubexpressionOptimizer(MaxInlineIterations(-1)); err == nil {
		t.Errorf("MaxInlineIterations(-1) accepted a negative bound")
	}
}

func TestEliminableFunctionsRejectsEmpty(t *testing.T) {
	if _, err := NewSubexpressionOptimizer(EliminableFunctions(nil)); err == nil {
		t.Errorf("EliminableFunctions(nil) accepted an empty function set")
	}
}

func TestSubexpressionExceededIterationsReportsIssue(t *testing.T) {
	fac := ast.NewExprFactory()
	dup := func() ast.Expr { return fac.NewCall(1, "size", fac.NewIdent(2, "x")) }
	expr := fac.NewCall(3, "_+_", dup(), dup())

	opt, err := NewSubexpressionOptimizer(MaxInlineIterations(1))
	if err != nil {
		t.Fatalf("NewSubexpressionOptimizer() failed: %v", err)
	}
	info := newTestSourceInfo(3)
	a := ast.NewAST(expr, info)
	ctx := newTestContext(NewEnv(), info, 3)
	opt.Optimize(ctx, a)
	if ctx.Issues.Err() == nil {
		t.Errorf("Optimize() with MaxInlineIterations(1) reported no issue despite a still-eligible extraction on the last allowed iteration")
	}
}
