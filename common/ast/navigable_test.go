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

package ast_test

import (
	"reflect"
	"testing"

	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
)

// checkedFromExpr wraps a bare expression tree built with the factory into a minimal checked
// AST, stamping every node with types.DynType so IsChecked() reports true.
func checkedFromExpr(root ast.Expr) *ast.AST {
	a := ast.NewAST(root, ast.NewSourceInfo(nil))
	ast.PreOrderVisit(root, ast.NewExprVisitor(func(e ast.Expr) {
		a.SetType(e.ID(), types.DynType)
	}, nil))
	return a
}

func TestNavigateASTDescendantsAndDepth(t *testing.T) {
	fac := ast.NewExprFactory()
	tests := []struct {
		name            string
		root            ast.Expr
		descendantCount int
		callCount       int
		maxDepth        int
	}{
		{
			name:            "equality of literals",
			root:            fac.NewCall(1, "_==_", fac.NewLiteral(2, types.String("a")), fac.NewLiteral(3, types.String("b"))),
			descendantCount: 3,
			callCount:       1,
			maxDepth:        1,
		},
		{
			name:            "member call",
			root:            fac.NewMemberCall(1, "size", fac.NewLiteral(2, types.String("a"))),
			descendantCount: 2,
			callCount:       1,
			maxDepth:        1,
		},
		{
			name: "list literal",
			root: fac.NewList(1, []ast.Expr{
				fac.NewLiteral(2, types.Int(1)),
				fac.NewLiteral(3, types.Int(2)),
				fac.NewLiteral(4, types.Int(3)),
			}, []int32{}),
			descendantCount: 4,
			callCount:       0,
			maxDepth:        1,
		},
		{
			name: "indexed list",
			root: fac.NewCall(1, "_[_]",
				fac.NewList(2, []ast.Expr{
					fac.NewLiteral(3, types.Int(1)),
					fac.NewLiteral(4, types.Int(2)),
				}, []int32{}),
				fac.NewLiteral(5, types.Int(0))),
			descendantCount: 5,
			callCount:       1,
			maxDepth:        2,
		},
		{
			name: "select",
			root: fac.NewSelect(1,
				fac.NewMap(2, []ast.EntryExpr{
					fac.NewMapEntry(3, fac.NewLiteral(4, types.String("hello")), fac.NewLiteral(5, types.String("world")), false),
				}), "hello"),
			descendantCount: 4,
			callCount:       0,
			maxDepth:        2,
		},
		{
			name: "bind macro comprehension",
			root: ast.NewBindMacro(fac, testIDGen(100), "i",
				fac.NewLiteral(99, types.Int(1)),
				fac.NewIdent(98, "i")),
			descendantCount: 6,
			callCount:       0,
			maxDepth:        1,
		},
	}
	for _, tst := range tests {
		tc := tst
		t.Run(tc.name, func(t *testing.T) {
			checked := checkedFromExpr(tc.root)
			nav := ast.NavigateAST(checked)
			descendants := ast.MatchDescendants(nav, ast.AllMatcher())
			if len(descendants) != tc.descendantCount {
				t.Errorf("MatchDescendants() got %d descendants, wanted %d", len(descendants), tc.descendantCount)
			}
			maxDepth := 0
			for _, d := range descendants {
				if d.Depth() > maxDepth {
					maxDepth = d.Depth()
				}
			}
			if maxDepth != tc.maxDepth {
				t.Errorf("got max NavigableExpr.Depth() of %d, wanted %d", maxDepth, tc.maxDepth)
			}
			calls := ast.MatchSubset(descendants, ast.KindMatcher(ast.CallKind))
			if len(calls) != tc.callCount {
				t.Errorf("MatchSubset(CallKind) got %d calls, wanted %d", len(calls), tc.callCount)
			}
		})
	}
}

func TestExprVisitorOrdering(t *testing.T) {
	fac := ast.NewExprFactory()
	// [2] ==, [1] 'a', [3] 'b'
	root := fac.NewCall(2, "_==_", fac.NewLiteral(1, types.String("a")), fac.NewLiteral(3, types.String("b")))
	checked := checkedFromExpr(root)
	nav := ast.NavigateAST(checked)

	var preOrderIDs []int64
	ast.PreOrderVisit(nav, ast.NewExprVisitor(func(e ast.Expr) {
		preOrderIDs = append(preOrderIDs, e.ID())
	}, nil))
	wantPre := []int64{2, 1, 3}
	if !reflect.DeepEqual(preOrderIDs, wantPre) {
		t.Errorf("PreOrderVisit() got %v, wanted %v", preOrderIDs, wantPre)
	}

	var postOrderIDs []int64
	ast.PostOrderVisit(nav, ast.NewExprVisitor(func(e ast.Expr) {
		postOrderIDs = append(postOrderIDs, e.ID())
	}, nil))
	wantPost := []int64{1, 3, 2}
	if !reflect.DeepEqual(postOrderIDs, wantPost) {
		t.Errorf("PostOrderVisit() got %v, wanted %v", postOrderIDs, wantPost)
	}

	// Children() should walk the same pre-order sequence as PreOrderVisit.
	var childOrderIDs []int64
	visit := []ast.NavigableExpr{nav}
	for len(visit) > 0 {
		e := visit[0]
		childOrderIDs = append(childOrderIDs, e.ID())
		visit = append(append([]ast.NavigableExpr{}, e.Children()...), visit[1:]...)
	}
	if !reflect.DeepEqual(childOrderIDs, wantPre) {
		t.Errorf("Children()-driven walk got %v, wanted %v", childOrderIDs, wantPre)
	}
}

func TestNavigableASTNilSafety(t *testing.T) {
	e := ast.NavigateAST(ast.NewAST(nil, nil))
	if e.ID() != 0 {
		t.Errorf("ID() got %d, wanted 0", e.ID())
	}
	if e.Kind() != ast.UnspecifiedExprKind {
		t.Errorf("Kind() got %v, wanted unspecified kind", e.Kind())
	}
	if e.Type() != types.DynType {
		t.Errorf("Type() got %v, wanted types.DynType", e.Type())
	}
	if p, found := e.Parent(); found {
		t.Errorf("Parent() got %v, wanted not found", p)
	}
	if len(e.Children()) != 0 {
		t.Errorf("Children() got %v, wanted none", e.Children())
	}
	if e.AsLiteral() != nil {
		t.Errorf("AsLiteral() got %v, wanted nil", e.AsLiteral())
	}
	if e.AsCall() == nil {
		t.Errorf("AsCall() got nil, wanted non-nil for safe traversal")
	}
	if e.AsComprehension() == nil {
		t.Errorf("AsComprehension() got nil, wanted non-nil for safe traversal")
	}
}

func TestNavigableExprParentAndType(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewCall(1, "_==_", fac.NewLiteral(2, types.String("a")), fac.NewLiteral(3, types.String("b")))
	checked := ast.NewAST(root, ast.NewSourceInfo(nil))
	checked.SetType(1, types.BoolType)
	checked.SetType(2, types.StringType)
	checked.SetType(3, types.StringType)

	navAST := ast.NavigateAST(checked)
	literals := ast.MatchDescendants(navAST, func(e ast.NavigableExpr) bool {
		return e.Kind() == ast.LiteralKind && e.AsLiteral().Equal(types.String("a")) == types.True
	})
	if len(literals) != 1 {
		t.Fatalf("MatchDescendants('a') got %d results, wanted 1", len(literals))
	}
	litA := literals[0]
	if litA.Depth() != 1 {
		t.Fatalf("litA.Depth() got %d, wanted 1", litA.Depth())
	}
	if litA.Type() != types.StringType {
		t.Errorf("litA.Type() got %v, wanted StringType", litA.Type())
	}
	parent, found := litA.Parent()
	if !found {
		t.Fatal("litA.Parent() returned not found")
	}
	if parent.Kind() != ast.CallKind || parent.AsCall().FunctionName() != "_==_" {
		t.Fatalf("litA.Parent() got %v, wanted '_==_' call", parent)
	}
	litAPrime := ast.NavigateExpr(checked, litA)
	if litAPrime.Depth() != litA.Depth() {
		t.Errorf("litAPrime.Depth() != litA.Depth(), got %d, wanted %d", litAPrime.Depth(), litA.Depth())
	}
}

func TestNavigableCallExprMember(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewMemberCall(1, "size", fac.NewLiteral(2, types.String("hello")))
	expr := ast.NavigateAST(checkedFromExpr(root))
	if expr.Kind() != ast.CallKind {
		t.Errorf("Kind() got %v, wanted CallKind", expr.Kind())
	}
	call := expr.AsCall()
	if call.FunctionName() != "size" {
		t.Errorf("FunctionName() got %s, wanted size", call.FunctionName())
	}
	if call.Target() == nil {
		t.Fatalf("Target() got nil, wanted non-nil")
	}
	if len(call.Args()) != 0 {
		t.Errorf("Args() got %v, wanted 0", call.Args())
	}
	target := call.Target()
	if target.Kind() != ast.LiteralKind {
		t.Errorf("Kind() got %v, wanted literal", target.Kind())
	}
	if target.AsLiteral().Equal(types.String("hello")) != types.True {
		t.Errorf("AsLiteral() got %v, wanted 'hello'", target.AsLiteral())
	}
	if p, found := target.(ast.NavigableExpr).Parent(); !found || p != expr {
		t.Errorf("Parent() got %v, wanted %v", p, expr)
	}
	sizeFn := ast.MatchDescendants(expr, ast.FunctionMatcher("size"))
	if len(sizeFn) != 1 {
		t.Errorf("MatchDescendants(size) returned %v, wanted 1", sizeFn)
	}
	constantValues := ast.MatchDescendants(expr, ast.ConstantValueMatcher())
	if len(constantValues) != 1 {
		t.Fatalf("MatchDescendants(constant) returned %v, wanted 1 value", constantValues)
	}
}

func TestNavigableCallExprGlobal(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewCall(1, "size", fac.NewLiteral(2, types.String("hello")))
	expr := ast.NavigateAST(checkedFromExpr(root))
	call := expr.AsCall()
	if call.IsMemberFunction() {
		t.Fatal("IsMemberFunction() returned true, wanted false")
	}
	if len(call.Args()) != 1 {
		t.Errorf("Args() got %v, wanted 1", call.Args())
	}
	arg := call.Args()[0]
	if p, found := arg.(ast.NavigableExpr).Parent(); !found || p != expr {
		t.Errorf("Parent() got %v, wanted %v", p, expr)
	}
}

func TestNavigableListExpr(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewList(1, []ast.Expr{
		fac.NewList(2, []ast.Expr{fac.NewLiteral(3, types.Int(1))}, []int32{}),
		fac.NewList(4, []ast.Expr{fac.NewLiteral(5, types.Int(2))}, []int32{}),
	}, []int32{})
	expr := ast.NavigateAST(checkedFromExpr(root))
	list := expr.AsList()
	if list.Size() != 2 {
		t.Errorf("Size() got %d, wanted 2", list.Size())
	}
	if len(list.OptionalIndices()) != 0 {
		t.Errorf("OptionalIndices() returned %v, wanted none", list.OptionalIndices())
	}
	constantValues := ast.MatchDescendants(expr, ast.ConstantValueMatcher())
	if len(constantValues) != 5 {
		t.Errorf("MatchDescendants(constant) returned %v, wanted 5", constantValues)
	}
	constantLists := ast.MatchSubset(constantValues, ast.KindMatcher(ast.ListKind))
	if len(constantLists) != 3 {
		t.Errorf("MatchSubset(ListKind) returned %v, wanted 3", constantLists)
	}
}

func TestNavigableMapExpr(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewMap(1, []ast.EntryExpr{
		fac.NewMapEntry(2, fac.NewLiteral(3, types.String("hello")), fac.NewLiteral(4, types.Int(1)), false),
	})
	expr := ast.NavigateAST(checkedFromExpr(root))
	m := expr.AsMap()
	if m.Size() != 1 {
		t.Errorf("Size() got %d, wanted 1", m.Size())
	}
	entry := m.Entries()[0].AsMapEntry()
	if entry.IsOptional() {
		t.Error("IsOptional() returned true, wanted false")
	}
	if entry.Key().AsLiteral().Equal(types.String("hello")) != types.True {
		t.Errorf("Key() returned %v, wanted 'hello'", entry.Key().AsLiteral())
	}
	descendants := ast.MatchDescendants(expr, ast.AllMatcher())
	if len(descendants) != 3 {
		t.Errorf("MatchDescendants() returned %v, wanted 3", descendants)
	}
}

func TestNavigableStructExpr(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewStruct(1, "google.expr.proto3.test.TestAllTypes", []ast.EntryExpr{
		fac.NewStructField(2, "single_int32", fac.NewLiteral(3, types.Int(1)), false),
	})
	expr := ast.NavigateAST(checkedFromExpr(root))
	s := expr.AsStruct()
	if s.TypeName() != "google.expr.proto3.test.TestAllTypes" {
		t.Errorf("TypeName() got %s, wanted TestAllTypes", s.TypeName())
	}
	field := s.Fields()[0].AsStructField()
	if field.Name() != "single_int32" {
		t.Errorf("Name() returned %s, wanted 'single_int32'", field.Name())
	}
	descendants := ast.MatchDescendants(expr, ast.AllMatcher())
	if len(descendants) != 2 {
		t.Errorf("MatchDescendants() returned %v, wanted 2", descendants)
	}
}

func TestNavigableComprehensionExpr(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewComprehension(1,
		fac.NewList(2, []ast.Expr{fac.NewLiteral(3, types.True)}, []int32{}),
		"i",
		"__result__",
		fac.NewLiteral(4, types.False),
		fac.NewCall(5, "@not_strictly_false", fac.NewCall(6, "!_", fac.NewAccuIdent(7))),
		fac.NewCall(8, "_||_", fac.NewAccuIdent(9), fac.NewIdent(10, "i")),
		fac.NewAccuIdent(11),
	)
	expr := ast.NavigateAST(checkedFromExpr(root))
	comp := expr.AsComprehension()
	if comp.IterVar() != "i" {
		t.Errorf("IterVar() got %s, wanted 'i'", comp.IterVar())
	}
	if comp.HasIterVar2() {
		t.Error("HasIterVar2() returned true, wanted false")
	}
	if comp.AccuVar() != "__result__" {
		t.Errorf("AccuVar() got %s, wanted '__result__'", comp.AccuVar())
	}
	if comp.AccuInit().AsLiteral() != types.False {
		t.Errorf("AccuInit() returned %v, wanted false", comp.AccuInit().AsLiteral())
	}
	if comp.Result().Kind() != ast.IdentKind {
		t.Errorf("Result() returned %v, wanted ident", comp.Result())
	}
	if comp.LoopCondition().Kind() != ast.CallKind {
		t.Errorf("LoopCondition() returned %v, wanted call", comp.LoopCondition())
	}
	if comp.LoopStep().Kind() != ast.CallKind {
		t.Errorf("LoopStep() returned %v, wanted call", comp.LoopStep())
	}
}

func TestNavigableSelectExpr(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewSelect(2, fac.NewIdent(1, "msg"), "single_int32")
	expr := ast.NavigateAST(checkedFromExpr(root))
	sel := expr.AsSelect()
	if sel.FieldName() != "single_int32" {
		t.Errorf("FieldName() got %s, wanted single_int32", sel.FieldName())
	}
	if sel.Operand().AsIdent() != "msg" {
		t.Errorf("Operand() got %v, wanted ident 'msg'", sel.Operand())
	}
	if sel.IsTestOnly() {
		t.Error("IsTestOnly() got true, wanted false")
	}
}

func TestNavigableSelectExprTestOnly(t *testing.T) {
	fac := ast.NewExprFactory()
	root := fac.NewPresenceTest(2, fac.NewIdent(1, "msg"), "single_int32")
	expr := ast.NavigateAST(checkedFromExpr(root))
	sel := expr.AsSelect()
	if !sel.IsTestOnly() {
		t.Error("IsTestOnly() got false, wanted true")
	}
}

