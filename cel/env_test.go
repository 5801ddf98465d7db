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

	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
)

func TestEnvAddVariableImmutable(t *testing.T) {
	base := NewEnv()
	x := &VariableDecl{Name: "x", Type: types.IntType}
	withX := base.AddVariable(x)

	if len(base.Variables()) != 0 {
		t.Errorf("AddVariable() mutated the receiver: base.Variables() = %v", base.Variables())
	}
	if got := withX.Variables(); len(got) != 1 || got[0] != x {
		t.Errorf("withX.Variables() = %v, wanted [%v]", got, x)
	}

	y := &VariableDecl{Name: "y", Type: types.StringType}
	withXY := withX.AddVariable(y)
	if len(withX.Variables()) != 1 {
		t.Errorf("AddVariable() mutated withX: withX.Variables() = %v", withX.Variables())
	}
	if got := withXY.Variables(); len(got) != 2 || got[0] != x || got[1] != y {
		t.Errorf("withXY.Variables() = %v, wanted [%v %v]", got, x, y)
	}
}

type stubChecker struct {
	calledWithEnv *Env
	out           *Ast
	issues        *Issues
}

func (c *stubChecker) Check(parsed *Ast, env *Env) (*Ast, *Issues) {
	c.calledWithEnv = env
	return c.out, c.issues
}

func TestEnvCheckNoChecker(t *testing.T) {
	env := NewEnv()
	src := common.NewTextSource("test", "")
	fac := ast.NewExprFactory()
	parsed := NewAst(src, ast.NewAST(fac.NewLiteral(1, types.True), ast.NewSourceInfo(src)))

	checked, iss := env.Check(parsed)
	if checked != parsed {
		t.Errorf("Check() with no Checker returned a different Ast than its input")
	}
	if err := iss.Err(); err != nil {
		t.Errorf("Check() with no Checker reported an error: %v", err)
	}
}

func TestEnvWithChecker(t *testing.T) {
	base := NewEnv()
	src := common.NewTextSource("test", "")
	fac := ast.NewExprFactory()
	out := NewAst(src, ast.NewAST(fac.NewLiteral(1, types.False), ast.NewSourceInfo(src)))
	checker := &stubChecker{out: out, issues: NewIssues(common.NewErrors())}
	withChecker := base.WithChecker(checker)

	if base.checker != nil {
		t.Errorf("WithChecker() mutated the receiver")
	}

	parsed := NewAst(src, ast.NewAST(fac.NewLiteral(2, types.True), ast.NewSourceInfo(src)))
	checked, iss := withChecker.Check(parsed)
	if checked != out {
		t.Errorf("Check() did not delegate to the attached Checker's return value")
	}
	if iss.Err() != nil {
		t.Errorf("Check() reported an unexpected error: %v", iss.Err())
	}
	if checker.calledWithEnv != withChecker {
		t.Errorf("Check() did not pass the owning Env to the Checker")
	}
}

func TestEnvWithEvaluator(t *testing.T) {
	base := NewEnv()
	ev := LiteralEvaluator{}
	withEval := base.WithEvaluator(ev)

	if base.Evaluator() != nil {
		t.Errorf("WithEvaluator() mutated the receiver")
	}
	if withEval.Evaluator() != ev {
		t.Errorf("Evaluator() = %v, wanted %v", withEval.Evaluator(), ev)
	}
}

func TestIssuesReportAndErr(t *testing.T) {
	fresh := NewIssues(common.NewErrors())
	if err := fresh.Err(); err != nil {
		t.Errorf("fresh Issues.Err() = %v, wanted nil", err)
	}

	fresh.Report(1, "something went wrong")
	if err := fresh.Err(); err == nil {
		t.Errorf("Issues.Err() = nil after Report(), wanted a non-nil error")
	}
}

func TestIssuesErrNilReceiver(t *testing.T) {
	var iss *Issues
	if err := iss.Err(); err != nil {
		t.Errorf("nil *Issues.Err() = %v, wanted nil", err)
	}
}

func TestAstNativeRepAndSource(t *testing.T) {
	src := common.NewTextSource("demo", "1 + 1")
	fac := ast.NewExprFactory()
	impl := ast.NewAST(fac.NewLiteral(1, types.Int(2)), ast.NewSourceInfo(src))
	a := NewAst(src, impl)

	if a.Source() != src {
		t.Errorf("Source() = %v, wanted %v", a.Source(), src)
	}
	if a.NativeRep() != impl {
		t.Errorf("NativeRep() = %v, wanted %v", a.NativeRep(), impl)
	}
	if a.IsChecked() {
		t.Errorf("IsChecked() = true for an AST with no type map")
	}

	impl.SetType(1, types.IntType)
	if !a.IsChecked() {
		t.Errorf("IsChecked() = false after SetType()")
	}
}
