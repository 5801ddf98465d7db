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

// Package cel assembles the AST mutator and the constant-folding and common-subexpression-
// elimination optimizers behind a small driver, mirroring the shape of a full CEL environment
// without taking on parsing, type-checking, or evaluation themselves — those remain pluggable
// collaborators supplied by the embedding application.
package cel

import (
	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
)

// Ast wraps a checked or parsed expression together with the source it was produced from.
//
// Ast values are immutable and may be shared across goroutines; optimizers operate on a private
// copy of the underlying ast.AST.
type Ast struct {
	source common.Source
	impl   *ast.AST
}

// NewAst wraps a native ast.AST and its originating source into an Ast value.
func NewAst(source common.Source, impl *ast.AST) *Ast {
	return &Ast{source: source, impl: impl}
}

// NativeRep exposes the underlying ast.AST, for collaborators which need direct access to the
// expression tree, such as a Checker or Evaluator implementation.
func (a *Ast) NativeRep() *ast.AST {
	return a.impl
}

// Source returns the source the Ast was produced from.
func (a *Ast) Source() common.Source {
	return a.source
}

// IsChecked reports whether type-check metadata is present on the Ast.
func (a *Ast) IsChecked() bool {
	return a.impl.IsChecked()
}

// VariableDecl declares a single named variable and its static type.
type VariableDecl struct {
	Name string
	Type *types.Type
}

// Checker re-type-checks a parsed Ast within an Env, producing a checked Ast or Issues.
//
// Checker is a consumed, opaque collaborator: the optimization core neither parses nor assigns
// types on its own. When an Env carries no Checker, Check is a no-op that returns the input Ast
// unmodified, which is sufficient for callers that intend to re-check once after the full
// optimization pipeline rather than between every pass.
type Checker interface {
	Check(parsed *Ast, env *Env) (*Ast, *Issues)
}

// Env carries the variable and function declarations, plus optional Checker and Evaluator
// collaborators, that an optimization pass may need to re-type-check or fold a subexpression.
type Env struct {
	variables []*VariableDecl
	checker   Checker
	evaluator Evaluator
}

// NewEnv creates an empty Env.
func NewEnv() *Env {
	return &Env{}
}

// WithChecker returns a copy of the Env with the given Checker attached.
func (e *Env) WithChecker(c Checker) *Env {
	clone := *e
	clone.checker = c
	return &clone
}

// WithEvaluator returns a copy of the Env with the given Evaluator attached.
func (e *Env) WithEvaluator(ev Evaluator) *Env {
	clone := *e
	clone.evaluator = ev
	return &clone
}

// AddVariable returns a copy of the Env with the given variable declaration appended.
func (e *Env) AddVariable(decl *VariableDecl) *Env {
	clone := *e
	clone.variables = append(append([]*VariableDecl{}, e.variables...), decl)
	return &clone
}

// Variables returns the variable declarations registered on the Env.
func (e *Env) Variables() []*VariableDecl {
	return e.variables
}

// Evaluator returns the Evaluator collaborator attached to the Env, or nil.
func (e *Env) Evaluator() Evaluator {
	return e.evaluator
}

// Check re-type-checks the parsed Ast using the attached Checker, if any.
func (e *Env) Check(parsed *Ast) (*Ast, *Issues) {
	if e.checker == nil {
		return parsed, NewIssues(common.NewErrors())
	}
	return e.checker.Check(parsed, e)
}

// Issues accumulates errors encountered while optimizing or re-type-checking an Ast.
type Issues struct {
	errs *common.Errors
}

// NewIssues creates an empty Issues value backed by the given common.Errors collector.
func NewIssues(errs *common.Errors) *Issues {
	return &Issues{errs: errs}
}

// Err returns a non-nil error if any issues were reported.
func (i *Issues) Err() error {
	if i == nil || i.errs == nil || !i.errs.HasErrors() {
		return nil
	}
	return i.errs
}

// Report records a new issue at the given expression id.
func (i *Issues) Report(id int64, message string) {
	i.errs.ReportErrorAtID(id, message)
}
