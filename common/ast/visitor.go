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

package ast

// ExprVisitor defines the callback invoked for each expression node visited by PreOrderVisit
// and PostOrderVisit.
type ExprVisitor interface {
	// VisitExpr visits the given expression.
	VisitExpr(Expr)

	// VisitEntryExpr visits the given map entry or struct field expression.
	VisitEntryExpr(EntryExpr)
}

type exprVisitor struct {
	visitExpr      func(Expr)
	visitEntryExpr func(EntryExpr)
}

// NewExprVisitor creates an ExprVisitor from a pair of callback functions. Either may be nil.
func NewExprVisitor(visitExpr func(Expr), visitEntryExpr func(EntryExpr)) ExprVisitor {
	return &exprVisitor{visitExpr: visitExpr, visitEntryExpr: visitEntryExpr}
}

func (v *exprVisitor) VisitExpr(e Expr) {
	if v.visitExpr != nil {
		v.visitExpr(e)
	}
}

func (v *exprVisitor) VisitEntryExpr(e EntryExpr) {
	if v.visitEntryExpr != nil {
		v.visitEntryExpr(e)
	}
}

// PreOrderVisit traverses the expression graph rooted at expr, invoking the visitor on each
// node before visiting its children.
func PreOrderVisit(expr Expr, visitor ExprVisitor) {
	visitExpr(expr, visitor, true)
}

// PostOrderVisit traverses the expression graph rooted at expr, invoking the visitor on each
// node after visiting its children.
func PostOrderVisit(expr Expr, visitor ExprVisitor) {
	visitExpr(expr, visitor, false)
}

func visitExpr(expr Expr, visitor ExprVisitor, preOrder bool) {
	if expr == nil || expr.Kind() == UnspecifiedExprKind {
		return
	}
	if preOrder {
		visitor.VisitExpr(expr)
	}
	switch expr.Kind() {
	case CallKind:
		c := expr.AsCall()
		if c.IsMemberFunction() {
			visitExpr(c.Target(), visitor, preOrder)
		}
		for _, arg := range c.Args() {
			visitExpr(arg, visitor, preOrder)
		}
	case ComprehensionKind:
		c := expr.AsComprehension()
		visitExpr(c.IterRange(), visitor, preOrder)
		visitExpr(c.AccuInit(), visitor, preOrder)
		visitExpr(c.LoopCondition(), visitor, preOrder)
		visitExpr(c.LoopStep(), visitor, preOrder)
		visitExpr(c.Result(), visitor, preOrder)
	case ListKind:
		for _, elem := range expr.AsList().Elements() {
			visitExpr(elem, visitor, preOrder)
		}
	case MapKind:
		for _, entry := range expr.AsMap().Entries() {
			visitEntryExpr(entry, visitor, preOrder)
		}
	case SelectKind:
		visitExpr(expr.AsSelect().Operand(), visitor, preOrder)
	case StructKind:
		for _, field := range expr.AsStruct().Fields() {
			visitEntryExpr(field, visitor, preOrder)
		}
	}
	if !preOrder {
		visitor.VisitExpr(expr)
	}
}

func visitEntryExpr(entry EntryExpr, visitor ExprVisitor, preOrder bool) {
	if preOrder {
		visitor.VisitEntryExpr(entry)
	}
	switch entry.Kind() {
	case MapEntryKind:
		e := entry.AsMapEntry()
		visitExpr(e.Key(), visitor, preOrder)
		visitExpr(e.Value(), visitor, preOrder)
	case StructFieldKind:
		visitExpr(entry.AsStructField().Value(), visitor, preOrder)
	}
	if !preOrder {
		visitor.VisitEntryExpr(entry)
	}
}
