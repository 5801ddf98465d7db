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

import (
	"fmt"

	"github.com/google/cel-ast-optimizer/common/types"
)

// BindMacroName is the synthetic function name used to mark a comprehension as the encoding of
// a `cel.bind` macro call, so that later passes can recognize and, if desired, re-sugar it.
const BindMacroName = "cel.bind"

// BlockMacroName is the synthetic function name used to mark a call as the encoding of a flat
// `cel.@block` form, in which a list of subexpressions is evaluated before a final result
// expression that may reference them via `@index0, @index1, ...` identifiers.
const BlockMacroName = "cel.@block"

// unusedIterVar is the iteration variable name used by the synthetic, zero-iteration
// comprehension that encodes a `cel.bind` macro call.
const unusedIterVar = "#unused"

// ReplaceSubtreeWithNewBindMacro replaces the subtree rooted at id with a synthetic
// comprehension encoding `cel.bind(varName, varInit, result)`: a comprehension whose iteration
// range is empty, so the loop body never executes, and whose accumulator, named varName, is
// initialized to varInit and is in scope while result is evaluated as the comprehension
// result. idGen mints ids
// for the synthetic nodes introduced by the encoding.
func ReplaceSubtreeWithNewBindMacro(fac ExprFactory, a *AST, id int64, varName string, varInit, result Expr, idGen IDGenerator) bool {
	bindExpr := NewBindMacro(fac, idGen, varName, varInit, result)
	if a.SourceInfo() != nil {
		a.SourceInfo().SetMacroCall(bindExpr.ID(), fac.NewMemberCall(idGen(0), "bind",
			fac.NewIdent(idGen(0), "cel"), fac.NewIdent(idGen(0), varName), varInit, result))
	}
	return ReplaceSubtree(a.Expr(), id, bindExpr)
}

// NewBindMacro constructs the synthetic comprehension which encodes a `cel.bind` macro call.
func NewBindMacro(fac ExprFactory, idGen IDGenerator, varName string, varInit, result Expr) Expr {
	return fac.NewComprehension(
		idGen(0),
		fac.NewList(idGen(0), []Expr{}, []int32{}),
		unusedIterVar,
		varName,
		varInit,
		fac.NewLiteral(idGen(0), types.False),
		fac.NewIdent(idGen(0), varName),
		result,
	)
}

// IsBindMacro reports whether expr is a comprehension produced by NewBindMacro.
func IsBindMacro(expr Expr) bool {
	if expr.Kind() != ComprehensionKind {
		return false
	}
	c := expr.AsComprehension()
	return c.IterVar() == unusedIterVar
}

// WrapAstWithNewCelBlock rewrites the AST so that its root expression becomes a
// `cel.@block([subexpressions...], result)` call: the subexpressions are evaluated in order,
// in a scope where each may reference the results of earlier ones via `@index0, @index1, ...`
// identifiers, and the original AST root (with extracted subtrees replaced by those same
// identifiers) becomes the final result expression.
func WrapAstWithNewCelBlock(fac ExprFactory, a *AST, blockID int64, listID int64, subexpressions []Expr) {
	indexList := fac.NewList(listID, subexpressions, []int32{})
	blockCall := fac.NewCall(blockID, BlockMacroName, indexList, a.Expr())
	a.SetExpr(blockCall)
}

// ReplaceSubtree replaces the subtree rooted at the expression with the given id, wherever it
// occurs below root, with the replacement expression, and reports whether any replacement was
// made. root itself is never replaced. The replacement keeps its own id; SourceInfo is not
// consulted, so any metadata recorded for the replaced id is left as it is.
func ReplaceSubtree(root Expr, id int64, replacement Expr) bool {
	replaced := false
	PreOrderVisit(root, NewExprVisitor(func(e Expr) {
		replaceExprField(e, id, replacement, &replaced)
	}, nil))
	return replaced
}

// replaceExprField walks the direct children of e, replacing any child whose id matches id.
func replaceExprField(e Expr, id int64, replacement Expr, replaced *bool) {
	switch e.Kind() {
	case CallKind:
		c := e.AsCall()
		if c.IsMemberFunction() && c.Target() != nil && c.Target().ID() == id {
			setCallTarget(e, replacement)
			*replaced = true
		}
		args := c.Args()
		for i, arg := range args {
			if arg.ID() == id {
				args[i] = replacement
				*replaced = true
			}
		}
	case ComprehensionKind:
		c := e.AsComprehension()
		if c.IterRange().ID() == id {
			setComprehensionField(e, "iterRange", replacement)
			*replaced = true
		}
		if c.AccuInit().ID() == id {
			setComprehensionField(e, "accuInit", replacement)
			*replaced = true
		}
		if c.LoopCondition().ID() == id {
			setComprehensionField(e, "loopCond", replacement)
			*replaced = true
		}
		if c.LoopStep().ID() == id {
			setComprehensionField(e, "loopStep", replacement)
			*replaced = true
		}
		if c.Result().ID() == id {
			setComprehensionField(e, "result", replacement)
			*replaced = true
		}
	case ListKind:
		l := e.AsList()
		elems := l.Elements()
		for i, elem := range elems {
			if elem.ID() == id {
				elems[i] = replacement
				*replaced = true
			}
		}
	case MapKind:
		for _, entry := range e.AsMap().Entries() {
			me := entry.AsMapEntry()
			if me.Key().ID() == id {
				setMapEntryField(entry, true, replacement)
				*replaced = true
			}
			if me.Value().ID() == id {
				setMapEntryField(entry, false, replacement)
				*replaced = true
			}
		}
	case SelectKind:
		s := e.AsSelect()
		if s.Operand().ID() == id {
			setSelectOperand(e, replacement)
			*replaced = true
		}
	case StructKind:
		for _, field := range e.AsStruct().Fields() {
			sf := field.AsStructField()
			if sf.Value().ID() == id {
				setStructFieldValue(field, replacement)
				*replaced = true
			}
		}
	}
}

// setCallTarget, setComprehensionField, setMapEntryField, setSelectOperand, and
// setStructFieldValue mutate the concrete kind-case values produced by baseExprFactory in
// place. They rely on the kind-case structs being reachable via the unexported fields defined
// in expr.go, which live in the same package.
func setCallTarget(e Expr, target Expr) {
	call := e.(*expr).exprKindCase.(*baseCallExpr)
	call.target = target
}

func setComprehensionField(e Expr, field string, value Expr) {
	c := e.(*expr).exprKindCase.(*baseComprehensionExpr)
	switch field {
	case "iterRange":
		c.iterRange = value
	case "accuInit":
		c.accuInit = value
	case "loopCond":
		c.loopCond = value
	case "loopStep":
		c.loopStep = value
	case "result":
		c.result = value
	}
}

func setMapEntryField(entry EntryExpr, isKey bool, value Expr) {
	me := entry.(*entryExpr).entryExprKindCase.(*baseMapEntry)
	if isKey {
		me.key = value
	} else {
		me.value = value
	}
}

func setSelectOperand(e Expr, operand Expr) {
	sel := e.(*expr).exprKindCase.(*baseSelectExpr)
	sel.operand = operand
}

func setStructFieldValue(field EntryExpr, value Expr) {
	sf := field.(*entryExpr).entryExprKindCase.(*baseStructField)
	sf.value = value
}

// RenumberIDsConsecutively renumbers the ids of every expression and entry expression within
// the AST so that ids are consecutive starting from 1, in pre-order traversal order. The
// AST's SourceInfo offset ranges and macro calls are re-keyed to follow the new ids.
func RenumberIDsConsecutively(a *AST) {
	next := int64(1)
	idMap := make(map[int64]int64)
	gen := func() int64 {
		id := next
		next++
		return id
	}
	PreOrderVisit(a.Expr(), NewExprVisitor(
		func(e Expr) {
			old := e.ID()
			renumberExprID(e, gen())
			idMap[old] = e.ID()
		},
		func(entry EntryExpr) {
			old := entry.ID()
			renumberEntryID(entry, gen())
			idMap[old] = entry.ID()
		},
	))
	if a.SourceInfo() == nil {
		return
	}
	remapSourceInfo(a.SourceInfo(), idMap)
}

func renumberExprID(e Expr, id int64) {
	e.(*expr).id = id
}

func renumberEntryID(e EntryExpr, id int64) {
	e.(*entryExpr).id = id
}

func remapSourceInfo(info *SourceInfo, idMap map[int64]int64) {
	newRanges := make(map[int64]OffsetRange, len(info.offsetRanges))
	for old, r := range info.offsetRanges {
		if newID, found := idMap[old]; found {
			newRanges[newID] = r
		}
	}
	info.offsetRanges = newRanges

	newMacros := make(map[int64]Expr, len(info.macroCalls))
	for old, e := range info.macroCalls {
		if newID, found := idMap[old]; found {
			newMacros[newID] = e
		}
	}
	info.macroCalls = newMacros
}

// ClearExprIds produces a copy of the expression with every id set to zero, suitable for
// structural-equality comparisons which should ignore node identity.
func ClearExprIds(fac ExprFactory, e Expr) Expr {
	copied := fac.CopyExpr(e)
	PreOrderVisit(copied, NewExprVisitor(
		func(child Expr) { renumberExprID(child, 0) },
		func(entry EntryExpr) { renumberEntryID(entry, 0) },
	))
	return copied
}

// MangledVarInfo records the generated names for a single comprehension's bound variables,
// along with their original (pre-mangling) names, so callers may recover provenance or later
// re-type-check an extracted subexpression against the original variable types.
type MangledVarInfo struct {
	// OriginalIterVar, OriginalIterVar2, and OriginalAccuVar are the variable names as they
	// appeared before mangling. OriginalIterVar2 is empty when the comprehension bound only a
	// single iteration variable.
	OriginalIterVar  string
	OriginalIterVar2 string
	OriginalAccuVar  string

	// IterVar, IterVar2, and AccuVar are the mangled replacement names.
	IterVar  string
	IterVar2 string
	AccuVar  string
}

// MangleComprehensionIdentifierNames rewrites the iteration and accumulator variable names of
// every comprehension within expr to unique names of the form prefix + monotonically increasing
// index, honoring lexical scoping so that sibling comprehensions reusing the same original name
// still receive distinct mangled names. It returns the per-comprehension mangling applied, keyed
// by the comprehension's mangled accumulator variable name.
//
// This avoids accidental variable capture when expr is relocated into a new binding scope, such
// as during common subexpression extraction.
func MangleComprehensionIdentifierNames(fac ExprFactory, expr Expr, iterPrefix, iterPrefix2, accuPrefix string) map[string]*MangledVarInfo {
	m := &comprehensionMangler{
		iterPrefix:  iterPrefix,
		iterPrefix2: iterPrefix2,
		accuPrefix:  accuPrefix,
		info:        map[string]*MangledVarInfo{},
	}
	m.walk(expr, map[string]string{})
	return m.info
}

type comprehensionMangler struct {
	iterPrefix, iterPrefix2, accuPrefix string
	counter                             int
	info                                map[string]*MangledVarInfo
}

// walk rewrites e in place, renaming identifiers that resolve to a binding introduced by an
// enclosing comprehension within expr according to scope, which maps original names visible at
// this point in the tree to their mangled replacements.
func (m *comprehensionMangler) walk(e Expr, scope map[string]string) {
	if e == nil {
		return
	}
	switch e.Kind() {
	case IdentKind:
		if newName, found := scope[e.AsIdent()]; found {
			e.(*expr).exprKindCase = baseIdentExpr(newName)
		}
	case CallKind:
		c := e.AsCall()
		if c.IsMemberFunction() {
			m.walk(c.Target(), scope)
		}
		for _, arg := range c.Args() {
			m.walk(arg, scope)
		}
	case ListKind:
		for _, elem := range e.AsList().Elements() {
			m.walk(elem, scope)
		}
	case MapKind:
		for _, entry := range e.AsMap().Entries() {
			me := entry.AsMapEntry()
			m.walk(me.Key(), scope)
			m.walk(me.Value(), scope)
		}
	case StructKind:
		for _, field := range e.AsStruct().Fields() {
			m.walk(field.AsStructField().Value(), scope)
		}
	case SelectKind:
		m.walk(e.AsSelect().Operand(), scope)
	case ComprehensionKind:
		c := e.(*expr).exprKindCase.(*baseComprehensionExpr)
		// iterRange and accuInit are evaluated in the enclosing scope, before this
		// comprehension's own variables come into existence.
		m.walk(c.iterRange, scope)
		m.walk(c.accuInit, scope)

		info := &MangledVarInfo{
			OriginalIterVar: c.iterVar,
			OriginalAccuVar: c.accuVar,
			IterVar:         fmt.Sprintf("%s%d", m.iterPrefix, m.counter),
			AccuVar:         fmt.Sprintf("%s%d", m.accuPrefix, m.counter),
		}
		if c.HasIterVar2() {
			info.OriginalIterVar2 = c.iterVar2
			info.IterVar2 = fmt.Sprintf("%s%d", m.iterPrefix2, m.counter)
		}
		m.counter++

		childScope := make(map[string]string, len(scope)+3)
		for k, v := range scope {
			childScope[k] = v
		}
		childScope[c.iterVar] = info.IterVar
		if c.HasIterVar2() {
			childScope[c.iterVar2] = info.IterVar2
		}
		childScope[c.accuVar] = info.AccuVar

		c.iterVar = info.IterVar
		c.iterVar2 = info.IterVar2
		c.accuVar = info.AccuVar

		m.walk(c.loopCond, childScope)
		m.walk(c.loopStep, childScope)
		m.walk(c.result, childScope)

		m.info[info.AccuVar] = info
	}
}
