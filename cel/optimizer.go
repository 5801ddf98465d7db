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
	"github.com/golang/glog"

	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/types"
	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// StaticOptimizer runs a fixed sequence of ASTOptimizer passes over an Ast, one after another,
// renumbering expression ids and re-checking between passes so that each pass sees an AST whose
// metadata is as consistent as one produced fresh by a parser and checker would be.
//
// Expression ids assigned during optimization are best-effort: they are not guaranteed to match
// what a parser would have produced for equivalent source text, but they are internally
// consistent, which is what downstream consumers (unparsing, further optimization passes) depend
// on.
type StaticOptimizer struct {
	optimizers []ASTOptimizer
}

// NewStaticOptimizer builds a StaticOptimizer that applies the given passes, in order, to an Ast.
func NewStaticOptimizer(optimizers ...ASTOptimizer) *StaticOptimizer {
	return &StaticOptimizer{optimizers: optimizers}
}

// NewOptimizerPipeline builds the default StaticOptimizer: constant folding followed by
// common-subexpression elimination. Folding runs first so that a subexpression duplicated
// verbatim has already been reduced to its simplest form before CSE decides whether it is worth
// extracting.
func NewOptimizerPipeline(foldOpts []ConstantFoldingOption, cseOpts []SubexpressionOption) (*StaticOptimizer, error) {
	folder, err := NewConstantFoldingOptimizer(foldOpts...)
	if err != nil {
		return nil, err
	}
	cse, err := NewSubexpressionOptimizer(cseOpts...)
	if err != nil {
		return nil, err
	}
	return NewStaticOptimizer(folder, cse), nil
}

// Optimize runs each configured pass over a's expression tree in turn. If a pass reports an
// issue, optimization stops and the issue is returned; otherwise the fully optimized Ast is
// returned with a nil *Issues.
func (opt *StaticOptimizer) Optimize(env *Env, a *Ast) (*Ast, *Issues) {
	baseFac := ast.NewExprFactory()
	working := ast.Copy(a.impl, baseFac)

	ctx := &OptimizerContext{
		optimizerExprFactory: &optimizerExprFactory{
			idGenerator: newIDGenerator(a.impl.MaxID()),
			fac:         baseFac,
			sourceInfo:  working.SourceInfo(),
		},
		Env:    env,
		Issues: NewIssues(common.NewErrors()),
	}

	for _, pass := range opt.optimizers {
		glog.V(2).Infof("applying optimizer pass %T", pass)
		working = pass.Optimize(ctx, working)
		if ctx.Issues.Err() != nil {
			glog.Warningf("optimizer pass %T reported issues: %v", pass, ctx.Issues.Err())
			return nil, ctx.Issues
		}
		working = renumberPass(working)
		sanitizeMacroRefs(baseFac, working)

		rechecked, iss := ctx.Check(&Ast{source: a.Source(), impl: working})
		if iss.Err() != nil {
			glog.Warningf("re-checking after optimizer pass %T failed: %v", pass, iss.Err())
			return nil, iss
		}
		working = rechecked.impl
	}
	return &Ast{source: a.Source(), impl: working}, nil
}

// renumberPass assigns a fresh, stable set of ids to every node in an AST just produced by an
// optimizer pass, including the ids referenced by any macro call metadata, so that the next pass
// (or a final unparse) sees ids with no gaps or collisions left over from the rewrite.
func renumberPass(a *ast.AST) *ast.AST {
	stable := newIDGenerator(0)
	info := a.SourceInfo()
	expr := a.Expr()
	normalizeIDs(stable.renumberStable, expr, info)
	return ast.NewAST(expr, info)
}

// sanitizeMacroRefs clears the kind of any node that a macro call points to, replacing its
// content with an empty placeholder, so that macro bodies stored in SourceInfo never duplicate
// content that also lives in the primary expression tree. It then relinks every macro call's own
// internal node references against the (possibly renumbered) primary tree so the two stay
// coordinated.
func sanitizeMacroRefs(fac ast.ExprFactory, a *ast.AST) {
	info := a.SourceInfo()
	sanitized := fac.CopyExpr(a.Expr())
	renumberedByID := make(map[int64]ast.Expr)
	ast.PostOrderVisit(sanitized, ast.NewExprVisitor(func(e ast.Expr) {
		if _, isMacroTarget := info.GetMacroCall(e.ID()); isMacroTarget {
			e.SetKindCase(nil)
		}
		renumberedByID[e.ID()] = fac.CopyExpr(e)
	}, nil))

	for id, call := range info.MacroCalls() {
		relinkMacroCall(call, renumberedByID)
		info.SetMacroCall(id, call)
	}
}

// relinkMacroCall walks a macro's recorded call expression and swaps in the sanitized copy of
// each node it references, keeping macro metadata in step with the primary tree it describes.
func relinkMacroCall(call ast.Expr, renumberedByID map[int64]ast.Expr) {
	ast.PostOrderVisit(call, ast.NewExprVisitor(func(e ast.Expr) {
		if updated, found := renumberedByID[e.ID()]; found {
			e.SetKindCase(updated)
		}
	}, nil))
}

// normalizeIDs renumbers optimized's node ids via idGen, then brings info's macro call
// bookkeeping in step with the new numbering: first the keys under which each macro call is
// filed, then the ids referenced inside each call's own recorded body.
func normalizeIDs(idGen ast.IDGenerator, optimized ast.Expr, info *ast.SourceInfo) {
	optimized.RenumberIDs(idGen)

	renumbered := make(map[int64]ast.Expr, len(info.MacroCalls()))
	for id, call := range info.MacroCalls() {
		info.ClearMacroCall(id)
		renumbered[idGen(id)] = call
	}
	for id, call := range renumbered {
		call.RenumberIDs(idGen)
		info.SetMacroCall(id, call)
	}
}

// idGenerator mints expression ids above a seed value. renumberMonotonic assigns a fresh id to
// every non-zero input, even if it has been seen before; renumberStable assigns a fresh id the
// first time an input is seen and returns that same id on every later call with the same input.
type idGenerator struct {
	seed  int64
	idMap map[int64]int64
}

func newIDGenerator(seed int64) *idGenerator {
	return &idGenerator{seed: seed, idMap: make(map[int64]int64)}
}

func (gen *idGenerator) nextID() int64 {
	gen.seed++
	return gen.seed
}

func (gen *idGenerator) renumberMonotonic(id int64) int64 {
	if id == 0 {
		return 0
	}
	return gen.nextID()
}

func (gen *idGenerator) renumberStable(id int64) int64 {
	if id == 0 {
		return 0
	}
	if mapped, found := gen.idMap[id]; found {
		return mapped
	}
	mapped := gen.nextID()
	gen.idMap[id] = mapped
	return mapped
}

// OptimizerContext gives an ASTOptimizer pass everything it needs besides the AST itself: the
// declared-variable/checker/evaluator environment (*Env), an id-aware expression factory
// (*optimizerExprFactory) for building replacement nodes with ids consistent with the rest of the
// tree, and an issue sink (*Issues) for reporting problems encountered mid-pass.
type OptimizerContext struct {
	*Env
	*optimizerExprFactory
	*Issues
}

// ASTOptimizer rewrites an AST within the context of a single pass, reporting any problems
// through the OptimizerContext rather than via a return error.
type ASTOptimizer interface {
	Optimize(*OptimizerContext, *ast.AST) *ast.AST
}

// optimizerExprFactory wraps a plain ast.ExprFactory with automatic id assignment (via the
// embedded idGenerator) and access to the AST's SourceInfo, so that newly constructed nodes and
// macro call bookkeeping stay consistent with the tree being rewritten.
type optimizerExprFactory struct {
	*idGenerator
	fac        ast.ExprFactory
	sourceInfo *ast.SourceInfo
}

// CopyAST deep-copies a's expression and SourceInfo, renumbering every id in the copy with a
// fresh, self-consistent numbering so the result can be merged into another AST without id
// collisions. The factory's own id sequence is advanced past whatever the copy consumed.
func (opt *optimizerExprFactory) CopyAST(a *ast.AST) (ast.Expr, *ast.SourceInfo) {
	idGen := newIDGenerator(opt.nextID())
	defer func() { opt.seed = idGen.nextID() }()
	copyExpr := opt.fac.CopyExpr(a.Expr())
	copyInfo := ast.CopySourceInfo(a.SourceInfo())
	normalizeIDs(idGen.renumberStable, copyExpr, copyInfo)
	return copyExpr, copyInfo
}

// CopyExpr deep-copies e and assigns every node in the copy a fresh id, so the copy can be
// inserted elsewhere in the tree without aliasing the original's ids.
func (opt *optimizerExprFactory) CopyExpr(e ast.Expr) ast.Expr {
	copied := opt.fac.CopyExpr(e)
	copied.RenumberIDs(opt.renumberMonotonic)
	return copied
}

// NewBindMacro builds a cel.bind(varName, varInit, remaining)-shaped comprehension: a single
// iteration over an empty list whose accumulator is initialized to varInit under the name
// varName and whose result is remaining. macroID is the id of the call this bind replaces; it is
// used to file the unexpanded cel.bind(...) call into SourceInfo's macro metadata so the result
// can later be unparsed back to that shorthand.
func (opt *optimizerExprFactory) NewBindMacro(macroID int64, varName string, varInit, remaining ast.Expr) ast.Expr {
	varID := opt.nextID()

	varInit, recordedInit := opt.forkMacroExpr(varInit)
	remaining, recordedRemaining := opt.forkMacroExpr(remaining)

	opt.sourceInfo.SetMacroCall(macroID,
		opt.fac.NewMemberCall(0, "bind",
			opt.fac.NewIdent(opt.nextID(), "cel"),
			opt.fac.NewIdent(varID, varName),
			recordedInit,
			recordedRemaining))

	return opt.fac.NewComprehension(macroID,
		opt.fac.NewList(opt.nextID(), []ast.Expr{}, []int32{}),
		"#unused",
		varName,
		opt.fac.CopyExpr(varInit),
		opt.fac.NewLiteral(opt.nextID(), types.False),
		opt.fac.NewIdent(varID, varName),
		opt.fac.CopyExpr(remaining))
}

// NewCall builds a global function call, e.g. countByField(list, fieldName).
func (opt *optimizerExprFactory) NewCall(function string, args ...ast.Expr) ast.Expr {
	return opt.fac.NewCall(opt.nextID(), function, args...)
}

// NewMemberCall builds a receiver-style call, e.g. list.countByField(fieldName).
func (opt *optimizerExprFactory) NewMemberCall(function string, target ast.Expr, args ...ast.Expr) ast.Expr {
	return opt.fac.NewMemberCall(opt.nextID(), function, target, args...)
}

// NewIdent builds an identifier expression, e.g. simple_var_name or qualified.subpackage.name.
func (opt *optimizerExprFactory) NewIdent(name string) ast.Expr {
	return opt.fac.NewIdent(opt.nextID(), name)
}

// NewLiteral builds a literal expression from value. Unlike a literal produced by parsing, value
// may be any ref.Val an optimizer pass can produce, so long as it can still be rendered back as a
// literal.
func (opt *optimizerExprFactory) NewLiteral(value ref.Val) ast.Expr {
	return opt.fac.NewLiteral(opt.nextID(), value)
}

// NewList builds a list expression, e.g. [a, ?b, ?c] with optIndices naming the optional entries.
func (opt *optimizerExprFactory) NewList(elems []ast.Expr, optIndices []int32) ast.Expr {
	return opt.fac.NewList(opt.nextID(), elems, optIndices)
}

// NewMap builds a map expression from key/value entries.
func (opt *optimizerExprFactory) NewMap(entries []ast.EntryExpr) ast.Expr {
	return opt.fac.NewMap(opt.nextID(), entries)
}

// NewMapEntry builds one key/value entry of a map expression.
func (opt *optimizerExprFactory) NewMapEntry(key, value ast.Expr, isOptional bool) ast.EntryExpr {
	return opt.fac.NewMapEntry(opt.nextID(), key, value, isOptional)
}

// NewPresenceTest builds a has(operand.field) macro call with id macroID, recording the
// unexpanded has(...) call under macroID in SourceInfo so it can later be unparsed back to the
// has(...) shorthand.
func (opt *optimizerExprFactory) NewPresenceTest(macroID int64, operand ast.Expr, field string) ast.Expr {
	operand, recordedOperand := opt.forkMacroExpr(operand)

	opt.sourceInfo.SetMacroCall(macroID,
		opt.fac.NewCall(0, "has",
			opt.fac.NewSelect(opt.nextID(), recordedOperand, field)))

	return opt.fac.NewPresenceTest(macroID, opt.CopyExpr(operand), field)
}

// NewSelect builds a field-select expression, e.g. msg.field_name.
func (opt *optimizerExprFactory) NewSelect(operand ast.Expr, field string) ast.Expr {
	return opt.fac.NewSelect(opt.nextID(), operand, field)
}

// NewStruct builds a typed struct value, e.g. pkg.TypeName{field: value}.
func (opt *optimizerExprFactory) NewStruct(typeName string, fields []ast.EntryExpr) ast.Expr {
	return opt.fac.NewStruct(opt.nextID(), typeName, fields)
}

// NewStructField builds one field initialization of a struct value, e.g. {?count: x}.
func (opt *optimizerExprFactory) NewStructField(field string, value ast.Expr, isOptional bool) ast.EntryExpr {
	return opt.fac.NewStructField(opt.nextID(), field, value, isOptional)
}

// forkMacroExpr produces two independently-numbered copies of baseExpr: one (copyExpr) for
// splicing into the primary expression tree, and one (macroExpr) for filing under a macro call's
// recorded body in SourceInfo. The two must not share node ids, since SetKindCase on a node found
// by id in one copy must never be visible through the other.
//
// Any nested macro call that baseExpr itself referenced is relocated to the new id its target
// node received, and macroExpr has that target node's content cleared to an empty placeholder —
// a macro body records a pointer to a nested macro's call site, not the nested macro's expansion.
func (opt *optimizerExprFactory) forkMacroExpr(baseExpr ast.Expr) (copyExpr, macroExpr ast.Expr) {
	idGen := newIDGenerator(opt.nextID())
	defer func() { opt.seed = idGen.nextID() }()

	copyExpr = opt.fac.CopyExpr(baseExpr)
	copyExpr.RenumberIDs(idGen.renumberStable)

	oldToNew := make(map[int64]int64)
	newToOld := make(map[int64]int64)
	ast.PreOrderVisit(baseExpr, ast.NewExprVisitor(func(e ast.Expr) {
		call, isNestedMacro := opt.sourceInfo.GetMacroCall(e.ID())
		if !isNestedMacro {
			return
		}
		newID := idGen.renumberStable(e.ID())
		oldToNew[e.ID()] = newID
		newToOld[newID] = e.ID()
		opt.sourceInfo.SetMacroCall(newID, call)
		opt.sourceInfo.ClearMacroCall(e.ID())
	}, nil))

	macroExpr = opt.fac.CopyExpr(copyExpr)
	ast.PreOrderVisit(macroExpr, ast.NewExprVisitor(func(e ast.Expr) {
		if _, isNestedMacroTarget := newToOld[e.ID()]; isNestedMacroTarget {
			e.SetKindCase(nil)
		}
	}, nil))

	// The nested macro calls' own bodies still reference the pre-renumbering target id; retarget
	// them to the id assigned above.
	retarget := ast.NewExprVisitor(func(e ast.Expr) {
		if newID, found := oldToNew[e.ID()]; found {
			e.RenumberIDs(func(int64) int64 { return newID })
		}
	}, nil)
	for _, call := range opt.sourceInfo.MacroCalls() {
		ast.PostOrderVisit(call, retarget)
	}
	return
}
