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
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/stdlib"
	"github.com/google/cel-ast-optimizer/common/types"
)

// defaultInlineIterations bounds the common-subexpression-elimination fixed-point loop.
const defaultInlineIterations = 500

// mangledIterPrefix, mangledIterPrefix2, and mangledAccuPrefix name the default prefixes used
// to mangle comprehension-bound identifiers ahead of subexpression extraction, so that a
// mangled name like @it0 unambiguously names the first comprehension's iteration variable.
const (
	mangledIterPrefix  = "@it"
	mangledIterPrefix2 = "@it2"
	mangledAccuPrefix  = "@ac"
)

// blockIndexPrefix and bindIdentPrefix name the synthetic identifiers introduced for extracted
// subexpressions, depending on whether the flat cel.@block form or the nested cel.bind form is
// emitted.
const (
	blockIndexPrefix = "@index"
	bindIdentPrefix  = "@r"
)

// SubexpressionOption configures a subexpressionOptimizer produced by
// NewSubexpressionOptimizer.
type SubexpressionOption func(*subexpressionOptimizer) error

// MaxInlineIterations overrides the default bound (500) on the CSE fixed-point loop.
func MaxInlineIterations(n int) SubexpressionOption {
	return func(opt *subexpressionOptimizer) error {
		if n < 0 {
			return fmt.Errorf("max inline iterations must be non-negative, got %d", n)
		}
		opt.maxIterations = n
		return nil
	}
}

// EliminableFunctions overrides the default eliminable-functions set (stdlib.Functions()).
func EliminableFunctions(functions []string) SubexpressionOption {
	return func(opt *subexpressionOptimizer) error {
		if len(functions) == 0 {
			return fmt.Errorf("eliminable function set must not be empty")
		}
		set := make(map[string]bool, len(functions))
		for _, f := range functions {
			set[f] = true
		}
		opt.eliminableFunctions = set
		return nil
	}
}

// MaxRecursionDepth bounds the height of the AST remaining after extraction, per spec §4.5 rule
// 2: candidates taller than depth are only considered once no duplicate candidate within the
// bound can be found, at which point the tallest eligible node is forced out to shrink the tree.
// A non-positive value (the default) disables the bound.
func MaxRecursionDepth(depth int) SubexpressionOption {
	return func(opt *subexpressionOptimizer) error {
		opt.maxRecursionDepth = depth
		return nil
	}
}

// EnableCelBlock selects between the flat cel.@block output form (default, true) and the nested
// cel.bind fallback form (false) described in spec §9's open questions, for callers whose
// runtime has no block support.
func EnableCelBlock(enabled bool) SubexpressionOption {
	return func(opt *subexpressionOptimizer) error {
		opt.enableCelBlock = enabled
		return nil
	}
}

// subexpressionOptimizer implements the common-subexpression-elimination search, scope checks,
// and block/bind construction of spec §4.5.
type subexpressionOptimizer struct {
	maxIterations       int
	eliminableFunctions map[string]bool
	maxRecursionDepth   int
	enableCelBlock      bool
}

// NewSubexpressionOptimizer creates an ASTOptimizer which factors duplicated subexpressions out
// into either a flat cel.@block or nested cel.bind form, as described by the package
// documentation.
func NewSubexpressionOptimizer(opts ...SubexpressionOption) (ASTOptimizer, error) {
	opt := &subexpressionOptimizer{
		maxIterations:       defaultInlineIterations,
		eliminableFunctions: defaultEliminableFunctions(),
		maxRecursionDepth:   -1,
		enableCelBlock:      true,
	}
	for _, o := range opts {
		if err := o(opt); err != nil {
			return nil, err
		}
	}
	return opt, nil
}

func defaultEliminableFunctions() map[string]bool {
	set := make(map[string]bool)
	for _, f := range stdlib.Functions() {
		set[f] = true
	}
	return set
}

// Optimize implements the ASTOptimizer interface.
//
// Like the constant-folding optimizer, this mutates a in place: the driver expects every pass
// to keep returning the same SourceInfo instance it started with, since that instance is also
// the one ctx.sourceInfo mints new macro-call metadata against.
func (opt *subexpressionOptimizer) Optimize(ctx *OptimizerContext, a *ast.AST) *ast.AST {
	working := a
	mangled := ast.MangleComprehensionIdentifierNames(ctx.fac, working.Expr(), mangledIterPrefix, mangledIterPrefix2, mangledAccuPrefix)
	mangledNames := mangledNameSet(mangled)

	var subexpressions []ast.Expr
	exceeded := opt.maxIterations == 0
	for i := 0; i < opt.maxIterations; i++ {
		extracted, ok := opt.extractOnce(ctx, working, mangledNames, len(subexpressions))
		if !ok {
			break
		}
		subexpressions = append(subexpressions, extracted)
		if i == opt.maxIterations-1 {
			exceeded = true
		}
	}
	if len(subexpressions) == 0 {
		return working
	}
	if exceeded {
		ctx.Issues.Report(working.Expr().ID(),
			fmt.Sprintf("subexpression elimination exceeded the configured limit of %d iterations", opt.maxIterations))
		return working
	}
	return opt.finish(ctx, working, mangled, subexpressions)
}

func mangledNameSet(mangled map[string]*ast.MangledVarInfo) map[string]bool {
	set := make(map[string]bool, len(mangled)*2)
	for _, info := range mangled {
		set[info.IterVar] = true
		if info.IterVar2 != "" {
			set[info.IterVar2] = true
		}
		set[info.AccuVar] = true
	}
	return set
}

// extractOnce performs at most one round of spec §4.5's main loop: it enumerates eliminable
// nodes, finds the first duplicate-subexpression candidate set (or, failing that, the tallest
// eligible node if the tree exceeds the configured recursion depth), rewrites every node in the
// set to a fresh @indexK identifier, and returns the canonical subexpression that was extracted.
func (opt *subexpressionOptimizer) extractOnce(ctx *OptimizerContext, working *ast.AST, mangledNames map[string]bool, nextIndex int) (ast.Expr, bool) {
	root := ast.NavigateAST(working)
	collector := &cseCollector{mangledNames: mangledNames, eliminableFunctions: opt.eliminableFunctions}
	eligible := collector.collect(root)

	restricted := eligible
	if opt.maxRecursionDepth > 0 {
		restricted = nil
		for _, n := range eligible {
			if n.Height() <= opt.maxRecursionDepth {
				restricted = append(restricted, n)
			}
		}
	}

	if candidateSet, ok := firstDuplicateSet(ctx, restricted); ok {
		return opt.extractSet(ctx, working, candidateSet, nextIndex)
	}

	if opt.maxRecursionDepth > 0 && len(eligible) > 0 {
		tooTall := false
		for _, n := range root.AllNodes() {
			if n.Height() > opt.maxRecursionDepth {
				tooTall = true
				break
			}
		}
		if tooTall {
			tallest := eligible[0]
			for _, n := range eligible[1:] {
				if n.Height() > tallest.Height() {
					tallest = n
				}
			}
			return opt.extractSet(ctx, working, []ast.NavigableExpr{tallest}, nextIndex)
		}
	}
	return nil, false
}

// extractSet replaces every node in candidateSet with a reference to nextIndex, and returns the
// canonical subexpression that should be pushed onto the subexpressions list at that index.
func (opt *subexpressionOptimizer) extractSet(ctx *OptimizerContext, working *ast.AST, candidateSet []ast.NavigableExpr, nextIndex int) (ast.Expr, bool) {
	canonical := ctx.CopyExpr(candidateSet[0])
	index := blockIndexPrefix + strconv.Itoa(nextIndex)
	for _, nav := range candidateSet {
		ident := ctx.NewIdent(index)
		if nav.ID() == working.Expr().ID() {
			working.SetExpr(ident)
			continue
		}
		if !ast.ReplaceSubtree(working.Expr(), nav.ID(), ident) {
			ctx.Issues.Report(nav.ID(),
				fmt.Sprintf("INTERNAL_ERROR: subexpression elimination: target id %d not found while extracting %s", nav.ID(), index))
		}
	}
	return canonical, true
}

// cseCollector enumerates eliminable nodes in pre-order, implementing canEliminate(node) from
// spec §4.5.
type cseCollector struct {
	mangledNames        map[string]bool
	eliminableFunctions map[string]bool
}

func (c *cseCollector) collect(nav ast.NavigableExpr) []ast.NavigableExpr {
	var out []ast.NavigableExpr
	c.walk(nav, false, &out)
	return out
}

func (c *cseCollector) walk(nav ast.NavigableExpr, inAccuOrCond bool, out *[]ast.NavigableExpr) {
	if nav == nil {
		return
	}
	if c.eligible(nav, inAccuOrCond) {
		*out = append(*out, nav)
	}
	if nav.Kind() == ast.ComprehensionKind {
		children := nav.Children() // iterRange, accuInit, loopCondition, loopStep, result
		c.walk(children[0], inAccuOrCond, out)
		c.walk(children[1], true, out)
		c.walk(children[2], true, out)
		c.walk(children[3], inAccuOrCond, out)
		c.walk(children[4], inAccuOrCond, out)
		return
	}
	for _, child := range nav.Children() {
		c.walk(child, inAccuOrCond, out)
	}
}

func (c *cseCollector) eligible(nav ast.NavigableExpr, inAccuOrCond bool) bool {
	if inAccuOrCond {
		return false
	}
	switch nav.Kind() {
	case ast.LiteralKind, ast.IdentKind:
		return false
	case ast.SelectKind:
		if nav.AsSelect().IsTestOnly() {
			return false
		}
	case ast.ListKind:
		if len(nav.AsList().Elements()) == 0 {
			return false
		}
	}
	if !allFunctionsEliminable(nav, c.eliminableFunctions) {
		return false
	}
	if hasFreeMangledReference(nav, c.mangledNames) {
		return false
	}
	return true
}

func allFunctionsEliminable(nav ast.NavigableExpr, eliminable map[string]bool) bool {
	for _, n := range nav.AllNodes() {
		if n.Kind() == ast.CallKind && !eliminable[n.AsCall().FunctionName()] {
			return false
		}
	}
	return true
}

// hasFreeMangledReference reports whether expr's subtree refers to a mangled comprehension
// variable that is not bound by a comprehension nested within expr itself — i.e. a reference to
// a still-enclosing comprehension's variable, which would dangle if expr were hoisted above it.
func hasFreeMangledReference(expr ast.Expr, mangledNames map[string]bool) bool {
	return hasFreeMangledReferenceScoped(expr, mangledNames, nil)
}

func hasFreeMangledReferenceScoped(e ast.Expr, mangledNames, bound map[string]bool) bool {
	if e == nil {
		return false
	}
	switch e.Kind() {
	case ast.IdentKind:
		name := e.AsIdent()
		return mangledNames[name] && !bound[name]
	case ast.SelectKind:
		return hasFreeMangledReferenceScoped(e.AsSelect().Operand(), mangledNames, bound)
	case ast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() && hasFreeMangledReferenceScoped(call.Target(), mangledNames, bound) {
			return true
		}
		for _, arg := range call.Args() {
			if hasFreeMangledReferenceScoped(arg, mangledNames, bound) {
				return true
			}
		}
		return false
	case ast.ListKind:
		for _, elem := range e.AsList().Elements() {
			if hasFreeMangledReferenceScoped(elem, mangledNames, bound) {
				return true
			}
		}
		return false
	case ast.MapKind:
		for _, entry := range e.AsMap().Entries() {
			me := entry.AsMapEntry()
			if hasFreeMangledReferenceScoped(me.Key(), mangledNames, bound) {
				return true
			}
			if hasFreeMangledReferenceScoped(me.Value(), mangledNames, bound) {
				return true
			}
		}
		return false
	case ast.StructKind:
		for _, field := range e.AsStruct().Fields() {
			if hasFreeMangledReferenceScoped(field.AsStructField().Value(), mangledNames, bound) {
				return true
			}
		}
		return false
	case ast.ComprehensionKind:
		c := e.AsComprehension()
		if hasFreeMangledReferenceScoped(c.IterRange(), mangledNames, bound) {
			return true
		}
		if hasFreeMangledReferenceScoped(c.AccuInit(), mangledNames, bound) {
			return true
		}
		childBound := make(map[string]bool, len(bound)+3)
		for k := range bound {
			childBound[k] = true
		}
		childBound[c.IterVar()] = true
		if c.HasIterVar2() {
			childBound[c.IterVar2()] = true
		}
		childBound[c.AccuVar()] = true
		if hasFreeMangledReferenceScoped(c.LoopCondition(), mangledNames, childBound) {
			return true
		}
		if hasFreeMangledReferenceScoped(c.LoopStep(), mangledNames, childBound) {
			return true
		}
		return hasFreeMangledReferenceScoped(c.Result(), mangledNames, childBound)
	default:
		return false
	}
}

// firstDuplicateSet finds the first pair of semantically-equal nodes in pre-order and returns
// the full set of nodes equal to them.
func firstDuplicateSet(ctx *OptimizerContext, nodes []ast.NavigableExpr) ([]ast.NavigableExpr, bool) {
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if exprEquivalent(ctx, nodes[i], nodes[j]) {
				var set []ast.NavigableExpr
				for _, n := range nodes {
					if exprEquivalent(ctx, nodes[i], n) {
						set = append(set, n)
					}
				}
				return set, true
			}
		}
	}
	return nil, false
}

// exprEquivalent implements spec §4.5's semantic equality ≡: equal after clearExprIds and after
// collapsing every SELECT.testOnly = true to false in both trees.
func exprEquivalent(ctx *OptimizerContext, a, b ast.Expr) bool {
	return reflect.DeepEqual(normalizeForEquivalence(ctx.fac, a), normalizeForEquivalence(ctx.fac, b))
}

func normalizeForEquivalence(fac ast.ExprFactory, e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	switch e.Kind() {
	case ast.LiteralKind:
		return fac.NewLiteral(0, e.AsLiteral())
	case ast.IdentKind:
		return fac.NewIdent(0, e.AsIdent())
	case ast.SelectKind:
		sel := e.AsSelect()
		return fac.NewSelect(0, normalizeForEquivalence(fac, sel.Operand()), sel.FieldName())
	case ast.CallKind:
		call := e.AsCall()
		args := make([]ast.Expr, len(call.Args()))
		for i, arg := range call.Args() {
			args[i] = normalizeForEquivalence(fac, arg)
		}
		if call.IsMemberFunction() {
			return fac.NewMemberCall(0, call.FunctionName(), normalizeForEquivalence(fac, call.Target()), args...)
		}
		return fac.NewCall(0, call.FunctionName(), args...)
	case ast.ListKind:
		l := e.AsList()
		elems := make([]ast.Expr, len(l.Elements()))
		for i, elem := range l.Elements() {
			elems[i] = normalizeForEquivalence(fac, elem)
		}
		return fac.NewList(0, elems, l.OptionalIndices())
	case ast.MapKind:
		m := e.AsMap()
		entries := make([]ast.EntryExpr, len(m.Entries()))
		for i, entry := range m.Entries() {
			me := entry.AsMapEntry()
			entries[i] = fac.NewMapEntry(0, normalizeForEquivalence(fac, me.Key()), normalizeForEquivalence(fac, me.Value()), me.IsOptional())
		}
		return fac.NewMap(0, entries)
	case ast.StructKind:
		s := e.AsStruct()
		fields := make([]ast.EntryExpr, len(s.Fields()))
		for i, f := range s.Fields() {
			sf := f.AsStructField()
			fields[i] = fac.NewStructField(0, sf.Name(), normalizeForEquivalence(fac, sf.Value()), sf.IsOptional())
		}
		return fac.NewStruct(0, s.TypeName(), fields)
	case ast.ComprehensionKind:
		c := e.AsComprehension()
		if c.HasIterVar2() {
			return fac.NewComprehensionTwoVar(0, normalizeForEquivalence(fac, c.IterRange()), c.IterVar(), c.IterVar2(), c.AccuVar(),
				normalizeForEquivalence(fac, c.AccuInit()), normalizeForEquivalence(fac, c.LoopCondition()),
				normalizeForEquivalence(fac, c.LoopStep()), normalizeForEquivalence(fac, c.Result()))
		}
		return fac.NewComprehension(0, normalizeForEquivalence(fac, c.IterRange()), c.IterVar(), c.AccuVar(),
			normalizeForEquivalence(fac, c.AccuInit()), normalizeForEquivalence(fac, c.LoopCondition()),
			normalizeForEquivalence(fac, c.LoopStep()), normalizeForEquivalence(fac, c.Result()))
	default:
		return fac.NewUnspecifiedExpr(0)
	}
}

// finish implements the finishing phase of spec §4.5: it declares variables for the mangled
// comprehension identifiers and the extracted @indexK subexpressions, commits them to the
// optimizer's Env so the driver's post-pass re-check succeeds, builds the flat block or nested
// bind form, and verifies the post-invariants before returning.
func (opt *subexpressionOptimizer) finish(ctx *OptimizerContext, working *ast.AST, mangled map[string]*ast.MangledVarInfo, subexpressions []ast.Expr) *ast.AST {
	env := ctx.Env
	for _, info := range sortedMangledInfos(mangled) {
		env = env.AddVariable(&VariableDecl{Name: info.IterVar, Type: identType(working, info.IterVar)})
		if info.IterVar2 != "" {
			env = env.AddVariable(&VariableDecl{Name: info.IterVar2, Type: identType(working, info.IterVar2)})
		}
		env = env.AddVariable(&VariableDecl{Name: info.AccuVar, Type: identType(working, info.AccuVar)})
	}
	for k, sub := range subexpressions {
		subType := opt.checkSubexprType(ctx, env, sub)
		env = env.AddVariable(&VariableDecl{Name: fmt.Sprintf("%s%d", blockIndexPrefix, k), Type: subType})
	}
	ctx.Env = env

	if opt.enableCelBlock {
		blockID := ctx.nextID()
		listID := ctx.nextID()
		ast.WrapAstWithNewCelBlock(ctx.fac, working, blockID, listID, subexpressions)
		working.SourceInfo().AddExtension("cel_block v1.1 runtime")
	} else {
		working.SetExpr(opt.buildBindForm(ctx, working.Expr(), subexpressions))
	}

	opt.verifyPostconditions(ctx, working)
	return working
}

func sortedMangledInfos(mangled map[string]*ast.MangledVarInfo) []*ast.MangledVarInfo {
	infos := make([]*ast.MangledVarInfo, 0, len(mangled))
	for _, info := range mangled {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return mangledSuffix(infos[i].AccuVar) < mangledSuffix(infos[j].AccuVar)
	})
	return infos
}

func mangledSuffix(name string) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	n, _ := strconv.Atoi(name[i:])
	return n
}

// identType scans root for an identifier occurrence matching name and returns its checked type,
// falling back to DynType if the name is never referenced (e.g. an unused accumulator).
func identType(working *ast.AST, name string) *types.Type {
	var found *types.Type
	ast.PreOrderVisit(working.Expr(), ast.NewExprVisitor(func(e ast.Expr) {
		if found != nil || e.Kind() != ast.IdentKind || e.AsIdent() != name {
			return
		}
		found = working.GetType(e.ID())
	}, nil))
	if found == nil {
		return types.DynType
	}
	return found
}

// checkSubexprType re-type-checks a single extracted subexpression against env using the
// Env's attached Checker, if any, returning its result type (or DynType if no Checker is
// configured, or if re-checking fails — in the latter case an issue is also reported).
func (opt *subexpressionOptimizer) checkSubexprType(ctx *OptimizerContext, env *Env, sub ast.Expr) *types.Type {
	src := common.NewTextSource("<extracted-subexpression>", "")
	parsed := NewAst(src, ast.NewAST(ctx.fac.CopyExpr(sub), ast.NewSourceInfo(src)))
	checked, iss := env.Check(parsed)
	if iss.Err() != nil {
		ctx.Issues.Report(sub.ID(), fmt.Sprintf("subexpression elimination: re-type-checking an extracted subexpression failed: %v", iss.Err()))
		return types.DynType
	}
	return checked.NativeRep().GetType(checked.NativeRep().Expr().ID())
}

// buildBindForm nests the extracted subexpressions as cel.bind bindings, innermost (highest
// index) first, renaming each @indexK identifier to the bind form's @rK convention as it goes.
func (opt *subexpressionOptimizer) buildBindForm(ctx *OptimizerContext, root ast.Expr, subexpressions []ast.Expr) ast.Expr {
	result := root
	for k := len(subexpressions) - 1; k >= 0; k-- {
		oldName := fmt.Sprintf("%s%d", blockIndexPrefix, k)
		newName := fmt.Sprintf("%s%d", bindIdentPrefix, k)
		rename := map[string]string{oldName: newName}
		result = renameIdents(ctx.fac, result, rename)
		for j := k + 1; j < len(subexpressions); j++ {
			subexpressions[j] = renameIdents(ctx.fac, subexpressions[j], rename)
		}
		result = ctx.NewBindMacro(ctx.nextID(), newName, subexpressions[k], result)
	}
	return result
}

// renameIdents returns a copy of e with every identifier named in rename replaced, preserving
// ids and every other node's shape.
func renameIdents(fac ast.ExprFactory, e ast.Expr, rename map[string]string) ast.Expr {
	if e == nil {
		return e
	}
	switch e.Kind() {
	case ast.IdentKind:
		if newName, ok := rename[e.AsIdent()]; ok {
			return fac.NewIdent(e.ID(), newName)
		}
		return e
	case ast.SelectKind:
		sel := e.AsSelect()
		operand := renameIdents(fac, sel.Operand(), rename)
		if sel.IsTestOnly() {
			return fac.NewPresenceTest(e.ID(), operand, sel.FieldName())
		}
		return fac.NewSelect(e.ID(), operand, sel.FieldName())
	case ast.CallKind:
		call := e.AsCall()
		args := make([]ast.Expr, len(call.Args()))
		for i, arg := range call.Args() {
			args[i] = renameIdents(fac, arg, rename)
		}
		if call.IsMemberFunction() {
			return fac.NewMemberCall(e.ID(), call.FunctionName(), renameIdents(fac, call.Target(), rename), args...)
		}
		return fac.NewCall(e.ID(), call.FunctionName(), args...)
	case ast.ListKind:
		l := e.AsList()
		elems := make([]ast.Expr, len(l.Elements()))
		for i, elem := range l.Elements() {
			elems[i] = renameIdents(fac, elem, rename)
		}
		return fac.NewList(e.ID(), elems, l.OptionalIndices())
	case ast.MapKind:
		m := e.AsMap()
		entries := make([]ast.EntryExpr, len(m.Entries()))
		for i, entry := range m.Entries() {
			me := entry.AsMapEntry()
			entries[i] = fac.NewMapEntry(entry.ID(), renameIdents(fac, me.Key(), rename), renameIdents(fac, me.Value(), rename), me.IsOptional())
		}
		return fac.NewMap(e.ID(), entries)
	case ast.StructKind:
		s := e.AsStruct()
		fields := make([]ast.EntryExpr, len(s.Fields()))
		for i, f := range s.Fields() {
			sf := f.AsStructField()
			fields[i] = fac.NewStructField(f.ID(), sf.Name(), renameIdents(fac, sf.Value(), rename), sf.IsOptional())
		}
		return fac.NewStruct(e.ID(), s.TypeName(), fields)
	case ast.ComprehensionKind:
		c := e.AsComprehension()
		if c.HasIterVar2() {
			return fac.NewComprehensionTwoVar(e.ID(), renameIdents(fac, c.IterRange(), rename), c.IterVar(), c.IterVar2(), c.AccuVar(),
				renameIdents(fac, c.AccuInit(), rename), renameIdents(fac, c.LoopCondition(), rename),
				renameIdents(fac, c.LoopStep(), rename), renameIdents(fac, c.Result(), rename))
		}
		return fac.NewComprehension(e.ID(), renameIdents(fac, c.IterRange(), rename), c.IterVar(), c.AccuVar(),
			renameIdents(fac, c.AccuInit(), rename), renameIdents(fac, c.LoopCondition(), rename),
			renameIdents(fac, c.LoopStep(), rename), renameIdents(fac, c.Result(), rename))
	default:
		return e
	}
}

// verifyPostconditions checks the block-form invariants of spec §4.5 and reports an
// INTERNAL_ERROR-class issue if any is violated.
func (opt *subexpressionOptimizer) verifyPostconditions(ctx *OptimizerContext, working *ast.AST) {
	if !opt.enableCelBlock {
		return
	}
	root := working.Expr()
	if root.Kind() != ast.CallKind || root.AsCall().FunctionName() != ast.BlockMacroName {
		ctx.Issues.Report(root.ID(), "subexpression elimination: block form root is not a cel.@block call")
		return
	}
	args := root.AsCall().Args()
	if len(args) != 2 || args[0].Kind() != ast.ListKind {
		ctx.Issues.Report(root.ID(), "subexpression elimination: malformed cel.@block arguments")
		return
	}
	subs := args[0].AsList().Elements()
	result := args[1]
	for k, sub := range subs {
		for _, idx := range referencedIndices(sub) {
			if idx >= k {
				ctx.Issues.Report(sub.ID(), fmt.Sprintf("subexpression elimination: subexpression %d references non-prior index %d", k, idx))
			}
		}
	}
	foundResultIndex := false
	for _, idx := range referencedIndices(result) {
		if idx >= len(subs) {
			ctx.Issues.Report(result.ID(), fmt.Sprintf("subexpression elimination: result references out-of-range index %d", idx))
		}
		foundResultIndex = true
	}
	if !foundResultIndex {
		ctx.Issues.Report(result.ID(), "subexpression elimination: block result contains no @index reference")
	}
}

// referencedIndices returns the set of @indexK suffixes referenced anywhere within e.
func referencedIndices(e ast.Expr) []int {
	var out []int
	ast.PreOrderVisit(e, ast.NewExprVisitor(func(child ast.Expr) {
		if child.Kind() != ast.IdentKind {
			return
		}
		name := child.AsIdent()
		if !strings.HasPrefix(name, blockIndexPrefix) {
			return
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(name, blockIndexPrefix)); err == nil {
			out = append(out, n)
		}
	}, nil))
	return out
}
