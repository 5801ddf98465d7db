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

	"github.com/google/cel-ast-optimizer/common/ast"
	"github.com/google/cel-ast-optimizer/common/stdlib"
	"github.com/google/cel-ast-optimizer/common/types"
	"github.com/google/cel-ast-optimizer/common/types/ref"
	"github.com/google/cel-ast-optimizer/operators"
)

// defaultFoldIterations bounds the constant-folding fixed-point loop.
const defaultFoldIterations = 400

// ConstantFoldingOption configures a constantFoldingOptimizer produced by
// NewConstantFoldingOptimizer.
type ConstantFoldingOption func(*constantFoldingOptimizer) error

// MaxFoldIterations overrides the default bound (400) on the constant-folding fixed-point loop.
func MaxFoldIterations(n int) ConstantFoldingOption {
	return func(opt *constantFoldingOptimizer) error {
		if n < 0 {
			return fmt.Errorf("max fold iterations must be non-negative, got %d", n)
		}
		opt.maxIterations = n
		return nil
	}
}

// FoldableFunctions overrides the default foldable-functions set (stdlib.Functions()).
func FoldableFunctions(functions []string) ConstantFoldingOption {
	return func(opt *constantFoldingOptimizer) error {
		if len(functions) == 0 {
			return fmt.Errorf("foldable function set must not be empty")
		}
		set := make(map[string]bool, len(functions))
		for _, f := range functions {
			set[f] = true
		}
		opt.foldableFunctions = set
		return nil
	}
}

// FoldKnownValues seeds the constant folder's evaluator bindings with caller-supplied constant
// values for declared variables, so that e.g. `x in [1, 2, 3]` can fold fully when `x` is known
// to be `1`.
func FoldKnownValues(bindings map[string]ref.Val) ConstantFoldingOption {
	return func(opt *constantFoldingOptimizer) error {
		for name, val := range bindings {
			opt.knownValues[name] = val
		}
		return nil
	}
}

// constantFoldingOptimizer implements the fixed-point fold/prune/optional-prune loop of
// spec §4.4.
type constantFoldingOptimizer struct {
	maxIterations     int
	foldableFunctions map[string]bool
	knownValues       map[string]ref.Val
}

// NewConstantFoldingOptimizer creates an ASTOptimizer which performs partial evaluation,
// branch pruning, and optional-container pruning, as described by the package documentation.
func NewConstantFoldingOptimizer(opts ...ConstantFoldingOption) (ASTOptimizer, error) {
	opt := &constantFoldingOptimizer{
		maxIterations:     defaultFoldIterations,
		foldableFunctions: defaultFoldableFunctions(),
		knownValues:       map[string]ref.Val{},
	}
	for _, o := range opts {
		if err := o(opt); err != nil {
			return nil, err
		}
	}
	return opt, nil
}

func defaultFoldableFunctions() map[string]bool {
	set := make(map[string]bool)
	for _, f := range stdlib.Functions() {
		set[f] = true
	}
	return set
}

// Optimize implements the ASTOptimizer interface.
func (opt *constantFoldingOptimizer) Optimize(ctx *OptimizerContext, a *ast.AST) *ast.AST {
	for i := 0; i < opt.maxIterations; i++ {
		if !opt.foldOnce(ctx, a) {
			opt.pruneOptionalContainers(ctx, a)
			return a
		}
	}
	ctx.Issues.Report(a.Expr().ID(),
		fmt.Sprintf("constant folding exceeded the configured limit of %d iterations", opt.maxIterations))
	return a
}

// foldOnce applies the first branch-pruning or evaluation-fold rewrite it finds, in pre-order,
// and reports whether a rewrite fired. Branch pruning is attempted across the whole tree before
// evaluation-folding, matching the priority order of spec §4.4's rewrite rules.
func (opt *constantFoldingOptimizer) foldOnce(ctx *OptimizerContext, a *ast.AST) bool {
	root := ast.NavigateAST(a)
	for _, nav := range root.AllNodes() {
		if opt.tryPrune(ctx, nav) {
			return true
		}
	}
	for _, nav := range root.AllNodes() {
		if opt.tryEvalFold(ctx, nav) {
			return true
		}
	}
	return false
}

func (opt *constantFoldingOptimizer) tryPrune(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	if nav.Kind() != ast.CallKind {
		return false
	}
	if opt.pruneLogical(ctx, nav) {
		return true
	}
	if opt.pruneTernary(ctx, nav) {
		return true
	}
	if opt.pruneIn(ctx, nav) {
		return true
	}
	if opt.pruneBoolEquality(ctx, nav) {
		return true
	}
	return false
}

// pruneLogical implements short-circuit pruning of `&&` and `||` calls.
func (opt *constantFoldingOptimizer) pruneLogical(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	call := nav.AsCall()
	fn := call.FunctionName()
	isAnd := fn == operators.LogicalAnd
	isOr := fn == operators.LogicalOr
	if !isAnd && !isOr {
		return false
	}
	args := call.Args()
	var kept []ast.Expr
	shortCircuit := false
	var shortVal types.Bool
	for _, arg := range args {
		if isBoolLiteral(arg) {
			b := arg.AsLiteral().(types.Bool)
			if isAnd && b == types.False {
				shortCircuit, shortVal = true, types.False
				break
			}
			if isOr && b == types.True {
				shortCircuit, shortVal = true, types.True
				break
			}
			// Identity element for this operator: drop it rather than keep it.
			continue
		}
		kept = append(kept, arg)
	}
	if shortCircuit {
		nav.SetKindCase(ctx.NewLiteral(shortVal))
		return true
	}
	if len(kept) == len(args) {
		return false
	}
	switch len(kept) {
	case 0:
		nav.SetKindCase(ctx.NewLiteral(types.Bool(isAnd)))
	case 1:
		nav.SetKindCase(ctx.CopyExpr(kept[0]))
	default:
		copies := make([]ast.Expr, len(kept))
		for i, k := range kept {
			copies[i] = ctx.CopyExpr(k)
		}
		nav.SetKindCase(ctx.NewCall(fn, copies...))
	}
	return true
}

// pruneTernary implements `true ? a : b -> a` / `false ? a : b -> b`.
func (opt *constantFoldingOptimizer) pruneTernary(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	call := nav.AsCall()
	if call.FunctionName() != operators.Conditional {
		return false
	}
	args := call.Args()
	if len(args) != 3 || !isBoolLiteral(args[0]) {
		return false
	}
	if args[0].AsLiteral().(types.Bool) {
		nav.SetKindCase(ctx.CopyExpr(args[1]))
	} else {
		nav.SetKindCase(ctx.CopyExpr(args[2]))
	}
	return true
}

// pruneIn implements `X in []` -> false and `X in [..., c, ...]` -> true when X structurally
// equals a constant element c.
func (opt *constantFoldingOptimizer) pruneIn(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	call := nav.AsCall()
	if call.FunctionName() != operators.In {
		return false
	}
	args := call.Args()
	if len(args) != 2 || args[1].Kind() != ast.ListKind {
		return false
	}
	needle := args[0]
	elems := args[1].AsList().Elements()
	if len(elems) == 0 {
		nav.SetKindCase(ctx.NewLiteral(types.False))
		return true
	}
	if needle.Kind() != ast.LiteralKind && needle.Kind() != ast.IdentKind {
		return false
	}
	clearedNeedle := ast.ClearExprIds(ctx.fac, needle)
	for _, elem := range elems {
		clearedElem := ast.ClearExprIds(ctx.fac, elem)
		if reflect.DeepEqual(clearedNeedle, clearedElem) {
			nav.SetKindCase(ctx.NewLiteral(types.True))
			return true
		}
	}
	return false
}

// pruneBoolEquality implements `c == b` / `c != b` -> `c` or `!c` when b is a boolean constant.
func (opt *constantFoldingOptimizer) pruneBoolEquality(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	call := nav.AsCall()
	fn := call.FunctionName()
	if fn != operators.Equals && fn != operators.NotEquals {
		return false
	}
	args := call.Args()
	if len(args) != 2 {
		return false
	}
	var lit types.Bool
	var other ast.Expr
	switch {
	case isBoolLiteral(args[0]):
		lit = args[0].AsLiteral().(types.Bool)
		other = args[1]
	case isBoolLiteral(args[1]):
		lit = args[1].AsLiteral().(types.Bool)
		other = args[0]
	default:
		return false
	}
	negate := (fn == operators.Equals && lit == types.False) || (fn == operators.NotEquals && lit == types.True)
	if negate {
		nav.SetKindCase(ctx.NewCall(operators.LogicalNot, ctx.CopyExpr(other)))
	} else {
		nav.SetKindCase(ctx.CopyExpr(other))
	}
	return true
}

func isBoolLiteral(e ast.Expr) bool {
	if e.Kind() != ast.LiteralKind {
		return false
	}
	_, ok := e.AsLiteral().(types.Bool)
	return ok
}

// tryEvalFold attempts to evaluate a candidate subtree via the Env's Evaluator and, on success,
// replaces it in place with the folded representation.
func (opt *constantFoldingOptimizer) tryEvalFold(ctx *OptimizerContext, nav ast.NavigableExpr) bool {
	if !canFold(nav, opt.foldableFunctions) {
		return false
	}
	evaluator := ctx.Env.Evaluator()
	if evaluator == nil {
		return false
	}
	result := evaluator.Eval(ctx.Env, nav, opt.knownValues)
	switch result.Status {
	case EvalUnknown:
		return false
	case EvalError:
		ctx.Issues.Report(nav.ID(), fmt.Sprintf("constant folding failed: %v", result.Err))
		return false
	}
	if result.Value == nil || types.IsUnknown(result.Value) {
		return false
	}
	newExpr, ok := opt.representValue(ctx, result.Value)
	if !ok {
		return false
	}
	nav.SetKindCase(newExpr)
	return true
}

// canFold implements spec §4.4's canFold(node) predicate.
func canFold(nav ast.NavigableExpr, foldable map[string]bool) bool {
	switch nav.Kind() {
	case ast.CallKind:
		call := nav.AsCall()
		fn := call.FunctionName()
		if fn == "optional.of" || fn == "optional.none" {
			return false
		}
		return allFunctionsFoldable(nav, foldable)
	case ast.SelectKind:
		sel := nav.AsSelect()
		if sel.IsTestOnly() {
			return false
		}
		return isConstantContainerNav(navChild(nav, sel.Operand()))
	case ast.ListKind, ast.MapKind:
		return allFunctionsFoldable(nav, foldable)
	case ast.ComprehensionKind:
		return !isNestedInComprehension(nav) && allFunctionsFoldable(nav, foldable)
	default:
		return false
	}
}

func navChild(nav ast.NavigableExpr, e ast.Expr) ast.NavigableExpr {
	if childNav, ok := e.(ast.NavigableExpr); ok {
		return childNav
	}
	for _, c := range nav.Children() {
		if c.ID() == e.ID() {
			return c
		}
	}
	return nil
}

func isConstantContainerNav(nav ast.NavigableExpr) bool {
	if nav == nil {
		return false
	}
	switch nav.Kind() {
	case ast.LiteralKind:
		return true
	case ast.ListKind, ast.MapKind, ast.StructKind:
		for _, child := range nav.Children() {
			if !isConstantContainerNav(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func allFunctionsFoldable(nav ast.NavigableExpr, foldable map[string]bool) bool {
	for _, n := range nav.AllNodes() {
		if n.Kind() == ast.CallKind && !foldable[n.AsCall().FunctionName()] {
			return false
		}
	}
	return true
}

func isNestedInComprehension(nav ast.NavigableExpr) bool {
	parent, ok := nav.Parent()
	for ok {
		if parent.Kind() == ast.ComprehensionKind {
			return true
		}
		parent, ok = parent.Parent()
	}
	return false
}

// representValue converts a folded ref.Val back into an Expr suitable for SetKindCase, following
// the canonicalization of rule 3 in spec §4.4 (wrapped Optionals become optional.of/none calls).
func (opt *constantFoldingOptimizer) representValue(ctx *OptimizerContext, val ref.Val) (ast.Expr, bool) {
	switch v := val.(type) {
	case *types.Optional:
		if !v.HasValue() {
			return ctx.NewCall("optional.none"), true
		}
		inner, ok := opt.representValue(ctx, v.GetValue())
		if !ok {
			return nil, false
		}
		return ctx.NewCall("optional.of", inner), true
	case types.Lister:
		elems := make([]ast.Expr, 0, int(v.Size()))
		it := v.Iterator()
		for it.HasNext() {
			elemExpr, ok := opt.representValue(ctx, it.Next())
			if !ok {
				return nil, false
			}
			elems = append(elems, elemExpr)
		}
		return ctx.NewList(elems, nil), true
	case types.Mapper:
		entries := make([]ast.EntryExpr, 0, int(v.Size()))
		it := v.Iterator()
		for it.HasNext() {
			k := it.Next()
			mv, _ := v.Find(k)
			keyExpr, ok := opt.representValue(ctx, k)
			if !ok {
				return nil, false
			}
			valExpr, ok := opt.representValue(ctx, mv)
			if !ok {
				return nil, false
			}
			entries = append(entries, ctx.NewMapEntry(keyExpr, valExpr, false))
		}
		return ctx.NewMap(entries), true
	case *types.Err, *types.Unknown:
		return nil, false
	default:
		return ctx.NewLiteral(val), true
	}
}

// pruneOptionalContainers implements spec §4.4 rule 4: a final pass over every LIST/MAP/STRUCT
// which prunes optional.none() entries and unwraps optional.of(const) entries.
func (opt *constantFoldingOptimizer) pruneOptionalContainers(ctx *OptimizerContext, a *ast.AST) {
	for _, nav := range ast.NavigateAST(a).AllNodes() {
		switch nav.Kind() {
		case ast.ListKind:
			opt.pruneOptionalList(ctx, nav)
		case ast.MapKind:
			opt.pruneOptionalMap(ctx, nav)
		case ast.StructKind:
			opt.pruneOptionalStruct(ctx, nav)
		}
	}
}

func (opt *constantFoldingOptimizer) pruneOptionalList(ctx *OptimizerContext, nav ast.NavigableExpr) {
	l := nav.AsList()
	optSet := make(map[int32]bool, len(l.OptionalIndices()))
	for _, idx := range l.OptionalIndices() {
		optSet[idx] = true
	}
	elems := l.Elements()
	newElems := make([]ast.Expr, 0, len(elems))
	newOptIndices := make([]int32, 0, len(l.OptionalIndices()))
	for i, elem := range elems {
		if !optSet[int32(i)] {
			newElems = append(newElems, ctx.CopyExpr(elem))
			continue
		}
		if isOptionalNoneCall(elem) {
			continue
		}
		if inner, ok := optionalOfConstArg(elem); ok {
			newElems = append(newElems, ctx.CopyExpr(inner))
			continue
		}
		newOptIndices = append(newOptIndices, int32(len(newElems)))
		newElems = append(newElems, ctx.CopyExpr(elem))
	}
	if len(newElems) == len(elems) && len(newOptIndices) == len(l.OptionalIndices()) {
		return
	}
	nav.SetKindCase(ctx.NewList(newElems, newOptIndices))
}

func (opt *constantFoldingOptimizer) pruneOptionalMap(ctx *OptimizerContext, nav ast.NavigableExpr) {
	m := nav.AsMap()
	entries := m.Entries()
	newEntries := make([]ast.EntryExpr, 0, len(entries))
	changed := false
	for _, entry := range entries {
		me := entry.AsMapEntry()
		if !me.IsOptional() {
			newEntries = append(newEntries, ctx.NewMapEntry(ctx.CopyExpr(me.Key()), ctx.CopyExpr(me.Value()), false))
			continue
		}
		if isOptionalNoneCall(me.Value()) {
			changed = true
			continue
		}
		if inner, ok := optionalOfConstArg(me.Value()); ok {
			newEntries = append(newEntries, ctx.NewMapEntry(ctx.CopyExpr(me.Key()), ctx.CopyExpr(inner), false))
			changed = true
			continue
		}
		newEntries = append(newEntries, ctx.NewMapEntry(ctx.CopyExpr(me.Key()), ctx.CopyExpr(me.Value()), true))
	}
	if !changed {
		return
	}
	nav.SetKindCase(ctx.NewMap(newEntries))
}

func (opt *constantFoldingOptimizer) pruneOptionalStruct(ctx *OptimizerContext, nav ast.NavigableExpr) {
	s := nav.AsStruct()
	fields := s.Fields()
	newFields := make([]ast.EntryExpr, 0, len(fields))
	changed := false
	for _, field := range fields {
		sf := field.AsStructField()
		if !sf.IsOptional() {
			newFields = append(newFields, ctx.NewStructField(sf.Name(), ctx.CopyExpr(sf.Value()), false))
			continue
		}
		if isOptionalNoneCall(sf.Value()) {
			changed = true
			continue
		}
		if inner, ok := optionalOfConstArg(sf.Value()); ok {
			newFields = append(newFields, ctx.NewStructField(sf.Name(), ctx.CopyExpr(inner), false))
			changed = true
			continue
		}
		newFields = append(newFields, ctx.NewStructField(sf.Name(), ctx.CopyExpr(sf.Value()), true))
	}
	if !changed {
		return
	}
	nav.SetKindCase(ctx.NewStruct(s.TypeName(), newFields))
}

func isOptionalNoneCall(e ast.Expr) bool {
	return e.Kind() == ast.CallKind && e.AsCall().FunctionName() == "optional.none"
}

// optionalOfConstArg reports whether e is `optional.of(const)`, returning the wrapped argument.
func optionalOfConstArg(e ast.Expr) (ast.Expr, bool) {
	if e.Kind() != ast.CallKind {
		return nil, false
	}
	call := e.AsCall()
	if call.FunctionName() != "optional.of" {
		return nil, false
	}
	args := call.Args()
	if len(args) != 1 || args[0].Kind() != ast.LiteralKind {
		return nil, false
	}
	return args[0], true
}
