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

// Package ast provides a native representation of the CEL abstract syntax tree together with
// helpers for navigating and rewriting it.
package ast

import (
	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/types"
	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// AST contains a CEL expression along with its source-level metadata and, if available, the
// type and reference metadata produced by type checking.
type AST struct {
	expr       Expr
	entryExprs []EntryExpr
	sourceInfo *SourceInfo
	typeMap    map[int64]*types.Type
	refMap     map[int64]*ReferenceInfo
}

// NewAST creates an AST from a parsed expression and the accompanying source info.
func NewAST(expr Expr, sourceInfo *SourceInfo) *AST {
	return &AST{
		expr:       expr,
		sourceInfo: sourceInfo,
		typeMap:    make(map[int64]*types.Type),
		refMap:     make(map[int64]*ReferenceInfo),
	}
}

// NewCheckedAST wraps an existing AST with type and reference metadata produced by type checking.
func NewCheckedAST(parsed *AST, typeMap map[int64]*types.Type, refMap map[int64]*ReferenceInfo) *AST {
	return &AST{
		expr:       parsed.expr,
		sourceInfo: parsed.sourceInfo,
		typeMap:    typeMap,
		refMap:     refMap,
	}
}

// Expr returns the root expression of the AST.
func (a *AST) Expr() Expr {
	if a == nil {
		return nil
	}
	return a.expr
}

// SetExpr replaces the root expression of the AST. Used by optimizers which rewrite the tree
// in place.
func (a *AST) SetExpr(e Expr) {
	a.expr = e
}

// SourceInfo returns the source-level metadata tracked alongside the expression.
func (a *AST) SourceInfo() *SourceInfo {
	if a == nil {
		return nil
	}
	return a.sourceInfo
}

// IsChecked returns whether the AST has been annotated with type-check metadata.
func (a *AST) IsChecked() bool {
	return a != nil && len(a.typeMap) > 0
}

// GetType returns the checked type for the given expression id, or types.DynType if the
// AST has not been type-checked or no type was recorded for the id.
func (a *AST) GetType(id int64) *types.Type {
	if a == nil {
		return types.DynType
	}
	if t, found := a.typeMap[id]; found {
		return t
	}
	return types.DynType
}

// SetType records the checked type for the given expression id.
func (a *AST) SetType(id int64, t *types.Type) {
	if a == nil {
		return
	}
	a.typeMap[id] = t
}

// TypeMap returns the full id to checked-type mapping.
func (a *AST) TypeMap() map[int64]*types.Type {
	if a == nil {
		return nil
	}
	return a.typeMap
}

// GetReference returns the reference metadata associated with an expression id, if any.
func (a *AST) GetReference(id int64) (*ReferenceInfo, bool) {
	if a == nil {
		return nil, false
	}
	ref, found := a.refMap[id]
	return ref, found
}

// SetReference records the reference metadata associated with an expression id.
func (a *AST) SetReference(id int64, r *ReferenceInfo) {
	if a == nil {
		return
	}
	a.refMap[id] = r
}

// ReferenceMap returns the full id to reference-metadata mapping.
func (a *AST) ReferenceMap() map[int64]*ReferenceInfo {
	if a == nil {
		return nil
	}
	return a.refMap
}

// MaxID returns one more than the largest expression id recorded in the source info's offset
// ranges or in the type map, or 1 if none is recorded. Ids greater than MaxID() are unused by
// any recorded expression.
func (a *AST) MaxID() int64 {
	maxID := int64(1)
	if a.sourceInfo != nil {
		for id := range a.sourceInfo.offsetRanges {
			if id >= maxID {
				maxID = id + 1
			}
		}
	}
	for id := range a.typeMap {
		if id >= maxID {
			maxID = id + 1
		}
	}
	return maxID
}

// Copy produces a deep copy of the AST using the provided factory to clone the expression tree.
func Copy(a *AST, fac ExprFactory) *AST {
	copied := &AST{
		expr:       fac.CopyExpr(a.expr),
		sourceInfo: CopySourceInfo(a.sourceInfo),
		typeMap:    make(map[int64]*types.Type, len(a.typeMap)),
		refMap:     make(map[int64]*ReferenceInfo, len(a.refMap)),
	}
	for id, t := range a.typeMap {
		copied.typeMap[id] = t
	}
	for id, r := range a.refMap {
		copied.refMap[id] = r.Clone()
	}
	return copied
}

// OffsetRange captures the start and end byte offsets of an expression within its source text.
type OffsetRange struct {
	Start int32
	Stop  int32
}

// SourceInfo tracks the metadata needed to relate an expression tree back to its source text
// and to any macro expansions performed while parsing it.
type SourceInfo struct {
	syntax         string
	description    string
	lineOffsets    []int32
	offsetRanges   map[int64]OffsetRange
	macroCalls     map[int64]Expr
	extensions     []string
}

// NewSourceInfo creates an empty SourceInfo whose description is the name of the given
// common.Source; line offsets are not computed from the source.
func NewSourceInfo(src common.Source) *SourceInfo {
	description := ""
	if src != nil {
		description = src.Name()
	}
	return &SourceInfo{
		description:  description,
		offsetRanges: make(map[int64]OffsetRange),
		macroCalls:   make(map[int64]Expr),
	}
}

// CopySourceInfo produces a shallow copy of a SourceInfo; the offset and macro call maps are
// duplicated, but the underlying Expr values within macro calls are shared.
func CopySourceInfo(info *SourceInfo) *SourceInfo {
	if info == nil {
		return nil
	}
	out := &SourceInfo{
		syntax:       info.syntax,
		description:  info.description,
		lineOffsets:  append([]int32{}, info.lineOffsets...),
		offsetRanges: make(map[int64]OffsetRange, len(info.offsetRanges)),
		macroCalls:   make(map[int64]Expr, len(info.macroCalls)),
		extensions:   append([]string{}, info.extensions...),
	}
	for id, r := range info.offsetRanges {
		out.offsetRanges[id] = r
	}
	for id, e := range info.macroCalls {
		out.macroCalls[id] = e
	}
	return out
}

// Description returns the source description, typically a file or expression name.
func (s *SourceInfo) Description() string {
	if s == nil {
		return ""
	}
	return s.description
}

// SetOffsetRange records the byte-offset range of the expression with the given id.
func (s *SourceInfo) SetOffsetRange(id int64, r OffsetRange) {
	s.offsetRanges[id] = r
}

// GetOffsetRange returns the byte-offset range recorded for the given expression id.
func (s *SourceInfo) GetOffsetRange(id int64) (OffsetRange, bool) {
	if s == nil {
		return OffsetRange{}, false
	}
	r, found := s.offsetRanges[id]
	return r, found
}

// ClearOffsetRange removes any recorded offset range for the given expression id.
func (s *SourceInfo) ClearOffsetRange(id int64) {
	delete(s.offsetRanges, id)
}

// SetMacroCall records the pre-expansion call expression for a macro expansion rooted at id.
func (s *SourceInfo) SetMacroCall(id int64, e Expr) {
	s.macroCalls[id] = e
}

// GetMacroCall returns the pre-expansion call expression recorded for the given id.
func (s *SourceInfo) GetMacroCall(id int64) (Expr, bool) {
	if s == nil {
		return nil, false
	}
	e, found := s.macroCalls[id]
	return e, found
}

// ClearMacroCall removes any macro call recorded for the given expression id.
func (s *SourceInfo) ClearMacroCall(id int64) {
	delete(s.macroCalls, id)
}

// MacroCalls returns the full id to pre-expansion-expression mapping.
func (s *SourceInfo) MacroCalls() map[int64]Expr {
	if s == nil {
		return nil
	}
	return s.macroCalls
}

// AddExtension records an extension tag which was active while constructing this AST.
func (s *SourceInfo) AddExtension(tag string) {
	for _, e := range s.extensions {
		if e == tag {
			return
		}
	}
	s.extensions = append(s.extensions, tag)
}

// Extensions returns the set of extension tags active while constructing this AST.
func (s *SourceInfo) Extensions() []string {
	if s == nil {
		return nil
	}
	return s.extensions
}

// ReferenceInfo contains a CEL expression's identifier or function reference, as determined by
// the type checker; it is a simplification of the original proto-backed representation.
type ReferenceInfo struct {
	// Name is the fully-qualified name of the identifier or function.
	Name string

	// OverloadIDs holds the set of function overload ids which this reference could resolve to.
	OverloadIDs []string

	// Value holds the constant value of the reference, if the identifier names a constant.
	Value ref.Val
}

// NewIdentReference creates a ReferenceInfo for an identifier, optionally with a known constant
// value.
func NewIdentReference(name string, value ref.Val) *ReferenceInfo {
	return &ReferenceInfo{Name: name, Value: value}
}

// NewFunctionReference creates a ReferenceInfo for a function with the given overload ids.
func NewFunctionReference(overloads ...string) *ReferenceInfo {
	r := &ReferenceInfo{}
	for _, o := range overloads {
		r.AddOverload(o)
	}
	return r
}

// AddOverload appends an overload id to the reference if it is not already present.
func (r *ReferenceInfo) AddOverload(overloadID string) {
	for _, id := range r.OverloadIDs {
		if id == overloadID {
			return
		}
	}
	r.OverloadIDs = append(r.OverloadIDs, overloadID)
}

// Equals returns whether two references are equivalent.
func (r *ReferenceInfo) Equals(other *ReferenceInfo) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Name != other.Name {
		return false
	}
	if len(r.OverloadIDs) != len(other.OverloadIDs) {
		return false
	}
	seen := make(map[string]bool, len(r.OverloadIDs))
	for _, id := range r.OverloadIDs {
		seen[id] = true
	}
	for _, id := range other.OverloadIDs {
		if !seen[id] {
			return false
		}
	}
	return true
}

// Clone produces a copy of the ReferenceInfo.
func (r *ReferenceInfo) Clone() *ReferenceInfo {
	if r == nil {
		return nil
	}
	out := &ReferenceInfo{
		Name:        r.Name,
		Value:       r.Value,
		OverloadIDs: append([]string{}, r.OverloadIDs...),
	}
	return out
}
