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
	"github.com/google/cel-ast-optimizer/common"
	"github.com/google/cel-ast-optimizer/common/ast"
)

// newTestContext builds an OptimizerContext directly, mirroring what StaticOptimizer.Optimize
// assembles for a single pass, so that individual ASTOptimizer implementations can be exercised
// without going through the full multi-pass driver (id renumbering, re-checking between passes).
func newTestContext(env *Env, info *ast.SourceInfo, maxID int64) *OptimizerContext {
	fac := ast.NewExprFactory()
	return &OptimizerContext{
		optimizerExprFactory: &optimizerExprFactory{
			idGenerator: newIDGenerator(maxID),
			fac:         fac,
			sourceInfo:  info,
		},
		Env:    env,
		Issues: NewIssues(common.NewErrors()),
	}
}

// newTestSourceInfo creates a SourceInfo whose MaxID-relevant bookkeeping reports maxID, so that
// a test-constructed AST with hand-assigned ids numbered up to maxID doesn't collide with freshly
// minted ids.
func newTestSourceInfo(maxID int64) *ast.SourceInfo {
	src := common.NewTextSource("test", "")
	info := ast.NewSourceInfo(src)
	info.SetOffsetRange(maxID, ast.OffsetRange{})
	return info
}
