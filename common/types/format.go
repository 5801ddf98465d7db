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

package types

import (
	"fmt"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Format renders a ref.Val as a human-readable string. The result is only intended for
// human consumption: do not depend on the output being stable across versions.
func Format(val ref.Val) string {
	switch v := val.(type) {
	case String:
		return fmt.Sprintf("%q", string(v))
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", val.Value())
	}
}
