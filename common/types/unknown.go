// Copyright 2018 Google LLC
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
	"strings"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

// Unknown type which collects expression ids whose value could not be determined during folding.
type Unknown struct {
	ids map[int64]bool
}

// NewUnknown creates a new unknown value rooted at the given expression id.
func NewUnknown(id int64) *Unknown {
	return &Unknown{ids: map[int64]bool{id: true}}
}

// IDs returns the set of expression ids which contributed to this unknown value.
func (u *Unknown) IDs() []int64 {
	ids := make([]int64, 0, len(u.ids))
	for id := range u.ids {
		ids = append(ids, id)
	}
	return ids
}

// ConvertToType is an identity function since unknown values cannot be modified.
func (u *Unknown) ConvertToType(typeVal ref.Type) ref.Val {
	return u
}

// Equal is an identity function since unknown values cannot be modified.
func (u *Unknown) Equal(other ref.Val) ref.Val {
	return u
}

// String implements the fmt.Stringer interface.
func (u *Unknown) String() string {
	var sb strings.Builder
	for id := range u.ids {
		if sb.Len() != 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", id)
	}
	return sb.String()
}

// Type implements the ref.Val interface method.
func (u *Unknown) Type() ref.Type {
	return UnknownType
}

// Value implements the ref.Val interface method.
func (u *Unknown) Value() any {
	return u
}

// IsUnknown returns whether the element ref.Val is an instance of *types.Unknown.
func IsUnknown(val ref.Val) bool {
	_, ok := val.(*Unknown)
	return ok
}

// IsUnknownOrError returns whether the input is either an unknown or an error value.
func IsUnknownOrError(val ref.Val) bool {
	return IsUnknown(val) || IsError(val)
}

// MergeUnknowns combines two unknown values into a new unknown value.
func MergeUnknowns(unk1, unk2 *Unknown) *Unknown {
	if unk1 == nil {
		return unk2
	}
	if unk2 == nil {
		return unk1
	}
	out := &Unknown{ids: make(map[int64]bool, len(unk1.ids)+len(unk2.ids))}
	for id := range unk1.ids {
		out.ids[id] = true
	}
	for id := range unk2.ids {
		out.ids[id] = true
	}
	return out
}
