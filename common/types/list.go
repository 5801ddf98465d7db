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

import "github.com/google/cel-ast-optimizer/common/types/ref"

// Lister is the subset of ref.Val behavior shared by list values produced during folding.
//
// The optimizer core never dispatches arbitrary runtime operators, so unlike the full
// evaluator's traits.Lister this only needs enough shape to compare, index, and iterate.
type Lister interface {
	ref.Val
	Add(other ref.Val) ref.Val
	Contains(elem ref.Val) ref.Val
	Get(index Int) ref.Val
	Size() Int
	Iterator() *ListIterator
}

// NewDynamicList returns a Lister with heterogeneous elements already adapted to ref.Val.
func NewDynamicList(elems []ref.Val) Lister {
	return &baseList{elems: elems}
}

type baseList struct {
	elems []ref.Val
}

// Add implements the traits.Adder interface method by concatenating two lists.
func (l *baseList) Add(other ref.Val) ref.Val {
	otherList, ok := other.(Lister)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	combined := make([]ref.Val, 0, int(l.Size())+int(otherList.Size()))
	it := l.Iterator()
	for it.HasNext() {
		combined = append(combined, it.Next())
	}
	it = otherList.Iterator()
	for it.HasNext() {
		combined = append(combined, it.Next())
	}
	return NewDynamicList(combined)
}

// Contains implements the traits.Container interface method.
func (l *baseList) Contains(elem ref.Val) ref.Val {
	if IsError(elem) || IsUnknown(elem) {
		return elem
	}
	for _, e := range l.elems {
		if e.Equal(elem) == True {
			return True
		}
	}
	return False
}

// ConvertToType implements the ref.Val interface method.
func (l *baseList) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case ListType:
		return l
	case TypeType:
		return ListType
	}
	return NewErr("type conversion error from '%s' to '%s'", ListType, typeVal)
}

// Equal implements the ref.Val interface method.
func (l *baseList) Equal(other ref.Val) ref.Val {
	otherList, ok := other.(Lister)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if l.Size() != otherList.Size() {
		return False
	}
	for i := Int(0); i < l.Size(); i++ {
		if l.Get(i).Equal(otherList.Get(i)) != True {
			return False
		}
	}
	return True
}

// Get implements the traits.Indexer interface method.
func (l *baseList) Get(index Int) ref.Val {
	if index < 0 || index >= Int(len(l.elems)) {
		return NewErr("index '%d' out of range in list size '%d'", index, len(l.elems))
	}
	return l.elems[index]
}

// Size implements the traits.Sizer interface method.
func (l *baseList) Size() Int {
	return Int(len(l.elems))
}

// Iterator implements the traits.Iterable interface method.
func (l *baseList) Iterator() *ListIterator {
	return &ListIterator{list: l, len: l.Size()}
}

// Type implements the ref.Val interface method.
func (l *baseList) Type() ref.Type {
	return ListType
}

// Value implements the ref.Val interface method.
func (l *baseList) Value() any {
	raw := make([]any, len(l.elems))
	for i, e := range l.elems {
		raw[i] = e.Value()
	}
	return raw
}

// ListIterator walks the elements of a Lister in index order.
type ListIterator struct {
	list   Lister
	cursor Int
	len    Int
}

// HasNext reports whether further elements remain.
func (it *ListIterator) HasNext() bool {
	return it.cursor < it.len
}

// Next returns the next element and advances the cursor.
func (it *ListIterator) Next() ref.Val {
	if !it.HasNext() {
		return nil
	}
	v := it.list.Get(it.cursor)
	it.cursor++
	return v
}
