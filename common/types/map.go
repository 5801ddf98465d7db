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

// Mapper is the subset of ref.Val behavior shared by map values produced during folding.
type Mapper interface {
	ref.Val
	Contains(key ref.Val) ref.Val
	Find(key ref.Val) (ref.Val, bool)
	Get(key ref.Val) ref.Val
	Size() Int
	Iterator() *MapIterator
}

type mapEntry struct {
	key ref.Val
	val ref.Val
}

// NewDynamicMap returns a Mapper over already-adapted key/value pairs, preserving entry order.
func NewDynamicMap(entries []struct{ Key, Value ref.Val }) Mapper {
	m := &baseMap{}
	for _, e := range entries {
		m.entries = append(m.entries, mapEntry{key: e.Key, val: e.Value})
	}
	return m
}

type baseMap struct {
	entries []mapEntry
}

// Contains implements the traits.Container interface method.
func (m *baseMap) Contains(key ref.Val) ref.Val {
	val, found := m.Find(key)
	if !found && val != nil {
		return val
	}
	return Bool(found)
}

// ConvertToType implements the ref.Val interface method.
func (m *baseMap) ConvertToType(typeVal ref.Type) ref.Val {
	switch typeVal {
	case MapType:
		return m
	case TypeType:
		return MapType
	}
	return NewErr("type conversion error from '%s' to '%s'", MapType, typeVal)
}

// Equal implements the ref.Val interface method.
func (m *baseMap) Equal(other ref.Val) ref.Val {
	otherMap, ok := other.(Mapper)
	if !ok {
		return ValOrErr(other, "no such overload")
	}
	if m.Size() != otherMap.Size() {
		return False
	}
	it := m.Iterator()
	for it.HasNext() {
		key := it.Next()
		thisVal, _ := m.Find(key)
		otherVal, found := otherMap.Find(key)
		if !found {
			return False
		}
		if thisVal.Equal(otherVal) != True {
			return False
		}
	}
	return True
}

// Find looks up a key by CEL equality, returning (nil, false) on miss.
func (m *baseMap) Find(key ref.Val) (ref.Val, bool) {
	if IsError(key) || IsUnknown(key) {
		return key, false
	}
	for _, e := range m.entries {
		if e.key.Equal(key) == True {
			return e.val, true
		}
	}
	return nil, false
}

// Get implements the traits.Indexer interface method.
func (m *baseMap) Get(key ref.Val) ref.Val {
	v, found := m.Find(key)
	if !found {
		return ValOrErr(v, "no such key: %v", key)
	}
	return v
}

// Size implements the traits.Sizer interface method.
func (m *baseMap) Size() Int {
	return Int(len(m.entries))
}

// Iterator implements the traits.Iterable interface method, yielding keys in insertion order.
func (m *baseMap) Iterator() *MapIterator {
	return &MapIterator{entries: m.entries}
}

// Type implements the ref.Val interface method.
func (m *baseMap) Type() ref.Type {
	return MapType
}

// Value implements the ref.Val interface method.
func (m *baseMap) Value() any {
	raw := make(map[any]any, len(m.entries))
	for _, e := range m.entries {
		raw[e.key.Value()] = e.val.Value()
	}
	return raw
}

// MapIterator walks the keys of a Mapper in insertion order.
type MapIterator struct {
	entries []mapEntry
	cursor  int
}

// HasNext reports whether further keys remain.
func (it *MapIterator) HasNext() bool {
	return it.cursor < len(it.entries)
}

// Next returns the next key and advances the cursor.
func (it *MapIterator) Next() ref.Val {
	if !it.HasNext() {
		return nil
	}
	k := it.entries[it.cursor].key
	it.cursor++
	return k
}
