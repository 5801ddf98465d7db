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
	"testing"

	"github.com/google/cel-ast-optimizer/common/types/ref"
)

func newTestMap(entries ...struct{ Key, Value ref.Val }) Mapper {
	return NewDynamicMap(entries)
}

func TestMapContains(t *testing.T) {
	m := newTestMap(
		struct{ Key, Value ref.Val }{String("first"), String("hello")},
		struct{ Key, Value ref.Val }{String("second"), String("world")},
	)
	if m.Contains(String("first")) != True {
		t.Error("m.Contains('first') != true")
	}
	if m.Contains(String("third")) != False {
		t.Error("m.Contains('third') != false")
	}
}

func TestMapGet(t *testing.T) {
	m := newTestMap(struct{ Key, Value ref.Val }{String("first"), String("hello")})
	if m.Get(String("first")) != String("hello") {
		t.Errorf("m.Get('first') = %v, want hello", m.Get(String("first")))
	}
	if !IsError(m.Get(String("missing"))) {
		t.Error("m.Get('missing') did not error")
	}
}

func TestMapEqual(t *testing.T) {
	mapA := newTestMap(
		struct{ Key, Value ref.Val }{String("first"), String("hello")},
		struct{ Key, Value ref.Val }{String("second"), String("world")},
	)
	mapB := newTestMap(
		struct{ Key, Value ref.Val }{String("second"), String("world")},
		struct{ Key, Value ref.Val }{String("first"), String("hello")},
	)
	if mapA.Equal(mapB) != True {
		t.Error("mapA.Equal(mapB) != true, key order should not matter")
	}
	mapC := newTestMap(struct{ Key, Value ref.Val }{String("first"), String("hello")})
	if mapA.Equal(mapC) != False {
		t.Error("mapA.Equal(mapC) != false for maps of different size")
	}
}

func TestMapSize(t *testing.T) {
	m := newTestMap(
		struct{ Key, Value ref.Val }{String("first"), Int(1)},
		struct{ Key, Value ref.Val }{String("second"), Int(2)},
	)
	if m.Size() != Int(2) {
		t.Errorf("m.Size() = %v, want 2", m.Size())
	}
}

func TestMapIterator(t *testing.T) {
	m := newTestMap(
		struct{ Key, Value ref.Val }{String("first"), Int(1)},
		struct{ Key, Value ref.Val }{String("second"), Int(2)},
	)
	it := m.Iterator()
	seen := map[string]bool{}
	for it.HasNext() {
		k := it.Next()
		seen[string(k.(String))] = true
	}
	if len(seen) != 2 || !seen["first"] || !seen["second"] {
		t.Errorf("iterator produced unexpected keys: %v", seen)
	}
}

func TestMapConvertToType(t *testing.T) {
	m := newTestMap(struct{ Key, Value ref.Val }{String("a"), Int(1)})
	if m.ConvertToType(MapType) != m {
		t.Error("m was not convertible to itself")
	}
	if m.ConvertToType(TypeType) != MapType {
		t.Error("m did not convert to its type")
	}
	if !IsError(m.ConvertToType(ListType)) {
		t.Error("m unexpectedly converted to list type")
	}
}
