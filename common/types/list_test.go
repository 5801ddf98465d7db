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

func TestListAdd(t *testing.T) {
	listA := NewDynamicList([]ref.Val{Int(1), Int(2)})
	listB := NewDynamicList([]ref.Val{Int(3)})
	combined := listA.Add(listB).(Lister)
	if combined.Size() != Int(3) {
		t.Fatalf("combined.Size() = %v, want 3", combined.Size())
	}
	if combined.Get(2) != Int(3) {
		t.Errorf("combined.Get(2) = %v, want 3", combined.Get(2))
	}
}

func TestListAddWrongType(t *testing.T) {
	list := NewDynamicList([]ref.Val{Int(1)})
	if !IsError(list.Add(String("nope"))) {
		t.Error("Add(String) did not produce an error")
	}
}

func TestListContains(t *testing.T) {
	list := NewDynamicList([]ref.Val{Int(1), Int(2), Int(3)})
	if list.Contains(Int(2)) != True {
		t.Error("list.Contains(2) != true")
	}
	if list.Contains(Int(5)) != False {
		t.Error("list.Contains(5) != false")
	}
}

func TestListGetOutOfRange(t *testing.T) {
	list := NewDynamicList([]ref.Val{Int(1)})
	if !IsError(list.Get(-1)) {
		t.Error("Get(-1) did not error")
	}
	if !IsError(list.Get(1)) {
		t.Error("Get(len) did not error")
	}
}

func TestListEqual(t *testing.T) {
	listA := NewDynamicList([]ref.Val{Int(1), Int(2)})
	listB := NewDynamicList([]ref.Val{Int(1), Int(2)})
	listC := NewDynamicList([]ref.Val{Int(2), Int(1)})
	if listA.Equal(listB) != True {
		t.Error("listA.Equal(listB) != true")
	}
	if listA.Equal(listC) != False {
		t.Error("listA.Equal(listC) != false")
	}
}

func TestListIterator(t *testing.T) {
	list := NewDynamicList([]ref.Val{Int(1), Int(2), Int(3)})
	it := list.Iterator()
	var got []ref.Val
	for it.HasNext() {
		got = append(got, it.Next())
	}
	if len(got) != 3 {
		t.Fatalf("iterator produced %d elements, want 3", len(got))
	}
	if it.Next() != nil {
		t.Error("iterator returned a value after exhaustion")
	}
}

func TestListConvertToType(t *testing.T) {
	list := NewDynamicList([]ref.Val{Int(1)})
	if list.ConvertToType(ListType) != list {
		t.Error("list was not convertible to itself")
	}
	if list.ConvertToType(TypeType) != ListType {
		t.Error("list did not convert to its type")
	}
	if !IsError(list.ConvertToType(MapType)) {
		t.Error("list unexpectedly converted to map type")
	}
}
