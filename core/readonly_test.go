package core

import (
	"errors"
	"testing"
	"time"
)

func TestProject_FreezesNestedMapsAndLists(t *testing.T) {
	source := map[string]any{
		"name": "a.com",
		"tags": []string{"x", "y"},
		"nested": map[string]any{
			"count": 3,
		},
	}
	frozen, ok := Project(source).(*FrozenMap)
	if !ok {
		t.Fatalf("expected *FrozenMap")
	}
	tags, _ := frozen.Get("tags")
	list, ok := tags.(*FrozenList)
	if !ok || list.Len() != 2 {
		t.Fatalf("expected frozen list of 2 tags, got %#v", tags)
	}
	nested, _ := frozen.Get("nested")
	if _, ok := nested.(*FrozenMap); !ok {
		t.Fatalf("expected nested map to be frozen, got %T", nested)
	}
	if got := frozen.Keys(); len(got) != 3 || got[0] != "name" || got[1] != "nested" || got[2] != "tags" {
		t.Fatalf("expected sorted keys, got %v", got)
	}
}

func TestProject_WritesAreRejected(t *testing.T) {
	frozen := Project(map[string]any{"a": 1, "list": []any{1}}).(*FrozenMap)
	if err := frozen.Set("a", 2); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from Set, got %v", err)
	}
	if err := frozen.Delete("a"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from Delete, got %v", err)
	}
	value, _ := frozen.Get("a")
	if value != 1 {
		t.Fatalf("expected value unchanged, got %#v", value)
	}
	listValue, _ := frozen.Get("list")
	if err := listValue.(*FrozenList).Set(0, 9); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from list Set, got %v", err)
	}
}

func TestProject_ByteSlicesCannotBeWrittenThrough(t *testing.T) {
	frozen := Project(map[string]any{"key": []byte("abc"), "list": [][]byte{[]byte("xyz")}}).(*FrozenMap)

	value, _ := frozen.Get("key")
	value.([]byte)[0] = 'X'
	frozen.Range(func(_ string, value any) bool {
		if raw, ok := value.([]byte); ok {
			raw[1] = 'Y'
		}
		return true
	})
	again, _ := frozen.Get("key")
	if string(again.([]byte)) != "abc" {
		t.Fatalf("expected stored bytes unchanged, got %q", again)
	}

	listValue, _ := frozen.Get("list")
	item, _ := listValue.(*FrozenList).Get(0)
	item.([]byte)[0] = 'Q'
	item, _ = listValue.(*FrozenList).Get(0)
	if string(item.([]byte)) != "xyz" {
		t.Fatalf("expected list bytes unchanged, got %q", item)
	}

	thawed := frozen.ToMap()
	thawed["key"].([]byte)[2] = 'Z'
	again, _ = frozen.Get("key")
	if string(again.([]byte)) != "abc" {
		t.Fatalf("expected ToMap copy to be detached, got %q", again)
	}
}

func TestProject_SourceChangesDoNotLeak(t *testing.T) {
	source := map[string]any{"a": 1}
	frozen := Project(source).(*FrozenMap)
	source["a"] = 2
	source["b"] = 3
	if value, _ := frozen.Get("a"); value != 1 {
		t.Fatalf("expected frozen copy isolated from source, got %#v", value)
	}
	if frozen.Has("b") {
		t.Fatalf("expected new source key to stay invisible")
	}
}

func TestProject_SelfReferenceTerminatesAndKeepsIdentity(t *testing.T) {
	source := map[string]any{"name": "loop"}
	source["self"] = source

	frozen := Project(source).(*FrozenMap)
	self, ok := frozen.Get("self")
	if !ok {
		t.Fatalf("expected self key")
	}
	if self.(*FrozenMap) != frozen {
		t.Fatalf("expected self reference to resolve to the same frozen map")
	}

	thawed := frozen.ToMap()
	again, ok := thawed["self"].(map[string]any)
	if !ok {
		t.Fatalf("expected thawed self to be a map, got %T", thawed["self"])
	}
	again["marker"] = true
	if thawed["marker"] != true {
		t.Fatalf("expected thawed copy to preserve the cycle")
	}
}

func TestProject_SharedReferencesStayShared(t *testing.T) {
	shared := map[string]any{"v": 1}
	frozen := Project(map[string]any{"left": shared, "right": shared}).(*FrozenMap)
	left, _ := frozen.Get("left")
	right, _ := frozen.Get("right")
	if left != right {
		t.Fatalf("expected shared identity to be preserved")
	}
}

func TestProject_OpaqueReferencesPassThrough(t *testing.T) {
	db := &fakeDB{domain: "a.com"}
	now := time.Now()
	fn := func() {}
	frozen := Project(map[string]any{"db": db, "at": now, "fn": fn}).(*FrozenMap)

	got, _ := frozen.Get("db")
	if got.(*fakeDB) != db {
		t.Fatalf("expected pointer to pass through unchanged")
	}
	at, _ := frozen.Get("at")
	if !at.(time.Time).Equal(now) {
		t.Fatalf("expected time value to pass through")
	}
	if Project(nil) != nil {
		t.Fatalf("expected nil to project to nil")
	}
	if Project("text") != "text" || Project(3) != 3 {
		t.Fatalf("expected primitives to pass through")
	}
}

func TestFrozenMap_ToMapReturnsMutableCopy(t *testing.T) {
	frozen := Project(map[string]any{"list": []any{1, 2}}).(*FrozenMap)
	copied := frozen.ToMap()
	copied["list"].([]any)[0] = 99
	copied["extra"] = true

	list, _ := frozen.Get("list")
	first, _ := list.(*FrozenList).Get(0)
	if first != 1 {
		t.Fatalf("expected frozen list untouched, got %#v", first)
	}
	if frozen.Has("extra") {
		t.Fatalf("expected frozen map untouched")
	}
}
