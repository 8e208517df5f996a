package core

import (
	"fmt"
	"reflect"
	"sort"
)

// FrozenMap is a read-only view of a projected map. Write methods always
// fail with ErrReadOnly. Callers must not assign through a *FrozenMap.
type FrozenMap struct {
	keys    []string
	entries map[string]any
}

func (m *FrozenMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	value, ok := m.entries[key]
	return readValue(value), ok
}

func (m *FrozenMap) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *FrozenMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in sorted order.
func (m *FrozenMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in key order until fn returns false.
func (m *FrozenMap) Range(fn func(key string, value any) bool) {
	if m == nil || fn == nil {
		return
	}
	for _, key := range m.keys {
		if !fn(key, readValue(m.entries[key])) {
			return
		}
	}
}

func (m *FrozenMap) Set(string, any) error {
	return ErrReadOnly
}

func (m *FrozenMap) Delete(string) error {
	return ErrReadOnly
}

// ToMap returns a mutable deep copy. Shared and cyclic references in the
// frozen graph are shared in the copy as well.
func (m *FrozenMap) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	return newThawer().thawMap(m)
}

// FrozenList is a read-only view of a projected slice or array.
type FrozenList struct {
	items []any
}

func (l *FrozenList) Get(index int) (any, bool) {
	if l == nil || index < 0 || index >= len(l.items) {
		return nil, false
	}
	return readValue(l.items[index]), true
}

func (l *FrozenList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *FrozenList) Range(fn func(index int, value any) bool) {
	if l == nil || fn == nil {
		return
	}
	for index, value := range l.items {
		if !fn(index, readValue(value)) {
			return
		}
	}
}

func (l *FrozenList) Set(int, any) error {
	return ErrReadOnly
}

func (l *FrozenList) ToSlice() []any {
	if l == nil {
		return nil
	}
	return newThawer().thawList(l)
}

// readValue hands out byte slices as copies so the stored bytes stay fixed.
func readValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return append([]byte(nil), raw...)
	}
	return value
}

// Project returns a deeply read-only view of value. Maps become *FrozenMap
// and slices or arrays become *FrozenList. Primitives and opaque references
// (pointers, structs, funcs, channels) are returned unchanged, so live
// service handles are never copied. Cycles terminate and shared identity is
// preserved.
func Project(value any) any {
	p := projector{seen: map[identity]any{}}
	return p.project(reflect.ValueOf(value))
}

type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type projector struct {
	seen map[identity]any
}

func (p *projector) project(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.CanInterface() {
		return nil
	}

	switch raw := v.Interface().(type) {
	case *FrozenMap, *FrozenList:
		return raw
	case []byte:
		return append([]byte(nil), raw...)
	}

	switch v.Kind() {
	case reflect.Map:
		return p.projectMap(v)
	case reflect.Slice:
		return p.projectSlice(v)
	case reflect.Array:
		list := &FrozenList{items: make([]any, v.Len())}
		for i := 0; i < v.Len(); i++ {
			list.items[i] = p.project(v.Index(i))
		}
		return list
	default:
		return v.Interface()
	}
}

func (p *projector) projectMap(v reflect.Value) *FrozenMap {
	id := identity{kind: reflect.Map, ptr: v.Pointer()}
	if !v.IsNil() {
		if existing, ok := p.seen[id]; ok {
			return existing.(*FrozenMap)
		}
	}
	frozen := &FrozenMap{entries: make(map[string]any, v.Len())}
	if v.IsNil() {
		return frozen
	}
	p.seen[id] = frozen

	iter := v.MapRange()
	for iter.Next() {
		key := mapKey(iter.Key())
		frozen.entries[key] = p.project(iter.Value())
		frozen.keys = append(frozen.keys, key)
	}
	sort.Strings(frozen.keys)
	return frozen
}

func (p *projector) projectSlice(v reflect.Value) *FrozenList {
	id := identity{kind: reflect.Slice, ptr: v.Pointer(), len: v.Len()}
	if !v.IsNil() {
		if existing, ok := p.seen[id]; ok {
			return existing.(*FrozenList)
		}
	}
	frozen := &FrozenList{items: make([]any, v.Len())}
	if v.IsNil() {
		return frozen
	}
	p.seen[id] = frozen
	for i := 0; i < v.Len(); i++ {
		frozen.items[i] = p.project(v.Index(i))
	}
	return frozen
}

func mapKey(key reflect.Value) string {
	for key.Kind() == reflect.Interface && !key.IsNil() {
		key = key.Elem()
	}
	if key.Kind() == reflect.String {
		return key.String()
	}
	return fmt.Sprint(key.Interface())
}

type thawer struct {
	maps  map[*FrozenMap]map[string]any
	lists map[*FrozenList][]any
}

func newThawer() *thawer {
	return &thawer{
		maps:  map[*FrozenMap]map[string]any{},
		lists: map[*FrozenList][]any{},
	}
}

func (t *thawer) thaw(value any) any {
	switch typed := value.(type) {
	case *FrozenMap:
		return t.thawMap(typed)
	case *FrozenList:
		return t.thawList(typed)
	default:
		return readValue(value)
	}
}

func (t *thawer) thawMap(m *FrozenMap) map[string]any {
	if existing, ok := t.maps[m]; ok {
		return existing
	}
	out := make(map[string]any, len(m.entries))
	t.maps[m] = out
	for key, value := range m.entries {
		out[key] = t.thaw(value)
	}
	return out
}

func (t *thawer) thawList(l *FrozenList) []any {
	if existing, ok := t.lists[l]; ok {
		return existing
	}
	out := make([]any, len(l.items))
	t.lists[l] = out
	for index, value := range l.items {
		out[index] = t.thaw(value)
	}
	return out
}
