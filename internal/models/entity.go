package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"
)

// Entity представляет снимок сущности в удаленном хранилище.
// Version монотонно растет на сервере и используется только для
// оптимистичной проверки конкурентных изменений.
type Entity struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    map[string]any `json:"fields,omitempty"`
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Origin    string         `json:"origin,omitempty"` // Origin узел, записавший эту версию
	Version   int64          `json:"version"`
	Deleted   bool           `json:"deleted"`
}

// Key returns the entity key.
func (e *Entity) Key() EntityKey {
	return EntityKey{Type: e.Type, ID: e.ID}
}

// Live reports whether the entity exists and is not deleted.
func (e *Entity) Live() bool {
	return e != nil && !e.Deleted
}

// IsNewerThan reports whether e carries a higher version than other.
// A nil other is always older.
func (e *Entity) IsNewerThan(other *Entity) bool {
	if other == nil {
		return true
	}
	return e.Version > other.Version
}

// Clone создает глубокую копию снимка
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Fields = CloneFields(e.Fields)
	return &c
}

// Change is one entry of the remote change feed.
type Change struct {
	Entity *Entity `json:"entity"`
	Seq    int64   `json:"seq"`
}

// ApplyFields merges payload into fields. A nil value removes the field.
// The fields map is modified in place and returned.
func ApplyFields(fields, payload map[string]any) map[string]any {
	if fields == nil {
		fields = make(map[string]any, len(payload))
	}
	for k, v := range payload {
		if v == nil {
			delete(fields, k)
			continue
		}
		fields[k] = cloneValue(v)
	}
	return fields
}

// FieldNames returns the sorted keys of a payload.
func FieldNames(payload map[string]any) []string {
	names := make([]string, 0, len(payload))
	for k := range payload {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DiffFields returns the sorted names of fields whose values differ between
// before and after, including fields present in only one of them.
func DiffFields(before, after map[string]any) []string {
	seen := make(map[string]struct{})
	for k, v := range before {
		if w, ok := after[k]; !ok || !EqualValues(v, w) {
			seen[k] = struct{}{}
		}
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			seen[k] = struct{}{}
		}
	}
	return sortedSet(seen)
}

// EqualValues compares two field values. Values that differ only in their Go
// representation (int vs float64 after a JSON round trip) are equal.
func EqualValues(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}

// UnionFields merges field name lists into one sorted list without duplicates.
func UnionFields(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			seen[name] = struct{}{}
		}
	}
	return sortedSet(seen)
}

// Disjoint reports whether a and b share no field name.
func Disjoint(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		set[name] = struct{}{}
	}
	for _, name := range b {
		if _, ok := set[name]; ok {
			return false
		}
	}
	return true
}

// CloneFields делает глубокую копию map полей
func CloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
