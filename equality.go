package reactive

import "reflect"

// EqualityTag selects a built-in comparator, per spec §4.1.
type EqualityTag int

const (
	// EqualStrict treats values as unchanged only under Go's == semantics
	// for comparable values, with NaN-equals-NaN (Object.is-style) for
	// floats — object identity for pointers/interfaces.
	EqualStrict EqualityTag = iota
	// EqualShallow additionally compares one level of struct fields, map
	// entries, or slice elements by == (elements that are not comparable
	// fall back to reflect.DeepEqual, as EqualStrict does).
	EqualShallow
	// EqualDeep recursively compares structure, with cycle detection.
	EqualDeep
)

// Resolver reports whether next should be treated as equal to (unchanged
// from) prev. A resolver must be total and side-effect free (spec §4.1).
type Resolver[T any] func(prev, next T) bool

// resolveEquality maps an EqualityTag to a concrete Resolver, or returns a
// custom resolver unchanged.
func resolveEquality[T any](tag EqualityTag, custom Resolver[T]) Resolver[T] {
	if custom != nil {
		return custom
	}
	switch tag {
	case EqualShallow:
		return shallowEqual[T]
	case EqualDeep:
		return deepEqual[T]
	default:
		return strictEqual[T]
	}
}

func strictEqual[T any](prev, next T) bool {
	pv := reflect.ValueOf(prev)
	nv := reflect.ValueOf(next)
	if pf, ok := asFloat(pv); ok {
		if nf, ok2 := asFloat(nv); ok2 {
			return pf == nf || (pf != pf && nf != nf) // NaN === NaN
		}
	}
	if !pv.IsValid() || !nv.IsValid() {
		return pv.IsValid() == nv.IsValid()
	}
	if !pv.Comparable() {
		return reflect.DeepEqual(prev, next)
	}
	return any(prev) == any(next)
}

func asFloat(v reflect.Value) (float64, bool) {
	if !v.IsValid() {
		return 0, false
	}
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

// shallowEqual compares primitives by identity and plain structs/maps/
// slices/arrays one level deep, keyed by own fields/keys/indices.
func shallowEqual[T any](prev, next T) bool {
	pv := reflect.ValueOf(prev)
	nv := reflect.ValueOf(next)

	if !pv.IsValid() || !nv.IsValid() {
		return pv.IsValid() == nv.IsValid()
	}
	if pv.Type() != nv.Type() {
		return false
	}

	switch pv.Kind() {
	case reflect.Struct:
		for i := 0; i < pv.NumField(); i++ {
			if !strictEqual(pv.Field(i).Interface(), nv.Field(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if pv.Len() != nv.Len() {
			return false
		}
		for i := 0; i < pv.Len(); i++ {
			if !strictEqual(pv.Index(i).Interface(), nv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if pv.Len() != nv.Len() {
			return false
		}
		for _, k := range pv.MapKeys() {
			nval := nv.MapIndex(k)
			if !nval.IsValid() || !strictEqual(pv.MapIndex(k).Interface(), nval.Interface()) {
				return false
			}
		}
		return true
	case reflect.Ptr, reflect.Interface:
		return pv.Pointer() == nv.Pointer()
	default:
		return strictEqual(prev, next)
	}
}

// deepEqual recursively compares structure with cycle detection, used for
// the snapshot/diff paths spec §4.1 calls out.
func deepEqual[T any](prev, next T) bool {
	return deepEqualValue(reflect.ValueOf(prev), reflect.ValueOf(next), map[visitKey]bool{})
}

type visitKey struct {
	a, b uintptr
}

func deepEqualValue(a, b reflect.Value, seen map[visitKey]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		key := visitKey{a.Pointer(), b.Pointer()}
		if seen[key] {
			return true // cycle: assume equal, matching teacher-grounded cycle guards
		}
		seen[key] = true
	}

	switch a.Kind() {
	case reflect.Ptr:
		return deepEqualValue(a.Elem(), b.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !deepEqualValue(a.Field(i), b.Field(i), seen) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !deepEqualValue(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !deepEqualValue(iter.Value(), bv, seen) {
				return false
			}
		}
		return true
	case reflect.Interface:
		return deepEqualValue(a.Elem(), b.Elem(), seen)
	default:
		return a.Interface() == b.Interface()
	}
}
