package util

import "reflect"

// DeepCopy duplicates the JSON-shaped containers of src: nested
// map[string]interface{} and []interface{} values get fresh backing storage.
// Every other value is returned as is; graph state is expected to hold
// scalars, strings and these two container kinds. A container that refers
// back to itself is copied once and the copy refers back to itself.
func DeepCopy(src interface{}) interface{} {
	if src == nil {
		return nil
	}
	return deepCopy(src, make(map[uintptr]interface{}))
}

// CopyMap is DeepCopy for a top-level state map. A nil map yields an empty one.
func CopyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return make(map[string]interface{})
	}
	return DeepCopy(src).(map[string]interface{})
}

func deepCopy(src interface{}, seen map[uintptr]interface{}) interface{} {
	switch v := src.(type) {
	case map[string]interface{}:
		if v == nil {
			return v
		}
		addr := reflect.ValueOf(v).Pointer()
		if cpy, ok := seen[addr]; ok {
			return cpy
		}
		cpy := make(map[string]interface{}, len(v))
		seen[addr] = cpy
		for key, value := range v {
			cpy[key] = deepCopy(value, seen)
		}
		return cpy

	case []interface{}:
		if v == nil {
			return v
		}
		cpy := make([]interface{}, len(v))
		for i, value := range v {
			cpy[i] = deepCopy(value, seen)
		}
		return cpy

	case []string:
		return append([]string(nil), v...)

	default:
		return v
	}
}
