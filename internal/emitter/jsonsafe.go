package emitter

import (
	"encoding/json"
	"math"
	"reflect"
)

// jsonSafe rewrites values encoding/json would mangle or reject. Errors
// become their message and non-finite floats become "NaN", "Infinity" or
// "-Infinity". Maps with string keys and slices are copied so the caller's
// values are never touched. Everything else is returned as is.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Marshaler:
		return v
	case error:
		return x.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return nonFinite(f)
		}
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = jsonSafe(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		return safeSlice(rv)
	case reflect.Array:
		return safeSlice(rv)
	}
	return v
}

func safeSlice(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = jsonSafe(rv.Index(i).Interface())
	}
	return out
}

func nonFinite(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return "NaN"
}

func safeInputs(inputs map[string]any) map[string]any {
	if inputs == nil {
		return nil
	}
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = jsonSafe(v)
	}
	return out
}
