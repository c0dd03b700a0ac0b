package validate

import (
	"net/url"
	"reflect"
	"strconv"

	"github.com/keyxmakerx/stockroom/internal/apperror"
)

// Query validates URL query values. Each value is converted to the Go type
// of its target field before the usual decode and constraint checks, so
// "?limit=abc" is a TypeMismatches issue on "limit" rather than a decode
// failure of the whole input.
func Query[T any](values url.Values) Result[T] {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return Map[T](flatten(values))
	}

	fields := jsonFields(rt)
	issues := FieldErrors{}
	m := make(map[string]any, len(values))
	for key, vals := range values {
		f, ok := fields[key]
		if !ok {
			issues[key] = Issue{Kind: apperror.KindInvalidProperties, Detail: "unrecognized key"}
			continue
		}
		v, ok := convert(vals, f.Type)
		if !ok {
			issues[key] = Issue{Kind: apperror.KindTypeMismatches, Detail: "expected " + typeLabel(f.Type)}
			continue
		}
		m[key] = v
	}
	return decode[T](m, issues)
}

func flatten(values url.Values) map[string]any {
	m := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			m[k] = v[0]
		} else {
			m[k] = v
		}
	}
	return m
}

// convert turns query strings into a JSON-compatible value for type t.
func convert(vals []string, t reflect.Type) (any, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		out := make([]any, 0, len(vals))
		for _, s := range vals {
			v, ok := convertOne(s, t.Elem())
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	}
	if len(vals) == 0 {
		return nil, true
	}
	return convertOne(vals[len(vals)-1], t)
}

func convertOne(s string, t reflect.Type) (any, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		return n, err == nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		return n, err == nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		return f, err == nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		return b, err == nil
	default:
		return s, true
	}
}
