// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/url"
	"reflect"
)

// Params are query parameters. Nil values, including typed nil pointers,
// maps and slices, are dropped before encoding.
type Params map[string]any

// isNil reports whether v is nil or a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// stripNil returns a copy of p without nil values.
func stripNil(p Params) Params {
	if len(p) == 0 {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		if !isNil(v) {
			out[k] = v
		}
	}
	return out
}

// encodeParams merges p into q. Slices and arrays become repeated keys;
// pointers are dereferenced; nil elements are skipped.
func encodeParams(q url.Values, p Params) url.Values {
	if q == nil {
		q = url.Values{}
	}
	for k, v := range stripNil(p) {
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
				q.Add(k, string(rv.Bytes()))
				continue
			}
			for i := 0; i < rv.Len(); i++ {
				elem := rv.Index(i).Interface()
				if isNil(elem) {
					continue
				}
				q.Add(k, scalar(elem))
			}
		default:
			q.Add(k, scalar(rv.Interface()))
		}
	}
	return q
}

func scalar(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return fmt.Sprint(rv.Interface())
}
