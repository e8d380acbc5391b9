package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
)

// ComputeKey returns the lowercase hex SHA-256 digest of data.
//
// Strings and byte slices are hashed as-is. Maps, structs, slices and arrays
// are hashed over their JSON encoding; map keys are emitted in sorted order at
// every nesting level, so two maps holding the same pairs always produce the
// same digest regardless of insertion order. Any other value is hashed over its
// fmt.Sprint form.
func ComputeKey(data any) string {
	sum := sha256.Sum256(canonicalBytes(data))
	return hex.EncodeToString(sum[:])
}

func canonicalBytes(data any) []byte {
	switch v := data.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	case nil:
		return []byte("null")
	}

	v := indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array, reflect.Invalid:
	default:
		return []byte(fmt.Sprint(v.Interface()))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		// Values JSON cannot represent (funcs, channels, cyclic data) fall back
		// to fmt, which also prints map keys in sorted order.
		return []byte(fmt.Sprintf("%#v", data))
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// indirect follows pointers and interfaces down to the first concrete value.
// A nil pointer yields the zero reflect.Value, which encodes as JSON null.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
