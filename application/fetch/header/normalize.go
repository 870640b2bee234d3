package header

import (
	"fmt"
	"reflect"
	"strings"

	"network-fetch/application/util/rule"

	"github.com/pkg/errors"
)

var (
	ErrInvalidName  = errors.New("invalid header name")
	ErrInvalidValue = errors.New("invalid header value")
)

// NormalizeName validates name as a token and lower-cases it.
func NormalizeName(name string) (string, error) {
	if !rule.IsValidToken(name) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return strings.ToLower(name), nil
}

// NormalizeValue validates value. A valid value is returned unchanged,
// surrounding whitespace included.
func NormalizeValue(value string) (string, error) {
	if !rule.IsValidFieldValue(value) {
		return "", errors.Wrapf(ErrInvalidValue, "%q", value)
	}
	return value, nil
}

// Stringify converts v into its string form the way a loosely typed caller
// would expect: nil becomes "null" and lists are joined with ",".
func Stringify(v any) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		// String methods on a nil receiver may not cope with it.
		return "null"
	}

	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Interface && elem.IsNil() {
				// Array.prototype.join renders holes as empty strings.
				continue
			}
			parts[i] = Stringify(elem.Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Pointer:
		return Stringify(rv.Elem().Interface())
	}

	return fmt.Sprint(v)
}

// Canonical returns the wire form of a valid field name (e.g. "Content-Type").
// Invalid tokens are returned as-is.
func Canonical(name string) string {
	if !rule.IsValidToken(name) {
		return name
	}

	const capitalDiff = 'a' - 'A'
	b := []byte(name)
	upper := true
	for i, c := range b {
		if upper && 'a' <= c && c <= 'z' {
			c -= capitalDiff
		} else if !upper && 'A' <= c && c <= 'Z' {
			c += capitalDiff
		}
		b[i] = c
		upper = c == '-'
	}
	return string(b)
}
