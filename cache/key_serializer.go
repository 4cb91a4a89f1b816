package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	hex "github.com/tmthrgd/go-hex"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "_"

// MaxSegmentLength is the longest argument segment kept verbatim. Longer
// segments are replaced by "h" followed by the hex xxhash64 of the segment.
const MaxSegmentLength = 64

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// It handles function pointers using %p formatting, recursive slices, and falls back to JSON
// for complex types while ensuring deterministic key generation across runs.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from a namespace and args using reflection.
//
//	SerializeKey("students", "CS")   // students_CS
//	SerializeKey("student_by_id", 1) // student_by_id_1
//	SerializeKey("courses")          // courses
func (s *defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	if len(args) == 0 {
		return namespace
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, namespace)

	for _, arg := range args {
		parts = append(parts, compactSegment(s.serializeValue(arg)))
	}

	return strings.Join(parts, KeySeparator)
}

// KeyPrefix returns the prefix shared by every key built for namespace with
// at least one argument.
func KeyPrefix(namespace string) string {
	return namespace + KeySeparator
}

func compactSegment(segment string) string {
	if len(segment) <= MaxSegmentLength {
		return segment
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64String(segment))
	return "h" + hex.EncodeToString(sum[:])
}

// serializeValue renders one argument. Scalars use their %v form, pointers
// are dereferenced, sequences are rendered element by element and anything
// else falls back to JSON.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeSequence(rv)
	case reflect.Array:
		return s.serializeSequence(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeMap(rv)
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%s:%p", rv.Kind(), v)
	}

	if isBasicKind(rv.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", rv.Type())
	}
	return string(data)
}

func (s *defaultKeySerializer) serializeSequence(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// serializeMap sorts entries by their rendered key so the output does not
// depend on map iteration order.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.serializeValue(iter.Key().Interface())+"="+s.serializeValue(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}
