package bind

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/zeebo/xxh3"
)

// IsSame compares two property values. Floating point numbers compare by
// their bits, comparable values with ==, everything else structurally.
func IsSame(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(interface{ Equal(any) bool }); ok {
		return e.Equal(b)
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// HashPlus folds the hash of o into h. The fold is commutative, so the
// result does not depend on the order fields are added in. Nil adds nothing.
func HashPlus(o any, h uint64) uint64 {
	if o == nil {
		return h
	}
	return h ^ hashOf(o)
}

func hashOf(o any) uint64 {
	if hs, ok := o.(interface{ Hash() uint64 }); ok {
		return hs.Hash()
	}
	return xxh3.HashString(fmt.Sprintf("%T:%v", o, o))
}

// StringValue converts a raw value to a string.
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return ""
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// NumberValue converts a raw value to a number. Values that are not
// numeric yield NaN.
func NumberValue(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	case rv.CanFloat():
		return rv.Float()
	}
	return math.NaN()
}

// BoolValue converts a raw value to a boolean.
func BoolValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	case nil:
		return false
	}
	n := NumberValue(v)
	return !math.IsNaN(n) && n != 0
}

// ExtractValue converts a raw value into T using weak typing (numbers from
// strings, strings from numbers and so on). It returns the zero value when
// no conversion applies.
func ExtractValue[T any](v any) T {
	var out T
	if t, ok := v.(T); ok {
		return t
	}
	if err := decodeWeak(v, &out); err != nil {
		var zero T
		return zero
	}
	return out
}

// convertValue converts raw into T, reading registered model classes
// through their Type.
func convertValue[T any](ctx *Context, raw any) (T, error) {
	if t, ok := raw.(T); ok {
		return t, nil
	}
	if _, ok := kindFor(reflect.TypeFor[T]()); ok {
		return ReadModel[T](ctx, raw)
	}
	var out T
	if err := decodeWeak(raw, &out); err != nil {
		return out, fmt.Errorf("convert %T to %s: %w", raw, reflect.TypeFor[T](), err)
	}
	return out, nil
}

func decodeWeak(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// extractFields is the default field extraction for decoded JSON.
func extractFields(raw any, names []string, values []any) {
	obj := asObject(raw)
	for i, name := range names {
		values[i] = obj[name]
	}
}

func asObject(raw any) map[string]any {
	switch x := raw.(type) {
	case nil:
		return nil
	case map[string]any:
		return x
	case json.RawMessage:
		return unmarshalObject(x)
	case []byte:
		return unmarshalObject(x)
	case string:
		return unmarshalObject([]byte(x))
	}
	if IsModel(raw) {
		if m, ok := exportJSON(raw).(map[string]any); ok {
			return m
		}
	}
	var m map[string]any
	if err := decodeWeak(raw, &m); err != nil {
		return nil
	}
	return m
}

func unmarshalObject(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// ToJSON serializes v. Bound models are written property by property, lists
// as arrays and nested models recursively.
func ToJSON(v any) ([]byte, error) {
	return json.Marshal(exportJSON(v))
}

func exportJSON(v any) any {
	if l, ok := v.(exporter); ok {
		values := l.exportValues()
		for i, e := range values {
			values[i] = exportJSON(e)
		}
		return values
	}
	k, ok := kindOf(v)
	if !ok {
		return v
	}
	obj := make(map[string]any, k.propertyCount())
	for i := 0; i < k.propertyCount(); i++ {
		obj[k.propertyName(i)] = exportJSON(k.getValue(v, i))
	}
	return obj
}

// payloadOf serializes request data: nil stays nil, strings and bytes are
// sent verbatim, anything else goes through ToJSON.
func payloadOf(data any) ([]byte, error) {
	switch x := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return ToJSON(x)
	}
}
