// pkg/logging/fields.go
package logging

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields is a plain mapping of record keys to values.
type Fields map[string]any

// MarshalLogObject implements zapcore.ObjectMarshaler with sorted keys.
func (f Fields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, k := range f.keys() {
		if err := addValue(enc, k, f[k]); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// asFields reports whether v is a plain mapping.
func asFields(v any) (Fields, bool) {
	switch t := v.(type) {
	case Fields:
		return t, true
	case map[string]any:
		return Fields(t), true
	case map[string]string:
		out := make(Fields, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// anyArray encodes a decoded JSON array.
type anyArray []any

func (a anyArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range a {
		if err := appendValue(enc, v); err != nil {
			return err
		}
	}
	return nil
}

type stringArray []string

func (a stringArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, s := range a {
		enc.AppendString(s)
	}
	return nil
}

// fieldFor converts a context value into a zap field, keeping nested
// mappings as objects so redaction can address them.
func fieldFor(key string, v any) zap.Field {
	switch t := v.(type) {
	case Fields:
		return zap.Object(key, t)
	case map[string]any:
		return zap.Object(key, Fields(t))
	case []any:
		return zap.Array(key, anyArray(t))
	case []string:
		return zap.Array(key, stringArray(t))
	case error:
		return zap.String(key, t.Error())
	}
	return zap.Any(key, v)
}

func addValue(enc zapcore.ObjectEncoder, k string, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.AddReflected(k, nil)
	case string:
		enc.AddString(k, t)
	case bool:
		enc.AddBool(k, t)
	case int:
		enc.AddInt(k, t)
	case int64:
		enc.AddInt64(k, t)
	case int32:
		enc.AddInt32(k, t)
	case uint:
		enc.AddUint(k, t)
	case uint64:
		enc.AddUint64(k, t)
	case float64:
		enc.AddFloat64(k, t)
	case float32:
		enc.AddFloat32(k, t)
	case time.Time:
		enc.AddTime(k, t)
	case time.Duration:
		enc.AddDuration(k, t)
	case error:
		enc.AddString(k, t.Error())
	case Fields:
		return enc.AddObject(k, t)
	case map[string]any:
		return enc.AddObject(k, Fields(t))
	case []any:
		return enc.AddArray(k, anyArray(t))
	case []string:
		return enc.AddArray(k, stringArray(t))
	case zapcore.ObjectMarshaler:
		return enc.AddObject(k, t)
	case zapcore.ArrayMarshaler:
		return enc.AddArray(k, t)
	default:
		return enc.AddReflected(k, t)
	}
	return nil
}

func appendValue(enc zapcore.ArrayEncoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.AppendReflected(nil)
	case string:
		enc.AppendString(t)
	case bool:
		enc.AppendBool(t)
	case int:
		enc.AppendInt(t)
	case int64:
		enc.AppendInt64(t)
	case float64:
		enc.AppendFloat64(t)
	case time.Time:
		enc.AppendTime(t)
	case error:
		enc.AppendString(t.Error())
	case Fields:
		return enc.AppendObject(t)
	case map[string]any:
		return enc.AppendObject(Fields(t))
	case []any:
		return enc.AppendArray(anyArray(t))
	case zapcore.ObjectMarshaler:
		return enc.AppendObject(t)
	case zapcore.ArrayMarshaler:
		return enc.AppendArray(t)
	default:
		return enc.AppendReflected(t)
	}
	return nil
}

// fieldSet builds a record's field list with unique keys. Setting an existing
// key replaces the earlier value in place.
type fieldSet struct {
	fields []zap.Field
	index  map[string]int
}

func newFieldSet(n int) *fieldSet {
	return &fieldSet{
		fields: make([]zap.Field, 0, n),
		index:  make(map[string]int, n),
	}
}

func (s *fieldSet) set(f zap.Field) {
	if i, ok := s.index[f.Key]; ok {
		s.fields[i] = f
		return
	}
	s.index[f.Key] = len(s.fields)
	s.fields = append(s.fields, f)
}

func (s *fieldSet) merge(f Fields) {
	for _, k := range f.keys() {
		s.set(fieldFor(k, f[k]))
	}
}
