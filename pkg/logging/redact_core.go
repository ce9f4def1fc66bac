// pkg/logging/redact_core.go
package logging

import (
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redactCore applies a Policy to every field on its way into the wrapped core.
// Fields are never modified in place: changed fields are copied, and nested
// values are wrapped so redaction happens while they are being encoded.
type redactCore struct {
	zapcore.Core
	policy *Policy
}

func newRedactCore(core zapcore.Core, policy *Policy) zapcore.Core {
	if policy.Empty() {
		return core
	}
	return &redactCore{Core: core, policy: policy}
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{
		Core:   c.Core.With(c.policy.Fields(fields)),
		policy: c.policy,
	}
}

func (c *redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.policy.Fields(fields))
}

// Fields returns fields with every policy path redacted. The input slice is
// returned untouched when nothing matches.
func (p *Policy) Fields(fields []zapcore.Field) []zapcore.Field {
	if p.Empty() {
		return fields
	}
	root := p.start
	var out []zapcore.Field
	for i, f := range fields {
		nf, changed := p.field(root, f)
		if !changed {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = nf
	}
	if out == nil {
		return fields
	}
	return out
}

func (p *Policy) field(m matcher, f zapcore.Field) (zapcore.Field, bool) {
	if f.Type == zapcore.InlineMarshalerType {
		obj, ok := f.Interface.(zapcore.ObjectMarshaler)
		if !ok {
			return f, false
		}
		return zap.Inline(redactedObject{obj: obj, m: m, p: p}), true
	}
	redact, next := m.step(f.Key)
	if redact {
		return zap.String(f.Key, p.marker), true
	}
	if len(next) == 0 {
		return f, false
	}
	switch f.Type {
	case zapcore.ObjectMarshalerType:
		if obj, ok := f.Interface.(zapcore.ObjectMarshaler); ok {
			return zap.Object(f.Key, redactedObject{obj: obj, m: next, p: p}), true
		}
	case zapcore.ArrayMarshalerType:
		if arr, ok := f.Interface.(zapcore.ArrayMarshaler); ok {
			return zap.Array(f.Key, redactedArray{arr: arr, m: next, p: p}), true
		}
	case zapcore.ReflectType:
		switch v := structured(f.Interface).(type) {
		case Fields:
			return zap.Object(f.Key, redactedObject{obj: v, m: next, p: p}), true
		case anyArray:
			return zap.Array(f.Key, redactedArray{arr: v, m: next, p: p}), true
		}
	}
	return f, false
}

// structured converts a reflected value into Fields or anyArray so nested
// paths can be addressed. Values that are neither stay as they are.
func structured(v any) any {
	switch t := v.(type) {
	case Fields:
		return t
	case map[string]any:
		return Fields(t)
	case []any:
		return anyArray(t)
	case nil, string, bool, float64, int, int64:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return v
	}
	switch t := decoded.(type) {
	case map[string]any:
		return Fields(t)
	case []any:
		return anyArray(t)
	}
	return v
}

type redactedObject struct {
	obj zapcore.ObjectMarshaler
	m   matcher
	p   *Policy
}

func (o redactedObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return o.obj.MarshalLogObject(&pathEncoder{enc: enc, m: o.m, p: o.p})
}

type redactedArray struct {
	arr zapcore.ArrayMarshaler
	m   matcher
	p   *Policy
}

func (a redactedArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	return a.arr.MarshalLogArray(&pathArrayEncoder{enc: enc, m: a.m, p: a.p})
}

// pathEncoder sits between a marshaler and the real encoder for one object level.
type pathEncoder struct {
	enc zapcore.ObjectEncoder
	m   matcher
	p   *Policy
}

func (e *pathEncoder) hit(key string) bool {
	redact, _ := e.m.step(key)
	if redact {
		e.enc.AddString(key, e.p.marker)
	}
	return redact
}

func (e *pathEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	redact, next := e.m.step(key)
	switch {
	case redact:
		e.enc.AddString(key, e.p.marker)
		return nil
	case len(next) > 0:
		return e.enc.AddArray(key, redactedArray{arr: arr, m: next, p: e.p})
	}
	return e.enc.AddArray(key, arr)
}

func (e *pathEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	redact, next := e.m.step(key)
	switch {
	case redact:
		e.enc.AddString(key, e.p.marker)
		return nil
	case len(next) > 0:
		return e.enc.AddObject(key, redactedObject{obj: obj, m: next, p: e.p})
	}
	return e.enc.AddObject(key, obj)
}

func (e *pathEncoder) AddReflected(key string, v interface{}) error {
	redact, next := e.m.step(key)
	if redact {
		e.enc.AddString(key, e.p.marker)
		return nil
	}
	if len(next) > 0 {
		switch s := structured(v).(type) {
		case Fields:
			return e.enc.AddObject(key, redactedObject{obj: s, m: next, p: e.p})
		case anyArray:
			return e.enc.AddArray(key, redactedArray{arr: s, m: next, p: e.p})
		}
	}
	return e.enc.AddReflected(key, v)
}

func (e *pathEncoder) AddBinary(key string, v []byte) {
	if !e.hit(key) {
		e.enc.AddBinary(key, v)
	}
}

func (e *pathEncoder) AddByteString(key string, v []byte) {
	if !e.hit(key) {
		e.enc.AddByteString(key, v)
	}
}

func (e *pathEncoder) AddBool(key string, v bool) {
	if !e.hit(key) {
		e.enc.AddBool(key, v)
	}
}

func (e *pathEncoder) AddComplex128(key string, v complex128) {
	if !e.hit(key) {
		e.enc.AddComplex128(key, v)
	}
}

func (e *pathEncoder) AddComplex64(key string, v complex64) {
	if !e.hit(key) {
		e.enc.AddComplex64(key, v)
	}
}

func (e *pathEncoder) AddDuration(key string, v time.Duration) {
	if !e.hit(key) {
		e.enc.AddDuration(key, v)
	}
}

func (e *pathEncoder) AddFloat64(key string, v float64) {
	if !e.hit(key) {
		e.enc.AddFloat64(key, v)
	}
}

func (e *pathEncoder) AddFloat32(key string, v float32) {
	if !e.hit(key) {
		e.enc.AddFloat32(key, v)
	}
}

func (e *pathEncoder) AddInt(key string, v int) {
	if !e.hit(key) {
		e.enc.AddInt(key, v)
	}
}

func (e *pathEncoder) AddInt64(key string, v int64) {
	if !e.hit(key) {
		e.enc.AddInt64(key, v)
	}
}

func (e *pathEncoder) AddInt32(key string, v int32) {
	if !e.hit(key) {
		e.enc.AddInt32(key, v)
	}
}

func (e *pathEncoder) AddInt16(key string, v int16) {
	if !e.hit(key) {
		e.enc.AddInt16(key, v)
	}
}

func (e *pathEncoder) AddInt8(key string, v int8) {
	if !e.hit(key) {
		e.enc.AddInt8(key, v)
	}
}

func (e *pathEncoder) AddString(key, v string) {
	if !e.hit(key) {
		e.enc.AddString(key, v)
	}
}

func (e *pathEncoder) AddTime(key string, v time.Time) {
	if !e.hit(key) {
		e.enc.AddTime(key, v)
	}
}

func (e *pathEncoder) AddUint(key string, v uint) {
	if !e.hit(key) {
		e.enc.AddUint(key, v)
	}
}

func (e *pathEncoder) AddUint64(key string, v uint64) {
	if !e.hit(key) {
		e.enc.AddUint64(key, v)
	}
}

func (e *pathEncoder) AddUint32(key string, v uint32) {
	if !e.hit(key) {
		e.enc.AddUint32(key, v)
	}
}

func (e *pathEncoder) AddUint16(key string, v uint16) {
	if !e.hit(key) {
		e.enc.AddUint16(key, v)
	}
}

func (e *pathEncoder) AddUint8(key string, v uint8) {
	if !e.hit(key) {
		e.enc.AddUint8(key, v)
	}
}

func (e *pathEncoder) AddUintptr(key string, v uintptr) {
	if !e.hit(key) {
		e.enc.AddUintptr(key, v)
	}
}

// OpenNamespace passes through; keys added after it are still matched at this level.
func (e *pathEncoder) OpenNamespace(key string) {
	e.enc.OpenNamespace(key)
}

// pathArrayEncoder addresses array elements by their decimal index.
type pathArrayEncoder struct {
	enc zapcore.ArrayEncoder
	m   matcher
	p   *Policy
	i   int
}

func (a *pathArrayEncoder) next() (bool, matcher) {
	key := strconv.Itoa(a.i)
	a.i++
	return a.m.step(key)
}

func (a *pathArrayEncoder) hit() bool {
	redact, _ := a.next()
	if redact {
		a.enc.AppendString(a.p.marker)
	}
	return redact
}

func (a *pathArrayEncoder) AppendArray(arr zapcore.ArrayMarshaler) error {
	redact, next := a.next()
	switch {
	case redact:
		a.enc.AppendString(a.p.marker)
		return nil
	case len(next) > 0:
		return a.enc.AppendArray(redactedArray{arr: arr, m: next, p: a.p})
	}
	return a.enc.AppendArray(arr)
}

func (a *pathArrayEncoder) AppendObject(obj zapcore.ObjectMarshaler) error {
	redact, next := a.next()
	switch {
	case redact:
		a.enc.AppendString(a.p.marker)
		return nil
	case len(next) > 0:
		return a.enc.AppendObject(redactedObject{obj: obj, m: next, p: a.p})
	}
	return a.enc.AppendObject(obj)
}

func (a *pathArrayEncoder) AppendReflected(v interface{}) error {
	redact, next := a.next()
	if redact {
		a.enc.AppendString(a.p.marker)
		return nil
	}
	if len(next) > 0 {
		switch s := structured(v).(type) {
		case Fields:
			return a.enc.AppendObject(redactedObject{obj: s, m: next, p: a.p})
		case anyArray:
			return a.enc.AppendArray(redactedArray{arr: s, m: next, p: a.p})
		}
	}
	return a.enc.AppendReflected(v)
}

func (a *pathArrayEncoder) AppendBool(v bool) {
	if !a.hit() {
		a.enc.AppendBool(v)
	}
}

func (a *pathArrayEncoder) AppendByteString(v []byte) {
	if !a.hit() {
		a.enc.AppendByteString(v)
	}
}

func (a *pathArrayEncoder) AppendComplex128(v complex128) {
	if !a.hit() {
		a.enc.AppendComplex128(v)
	}
}

func (a *pathArrayEncoder) AppendComplex64(v complex64) {
	if !a.hit() {
		a.enc.AppendComplex64(v)
	}
}

func (a *pathArrayEncoder) AppendFloat64(v float64) {
	if !a.hit() {
		a.enc.AppendFloat64(v)
	}
}

func (a *pathArrayEncoder) AppendFloat32(v float32) {
	if !a.hit() {
		a.enc.AppendFloat32(v)
	}
}

func (a *pathArrayEncoder) AppendInt(v int) {
	if !a.hit() {
		a.enc.AppendInt(v)
	}
}

func (a *pathArrayEncoder) AppendInt64(v int64) {
	if !a.hit() {
		a.enc.AppendInt64(v)
	}
}

func (a *pathArrayEncoder) AppendInt32(v int32) {
	if !a.hit() {
		a.enc.AppendInt32(v)
	}
}

func (a *pathArrayEncoder) AppendInt16(v int16) {
	if !a.hit() {
		a.enc.AppendInt16(v)
	}
}

func (a *pathArrayEncoder) AppendInt8(v int8) {
	if !a.hit() {
		a.enc.AppendInt8(v)
	}
}

func (a *pathArrayEncoder) AppendString(v string) {
	if !a.hit() {
		a.enc.AppendString(v)
	}
}

func (a *pathArrayEncoder) AppendUint(v uint) {
	if !a.hit() {
		a.enc.AppendUint(v)
	}
}

func (a *pathArrayEncoder) AppendUint64(v uint64) {
	if !a.hit() {
		a.enc.AppendUint64(v)
	}
}

func (a *pathArrayEncoder) AppendUint32(v uint32) {
	if !a.hit() {
		a.enc.AppendUint32(v)
	}
}

func (a *pathArrayEncoder) AppendUint16(v uint16) {
	if !a.hit() {
		a.enc.AppendUint16(v)
	}
}

func (a *pathArrayEncoder) AppendUint8(v uint8) {
	if !a.hit() {
		a.enc.AppendUint8(v)
	}
}

func (a *pathArrayEncoder) AppendUintptr(v uintptr) {
	if !a.hit() {
		a.enc.AppendUintptr(v)
	}
}

func (a *pathArrayEncoder) AppendDuration(v time.Duration) {
	if !a.hit() {
		a.enc.AppendDuration(v)
	}
}

func (a *pathArrayEncoder) AppendTime(v time.Time) {
	if !a.hit() {
		a.enc.AppendTime(v)
	}
}
