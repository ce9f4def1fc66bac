// pkg/logging/errors.go
package logging

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// formattedError is implemented by errors that render their own stack
// under %+v, e.g. those from github.com/pkg/errors.
type formattedError interface {
	error
	fmt.Formatter
}

// errorObject encodes an error as {type, message, stack}.
type errorObject struct {
	typ     string
	message string
	stack   string
}

// newErrorObject captures err. skip counts frames above the caller of
// newErrorObject to leave out of the call-site stack.
func newErrorObject(err error, skip int) errorObject {
	obj := errorObject{
		typ:     errorTypeName(err),
		message: err.Error(),
	}
	if f, ok := err.(formattedError); ok {
		if s := fmt.Sprintf("%+v", f); s != obj.message {
			obj.stack = s
		}
	}
	if obj.stack == "" {
		obj.stack = zap.StackSkip("", skip+1).String
	}
	return obj
}

// errorTypeName returns the unqualified name of err's dynamic type. Errors
// built by the errors and fmt packages, and unnamed types, report "Error".
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.PkgPath() {
	case "errors", "fmt":
		return "Error"
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}

func (e errorObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", e.typ)
	enc.AddString("message", e.message)
	enc.AddString("stack", e.stack)
	return nil
}
